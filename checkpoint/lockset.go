package checkpoint

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/memora/core"
)

// LockSet is an in-process core.RunLocker. The zero value is ready to use.
type LockSet struct {
	mu     sync.Mutex
	active map[string]struct{}
}

// Acquire claims agentID until the returned release func is called.
func (l *LockSet) Acquire(_ context.Context, agentID string) (func() error, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.active == nil {
		l.active = make(map[string]struct{})
	}
	if _, held := l.active[agentID]; held {
		return nil, fmt.Errorf("agent %s: %w", agentID, core.ErrRunInProgress)
	}
	l.active[agentID] = struct{}{}

	var once sync.Once
	return func() error {
		once.Do(func() {
			l.mu.Lock()
			delete(l.active, agentID)
			l.mu.Unlock()
		})
		return nil
	}, nil
}
