package checkpoint

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/hupe1980/memora/core"
)

var (
	_ core.CheckpointStore  = (*InMemoryStore)(nil)
	_ core.RunLocker        = (*InMemoryStore)(nil)
	_ core.CheckpointLister = (*InMemoryStore)(nil)
)

// InMemoryStore is a volatile CheckpointStore keeping checkpoints in a
// process local map. Stored and returned checkpoints are cloned so callers
// cannot mutate internal state.
type InMemoryStore struct {
	mu          sync.RWMutex
	checkpoints map[string]*core.Checkpoint
	locks       LockSet
}

// NewInMemoryStore constructs an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{checkpoints: make(map[string]*core.Checkpoint)}
}

// Save stores a clone of cp, replacing any previous checkpoint of the agent.
func (s *InMemoryStore) Save(_ context.Context, cp *core.Checkpoint) error {
	if cp == nil {
		return fmt.Errorf("checkpoint is nil")
	}
	if err := ValidateAgentID(cp.AgentID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkpoints[cp.AgentID] = cp.Clone()
	return nil
}

// LoadLatest returns a clone of the stored checkpoint.
func (s *InMemoryStore) LoadLatest(_ context.Context, agentID string) (*core.Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cp, ok := s.checkpoints[agentID]
	if !ok {
		return nil, fmt.Errorf("agent %s: %w", agentID, core.ErrCheckpointNotFound)
	}
	return cp.Clone(), nil
}

// Clear removes the checkpoint of agentID if present.
func (s *InMemoryStore) Clear(_ context.Context, agentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.checkpoints, agentID)
	return nil
}

// Exists reports whether a checkpoint is stored for agentID.
func (s *InMemoryStore) Exists(_ context.Context, agentID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.checkpoints[agentID]
	return ok, nil
}

// List returns the stored agent identities in lexical order.
func (s *InMemoryStore) List(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.checkpoints))
	for id := range s.checkpoints {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Acquire implements core.RunLocker with an in-process lock set.
func (s *InMemoryStore) Acquire(ctx context.Context, agentID string) (func() error, error) {
	return s.locks.Acquire(ctx, agentID)
}
