package testutil

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hupe1980/memora/core"
)

// ErrScriptExhausted is returned by ScriptedPlanner when it runs out of replies.
var ErrScriptExhausted = errors.New("planner script exhausted")

// ScriptedPlanner replays a fixed list of raw planner outputs and records
// every prompt it receives.
type ScriptedPlanner struct {
	mu      sync.Mutex
	replies []string
	// Repeat, when set, is returned once the script is exhausted.
	Repeat  string
	prompts []string
	// Hook runs before each reply with the zero-based call index.
	Hook func(ctx context.Context, call int) error
}

var _ core.Planner = (*ScriptedPlanner)(nil)

// NewScriptedPlanner creates a planner returning replies in order.
func NewScriptedPlanner(replies ...string) *ScriptedPlanner {
	return &ScriptedPlanner{replies: replies}
}

// Plan implements core.Planner.
func (p *ScriptedPlanner) Plan(ctx context.Context, prompt, _ string) (string, error) {
	p.mu.Lock()
	call := len(p.prompts)
	p.prompts = append(p.prompts, prompt)
	hook := p.Hook
	p.mu.Unlock()

	if hook != nil {
		if err := hook(ctx, call); err != nil {
			return "", err
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if call < len(p.replies) {
		return p.replies[call], nil
	}
	if p.Repeat != "" {
		return p.Repeat, nil
	}
	return "", ErrScriptExhausted
}

// Prompts returns the prompts received so far.
func (p *ScriptedPlanner) Prompts() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string{}, p.prompts...)
}

// Calls returns the number of Plan invocations.
func (p *ScriptedPlanner) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.prompts)
}

// StubWriter returns a formatted answer and records its inputs.
type StubWriter struct {
	mu       sync.Mutex
	Answer   string
	Err      error
	Contexts []string
}

var _ core.Writer = (*StubWriter)(nil)

// WriteAnswer implements core.Writer. Without a fixed Answer it echoes the
// context so tests can assert on what reached the writer.
func (w *StubWriter) WriteAnswer(_ context.Context, goal, contextText, _ string) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.Contexts = append(w.Contexts, contextText)
	if w.Err != nil {
		return "", w.Err
	}
	if w.Answer != "" {
		return w.Answer, nil
	}
	return fmt.Sprintf("answer(%s): %s", goal, contextText), nil
}

// Calls returns how often WriteAnswer ran.
func (w *StubWriter) Calls() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.Contexts)
}

// StubTool is a capability driven by a function.
type StubTool struct {
	mu    sync.Mutex
	Fn    func(ctx context.Context, args map[string]any) core.ToolResult
	calls []map[string]any
}

// Invoke implements core.Capability.
func (t *StubTool) Invoke(ctx context.Context, args map[string]any) core.ToolResult {
	t.mu.Lock()
	t.calls = append(t.calls, args)
	fn := t.Fn
	t.mu.Unlock()
	if fn == nil {
		return core.Ok("")
	}
	return fn(ctx, args)
}

// Calls returns the recorded argument maps.
func (t *StubTool) Calls() []map[string]any {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]map[string]any{}, t.calls...)
}

// Tools is a map based core.ToolResolver.
type Tools map[string]core.Capability

// Resolve implements core.ToolResolver.
func (t Tools) Resolve(name string) (core.Capability, bool) {
	c, ok := t[name]
	return c, ok
}

// FlakyStore wraps a store and fails the Nth Save call (1-based) and every
// Save after FailFrom when set.
type FlakyStore struct {
	core.CheckpointStore
	mu       sync.Mutex
	saves    int
	FailOn   int
	FailFrom int
}

// Save implements core.CheckpointStore.
func (s *FlakyStore) Save(ctx context.Context, cp *core.Checkpoint) error {
	s.mu.Lock()
	s.saves++
	n := s.saves
	s.mu.Unlock()
	if n == s.FailOn || (s.FailFrom > 0 && n >= s.FailFrom) {
		return fmt.Errorf("disk full (save %d)", n)
	}
	return s.CheckpointStore.Save(ctx, cp)
}

// Saves returns the number of Save attempts.
func (s *FlakyStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}
