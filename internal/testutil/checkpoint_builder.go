package testutil

import (
	"time"

	"github.com/hupe1980/memora/core"
)

// CheckpointBuilder helps construct checkpoints with fluent chaining.
// Example:
//
//	cp := NewCheckpointBuilder("a1").State(core.StateTaskRunning).
//		CompletedTask("t1", "list files", "3 files").Cursor(1).Build()
type CheckpointBuilder struct {
	cp *core.Checkpoint
}

// NewCheckpointBuilder starts a checkpoint in IDLE for agentID.
func NewCheckpointBuilder(agentID string) *CheckpointBuilder {
	return &CheckpointBuilder{cp: &core.Checkpoint{
		AgentID:          agentID,
		State:            core.StateIdle,
		Timestamp:        time.Now().UTC(),
		Tasks:            []*core.Task{},
		ExecutionHistory: []string{},
		TraceEvents:      []core.TraceEvent{},
		CurrentAction:    []byte("null"),
	}}
}

// State sets the machine state (chainable).
func (b *CheckpointBuilder) State(s core.State) *CheckpointBuilder { b.cp.State = s; return b }

// Goal sets the run goal (chainable).
func (b *CheckpointBuilder) Goal(g string) *CheckpointBuilder { b.cp.Goal = g; return b }

// Model sets the model id (chainable).
func (b *CheckpointBuilder) Model(id string) *CheckpointBuilder { b.cp.ModelID = id; return b }

// Task appends a task (chainable).
func (b *CheckpointBuilder) Task(t *core.Task) *CheckpointBuilder {
	b.cp.Tasks = append(b.cp.Tasks, t)
	return b
}

// PendingTask appends a pending task (chainable).
func (b *CheckpointBuilder) PendingTask(id, goal string) *CheckpointBuilder {
	return b.Task(core.NewTask(id, goal))
}

// CompletedTask appends a completed task with its result (chainable).
func (b *CheckpointBuilder) CompletedTask(id, goal, result string) *CheckpointBuilder {
	t := core.NewTask(id, goal)
	t.MarkRunning()
	t.MarkCompleted(result)
	return b.Task(t)
}

// Cursor sets the current task index (chainable).
func (b *CheckpointBuilder) Cursor(i int) *CheckpointBuilder { b.cp.CurrentTaskIndex = i; return b }

// GlobalContext sets the accumulated task results (chainable).
func (b *CheckpointBuilder) GlobalContext(s string) *CheckpointBuilder {
	b.cp.GlobalContext = s
	return b
}

// History appends global execution history records (chainable).
func (b *CheckpointBuilder) History(records ...string) *CheckpointBuilder {
	b.cp.ExecutionHistory = append(b.cp.ExecutionHistory, records...)
	return b
}

// Action sets the in-flight action (chainable). Panics on encoding failure.
func (b *CheckpointBuilder) Action(a core.Action) *CheckpointBuilder {
	raw, err := core.EncodeAction(a)
	if err != nil {
		panic(err)
	}
	b.cp.CurrentAction = raw
	return b
}

// Observation sets the pending observation (chainable).
func (b *CheckpointBuilder) Observation(obs string) *CheckpointBuilder {
	b.cp.CurrentObservation = &obs
	return b
}

// FinalAnswer sets the stored final answer (chainable).
func (b *CheckpointBuilder) FinalAnswer(s string) *CheckpointBuilder { b.cp.FinalAnswer = s; return b }

// Steps sets the safety ceiling counter (chainable).
func (b *CheckpointBuilder) Steps(n int) *CheckpointBuilder { b.cp.Steps = n; return b }

// Failed marks the checkpoint as ERROR with the failing state (chainable).
func (b *CheckpointBuilder) Failed(msg string, at core.State) *CheckpointBuilder {
	b.cp.State = core.StateError
	b.cp.Error = msg
	b.cp.FailedState = at
	return b
}

// Events appends trace events (chainable).
func (b *CheckpointBuilder) Events(evs ...core.TraceEvent) *CheckpointBuilder {
	b.cp.TraceEvents = append(b.cp.TraceEvents, evs...)
	return b
}

// Build returns a deep copy of the built checkpoint.
func (b *CheckpointBuilder) Build() *core.Checkpoint { return b.cp.Clone() }
