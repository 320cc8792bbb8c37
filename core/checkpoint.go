package core

import (
	"context"
	"encoding/json"
	"time"
)

// Checkpoint is a point-in-time, self-contained snapshot of one orchestration
// run. Loading it back must let the orchestrator resume with behavior
// identical to an uninterrupted run, so it captures every piece of mutable
// state the state machine reads.
type Checkpoint struct {
	AgentID   string    `json:"agent_id"`
	State     State     `json:"state"`
	Timestamp time.Time `json:"timestamp"`

	// Run inputs
	Goal    string `json:"goal"`
	ModelID string `json:"model_id"`

	// Task context
	Tasks            []*Task `json:"tasks"`
	CurrentTaskIndex int     `json:"current_task_index"`

	// Execution context
	GlobalContext    string   `json:"global_context"`
	ExecutionHistory []string `json:"execution_history"`

	// Trace
	TraceEvents []TraceEvent `json:"trace_events"`

	// In-flight step
	CurrentAction      json.RawMessage `json:"current_action"`      // canonical envelope or null
	CurrentObservation *string         `json:"current_observation"` // nil when no observation is pending
	FinalAnswer        string          `json:"final_answer"`

	// Safety ceiling bookkeeping
	Steps int `json:"steps"`

	// Failure details, set only when State is ERROR
	Error       string `json:"error,omitempty"`
	FailedState State  `json:"failed_state,omitempty"`
}

// Action decodes CurrentAction.
func (c *Checkpoint) Action() (Action, error) { return DecodeAction(c.CurrentAction) }

// Clone returns a deep copy safe for independent mutation. Trace event
// payload maps are shared since events are immutable once emitted.
func (c *Checkpoint) Clone() *Checkpoint {
	cp := *c
	cp.Tasks = make([]*Task, len(c.Tasks))
	for i, t := range c.Tasks {
		cp.Tasks[i] = t.Clone()
	}
	cp.ExecutionHistory = append([]string{}, c.ExecutionHistory...)
	cp.TraceEvents = append([]TraceEvent{}, c.TraceEvents...)
	if c.CurrentAction != nil {
		cp.CurrentAction = append(json.RawMessage{}, c.CurrentAction...)
	}
	if c.CurrentObservation != nil {
		obs := *c.CurrentObservation
		cp.CurrentObservation = &obs
	}
	return &cp
}

// CheckpointStore persists checkpoints, one per agent identity.
//
// Contract:
//   - Save overwrites the previous checkpoint of the same agent
//   - LoadLatest returns ErrCheckpointNotFound when nothing is stored
//   - Clear is idempotent
type CheckpointStore interface {
	Save(ctx context.Context, cp *Checkpoint) error
	LoadLatest(ctx context.Context, agentID string) (*Checkpoint, error)
	Clear(ctx context.Context, agentID string) error
	Exists(ctx context.Context, agentID string) (bool, error)
}

// RunLocker is optionally implemented by checkpoint stores that can
// guarantee at most one active run per agent identity. Acquire fails with
// ErrRunInProgress when another run holds the identity.
type RunLocker interface {
	Acquire(ctx context.Context, agentID string) (release func() error, err error)
}

// CheckpointLister is optionally implemented by stores able to enumerate
// the agent identities they hold.
type CheckpointLister interface {
	List(ctx context.Context) ([]string, error)
}
