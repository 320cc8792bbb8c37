package orchestrator

import (
	"time"

	"github.com/hupe1980/memora/core"
	"github.com/hupe1980/memora/logging"
	"github.com/hupe1980/memora/trace"
)

// Defaults applied by New.
const (
	DefaultMaxSteps       = 30
	DefaultToolTimeout    = 30 * time.Second
	DefaultPlannerTimeout = 2 * time.Minute
	DefaultWriterTimeout  = 2 * time.Minute
)

// ActionParser decodes raw planner output; *parser.Parser implements it.
type ActionParser interface {
	Parse(text string) (core.Action, error)
}

// Options configures an Orchestrator.
type Options struct {
	// Planner proposes the next action. Required.
	Planner core.Planner
	// Writer synthesizes the final answer. When nil the planner's final
	// content (or the accumulated context) is returned as is.
	Writer core.Writer
	// Tools resolves tool names. When nil every tool is reported as not found.
	Tools core.ToolResolver
	// Store persists checkpoints. Defaults to an in-memory store.
	Store core.CheckpointStore
	// Parser decodes planner output. Defaults to parser.New().
	Parser ActionParser
	Logger logging.Logger
	// Listeners observe the trace events of every run.
	Listeners []trace.Listener

	// MaxSteps bounds the number of handled states per run; 0 disables the ceiling.
	MaxSteps int
	// ToolTimeout bounds a single tool invocation. A timeout is recoverable.
	ToolTimeout time.Duration
	// PlannerTimeout bounds a planner call. A timeout fails the run.
	PlannerTimeout time.Duration
	// WriterTimeout bounds the writer call. A timeout fails the run.
	WriterTimeout time.Duration

	// RetryFailed resumes runs whose checkpoint is in ERROR at the state
	// that failed, with a fresh step budget. Otherwise the recorded failure
	// is returned.
	RetryFailed bool

	// IDGenerator creates agent ids for new runs. Defaults to core.NewID.
	IDGenerator func() string
}

// RunOptions tweak a single run.
type RunOptions struct {
	// Listeners are added to the run's collector after Options.Listeners.
	Listeners []trace.Listener
}

// Result is the structured outcome of a run.
type Result struct {
	AgentID string
	// State is the state the run stopped in: DONE, ERROR or, when
	// Interrupted, the state that will be resumed.
	State core.State
	// Output is the final answer, "Error: ..." or "Run interrupted: ...".
	Output string
	// Err is set for ERROR and interrupted runs.
	Err         error
	Interrupted bool
	Resumed     bool
	Steps       int
	Events      []core.TraceEvent
}

// OK reports whether the run reached DONE.
func (r Result) OK() bool { return r.State == core.StateDone }
