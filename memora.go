// Package memora provides a high-level façade over the crash-resumable
// agent loop. Most applications interact with this package by:
//  1. Building a Memora via FromConfig (YAML configuration) or New
//  2. Running goals with Run or RunWithResult
//  3. Resuming interrupted or failed runs by passing their agent id again
//
// The façade wires the model router, the planner and writer, the tool
// registry, the checkpoint store and the trace listeners into an
// orchestrator.Orchestrator. All defaults are safe for local development:
// an in-memory checkpoint store, no tools and a no-op logger.
package memora

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/hupe1980/memora/agent"
	"github.com/hupe1980/memora/core"
	"github.com/hupe1980/memora/logging"
	"github.com/hupe1980/memora/model"
	"github.com/hupe1980/memora/orchestrator"
	"github.com/hupe1980/memora/tool"
	"github.com/hupe1980/memora/trace"
)

// Options configures the Memora instance.
type Options struct {
	// Router resolves model ids for the default planner and writer. Required
	// unless both Planner and Writer are supplied.
	Router *model.Router
	// Tools are offered to the planner and resolved by the orchestrator.
	Tools *tool.Registry
	// Store persists checkpoints (defaults to an in-memory store).
	Store core.CheckpointStore

	// Planner and Writer override the model backed defaults.
	Planner core.Planner
	Writer  core.Writer
	// PlannerInstructions are appended to the default planner prompt.
	PlannerInstructions string
	// OnDelta receives streamed model output of the default planner and writer.
	OnDelta func(role, chunk string)

	// Listeners observe the trace events of every run.
	Listeners []trace.Listener
	// ConsoleTrace prints every event of a run to ConsoleWriter.
	ConsoleTrace bool
	// ConsoleWriter defaults to os.Stdout.
	ConsoleWriter io.Writer
	// JSONLDir, when set, receives one <agent>.jsonl trace file per run.
	JSONLDir string

	MaxSteps       int
	ToolTimeout    time.Duration
	PlannerTimeout time.Duration
	WriterTimeout  time.Duration
	RetryFailed    bool

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// Memora is the high-level façade aggregating the orchestrator and its collaborators.
type Memora struct {
	opts Options
	orc  *orchestrator.Orchestrator
}

// New creates a Memora instance with optional overrides.
func New(optFns ...func(o *Options)) (*Memora, error) {
	opts := Options{
		MaxSteps:       orchestrator.DefaultMaxSteps,
		ToolTimeout:    orchestrator.DefaultToolTimeout,
		PlannerTimeout: orchestrator.DefaultPlannerTimeout,
		WriterTimeout:  orchestrator.DefaultWriterTimeout,
		Logger:         logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	opts.Logger = logging.OrNoOp(opts.Logger)
	if opts.Tools == nil {
		opts.Tools = tool.NewRegistry(func(o *tool.RegistryOptions) { o.Logger = opts.Logger })
	}
	if (opts.Planner == nil || opts.Writer == nil) && opts.Router == nil {
		return nil, errors.New("memora: a model router is required for the default planner and writer")
	}

	planner := opts.Planner
	if planner == nil {
		planner = agent.NewPlanner(opts.Router, func(o *agent.PlannerOptions) {
			o.Lister = opts.Tools
			o.Instructions = opts.PlannerInstructions
			o.OnDelta = roleDelta(opts.OnDelta, "planner")
			o.Logger = opts.Logger
		})
	}
	writer := opts.Writer
	if writer == nil {
		writer = agent.NewWriter(opts.Router, func(o *agent.WriterOptions) {
			o.OnDelta = roleDelta(opts.OnDelta, "writer")
			o.Logger = opts.Logger
		})
	}

	orc, err := orchestrator.New(func(o *orchestrator.Options) {
		o.Planner = planner
		o.Writer = writer
		o.Tools = opts.Tools
		o.Store = opts.Store
		o.Logger = opts.Logger
		o.Listeners = opts.Listeners
		o.MaxSteps = opts.MaxSteps
		o.ToolTimeout = opts.ToolTimeout
		o.PlannerTimeout = opts.PlannerTimeout
		o.WriterTimeout = opts.WriterTimeout
		o.RetryFailed = opts.RetryFailed
	})
	if err != nil {
		return nil, err
	}

	return &Memora{opts: opts, orc: orc}, nil
}

func roleDelta(fn func(role, chunk string), role string) func(string) {
	if fn == nil {
		return nil
	}
	return func(chunk string) { fn(role, chunk) }
}

// Run executes goal, or resumes agentID, and returns the final text.
// An empty modelID selects the persisted model on resume and the router's
// default model otherwise.
func (m *Memora) Run(ctx context.Context, goal, modelID, agentID string) string {
	return m.RunWithResult(ctx, goal, modelID, agentID).Output
}

// RunWithResult is Run with the structured outcome.
func (m *Memora) RunWithResult(ctx context.Context, goal, modelID, agentID string) orchestrator.Result {
	if agentID == "" {
		agentID = core.NewID()
	}

	var listeners []trace.Listener
	if m.opts.ConsoleTrace {
		listeners = append(listeners, trace.NewConsoleListener(func(o *trace.ConsoleOptions) {
			if m.opts.ConsoleWriter != nil {
				o.Writer = m.opts.ConsoleWriter
			}
		}))
	}
	if m.opts.JSONLDir != "" {
		jsonl, err := trace.OpenJSONLFile(m.opts.JSONLDir, agentID, m.opts.Logger)
		if err != nil {
			m.opts.Logger.Warn("trace.jsonl.open.failed", "agent_id", agentID, "error", err.Error())
		} else {
			defer func() {
				if err := jsonl.Close(); err != nil {
					m.opts.Logger.Warn("trace.jsonl.close.failed", "agent_id", agentID, "error", err.Error())
				}
			}()
			listeners = append(listeners, jsonl)
		}
	}

	return m.orc.RunWithResult(ctx, goal, modelID, agentID, func(o *orchestrator.RunOptions) {
		o.Listeners = listeners
	})
}

// Models lists the routed models.
func (m *Memora) Models() []model.Entry {
	if m.opts.Router == nil {
		return nil
	}
	return m.opts.Router.List()
}

// DefaultModel returns the router's default model id, empty without a router.
func (m *Memora) DefaultModel() string {
	if m.opts.Router == nil {
		return ""
	}
	return m.opts.Router.Default()
}

// Router returns the model router, nil when none was configured.
func (m *Memora) Router() *model.Router { return m.opts.Router }

// Tools returns the tool registry.
func (m *Memora) Tools() *tool.Registry { return m.opts.Tools }

// Store returns the checkpoint store.
func (m *Memora) Store() core.CheckpointStore { return m.orc.Store() }

// Close releases the checkpoint store when it holds resources.
func (m *Memora) Close() error {
	if c, ok := m.orc.Store().(io.Closer); ok {
		if err := c.Close(); err != nil {
			return fmt.Errorf("close checkpoint store: %w", err)
		}
	}
	return nil
}
