package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/memora/checkpoint"
	"github.com/hupe1980/memora/core"
	"github.com/hupe1980/memora/logging"
	"github.com/hupe1980/memora/parser"
	"github.com/hupe1980/memora/trace"
)

// Orchestrator runs goals through the planning state machine. It holds no
// per-run state, so one Orchestrator may serve many concurrent runs as long
// as their agent ids differ. Stores implementing core.RunLocker enforce that.
//
// Example:
//
//	orc, err := orchestrator.New(func(o *orchestrator.Options) {
//	    o.Planner = planner
//	    o.Writer = writer
//	    o.Tools = registry
//	    o.Store = store
//	})
//	if err != nil {
//	    return err
//	}
//	answer := orc.Run(ctx, "how many go files are in this repo?", "", "")
type Orchestrator struct {
	opts Options
}

// New creates an Orchestrator. A Planner is required.
func New(optFns ...func(o *Options)) (*Orchestrator, error) {
	opts := Options{
		MaxSteps:       DefaultMaxSteps,
		ToolTimeout:    DefaultToolTimeout,
		PlannerTimeout: DefaultPlannerTimeout,
		WriterTimeout:  DefaultWriterTimeout,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Planner == nil {
		return nil, errors.New("orchestrator: planner is required")
	}
	if opts.MaxSteps < 0 {
		return nil, fmt.Errorf("orchestrator: max steps must not be negative, got %d", opts.MaxSteps)
	}
	if opts.Store == nil {
		opts.Store = checkpoint.NewInMemoryStore()
	}
	if opts.Parser == nil {
		opts.Parser = parser.New()
	}
	if opts.IDGenerator == nil {
		opts.IDGenerator = core.NewID
	}
	opts.Logger = logging.OrNoOp(opts.Logger)

	return &Orchestrator{opts: opts}, nil
}

// Store returns the checkpoint store in use.
func (o *Orchestrator) Store() core.CheckpointStore { return o.opts.Store }

// Run executes goal, or resumes agentID when a checkpoint exists for it, and
// returns the final answer. Failures come back as "Error: <message>",
// cancellation as "Run interrupted: <reason>". An empty agentID starts a
// new run with a generated id.
func (o *Orchestrator) Run(ctx context.Context, goal, modelID, agentID string) string {
	return o.RunWithResult(ctx, goal, modelID, agentID).Output
}

// RunWithResult is Run with a structured outcome.
func (o *Orchestrator) RunWithResult(ctx context.Context, goal, modelID, agentID string, optFns ...func(o *RunOptions)) Result {
	var runOpts RunOptions
	for _, fn := range optFns {
		fn(&runOpts)
	}

	if agentID == "" {
		agentID = o.opts.IDGenerator()
	}
	logger := runLogger(o.opts.Logger, agentID)

	if locker, ok := o.opts.Store.(core.RunLocker); ok {
		release, err := locker.Acquire(ctx, agentID)
		if err != nil {
			logger.Warn("orchestrator.run.locked", "error", err.Error())
			return failure(agentID, err)
		}
		defer func() {
			if err := release(); err != nil {
				logger.Warn("orchestrator.unlock.failed", "error", err.Error())
			}
		}()
	}

	listeners := append(append([]trace.Listener{}, o.opts.Listeners...), runOpts.Listeners...)
	r := newRun(o, agentID, goal, modelID, logger, trace.New(func(t *trace.Options) {
		t.Listeners = listeners
		t.Logger = logger
	}))

	cp, err := o.opts.Store.LoadLatest(ctx, agentID)
	switch {
	case err == nil:
		if err := r.restore(cp); err != nil {
			logger.Error("orchestrator.restore.failed", "error", err.Error())
			return failure(agentID, err)
		}
		logger.Info("orchestrator.run.resumed", "state", r.state, "steps", r.limiter.Count())
		if r.state == core.StateError {
			if !o.opts.RetryFailed {
				return r.result(ctx)
			}
			r.retry(ctx)
		}
	case errors.Is(err, core.ErrCheckpointNotFound):
		if goal == "" {
			return failure(agentID, errors.New("goal is empty"))
		}
		logger.Info("orchestrator.run.started", "model", modelID)
	default:
		logger.Error("orchestrator.restore.failed", "error", err.Error())
		return failure(agentID, fmt.Errorf("load checkpoint: %w", err))
	}

	return r.loop(ctx)
}

// failure reports a run that never got a machine, e.g. a held lock.
func failure(agentID string, err error) Result {
	return Result{AgentID: agentID, State: core.StateError, Output: "Error: " + err.Error(), Err: err}
}

func runLogger(l logging.Logger, agentID string) logging.Logger {
	if ml, ok := l.(*logging.MemoraLogger); ok {
		return ml.WithComponent("orchestrator").WithAgent(agentID)
	}
	return l
}
