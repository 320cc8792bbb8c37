package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/memora/core"
	"github.com/hupe1980/memora/logging"
	"github.com/hupe1980/memora/trace"
)

// run is the state machine of one orchestration run. It is confined to the
// goroutine calling RunWithResult.
type run struct {
	o       *Orchestrator
	logger  logging.Logger
	trace   *trace.Collector
	limiter *core.StepLimiter
	sched   *scheduler

	agentID string
	goal    string
	modelID string
	state   core.State
	resumed bool

	globalContext string
	history       []string
	action        core.Action
	observation   *string
	finalAnswer   string

	err         error
	failedState core.State
}

func newRun(o *Orchestrator, agentID, goal, modelID string, logger logging.Logger, collector *trace.Collector) *run {
	return &run{
		o:       o,
		logger:  logger,
		trace:   collector,
		limiter: core.NewStepLimiter(o.opts.MaxSteps),
		sched:   newScheduler(),
		agentID: agentID,
		goal:    goal,
		modelID: modelID,
		state:   core.StateIdle,
		history: []string{},
	}
}

// restore adopts a persisted checkpoint. The checkpoint's goal wins over
// the caller's; an explicit model id overrides the persisted one.
func (r *run) restore(cp *core.Checkpoint) error {
	if !cp.State.IsValid() {
		return fmt.Errorf("restore checkpoint: unknown state %q", cp.State)
	}
	action, err := cp.Action()
	if err != nil {
		return fmt.Errorf("restore checkpoint: %w", err)
	}
	cp = cp.Clone()

	if cp.Goal != "" {
		if r.goal != "" && r.goal != cp.Goal {
			r.logger.Warn("orchestrator.restore.goal_ignored", "goal", r.goal, "checkpoint_goal", cp.Goal)
		}
		r.goal = cp.Goal
	}
	if r.modelID == "" {
		r.modelID = cp.ModelID
	}

	r.state = cp.State
	r.sched.restore(cp.Tasks, cp.CurrentTaskIndex)
	r.globalContext = cp.GlobalContext
	r.history = append([]string{}, cp.ExecutionHistory...)
	r.action = action
	r.observation = cp.CurrentObservation
	r.finalAnswer = cp.FinalAnswer
	steps := cp.Steps
	if cp.State == core.StateToolCalling && cp.CurrentObservation != nil && steps > 0 {
		// saved mid-step; the loop counts this tool call again on re-entry
		steps--
	}
	r.limiter.Restore(steps)
	r.failedState = cp.FailedState
	if cp.Error != "" {
		r.err = errors.New(cp.Error)
	}
	r.trace.Restore(cp.TraceEvents)
	r.resumed = true
	return nil
}

// retry re-enters a failed run at the state that failed.
func (r *run) retry(ctx context.Context) {
	next := r.failedState
	if !next.IsValid() || next.IsTerminal() || next == core.StateIdle {
		next = core.StatePlanning
	}
	r.logger.Info("orchestrator.run.retry", "state", next, "error", errString(r.err))
	r.err = nil
	r.failedState = ""
	r.limiter.Restore(0)
	r.transition(ctx, next)
}

// loop runs handlers until a terminal state or cancellation.
func (r *run) loop(ctx context.Context) Result {
	for !r.state.IsTerminal() {
		if err := ctx.Err(); err != nil {
			return r.interrupt(ctx)
		}
		if err := r.limiter.Increment(); err != nil {
			r.fail(ctx, err)
			break
		}
		if err := r.step(ctx); err != nil {
			if ctx.Err() != nil {
				return r.interrupt(ctx)
			}
			r.fail(ctx, err)
		}
	}
	return r.result(ctx)
}

// step executes the handler of the current state.
func (r *run) step(ctx context.Context) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic in %s: %v", r.state, rec)
		}
	}()

	switch r.state {
	case core.StateIdle:
		r.transition(ctx, core.StatePlanning)
	case core.StatePlanning:
		return r.plan(ctx)
	case core.StateTaskReady:
		r.transition(ctx, core.StateTaskRunning)
	case core.StateTaskRunning:
		r.schedule(ctx)
	case core.StateToolCalling:
		return r.callTool(ctx)
	case core.StateObserving:
		r.transition(ctx, core.StatePlanning)
	case core.StateWriting:
		return r.write(ctx)
	default:
		return fmt.Errorf("no handler for state %s", r.state)
	}
	return nil
}

func (r *run) plan(ctx context.Context) error {
	prompt := r.plannerPrompt()
	r.emit(core.EventPlannerCall, map[string]any{"prompt": prompt, "model": r.modelID})

	pctx, cancel := withTimeout(ctx, r.o.opts.PlannerTimeout)
	start := time.Now()
	raw, err := r.o.opts.Planner.Plan(pctx, prompt, r.modelID)
	cancel()
	r.logModelCall("planner", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("planner: %w", err)
	}

	action, err := r.o.opts.Parser.Parse(raw)
	if err != nil {
		r.emit(core.EventPlannerOutput, map[string]any{"raw": raw, "action": nil})
		return fmt.Errorf("parse planner output: %w", err)
	}
	r.emit(core.EventPlannerOutput, map[string]any{"raw": raw, "action": core.ActionMap(action)})

	switch a := action.(type) {
	case core.UseTool:
		r.action = a
		r.observation = nil
		r.transition(ctx, core.StateToolCalling)
	case core.TaskList:
		if task, active := r.sched.current(); active {
			return fmt.Errorf("task %s: %w", task.ID, core.ErrNestedTaskList)
		}
		r.sched.initialize(a.Tasks)
		r.action = nil
		r.observation = nil
		r.transition(ctx, core.StateTaskReady)
	case core.Final:
		r.action = nil
		if task, active := r.sched.current(); active {
			task.MarkCompleted(a.Content)
			r.globalContext = joinNonEmpty("\n\n", r.globalContext, taskContext(task))
			r.emit(core.EventTaskEnd, map[string]any{"task_id": task.ID, "result": task.Result, "status": string(task.Status)})
			r.sched.advance()
			r.observation = nil
			r.transition(ctx, core.StateTaskRunning)
			return nil
		}
		r.finalAnswer = a.Content
		r.transition(ctx, core.StateWriting)
	default:
		return fmt.Errorf("%w: %T", core.ErrUnknownAction, action)
	}
	return nil
}

func (r *run) schedule(ctx context.Context) {
	task, ok := r.sched.current()
	if !ok {
		r.transition(ctx, core.StateWriting)
		return
	}
	task.MarkRunning()
	r.observation = nil
	r.emit(core.EventTaskStart, map[string]any{"task_id": task.ID, "goal": task.Goal})
	r.transition(ctx, core.StatePlanning)
}

// callTool executes the stored action unless its observation was already
// recorded before a crash.
func (r *run) callTool(ctx context.Context) error {
	use, ok := r.action.(core.UseTool)
	if !ok {
		return errors.New("tool calling without a pending use_tool action")
	}

	if r.observation == nil {
		r.emit(core.EventToolCall, map[string]any{"tool": use.Tool, "args": use.Args})
		obs, success, err := r.dispatch(ctx, use)
		if err != nil {
			return err
		}
		r.emit(core.EventToolResult, map[string]any{"tool": use.Tool, "result": obs, "ok": success})

		r.observation = &obs
		if task, active := r.sched.current(); active {
			task.AddHistory(stepRecord(len(task.History)+1, use, obs))
		} else {
			r.history = append(r.history, stepRecord(len(r.history)+1, use, obs))
		}
		r.persist(ctx)
	}

	r.transition(ctx, core.StateObserving)
	return nil
}

func (r *run) write(ctx context.Context) error {
	contextText := r.writerContext()
	r.emit(core.EventWriterCall, map[string]any{"model": r.modelID})

	answer := r.finalAnswer
	if answer == "" {
		answer = contextText
	}
	if w := r.o.opts.Writer; w != nil {
		wctx, cancel := withTimeout(ctx, r.o.opts.WriterTimeout)
		start := time.Now()
		out, err := w.WriteAnswer(wctx, r.goal, contextText, r.modelID)
		cancel()
		r.logModelCall("writer", time.Since(start), err)
		if err != nil {
			return fmt.Errorf("writer: %w", err)
		}
		answer = out
	}

	r.finalAnswer = answer
	r.emit(core.EventWriterOutput, map[string]any{"answer": answer})
	r.transition(ctx, core.StateDone)
	return nil
}

// transition applies next, emits STATE_CHANGE and persists before the
// caller proceeds.
func (r *run) transition(ctx context.Context, next core.State) {
	from := r.state
	r.state = next
	r.emit(core.EventStateChange, map[string]any{"from": string(from), "to": string(next)})
	if ml, ok := r.logger.(*logging.MemoraLogger); ok {
		ml.LogTransition(string(from), string(next), r.limiter.Count())
	} else {
		r.logger.Debug("orchestrator.transition", "from", from, "to", next, "step", r.limiter.Count())
	}
	r.persist(ctx)
}

// fail records err and moves to ERROR. The checkpoint is kept.
func (r *run) fail(ctx context.Context, err error) {
	r.err = err
	r.failedState = r.state
	r.emit(core.EventError, map[string]any{"error": err.Error(), "state": string(r.state)})
	r.logger.Error("orchestrator.run.failed", "state", r.state, "error", err.Error())
	r.transition(ctx, core.StateError)
}

// interrupt saves the current state best-effort so the run can resume.
func (r *run) interrupt(ctx context.Context) Result {
	cause := context.Cause(ctx)
	r.logger.Warn("orchestrator.run.interrupted", "state", r.state, "reason", cause.Error())
	r.persist(ctx)
	return Result{
		AgentID:     r.agentID,
		State:       r.state,
		Output:      "Run interrupted: " + cause.Error(),
		Err:         cause,
		Interrupted: true,
		Resumed:     r.resumed,
		Steps:       r.limiter.Count(),
		Events:      r.trace.Events(),
	}
}

// result reports a terminal run. DONE clears the checkpoint.
func (r *run) result(ctx context.Context) Result {
	res := Result{
		AgentID: r.agentID,
		State:   r.state,
		Resumed: r.resumed,
		Steps:   r.limiter.Count(),
		Events:  r.trace.Events(),
	}

	if r.state == core.StateDone {
		if err := r.o.opts.Store.Clear(context.WithoutCancel(ctx), r.agentID); err != nil {
			r.logger.Warn("checkpoint.clear.failed", "error", err.Error())
		}
		r.logger.Info("orchestrator.run.done", "steps", res.Steps)
		res.Output = r.finalAnswer
		return res
	}

	err := r.err
	if err == nil {
		err = errors.New("run failed")
	}
	res.Err = err
	res.Output = "Error: " + err.Error()
	return res
}

// persist writes the full checkpoint. A failed save is logged and the run
// continues with its in-memory state.
func (r *run) persist(ctx context.Context) {
	cp := r.snapshot()
	if err := r.o.opts.Store.Save(context.WithoutCancel(ctx), cp); err != nil {
		r.logger.Warn("checkpoint.save.failed", "state", r.state, "error", err.Error())
	}
}

func (r *run) snapshot() *core.Checkpoint {
	action, err := core.EncodeAction(r.action)
	if err != nil {
		r.logger.Warn("checkpoint.encode_action.failed", "error", err.Error())
		action = []byte("null")
	}

	var observation *string
	if r.observation != nil {
		obs := *r.observation
		observation = &obs
	}

	cp := &core.Checkpoint{
		AgentID:            r.agentID,
		State:              r.state,
		Timestamp:          time.Now().UTC(),
		Goal:               r.goal,
		ModelID:            r.modelID,
		Tasks:              r.sched.tasks(),
		CurrentTaskIndex:   r.sched.index(),
		GlobalContext:      r.globalContext,
		ExecutionHistory:   r.history,
		TraceEvents:        r.trace.Events(),
		CurrentAction:      action,
		CurrentObservation: observation,
		FinalAnswer:        r.finalAnswer,
		Steps:              r.limiter.Count(),
	}
	if r.state == core.StateError {
		cp.Error = errString(r.err)
		cp.FailedState = r.failedState
	}
	return cp
}

func (r *run) emit(typ core.EventType, data map[string]any) {
	r.trace.Emit(typ, data)
}

func (r *run) logModelCall(role string, d time.Duration, err error) {
	if ml, ok := r.logger.(*logging.MemoraLogger); ok {
		ml.LogModelCall(role, r.modelID, d, err)
		return
	}
	if err != nil {
		r.logger.Warn(role+".call.error", "model", r.modelID, "duration", d, "error", err.Error())
		return
	}
	r.logger.Debug(role+".call", "model", r.modelID, "duration", d)
}

func (r *run) logToolCall(name string, d time.Duration, res core.ToolResult) {
	if ml, ok := r.logger.(*logging.MemoraLogger); ok {
		ml.LogToolCall(name, d, res.IsOk(), res.Reason)
		return
	}
	if !res.IsOk() {
		r.logger.Warn("tool.call.error", "tool", name, "duration", d, "error", res.Reason)
		return
	}
	r.logger.Debug("tool.call", "tool", name, "duration", d)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
