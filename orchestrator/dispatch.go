package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/memora/core"
)

// observation texts fed back to the planner
const (
	obsNotFound = "Error: Tool '%s' not found."
	obsError    = "Tool Execution Error: %s"
	obsOutput   = "Tool Output:\n%s"
)

// dispatch resolves and invokes the tool of use. Tool failures of every kind
// become an observation; only cancellation of ctx is returned as an error.
func (r *run) dispatch(ctx context.Context, use core.UseTool) (string, bool, error) {
	var capability core.Capability
	found := false
	if r.o.opts.Tools != nil {
		capability, found = r.o.opts.Tools.Resolve(use.Tool)
	}
	if !found || capability == nil {
		r.logger.Warn("tool.not_found", "tool", use.Tool)
		return fmt.Sprintf(obsNotFound, use.Tool), false, nil
	}

	args := use.Args
	if args == nil {
		args = map[string]any{}
	}

	start := time.Now()
	res, err := invoke(ctx, capability, use.Tool, args, r.o.opts.ToolTimeout)
	if err != nil {
		return "", false, err
	}
	r.logToolCall(use.Tool, time.Since(start), res)

	if !res.IsOk() {
		return fmt.Sprintf(obsError, res.Reason), false, nil
	}
	return fmt.Sprintf(obsOutput, res.Output), true, nil
}

// invoke runs a capability with an optional timeout. A timed out
// invocation is abandoned and reported as Err. Panics are converted to Err.
func invoke(ctx context.Context, c core.Capability, name string, args map[string]any, timeout time.Duration) (core.ToolResult, error) {
	tctx, cancel := withTimeout(ctx, timeout)
	defer cancel()

	done := make(chan core.ToolResult, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- core.Err(fmt.Sprintf("tool %s panicked: %v", name, rec))
			}
		}()
		done <- c.Invoke(tctx, args)
	}()

	select {
	case res := <-done:
		return settle(ctx, tctx, res, true, name, timeout)
	case <-tctx.Done():
		return settle(ctx, tctx, core.ToolResult{}, false, name, timeout)
	}
}

// settle decides the outcome once the tool finished or its context ended.
// A successful result that arrived is kept even when the deadline passed at
// the same time; a failure after the deadline is reported as a timeout.
func settle(ctx, tctx context.Context, res core.ToolResult, finished bool, name string, timeout time.Duration) (core.ToolResult, error) {
	if finished && res.IsOk() {
		return res, nil
	}
	if err := ctx.Err(); err != nil {
		return core.ToolResult{}, err
	}
	if errors.Is(tctx.Err(), context.DeadlineExceeded) {
		return core.Err(fmt.Sprintf("tool '%s' timed out after %s", name, timeout)), nil
	}
	return res, nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
