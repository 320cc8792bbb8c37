package core

import "context"

// Planner proposes the next action for a prompt. The output is raw,
// possibly malformed text; callers run it through the action parser.
type Planner interface {
	Plan(ctx context.Context, prompt, modelID string) (string, error)
}

// Writer synthesizes the user-facing answer from the accumulated context.
// It is called exactly once per successful run.
type Writer interface {
	WriteAnswer(ctx context.Context, goal, contextText, modelID string) (string, error)
}

// PlannerFunc adapts a function to the Planner interface.
type PlannerFunc func(ctx context.Context, prompt, modelID string) (string, error)

// Plan implements Planner.
func (f PlannerFunc) Plan(ctx context.Context, prompt, modelID string) (string, error) {
	return f(ctx, prompt, modelID)
}

// WriterFunc adapts a function to the Writer interface.
type WriterFunc func(ctx context.Context, goal, contextText, modelID string) (string, error)

// WriteAnswer implements Writer.
func (f WriterFunc) WriteAnswer(ctx context.Context, goal, contextText, modelID string) (string, error) {
	return f(ctx, goal, contextText, modelID)
}

// ToolResult is the explicit outcome of a capability invocation: either
// Ok(text) or Err(reason). Capabilities report failure through it instead
// of panicking or relying on error propagation.
type ToolResult struct {
	Output string
	Reason string
	failed bool
}

// Ok creates a successful result.
func Ok(output string) ToolResult { return ToolResult{Output: output} }

// Err creates a failed result.
func Err(reason string) ToolResult { return ToolResult{Reason: reason, failed: true} }

// IsOk reports whether the invocation succeeded.
func (r ToolResult) IsOk() bool { return !r.failed }

// Capability is an invocable tool resolved by name.
type Capability interface {
	Invoke(ctx context.Context, args map[string]any) ToolResult
}

// ToolResolver resolves tool names to capabilities.
type ToolResolver interface {
	Resolve(name string) (Capability, bool)
}
