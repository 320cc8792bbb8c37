// Package tool implements the capability subsystem the orchestrator invokes
// when the planner emits a use_tool action: named tools with schema validated
// arguments, consistent error handling and a registry that resolves names to
// core.Capability values.
package tool

import (
	"context"
	"fmt"

	"github.com/hupe1980/memora/internal/util"
)

// Error codes carried by ToolError.
const (
	CodeValidation = "VALIDATION_ERROR"
	CodeExecution  = "EXECUTION_ERROR"
	CodePanic      = "PANIC"
	CodeForbidden  = "FORBIDDEN"
	CodeTimeout    = "TIMEOUT"
	CodeNotFound   = "NOT_FOUND"
)

// Tool is a named capability the planner can ask for.
//
// Tool implementations should:
//   - Provide clear, descriptive names and descriptions
//   - Define a JSON schema for parameters
//   - Honour ctx cancellation for long running work
//   - Be safe for concurrent use
type Tool interface {
	// Name returns the unique identifier the planner uses in use_tool actions.
	Name() string

	// Description tells the planner when and how to use the tool.
	Description() string

	// Parameters returns a JSON schema describing the expected arguments.
	Parameters() map[string]any

	// Call executes the tool. The returned text becomes the observation fed
	// back to the planner.
	Call(ctx context.Context, args map[string]any) (string, error)
}

// ValidationError represents parameter validation errors with detailed information.
type ValidationError = util.ValidationError

// ToolError represents errors that occur during tool execution.
type ToolError struct {
	Tool    string `json:"tool"`              // Name of the tool that failed
	Message string `json:"message"`           // Error message
	Code    string `json:"code"`              // Error code for categorization
	Details any    `json:"details,omitempty"` // Additional error details
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// NewToolError creates a new ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{
		Tool:    tool,
		Message: message,
		Code:    code,
	}
}

// StringArg returns args[key] when it is a string.
func StringArg(args map[string]any, key string) (string, bool) {
	v, ok := args[key]
	if !ok || v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
