// Package shell provides a guarded command line tool.
//
// Commands run through "sh -c" with a timeout. Only commands whose first
// word is on the allow-list run; forbidden prefixes and shell operators that
// would chain, substitute or redirect are rejected before execution.
package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/hupe1980/memora/tool"
)

// Name is the registered tool name.
const Name = "shell"

var (
	// DefaultAllowed lists the commands that may run.
	DefaultAllowed = []string{"ls", "pwd", "whoami", "uname", "python", "cat", "echo", "date"}
	// DefaultForbidden lists command prefixes that are always rejected.
	DefaultForbidden = []string{"rm", "sudo", "shutdown", "reboot", "curl", "wget", "mkfs", "dd"}
)

// DefaultTimeout bounds a single command.
const DefaultTimeout = 10 * time.Second

var operators = []string{";", "&", "|", "`", "$(", ">", "<", "\n"}

// Options configures the shell tool.
type Options struct {
	Allowed   []string
	Forbidden []string
	Timeout   time.Duration
	// Dir is the working directory. Empty means the process directory.
	Dir string
	// Shell is the interpreter invoked with -c. Defaults to "sh".
	Shell string
}

// Tool runs allow-listed commands.
type Tool struct {
	opts Options
}

var _ tool.Tool = (*Tool)(nil)

// New creates the shell tool.
func New(optFns ...func(o *Options)) *Tool {
	opts := Options{
		Allowed:   append([]string{}, DefaultAllowed...),
		Forbidden: append([]string{}, DefaultForbidden...),
		Timeout:   DefaultTimeout,
		Shell:     "sh",
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Shell == "" {
		opts.Shell = "sh"
	}
	return &Tool{opts: opts}
}

// Name implements tool.Tool.
func (t *Tool) Name() string { return Name }

// Description implements tool.Tool.
func (t *Tool) Description() string {
	return fmt.Sprintf("Run a safe local command line, e.g. list a directory, show system info or print text. Allowed commands: %s.",
		strings.Join(t.opts.Allowed, ", "))
}

// Parameters implements tool.Tool.
func (t *Tool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"command": map[string]any{"type": "string", "description": "the command line to execute"},
		},
		"required": []string{"command"},
	}
}

// Check reports why command may not run, or nil when it may.
func (t *Tool) Check(command string) error {
	command = strings.TrimSpace(command)
	if command == "" {
		return tool.NewToolError(Name, "command is empty", tool.CodeValidation)
	}

	for _, bad := range t.opts.Forbidden {
		if strings.HasPrefix(command, bad) {
			return tool.NewToolError(Name, fmt.Sprintf("Command '%s' is forbidden for security reasons.", bad), tool.CodeForbidden)
		}
	}

	for _, op := range operators {
		if strings.Contains(command, op) {
			return tool.NewToolError(Name, fmt.Sprintf("Shell operator %q is not permitted.", op), tool.CodeForbidden)
		}
	}

	head := strings.Fields(command)[0]
	for _, ok := range t.opts.Allowed {
		if head == ok || isVersioned(head, ok) {
			return nil
		}
	}
	return tool.NewToolError(Name, fmt.Sprintf("Command '%s' is not in the allowed whitelist.", head), tool.CodeForbidden)
}

// isVersioned accepts names like python3 or python3.12 for an allowed python.
func isVersioned(head, allowed string) bool {
	rest, ok := strings.CutPrefix(head, allowed)
	if !ok || rest == "" {
		return false
	}
	for _, r := range rest {
		if (r < '0' || r > '9') && r != '.' {
			return false
		}
	}
	return true
}

// Call implements tool.Tool.
func (t *Tool) Call(ctx context.Context, args map[string]any) (string, error) {
	command, ok := tool.StringArg(args, "command")
	if !ok {
		return "", tool.NewToolError(Name, "argument 'command' must be a string", tool.CodeValidation)
	}
	command = strings.TrimSpace(command)
	if err := t.Check(command); err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, t.opts.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, t.opts.Shell, "-c", command)
	cmd.Dir = t.opts.Dir
	// Children of sh may keep the output pipes open after sh is killed.
	cmd.WaitDelay = time.Second
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctx.Err() != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", tool.NewToolError(Name, fmt.Sprintf("Command timed out after %s.", t.opts.Timeout), tool.CodeTimeout)
		}
		return "", ctx.Err()
	}

	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return "", tool.NewToolError(Name, fmt.Sprintf("executing command: %v", err), tool.CodeExecution)
	}

	output := stdout.String()
	if stderr.Len() > 0 {
		output += "\nSTDERR: " + stderr.String()
	}
	output = strings.TrimSpace(output)
	if exitErr != nil {
		output = strings.TrimSpace(fmt.Sprintf("%s\n(exit status %d)", output, exitErr.ExitCode()))
	}
	if output == "" {
		return "(No output)", nil
	}
	return output, nil
}
