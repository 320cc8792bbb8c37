package tool

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hupe1980/memora/core"
	"github.com/hupe1980/memora/logging"
)

var _ core.ToolResolver = (*Registry)(nil)

// RegistryOptions configures a Registry.
type RegistryOptions struct {
	Logger logging.Logger
}

// Registry holds the tools available to one orchestrator. It replaces any
// process wide registry: each orchestrator receives its own instance.
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]Tool
	order  []string
	logger logging.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(optFns ...func(o *RegistryOptions)) *Registry {
	opts := RegistryOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Registry{tools: make(map[string]Tool), logger: logging.OrNoOp(opts.Logger)}
}

// Register adds tools. Empty or duplicate names are rejected.
func (r *Registry) Register(tools ...Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, t := range tools {
		if t == nil {
			return errors.New("tool is nil")
		}
		name := t.Name()
		if strings.TrimSpace(name) == "" {
			return errors.New("tool name is empty")
		}
		if _, exists := r.tools[name]; exists {
			return fmt.Errorf("tool %q already registered", name)
		}
		r.tools[name] = t
		r.order = append(r.order, name)
	}
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(tools ...Tool) *Registry {
	if err := r.Register(tools...); err != nil {
		panic(err)
	}
	return r
}

// Get returns the tool registered under name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// List returns tools in registration order.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// Names returns the registered tool names sorted lexically.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := append([]string{}, r.order...)
	sort.Strings(names)
	return names
}

// Resolve implements core.ToolResolver.
func (r *Registry) Resolve(name string) (core.Capability, bool) {
	t, ok := r.Get(name)
	if !ok {
		return nil, false
	}
	return &capability{tool: t, logger: r.logger}, true
}

// capability adapts a Tool to core.Capability, converting errors and panics
// into core.Err results.
type capability struct {
	tool   Tool
	logger logging.Logger
}

func (c *capability) Invoke(ctx context.Context, args map[string]any) (result core.ToolResult) {
	name := c.tool.Name()
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("tool.call.panic", "tool", name, "panic", fmt.Sprint(r), "stack", string(debug.Stack()))
			result = core.Err(fmt.Sprintf("tool %s panicked: %v", name, r))
		}
	}()

	if args == nil {
		args = map[string]any{}
	}

	c.logger.Debug("tool.call.start", "tool", name)

	out, err := c.tool.Call(ctx, args)
	if err != nil {
		reason := err.Error()
		var toolErr *ToolError
		if errors.As(err, &toolErr) {
			reason = toolErr.Message
		}
		c.logger.Warn("tool.call.error", "tool", name, "error", reason, "duration_ms", time.Since(start).Milliseconds())
		return core.Err(reason)
	}

	c.logger.Info("tool.call.success", "tool", name, "duration_ms", time.Since(start).Milliseconds())
	return core.Ok(out)
}
