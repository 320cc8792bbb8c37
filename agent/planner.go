package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/memora/core"
	"github.com/hupe1980/memora/internal/util"
	"github.com/hupe1980/memora/logging"
	"github.com/hupe1980/memora/model"
)

// PlannerOptions configures a Planner.
type PlannerOptions struct {
	// Tools are advertised in the system prompt. Takes precedence over Lister.
	Tools []ToolSpec
	// Lister is consulted on every call, so tools registered later are seen.
	Lister ToolLister
	// SystemPrompt replaces the built-in prompt. It is rendered as a
	// template with .Tools and .Extra.
	SystemPrompt string
	// Instructions are appended to the system prompt.
	Instructions string
	// OnDelta receives streamed chunks of streaming models.
	OnDelta func(chunk string)
	Logger  logging.Logger
}

// Planner asks a routed model for the next action.
type Planner struct {
	router *model.Router
	opts   PlannerOptions
}

var _ core.Planner = (*Planner)(nil)

// NewPlanner creates a Planner over router.
func NewPlanner(router *model.Router, optFns ...func(o *PlannerOptions)) *Planner {
	opts := PlannerOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	opts.Logger = logging.OrNoOp(opts.Logger)
	return &Planner{router: router, opts: opts}
}

// SystemPrompt renders the system prompt used for the next call.
func (p *Planner) SystemPrompt() (string, error) {
	tools := p.opts.Tools
	if tools == nil {
		tools = Specs(p.opts.Lister)
	}
	if p.opts.SystemPrompt != "" {
		out, err := util.RenderTemplate(p.opts.SystemPrompt, plannerPromptData{Tools: tools, Extra: p.opts.Instructions})
		if err != nil {
			return "", fmt.Errorf("planner prompt: %w", err)
		}
		return out, nil
	}
	return RenderPlannerPrompt(tools, p.opts.Instructions)
}

// Plan implements core.Planner. The raw model text is returned unparsed.
func (p *Planner) Plan(ctx context.Context, prompt, modelID string) (string, error) {
	entry, err := p.router.Get(modelID)
	if err != nil {
		return "", err
	}
	system, err := p.SystemPrompt()
	if err != nil {
		return "", err
	}

	req := model.Request{
		System:   system,
		Messages: []model.Message{{Role: model.RoleUser, Content: prompt}},
		Stream:   entry.Stream,
	}
	return generate(ctx, p.opts.Logger, "planner", entry, req, p.opts.OnDelta)
}

func generate(ctx context.Context, logger logging.Logger, role string, entry model.Entry, req model.Request, onDelta func(string)) (string, error) {
	if !entry.Stream {
		onDelta = nil
	}

	start := time.Now()
	text, err := model.Collect(ctx, entry.Model, req, onDelta)
	if err != nil {
		logger.Warn(role+".call.error", "model", entry.ID, "duration", time.Since(start), "error", err.Error())
		return "", fmt.Errorf("%s call to %s: %w", role, entry.ID, err)
	}
	logger.Debug(role+".call", "model", entry.ID, "stream", entry.Stream, "duration", time.Since(start), "chars", len(text))
	return strings.TrimSpace(text), nil
}
