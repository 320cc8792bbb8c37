package agent

import (
	"context"
	"fmt"

	"github.com/hupe1980/memora/core"
	"github.com/hupe1980/memora/internal/util"
	"github.com/hupe1980/memora/logging"
	"github.com/hupe1980/memora/model"
)

// WriterOptions configures a Writer.
type WriterOptions struct {
	// SystemPrompt replaces the built-in prompt; rendered with .Extra.
	SystemPrompt string
	Instructions string
	OnDelta      func(chunk string)
	Logger       logging.Logger
}

// Writer produces the user facing answer from the run's context.
type Writer struct {
	router *model.Router
	opts   WriterOptions
}

var _ core.Writer = (*Writer)(nil)

// NewWriter creates a Writer over router.
func NewWriter(router *model.Router, optFns ...func(o *WriterOptions)) *Writer {
	opts := WriterOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	opts.Logger = logging.OrNoOp(opts.Logger)
	return &Writer{router: router, opts: opts}
}

// WriteAnswer implements core.Writer.
func (w *Writer) WriteAnswer(ctx context.Context, goal, contextText, modelID string) (string, error) {
	entry, err := w.router.Get(modelID)
	if err != nil {
		return "", err
	}

	tmpl := writerTemplate
	if w.opts.SystemPrompt != "" {
		tmpl = w.opts.SystemPrompt
	}
	system, err := util.RenderTemplate(tmpl, map[string]any{"Extra": w.opts.Instructions})
	if err != nil {
		return "", fmt.Errorf("writer prompt: %w", err)
	}
	user, err := util.RenderTemplate(writerUserTemplate, map[string]any{"Goal": goal, "Context": contextText})
	if err != nil {
		return "", fmt.Errorf("writer prompt: %w", err)
	}

	req := model.Request{
		System:   system,
		Messages: []model.Message{{Role: model.RoleUser, Content: user}},
		Stream:   entry.Stream,
	}
	return generate(ctx, w.opts.Logger, "writer", entry, req, w.opts.OnDelta)
}
