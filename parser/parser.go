package parser

import (
	"strings"

	"github.com/yuin/goldmark"

	"github.com/hupe1980/memora/core"
)

var (
	// ErrNoAction is returned when the text holds no recognizable action.
	ErrNoAction = core.ErrNoAction
	// ErrUnknownAction is returned when an action names an unsupported type.
	ErrUnknownAction = core.ErrUnknownAction
)

// Options configures a Parser.
type Options struct {
	// ProseFallback treats unstructured text as a final answer. Enabled by default.
	ProseFallback bool
}

// WithoutProseFallback disables the plain prose fallback so that text
// without any structured action yields ErrNoAction.
func WithoutProseFallback() func(o *Options) {
	return func(o *Options) { o.ProseFallback = false }
}

// Parser decodes planner output. It is safe for concurrent use.
type Parser struct {
	opts     Options
	markdown goldmark.Markdown
}

// New creates a parser.
func New(optFns ...func(o *Options)) *Parser {
	opts := Options{ProseFallback: true}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Parser{
		opts:     opts,
		markdown: goldmark.New(),
	}
}

var defaultParser = New()

// Parse decodes text with the default parser.
func Parse(text string) (core.Action, error) {
	return defaultParser.Parse(text)
}

// Parse decodes text into an action.
func (p *Parser) Parse(text string) (core.Action, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrNoAction
	}

	for _, block := range p.fencedJSON(text) {
		if action, ok, err := decodeJSONAction(block); ok || err != nil {
			return action, err
		}
	}

	if action, ok, err := decodeJSONAction(text); ok || err != nil {
		return action, err
	}

	if action, ok, err := parseLines(text); ok || err != nil {
		return action, err
	}

	if p.opts.ProseFallback && !strings.Contains(text, "Action:") && !strings.Contains(text, "```json") {
		return core.Final{Content: text}, nil
	}

	return nil, ErrNoAction
}
