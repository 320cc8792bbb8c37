package model

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one conversational turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request captures the normalized model input.
type Request struct {
	System   string    `json:"system,omitempty"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream,omitempty"`
}

// LastUserText returns the content of the last user message.
func (r Request) LastUserText() string {
	for i := len(r.Messages) - 1; i >= 0; i-- {
		if r.Messages[i].Role == RoleUser {
			return r.Messages[i].Content
		}
	}
	return ""
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is a partial (streaming delta) or final chunk. The final chunk
// carries the complete text.
type Response struct {
	ID           string      `json:"id,omitempty"`
	Partial      bool        `json:"partial"`
	Text         string      `json:"text"`
	FinishReason string      `json:"finish_reason,omitempty"` // "stop", "length", ...
	Usage        *TokenUsage `json:"usage,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name     string `json:"name"`
	Provider string `json:"provider"` // "openai", "anthropic", "mock", ...
}

// Model is the minimal interface required by the planner and writer.
type Model interface {
	Generate(ctx context.Context, req Request) (<-chan Response, <-chan error)

	// Info returns information about the model implementation.
	Info() Info
}

// ErrEmptyResponse is returned by Collect when the model produced no text.
var ErrEmptyResponse = errors.New("model returned an empty response")

// Collect drains a Generate call and returns the final text. onDelta, when
// non-nil, receives every partial chunk in order.
func Collect(ctx context.Context, m Model, req Request, onDelta func(string)) (string, error) {
	respCh, errCh := m.Generate(ctx, req)

	var (
		streamed strings.Builder
		final    *Response
	)
	for resp := range respCh {
		if resp.Partial {
			streamed.WriteString(resp.Text)
			if onDelta != nil {
				onDelta(resp.Text)
			}
			continue
		}
		r := resp
		final = &r
	}

	if err := <-errCh; err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	text := streamed.String()
	if final != nil && final.Text != "" {
		text = final.Text
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%s: %w", m.Info().Name, ErrEmptyResponse)
	}
	return text, nil
}
