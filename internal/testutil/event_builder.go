package testutil

import (
	"time"

	"github.com/hupe1980/memora/core"
)

// EventBuilder provides a fluent helper for constructing trace events.
// Example:
//
//	ev := NewEventBuilder(core.EventStateChange).Data("from", "IDLE").Data("to", "PLANNING").Build()
type EventBuilder struct {
	typ  core.EventType
	id   string
	ts   time.Time
	data map[string]any
}

// NewEventBuilder creates a builder for an event of the given type.
func NewEventBuilder(typ core.EventType) *EventBuilder {
	return &EventBuilder{typ: typ, data: map[string]any{}}
}

// ID overrides the generated event id (chainable).
func (b *EventBuilder) ID(id string) *EventBuilder { b.id = id; return b }

// At overrides the event timestamp (chainable).
func (b *EventBuilder) At(ts time.Time) *EventBuilder { b.ts = ts; return b }

// Data sets a payload key (chainable).
func (b *EventBuilder) Data(key string, val any) *EventBuilder { b.data[key] = val; return b }

// Build constructs the event.
func (b *EventBuilder) Build() core.TraceEvent {
	ev := core.NewTraceEvent(b.typ, b.data)
	if b.id != "" {
		ev.ID = b.id
	}
	if !b.ts.IsZero() {
		ev.Timestamp = b.ts
	}
	return ev
}

// StateChange is shorthand for a STATE_CHANGE event.
func StateChange(from, to core.State) core.TraceEvent {
	return NewEventBuilder(core.EventStateChange).Data("from", string(from)).Data("to", string(to)).Build()
}
