package core

import (
	"time"

	"github.com/google/uuid"
)

// EventType categorizes a TraceEvent. The set is fixed.
type EventType string

const (
	EventStateChange   EventType = "STATE_CHANGE"
	EventPlannerCall   EventType = "PLANNER_CALL"
	EventPlannerOutput EventType = "PLANNER_OUTPUT"
	EventTaskStart     EventType = "TASK_START"
	EventTaskEnd       EventType = "TASK_END"
	EventToolCall      EventType = "TOOL_CALL"
	EventToolResult    EventType = "TOOL_RESULT"
	EventWriterCall    EventType = "WRITER_CALL"
	EventWriterOutput  EventType = "WRITER_OUTPUT"
	EventError         EventType = "ERROR"
)

// TraceEvent is an immutable record of one orchestration occurrence. It is
// appended to the run's collector, persisted inside every checkpoint and
// replayed into memory on resume.
//
// Data is an opaque payload specific to Type (e.g. {"from","to"} for
// STATE_CHANGE, {"tool","args"} for TOOL_CALL). After emission the event and
// its payload must be treated as read-only.
type TraceEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Data      map[string]any `json:"data"`
	Timestamp time.Time      `json:"timestamp"`
}

// NewTraceEvent creates an event with a fresh id and UTC timestamp.
func NewTraceEvent(typ EventType, data map[string]any) TraceEvent {
	if data == nil {
		data = map[string]any{}
	}
	return TraceEvent{
		ID:        NewID(),
		Type:      typ,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
}

// NewID generates a new unique identifier for events and agents.
func NewID() string { return uuid.NewString() }

// String returns the value stored under key as a string, or "" if absent.
func (e TraceEvent) String(key string) string {
	v, ok := e.Data[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
