package trace

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/memora/core"
)

func TestCollector_EmitNotifiesInOrder(t *testing.T) {
	var seen []string
	c := New(func(o *Options) {
		o.Listeners = []Listener{
			ListenerFunc(func(ev core.TraceEvent) { seen = append(seen, "a:"+string(ev.Type)) }),
		}
	})
	c.AddListener(ListenerFunc(func(ev core.TraceEvent) { seen = append(seen, "b:"+string(ev.Type)) }))

	ev := c.Emit(core.EventStateChange, map[string]any{"from": "IDLE", "to": "PLANNING"})

	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, []string{"a:STATE_CHANGE", "b:STATE_CHANGE"}, seen)
	require.Equal(t, 1, c.Len())
	assert.Equal(t, ev, c.Events()[0])
}

func TestCollector_ListenerPanicIsContained(t *testing.T) {
	var calls int
	c := New()
	c.AddListener(ListenerFunc(func(core.TraceEvent) { panic("boom") }))
	c.AddListener(ListenerFunc(func(core.TraceEvent) { calls++ }))

	assert.NotPanics(t, func() { c.Emit(core.EventError, map[string]any{"error": "x"}) })
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, c.Len())
}

func TestCollector_RestoreDoesNotNotify(t *testing.T) {
	var calls int
	c := New()
	c.AddListener(ListenerFunc(func(core.TraceEvent) { calls++ }))

	old := []core.TraceEvent{
		core.NewTraceEvent(core.EventStateChange, map[string]any{"from": "IDLE", "to": "PLANNING"}),
		core.NewTraceEvent(core.EventPlannerCall, nil),
	}
	c.Restore(old)
	assert.Zero(t, calls)
	assert.Equal(t, old, c.Events())

	c.Emit(core.EventPlannerOutput, nil)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 3, c.Len())
}

func TestCollector_EventsReturnsCopy(t *testing.T) {
	c := New()
	c.Emit(core.EventTaskStart, nil)
	events := c.Events()
	events[0].Type = core.EventError
	assert.Equal(t, core.EventTaskStart, c.Events()[0].Type)
}

func TestCollector_DumpJSON(t *testing.T) {
	c := New()
	c.Emit(core.EventToolCall, map[string]any{"tool": "shell"})

	out, err := c.DumpJSON()
	require.NoError(t, err)

	var decoded []core.TraceEvent
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "shell", decoded[0].String("tool"))
}

func TestConsoleListener_Summaries(t *testing.T) {
	buf := &bytes.Buffer{}
	start := time.Now()
	l := NewConsoleListener(func(o *ConsoleOptions) {
		o.Writer = buf
		o.Start = start
		o.NoColor = true
	})

	tests := []struct {
		name string
		ev   core.TraceEvent
		want string
	}{
		{"state change", core.NewTraceEvent(core.EventStateChange, map[string]any{"from": "IDLE", "to": "PLANNING"}), "IDLE -> PLANNING"},
		{"use tool", core.NewTraceEvent(core.EventPlannerOutput, map[string]any{"action": core.ActionMap(core.UseTool{Tool: "shell", Args: map[string]any{"command": "ls"}})}), `use_tool(shell, {"command":"ls"})`},
		{"final", core.NewTraceEvent(core.EventPlannerOutput, map[string]any{"action": core.ActionMap(core.Final{Content: "x"})}), "final"},
		{"task list", core.NewTraceEvent(core.EventPlannerOutput, map[string]any{"action": core.ActionMap(core.TaskList{Tasks: []core.TaskSpec{{Goal: "a"}, {Goal: "b"}}})}), "task_list(2 tasks)"},
		{"decoded task list", core.NewTraceEvent(core.EventPlannerOutput, map[string]any{"action": map[string]any{"type": "task_list", "tasks": []any{map[string]any{"goal": "a"}}}}), "task_list(1 tasks)"},
		{"tool result truncated", core.NewTraceEvent(core.EventToolResult, map[string]any{"result": strings.Repeat("x", 60)}), strings.Repeat("x", 50) + "..."},
		{"task start", core.NewTraceEvent(core.EventTaskStart, map[string]any{"goal": "list files"}), "Task: list files"},
		{"task end", core.NewTraceEvent(core.EventTaskEnd, map[string]any{"result": "short"}), "Result: short"},
		{"error", core.NewTraceEvent(core.EventError, map[string]any{"error": "bad"}), "bad"},
		{"generic", core.NewTraceEvent(core.EventWriterCall, map[string]any{"model": "m"}), `{"model":"m"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, l.Summary(tt.ev))
		})
	}

	l.OnEvent(core.NewTraceEvent(core.EventStateChange, map[string]any{"from": "IDLE", "to": "PLANNING"}))
	line := buf.String()
	assert.True(t, strings.HasPrefix(line, "[T="), line)
	assert.Contains(t, line, "ms] STATE_CHANGE: IDLE -> PLANNING\n")
}

func TestJSONLListener_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	l, err := OpenJSONLFile(dir, "a1", nil)
	require.NoError(t, err)

	c := New(func(o *Options) { o.Listeners = []Listener{l} })
	c.Emit(core.EventStateChange, map[string]any{"from": "IDLE", "to": "PLANNING"})
	c.Emit(core.EventToolResult, map[string]any{"result": "ok"})
	require.NoError(t, l.Close())
	require.Error(t, l.Append(core.NewTraceEvent(core.EventError, nil)))

	buf := &bytes.Buffer{}
	w := NewJSONLListener(buf, nil)
	for _, ev := range c.Events() {
		w.OnEvent(ev)
	}

	events, err := ReadJSONL(buf)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, c.Events()[0].ID, events[0].ID)
	assert.Equal(t, "ok", events[1].String("result"))
}
