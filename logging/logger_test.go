package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferLogger(level LogLevel) (*MemoraLogger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	cfg := DefaultLoggerConfig()
	cfg.Level = level
	cfg.Output = buf
	return NewLogger(cfg), buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		m := map[string]any{}
		require.NoError(t, json.Unmarshal(line, &m))
		out = append(out, m)
	}
	return out
}

func TestMemoraLogger_KeyValueAttrs(t *testing.T) {
	l, buf := newBufferLogger(LogLevelDebug)
	l.WithComponent("orchestrator").WithAgent("a1").Info("orchestrator.transition", "from", "IDLE", "to", "PLANNING")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "orchestrator.transition", lines[0]["msg"])
	assert.Equal(t, "orchestrator", lines[0]["component"])
	assert.Equal(t, "a1", lines[0]["agent_id"])
	assert.Equal(t, "IDLE", lines[0]["from"])
	assert.Equal(t, "PLANNING", lines[0]["to"])
}

func TestMemoraLogger_LevelFiltering(t *testing.T) {
	l, buf := newBufferLogger(LogLevelWarn)
	l.Debug("hidden")
	l.Info("hidden")
	l.Warn("shown")
	l.Error("shown too")

	assert.Len(t, decodeLines(t, buf), 2)
}

func TestMemoraLogger_DomainHelpers(t *testing.T) {
	l, buf := newBufferLogger(LogLevelDebug)
	l.LogToolCall("shell", 5*time.Millisecond, false, "boom")
	l.LogModelCall("planner", "mock", time.Millisecond, errors.New("timeout"))
	l.LogTransition("PLANNING", "WRITING", 3)

	lines := decodeLines(t, buf)
	require.Len(t, lines, 3)
	assert.Equal(t, "Tool execution failed", lines[0]["msg"])
	assert.Equal(t, "boom", lines[0]["error"])
	assert.Equal(t, "Model call failed", lines[1]["msg"])
	assert.Equal(t, "State transition", lines[2]["msg"])
}

func TestWithContext_DoesNotLeak(t *testing.T) {
	base, buf := newBufferLogger(LogLevelInfo)
	_ = base.WithContext("k", "v")
	base.Info("plain")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	_, ok := lines[0]["k"]
	assert.False(t, ok)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
		ok   bool
	}{
		{"debug", LogLevelDebug, true},
		{"INFO", LogLevelInfo, true},
		{"warning", LogLevelWarn, true},
		{"error", LogLevelError, true},
		{"", LogLevelInfo, true},
		{"loud", LogLevelInfo, false},
	}
	for _, tt := range tests {
		got, ok := ParseLevel(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
	}
}

func TestOrNoOp(t *testing.T) {
	assert.IsType(t, NoOpLogger{}, OrNoOp(nil))
	l := NewDefaultSlogLogger()
	assert.Equal(t, l, OrNoOp(l))
}
