package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeAction(t *testing.T) {
	tests := []struct {
		name   string
		action Action
	}{
		{"use_tool", UseTool{Tool: "shell", Args: map[string]any{"command": "ls"}, Reason: "look"}},
		{"task_list", TaskList{Tasks: []TaskSpec{{ID: "t1", Goal: "a"}, {Goal: "b"}}}},
		{"final", Final{Content: "done"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := EncodeAction(tt.action)
			require.NoError(t, err)

			decoded, err := DecodeAction(raw)
			require.NoError(t, err)
			assert.Equal(t, tt.action, decoded)
			assert.Equal(t, tt.action.ActionType(), decoded.ActionType())
		})
	}
}

func TestDecodeAction_NullAndUnknown(t *testing.T) {
	a, err := DecodeAction([]byte("null"))
	assert.NoError(t, err)
	assert.Nil(t, a)

	raw, err := EncodeAction(nil)
	assert.NoError(t, err)
	assert.Equal(t, "null", string(raw))

	_, err = DecodeAction([]byte(`{"type":"dance"}`))
	assert.ErrorIs(t, err, ErrUnknownAction)

	_, err = DecodeAction([]byte(`{not json`))
	assert.Error(t, err)
}

func TestDecodeAction_UseToolDefaultsArgs(t *testing.T) {
	a, err := DecodeAction([]byte(`{"type":"use_tool","tool":"shell"}`))
	require.NoError(t, err)

	ut, ok := a.(UseTool)
	require.True(t, ok)
	assert.NotNil(t, ut.Args)
}

func TestCheckpoint_Clone(t *testing.T) {
	obs := "Tool Output:\nok"
	raw, _ := EncodeAction(Final{Content: "x"})
	cp := &Checkpoint{
		AgentID:            "a1",
		State:              StateObserving,
		Tasks:              []*Task{NewTask("t1", "goal")},
		ExecutionHistory:   []string{"step"},
		TraceEvents:        []TraceEvent{NewTraceEvent(EventStateChange, nil)},
		CurrentAction:      raw,
		CurrentObservation: &obs,
	}

	clone := cp.Clone()
	clone.Tasks[0].MarkRunning()
	clone.ExecutionHistory[0] = "changed"
	*clone.CurrentObservation = "changed"

	assert.Equal(t, TaskPending, cp.Tasks[0].Status)
	assert.Equal(t, "step", cp.ExecutionHistory[0])
	assert.Equal(t, obs, *cp.CurrentObservation)

	action, err := clone.Action()
	require.NoError(t, err)
	assert.Equal(t, Final{Content: "x"}, action)
}

func TestToolResult(t *testing.T) {
	ok := Ok("fine")
	assert.True(t, ok.IsOk())
	assert.Equal(t, "fine", ok.Output)

	bad := Err("broken")
	assert.False(t, bad.IsOk())
	assert.Equal(t, "broken", bad.Reason)
}
