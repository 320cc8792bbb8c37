package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewTraceEvent(t *testing.T) {
	ev := NewTraceEvent(EventStateChange, map[string]any{"from": "IDLE", "to": "PLANNING"})

	assert.NotEmpty(t, ev.ID)
	assert.False(t, ev.Timestamp.IsZero())
	assert.Equal(t, EventStateChange, ev.Type)
	assert.Equal(t, "IDLE", ev.String("from"))
	assert.Equal(t, "", ev.String("missing"))

	other := NewTraceEvent(EventError, nil)
	assert.NotEqual(t, ev.ID, other.ID)
	assert.NotNil(t, other.Data)
}

func TestState(t *testing.T) {
	assert.True(t, StateDone.IsTerminal())
	assert.True(t, StateError.IsTerminal())
	assert.False(t, StatePlanning.IsTerminal())
	assert.True(t, StateObserving.IsValid())
	assert.False(t, State("SLEEPING").IsValid())
}

func TestStepLimiter(t *testing.T) {
	l := NewStepLimiter(2)
	assert.NoError(t, l.Increment())
	assert.NoError(t, l.Increment())
	assert.Equal(t, 0, l.Remaining())

	err := l.Increment()
	assert.ErrorIs(t, err, ErrMaxSteps)
	assert.Contains(t, err.Error(), "max steps reached")

	l.Restore(1)
	assert.Equal(t, 1, l.Count())

	unlimited := NewStepLimiter(0)
	for i := 0; i < 100; i++ {
		assert.NoError(t, unlimited.Increment())
	}
	assert.Equal(t, -1, unlimited.Remaining())
}
