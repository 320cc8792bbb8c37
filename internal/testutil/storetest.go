package testutil

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/memora/core"
)

// RunStoreConformance exercises the core.CheckpointStore contract (and the
// optional RunLocker and CheckpointLister contracts) against store.
func RunStoreConformance(t *testing.T, store core.CheckpointStore) {
	t.Helper()
	ctx := context.Background()

	t.Run("missing checkpoint", func(t *testing.T) {
		ok, err := store.Exists(ctx, "nobody")
		require.NoError(t, err)
		assert.False(t, ok)

		_, err = store.LoadLatest(ctx, "nobody")
		assert.True(t, errors.Is(err, core.ErrCheckpointNotFound), "got %v", err)

		require.NoError(t, store.Clear(ctx, "nobody"))
	})

	t.Run("save load round trip", func(t *testing.T) {
		cp := NewCheckpointBuilder("a1").
			State(core.StateTaskRunning).
			Goal("count files").
			Model("mock").
			CompletedTask("t1", "list files", "3 files").
			PendingTask("t2", "summarize").
			Cursor(1).
			GlobalContext("Task t1 (list files) result: 3 files").
			History("Step 1:\nThought: x").
			Action(core.UseTool{Tool: "shell", Args: map[string]any{"command": "ls"}}).
			Observation("Tool Output:\na b c").
			Steps(7).
			Events(StateChange(core.StateIdle, core.StatePlanning)).
			Build()

		require.NoError(t, store.Save(ctx, cp))

		ok, err := store.Exists(ctx, "a1")
		require.NoError(t, err)
		assert.True(t, ok)

		got, err := store.LoadLatest(ctx, "a1")
		require.NoError(t, err)
		assert.Equal(t, cp.State, got.State)
		assert.Equal(t, cp.Goal, got.Goal)
		assert.Equal(t, cp.ModelID, got.ModelID)
		assert.Equal(t, cp.CurrentTaskIndex, got.CurrentTaskIndex)
		assert.Equal(t, cp.Tasks, got.Tasks)
		assert.Equal(t, cp.GlobalContext, got.GlobalContext)
		assert.Equal(t, cp.ExecutionHistory, got.ExecutionHistory)
		assert.Equal(t, cp.Steps, got.Steps)
		require.NotNil(t, got.CurrentObservation)
		assert.Equal(t, "Tool Output:\na b c", *got.CurrentObservation)
		require.Len(t, got.TraceEvents, 1)
		assert.Equal(t, cp.TraceEvents[0].ID, got.TraceEvents[0].ID)

		action, err := got.Action()
		require.NoError(t, err)
		assert.Equal(t, core.UseTool{Tool: "shell", Args: map[string]any{"command": "ls"}}, action)
	})

	t.Run("save overwrites", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, NewCheckpointBuilder("a2").State(core.StatePlanning).Build()))
		require.NoError(t, store.Save(ctx, NewCheckpointBuilder("a2").State(core.StateWriting).FinalAnswer("x").Build()))

		got, err := store.LoadLatest(ctx, "a2")
		require.NoError(t, err)
		assert.Equal(t, core.StateWriting, got.State)
		assert.Equal(t, "x", got.FinalAnswer)
	})

	t.Run("clear", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, NewCheckpointBuilder("a3").Build()))
		require.NoError(t, store.Clear(ctx, "a3"))
		require.NoError(t, store.Clear(ctx, "a3"))

		ok, err := store.Exists(ctx, "a3")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("invalid agent id", func(t *testing.T) {
		err := store.Save(ctx, NewCheckpointBuilder("../escape").Build())
		assert.True(t, errors.Is(err, core.ErrInvalidAgentID), "got %v", err)
	})

	if lister, ok := store.(core.CheckpointLister); ok {
		t.Run("list", func(t *testing.T) {
			ids, err := lister.List(ctx)
			require.NoError(t, err)
			assert.Contains(t, ids, "a1")
			assert.Contains(t, ids, "a2")
			assert.NotContains(t, ids, "a3")
		})
	}

	if locker, ok := store.(core.RunLocker); ok {
		t.Run("run lock", func(t *testing.T) {
			release, err := locker.Acquire(ctx, "locked")
			require.NoError(t, err)

			_, err = locker.Acquire(ctx, "locked")
			assert.True(t, errors.Is(err, core.ErrRunInProgress), "got %v", err)

			other, err := locker.Acquire(ctx, "other")
			require.NoError(t, err)
			require.NoError(t, other())

			require.NoError(t, release())
			again, err := locker.Acquire(ctx, "locked")
			require.NoError(t, err)
			require.NoError(t, again())
		})
	}
}
