package checkpoint

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/memora/core"
	"github.com/hupe1980/memora/internal/testutil"
)

func TestInMemoryStore_Conformance(t *testing.T) {
	testutil.RunStoreConformance(t, NewInMemoryStore())
}

func TestFileStore_Conformance(t *testing.T) {
	store, err := NewFileStore(func(o *FileOptions) { o.Dir = t.TempDir() })
	require.NoError(t, err)
	testutil.RunStoreConformance(t, store)
}

func TestFileStore_Layout(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "checkpoints")
	store, err := NewFileStore(func(o *FileOptions) { o.Dir = dir })
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.Save(ctx, testutil.NewCheckpointBuilder("agent-1").State(core.StatePlanning).Build()))

	data, err := os.ReadFile(filepath.Join(dir, "agent-1.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"agent_id": "agent-1"`)
	assert.Contains(t, string(data), `"state": "PLANNING"`)
	assert.Contains(t, string(data), `"current_action": null`)
	assert.Contains(t, string(data), `"current_observation": null`)

	release, err := store.Acquire(ctx, "agent-1")
	require.NoError(t, err)
	require.NoError(t, release())

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"agent-1"}, ids, "lock files are not checkpoints")
}

func TestFileStore_CorruptCheckpoint(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(func(o *FileOptions) { o.Dir = dir })
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{not json"), 0o644))

	_, err = store.LoadLatest(context.Background(), "bad")
	require.Error(t, err)
	assert.NotErrorIs(t, err, core.ErrCheckpointNotFound)
}

func TestValidateAgentID(t *testing.T) {
	valid := []string{"a1", "7f9c1f5e-1c1b-4c4e-9a55-1f7e2b0f0c11", "agent_1.v2"}
	for _, id := range valid {
		assert.NoError(t, ValidateAgentID(id), id)
	}

	invalid := []string{"", ".", "..", "../x", "a/b", `a\b`, ".hidden", "with space"}
	for _, id := range invalid {
		assert.ErrorIs(t, ValidateAgentID(id), core.ErrInvalidAgentID, id)
	}
}

func TestLockSet_ReleaseIsIdempotent(t *testing.T) {
	var locks LockSet
	ctx := context.Background()

	release, err := locks.Acquire(ctx, "a1")
	require.NoError(t, err)
	require.NoError(t, release())
	require.NoError(t, release())

	again, err := locks.Acquire(ctx, "a1")
	require.NoError(t, err)

	_, err = locks.Acquire(ctx, "a1")
	assert.ErrorIs(t, err, core.ErrRunInProgress)
	require.NoError(t, again())
}
