package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/memora/core"
	"github.com/hupe1980/memora/internal/testutil"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(func(o *Options) { o.Path = filepath.Join(t.TempDir(), "cp.db") })
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStore_Conformance(t *testing.T) {
	testutil.RunStoreConformance(t, newTestStore(t))
}

func TestStore_InMemory(t *testing.T) {
	store, err := New(func(o *Options) { o.Path = ":memory:" })
	require.NoError(t, err)
	defer store.Close()

	testutil.RunStoreConformance(t, store)
}

func TestStore_CountByState(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, testutil.NewCheckpointBuilder("a").State(core.StatePlanning).Build()))
	require.NoError(t, store.Save(ctx, testutil.NewCheckpointBuilder("b").Failed("boom", core.StatePlanning).Build()))
	require.NoError(t, store.Save(ctx, testutil.NewCheckpointBuilder("c").Failed("boom", core.StateWriting).Build()))

	counts, err := store.CountByState(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[core.State]int{core.StatePlanning: 1, core.StateError: 2}, counts)
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cp.db")
	ctx := context.Background()

	store, err := New(func(o *Options) { o.Path = path })
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, testutil.NewCheckpointBuilder("a1").State(core.StateObserving).Build()))
	require.NoError(t, store.Close())

	reopened, err := New(func(o *Options) { o.Path = path })
	require.NoError(t, err)
	defer reopened.Close()

	cp, err := reopened.LoadLatest(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, core.StateObserving, cp.State)
}
