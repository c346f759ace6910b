package catalog

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/snapctl/snapctl/internal/objectstore/fsstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *fsstore.Store {
	t.Helper()
	store, err := fsstore.New(t.TempDir())
	require.NoError(t, err)
	return store
}

func TestAppendSnapshotThenFind(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, AppendSnapshot(ctx, store, Snapshot{Name: "dump-1000", Engine: "postgres", CreatedAtMs: 1000}))
	require.NoError(t, AppendSnapshot(ctx, store, Snapshot{Name: "dump-2000", Engine: "postgres", CreatedAtMs: 2000}))

	cat, _, err := Load(ctx, store)
	require.NoError(t, err)
	require.Len(t, cat.Snapshots, 2)

	latest, ok := Find(cat, "latest")
	require.True(t, ok)
	assert.Equal(t, "dump-2000", latest.Name)

	named, ok := Find(cat, "dump-1000")
	require.True(t, ok)
	assert.Equal(t, int64(1000), named.CreatedAtMs)

	_, ok = Find(cat, "dump-missing")
	assert.False(t, ok)
}

func TestRemoveSnapshots(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, AppendSnapshot(ctx, store, Snapshot{Name: "dump-1", CreatedAtMs: 1}))
	require.NoError(t, AppendSnapshot(ctx, store, Snapshot{Name: "dump-2", CreatedAtMs: 2}))

	require.NoError(t, RemoveSnapshots(ctx, store, []string{"dump-1"}))

	cat, _, err := Load(ctx, store)
	require.NoError(t, err)
	require.Len(t, cat.Snapshots, 1)
	assert.Equal(t, "dump-2", cat.Snapshots[0].Name)
}

func TestSelectByAgeAndByCount(t *testing.T) {
	now := time.Now()
	cat := &Catalog{Snapshots: []Snapshot{
		{Name: "old", CreatedAtMs: now.Add(-10 * 24 * time.Hour).UnixMilli()},
		{Name: "recent", CreatedAtMs: now.Add(-1 * time.Hour).UnixMilli()},
	}}

	byAge := SelectByAge(cat, 7*24*time.Hour, now)
	assert.Equal(t, []string{"old"}, byAge)

	byCount := SelectByCount(cat, 1)
	assert.Equal(t, []string{"old"}, byCount)
}

func TestCatalogMonotonicOrderingOnSave(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, AppendSnapshot(ctx, store, Snapshot{Name: "dump-200", CreatedAtMs: 200}))
	require.NoError(t, AppendSnapshot(ctx, store, Snapshot{Name: "dump-100", CreatedAtMs: 100}))
	require.NoError(t, AppendSnapshot(ctx, store, Snapshot{Name: "dump-300", CreatedAtMs: 300}))

	cat, _, err := Load(ctx, store)
	require.NoError(t, err)
	require.Len(t, cat.Snapshots, 3)
	assert.Equal(t, "dump-300", cat.Snapshots[0].Name)
	assert.Equal(t, "dump-200", cat.Snapshots[1].Name)
	assert.Equal(t, "dump-100", cat.Snapshots[2].Name)
}

func TestReconcileDeletesOnlyUnreferencedOldObjects(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, AppendSnapshot(ctx, store, Snapshot{Name: "dump-1", CreatedAtMs: 1, ChunkCount: 1}))
	_, err := store.Put(ctx, ManifestKey("dump-1"), strings.NewReader("{}"), 2)
	require.NoError(t, err)
	_, err = store.Put(ctx, ChunkKey("dump-1", 0), strings.NewReader("data"), 4)
	require.NoError(t, err)

	// Orphan: never referenced by any catalog entry.
	_, err = store.Put(ctx, "dump-orphan/chunk-0000000000", strings.NewReader("junk"), 4)
	require.NoError(t, err)

	deleted, err := Reconcile(ctx, store, 0)
	require.NoError(t, err)
	assert.Contains(t, deleted, "dump-orphan/chunk-0000000000")
	assert.NotContains(t, deleted, ManifestKey("dump-1"))
	assert.NotContains(t, deleted, ChunkKey("dump-1", 0))
}
