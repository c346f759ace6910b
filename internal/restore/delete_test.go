package restore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snapctl/snapctl/internal/engine"
	"github.com/snapctl/snapctl/internal/objectstore/catalog"
	"github.com/snapctl/snapctl/internal/objectstore/fsstore"
	"github.com/snapctl/snapctl/internal/pipeline"
)

func TestDeleteByNameRemovesChunksAndCatalogEntry(t *testing.T) {
	dir := t.TempDir()
	store, err := fsstore.New(dir)
	require.NoError(t, err)

	seedSnapshot(t, store, "dump-1", pipeline.BackupOptions{
		Engine: engine.Postgres,
		Open:   openerFor(sampleDump),
	})

	require.NoError(t, DeleteByName(context.Background(), store, "dump-1"))

	cat, _, err := catalog.Load(context.Background(), store)
	require.NoError(t, err)
	assert.Empty(t, cat.Snapshots)

	keys, err := store.List(context.Background(), catalog.SnapshotPrefix("dump-1"))
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestDeleteByNameIsNoOpForUnknownSnapshot(t *testing.T) {
	dir := t.TempDir()
	store, err := fsstore.New(dir)
	require.NoError(t, err)

	require.NoError(t, DeleteByName(context.Background(), store, "does-not-exist"))
}

func TestDeleteKeepLastPrunesOlderSnapshots(t *testing.T) {
	dir := t.TempDir()
	store, err := fsstore.New(dir)
	require.NoError(t, err)

	seedSnapshot(t, store, "dump-1", pipeline.BackupOptions{Engine: engine.Postgres, Open: openerFor(sampleDump)})
	seedSnapshot(t, store, "dump-2", pipeline.BackupOptions{Engine: engine.Postgres, Open: openerFor(sampleDump)})
	seedSnapshot(t, store, "dump-3", pipeline.BackupOptions{Engine: engine.Postgres, Open: openerFor(sampleDump)})

	require.NoError(t, DeleteKeepLast(context.Background(), store, 1))

	cat, _, err := catalog.Load(context.Background(), store)
	require.NoError(t, err)
	require.Len(t, cat.Snapshots, 1)
}

func TestDeleteOlderThanRemovesAgedSnapshots(t *testing.T) {
	dir := t.TempDir()
	store, err := fsstore.New(dir)
	require.NoError(t, err)

	snap := seedSnapshot(t, store, "dump-1", pipeline.BackupOptions{Engine: engine.Postgres, Open: openerFor(sampleDump)})

	// Backdate the catalog entry directly so age-based selection has
	// something to select without needing to wait in real time.
	cat, etag, err := catalog.Load(context.Background(), store)
	require.NoError(t, err)
	for i := range cat.Snapshots {
		if cat.Snapshots[i].Name == snap.Name {
			cat.Snapshots[i].CreatedAtMs = time.Now().Add(-48 * time.Hour).UnixMilli()
		}
	}
	require.NoError(t, catalog.Save(context.Background(), store, cat, etag, func(live *catalog.Catalog) *catalog.Catalog {
		return cat
	}))

	require.NoError(t, DeleteOlderThan(context.Background(), store, 24*time.Hour))

	cat, _, err = catalog.Load(context.Background(), store)
	require.NoError(t, err)
	assert.Empty(t, cat.Snapshots)
}
