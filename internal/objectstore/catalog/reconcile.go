package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/snapctl/snapctl/internal/objectstore"
)

// Reconcile implements SPEC_FULL.md §6.2: list every chunk/manifest key in
// the store, subtract those referenced by the live catalog, and delete
// orphans older than olderThan. A failed backup leaves objects behind
// without ever appending a catalog entry (spec.md §5 "Cancellation"), so
// this is the sweep that reclaims them.
func Reconcile(ctx context.Context, store objectstore.Store, olderThan time.Duration) ([]string, error) {
	cat, _, err := Load(ctx, store)
	if err != nil {
		return nil, fmt.Errorf("reconcile: load catalog: %w", err)
	}
	referenced := make(map[string]bool)
	for _, s := range cat.Snapshots {
		referenced[ManifestKey(s.Name)] = true
		for i := 0; i < s.ChunkCount; i++ {
			referenced[ChunkKey(s.Name, i)] = true
		}
	}

	keys, err := store.List(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("reconcile: list objects: %w", err)
	}

	cutoff := time.Now().Add(-olderThan)
	var deleted []string
	for _, key := range keys {
		if key == CatalogKey || referenced[key] {
			continue
		}
		if !strings.Contains(key, "/") {
			// Not a chunk/manifest object under a snapshot prefix; leave
			// unrecognized root-level objects alone.
			continue
		}
		info, err := store.Stat(ctx, key)
		if err != nil {
			slog.Warn("reconcile: stat failed, skipping", "key", key, "error", err)
			continue
		}
		if info.ModTime.After(cutoff) {
			continue
		}
		if err := store.Delete(ctx, key); err != nil {
			return deleted, fmt.Errorf("reconcile: delete orphan %s: %w", key, err)
		}
		deleted = append(deleted, key)
	}
	return deleted, nil
}
