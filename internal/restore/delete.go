package restore

import (
	"context"
	"fmt"
	"time"

	"github.com/snapctl/snapctl/internal/objectstore"
	"github.com/snapctl/snapctl/internal/objectstore/catalog"
	"github.com/snapctl/snapctl/internal/snaperrors"
)

// DeleteByName removes the single snapshot named name.
func DeleteByName(ctx context.Context, store objectstore.Store, name string) error {
	return deleteSelected(ctx, store, func(cat *catalog.Catalog) []string {
		return catalog.SelectByName(cat, name)
	})
}

// DeleteOlderThan removes every snapshot created before olderThan ago.
func DeleteOlderThan(ctx context.Context, store objectstore.Store, olderThan time.Duration) error {
	return deleteSelected(ctx, store, func(cat *catalog.Catalog) []string {
		return catalog.SelectByAge(cat, olderThan, time.Now())
	})
}

// DeleteKeepLast removes every snapshot except the keepLast most recent.
func DeleteKeepLast(ctx context.Context, store objectstore.Store, keepLast int) error {
	return deleteSelected(ctx, store, func(cat *catalog.Catalog) []string {
		return catalog.SelectByCount(cat, keepLast)
	})
}

// deleteSelected resolves a deletion strategy against the live catalog and
// removes each selected snapshot's chunks and manifest before rewriting the
// catalog, per spec.md §4.5's ordering guarantee: "the catalog is rewritten
// last so partial failure leaves chunks orphaned but the catalog
// consistent."
func deleteSelected(ctx context.Context, store objectstore.Store, selector func(*catalog.Catalog) []string) error {
	cat, _, err := catalog.Load(ctx, store)
	if err != nil {
		return snaperrors.New(snaperrors.KindObjectStore, err)
	}
	names := selector(cat)
	if len(names) == 0 {
		return nil
	}

	for _, name := range names {
		keys, err := store.List(ctx, catalog.SnapshotPrefix(name))
		if err != nil {
			return snaperrors.New(snaperrors.KindObjectStore, fmt.Errorf("list objects for %s: %w", name, err))
		}
		for _, key := range keys {
			if err := store.Delete(ctx, key); err != nil {
				return snaperrors.New(snaperrors.KindObjectStore, fmt.Errorf("delete %s: %w", key, err))
			}
		}
	}
	if err := catalog.RemoveSnapshots(ctx, store, names); err != nil {
		return snaperrors.New(snaperrors.KindObjectStore, err)
	}
	return nil
}
