// Package catalog implements the metadata.json index described in
// spec.md §4.5: an ordered collection of Snapshot descriptors, updated by
// read-modify-write with a best-effort conditional write.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/snapctl/snapctl/internal/objectstore"
)

// CatalogKey is the well-known object name at the store root.
const CatalogKey = "metadata.json"

// Snapshot is one entry of the catalog, matching the manifest shape of
// spec.md §4.5 and promoted (per SPEC_FULL.md §5) to explicit struct
// fields rather than an untyped map.
type Snapshot struct {
	Name        string `json:"name"`
	Engine      string `json:"engine"`
	SizeBytes   int64  `json:"size_bytes"`
	CreatedAtMs int64  `json:"created_at_ms"`
	Compressed  bool   `json:"compressed"`
	Encrypted   bool   `json:"encrypted"`
	KDFSalt     string `json:"kdf_salt,omitempty"` // base64, set only when Encrypted
	ChunkSize   int64  `json:"chunk_size"`
	ChunkCount  int    `json:"chunk_count"`
}

// Catalog is the deserialized contents of metadata.json.
type Catalog struct {
	Snapshots []Snapshot `json:"snapshots"`
}

// Load fetches and parses the catalog, returning an empty Catalog (not an
// error) if metadata.json doesn't exist yet — the first backup against a
// fresh store creates it. The returned ETag is "" in that case, which
// Save's conditional write treats as "create only if still absent".
func Load(ctx context.Context, store objectstore.Store) (*Catalog, string, error) {
	r, err := store.Get(ctx, CatalogKey)
	if err != nil {
		if errors.Is(err, objectstore.ErrNotExist) {
			return &Catalog{}, "", nil
		}
		return nil, "", fmt.Errorf("catalog: load: %w", err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, "", fmt.Errorf("catalog: read: %w", err)
	}
	var cat Catalog
	if err := json.Unmarshal(data, &cat); err != nil {
		return nil, "", fmt.Errorf("catalog: parse: %w", err)
	}
	info, err := store.Stat(ctx, CatalogKey)
	if err != nil {
		return nil, "", fmt.Errorf("catalog: stat after load: %w", err)
	}
	return &cat, info.ETag, nil
}

// marshal renders the catalog as canonical JSON with stable key ordering
// (spec.md §6: "The catalog is canonical JSON with stable key ordering"),
// sorted by creation time descending per the "Catalog monotonicity"
// testable property.
func marshal(cat *Catalog) ([]byte, error) {
	sorted := append([]Snapshot(nil), cat.Snapshots...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAtMs > sorted[j].CreatedAtMs
	})
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(Catalog{Snapshots: sorted}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Save attempts a conditional write against expectedETag and, on
// precondition failure, refetches the live catalog, hands it to merge, and
// retries — the pattern spec.md §4.5 and §9 describe for the documented
// single-writer limitation.
func Save(ctx context.Context, store objectstore.Store, cat *Catalog, expectedETag string, merge func(live *Catalog) *Catalog) error {
	const maxAttempts = 5
	current, etag := cat, expectedETag
	for attempt := 0; attempt < maxAttempts; attempt++ {
		data, err := marshal(current)
		if err != nil {
			return fmt.Errorf("catalog: marshal: %w", err)
		}
		_, err = store.PutIfMatch(ctx, CatalogKey, etag, bytes.NewReader(data), int64(len(data)))
		if err == nil {
			return nil
		}
		if !errors.Is(err, objectstore.ErrPreconditionFailed) {
			return fmt.Errorf("catalog: save: %w", err)
		}
		live, liveETag, loadErr := Load(ctx, store)
		if loadErr != nil {
			return fmt.Errorf("catalog: refetch after precondition failure: %w", loadErr)
		}
		current, etag = merge(live), liveETag
	}
	return fmt.Errorf("catalog: save: exceeded %d conditional-write attempts", maxAttempts)
}

// AppendSnapshot adds snap to the catalog with retry-on-conflict.
func AppendSnapshot(ctx context.Context, store objectstore.Store, snap Snapshot) error {
	cat, etag, err := Load(ctx, store)
	if err != nil {
		return err
	}
	cat.Snapshots = append(cat.Snapshots, snap)
	return Save(ctx, store, cat, etag, func(live *Catalog) *Catalog {
		live.Snapshots = append(live.Snapshots, snap)
		return live
	})
}

// RemoveSnapshots deletes the named snapshots' catalog entries with
// retry-on-conflict. It does not remove the underlying chunk objects;
// callers do that first so "the catalog is rewritten last" (spec.md §4.5).
func RemoveSnapshots(ctx context.Context, store objectstore.Store, names []string) error {
	toRemove := make(map[string]bool, len(names))
	for _, n := range names {
		toRemove[n] = true
	}
	cat, etag, err := Load(ctx, store)
	if err != nil {
		return err
	}
	filtered := filterOut(cat.Snapshots, toRemove)
	cat.Snapshots = filtered
	return Save(ctx, store, cat, etag, func(live *Catalog) *Catalog {
		live.Snapshots = filterOut(live.Snapshots, toRemove)
		return live
	})
}

func filterOut(snaps []Snapshot, remove map[string]bool) []Snapshot {
	out := make([]Snapshot, 0, len(snaps))
	for _, s := range snaps {
		if !remove[s.Name] {
			out = append(out, s)
		}
	}
	return out
}

// Find returns the snapshot named name, or the most recent one when name
// is "latest" (spec.md §6: "Selects a snapshot by name or `latest`").
func Find(cat *Catalog, name string) (Snapshot, bool) {
	if name == "latest" {
		var best Snapshot
		found := false
		for _, s := range cat.Snapshots {
			if !found || s.CreatedAtMs > best.CreatedAtMs {
				best = s
				found = true
			}
		}
		return best, found
	}
	for _, s := range cat.Snapshots {
		if s.Name == name {
			return s, true
		}
	}
	return Snapshot{}, false
}

// ChunkKey renders the object key for chunk n of a snapshot, per spec.md
// §4.5's layout: "<snapshot-name>/chunk-0000000000".
func ChunkKey(snapshotName string, n int) string {
	return fmt.Sprintf("%s/chunk-%010d", snapshotName, n)
}

// ManifestKey renders the per-snapshot descriptor object key.
func ManifestKey(snapshotName string) string {
	return snapshotName + "/manifest.json"
}

// SnapshotPrefix returns the key prefix all of a snapshot's objects share.
func SnapshotPrefix(snapshotName string) string {
	return strings.TrimSuffix(snapshotName, "/") + "/"
}
