// Package pipeline composes the source parser, subset planner, transformer
// registry, and codec stages into the backup driver of spec.md §4.6: a
// streaming byte pipeline with bounded handoffs between stages, cancellable
// via context.Context, that uploads chunks to an objectstore.Store and
// appends a catalog entry only once every chunk is durable.
package pipeline

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/snapctl/snapctl/internal/config"
	"github.com/snapctl/snapctl/internal/engine"
	"github.com/snapctl/snapctl/internal/objectstore"
)

// SourceOpener returns a fresh reader over the same dump bytes each time
// it's called. The backup driver reopens it multiple times when subsetting
// is configured (pass 1: build the schema graph; pass 2: record rows into
// the subset planner; pass 3: filter/transform/serialize) per spec.md §9's
// "prefer re-running [the source] for correctness".
type SourceOpener func(ctx context.Context) (io.ReadCloser, error)

// BackupOptions parameterizes a single backup run.
type BackupOptions struct {
	SnapshotName string
	Engine       engine.Engine
	Open         SourceOpener
	Source       config.SourceConfig

	Store            objectstore.Store
	ChunkSize        int
	Compress         bool
	EncryptionKey    string // "" disables encryption
	ProgressInterval time.Duration
	OnProgress       func(bytesIn, bytesOut int64)
}

// tableMatcher decides whether a qualified dump table name (e.g.
// "public.customers") is named by a configured (database, table) ref.
// Dumps are already scoped to one source database, so only the table's
// last qualifier is compared; Database is accepted but not required to
// match, keeping the config ergonomic for single-schema sources.
type tableMatcher struct {
	refs []config.TableRef
}

func newTableMatcher(refs []config.TableRef) tableMatcher {
	return tableMatcher{refs: refs}
}

func (m tableMatcher) empty() bool { return len(m.refs) == 0 }

func (m tableMatcher) matches(qualified string) bool {
	name := lastSegment(qualified)
	for _, ref := range m.refs {
		if strings.EqualFold(ref.Table, name) {
			return true
		}
	}
	return false
}

func lastSegment(qualified string) string {
	if i := strings.LastIndex(qualified, "."); i >= 0 {
		return qualified[i+1:]
	}
	return qualified
}
