// Package objectstore defines the backend-agnostic storage contract the
// pipeline and restore drivers write chunks and catalog entries through
// (spec.md §4.5), with s3store and fsstore as its two implementations.
package objectstore

import (
	"context"
	"io"
	"time"
)

// ObjectInfo is the subset of object metadata the catalog's conditional
// write logic and the reconciliation sweep need.
type ObjectInfo struct {
	Key     string
	ETag    string
	Size    int64
	ModTime time.Time
}

// Store is the storage contract both the S3-compatible and local
// filesystem backends satisfy. ETag comparisons back the catalog's
// best-effort conditional write (spec.md §4.5: "a best-effort conditional
// write ... is attempted, and on precondition failure the write is
// retried after refetching").
type Store interface {
	// Put uploads size bytes read from r to key, overwriting any existing
	// object, and returns the resulting ETag.
	Put(ctx context.Context, key string, r io.Reader, size int64) (etag string, err error)

	// PutIfMatch uploads only if the object's current ETag equals
	// ifMatchETag (or the object doesn't exist when ifMatchETag == "").
	// ErrPreconditionFailed is returned (wrapped) when the precondition
	// does not hold, and the caller is expected to refetch and retry.
	PutIfMatch(ctx context.Context, key string, ifMatchETag string, r io.Reader, size int64) (etag string, err error)

	// Get opens key for reading. Callers must Close the returned reader.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Stat returns the ETag and size of key without downloading its body.
	Stat(ctx context.Context, key string) (ObjectInfo, error)

	// List returns every object key under prefix.
	List(ctx context.Context, prefix string) ([]string, error)

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}

// ErrPreconditionFailed is returned (possibly wrapped) by PutIfMatch when
// ifMatchETag no longer matches the stored object.
var ErrPreconditionFailed = preconditionFailedError{}

type preconditionFailedError struct{}

func (preconditionFailedError) Error() string { return "object store: precondition failed" }

// ErrNotExist is returned (possibly wrapped) by Get/Stat when key is absent.
var ErrNotExist = notExistError{}

type notExistError struct{}

func (notExistError) Error() string { return "object store: object does not exist" }
