package fsstore

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/snapctl/snapctl/internal/objectstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutGetRoundTrip(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	etag, err := store.Put(ctx, "snap-1/chunk-0000000000", strings.NewReader("hello"), 5)
	require.NoError(t, err)
	assert.NotEmpty(t, etag)

	r, err := store.Get(ctx, "snap-1/chunk-0000000000")
	require.NoError(t, err)
	defer r.Close()
	buf := make([]byte, 5)
	_, err = r.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(buf))
}

func TestGetMissingReturnsErrNotExist(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	_, err = store.Get(context.Background(), "does/not/exist")
	require.Error(t, err)
	assert.True(t, errors.Is(err, objectstore.ErrNotExist))
}

func TestPutIfMatchRejectsStaleETag(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	etag, err := store.Put(ctx, "metadata.json", strings.NewReader("{}"), 2)
	require.NoError(t, err)

	_, err = store.PutIfMatch(ctx, "metadata.json", "wrong-etag", strings.NewReader("{}"), 2)
	require.Error(t, err)
	assert.True(t, errors.Is(err, objectstore.ErrPreconditionFailed))

	_, err = store.PutIfMatch(ctx, "metadata.json", etag, strings.NewReader(`{"snapshots":[]}`), 16)
	require.NoError(t, err)
}

func TestPutIfMatchRequiresAbsenceWhenNoETagGiven(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = store.Put(ctx, "metadata.json", strings.NewReader("{}"), 2)
	require.NoError(t, err)

	_, err = store.PutIfMatch(ctx, "metadata.json", "", strings.NewReader("{}"), 2)
	require.Error(t, err)
	assert.True(t, errors.Is(err, objectstore.ErrPreconditionFailed))
}

func TestListReturnsKeysUnderPrefix(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = store.Put(ctx, "snap-1/chunk-0000000000", strings.NewReader("a"), 1)
	require.NoError(t, err)
	_, err = store.Put(ctx, "snap-1/chunk-0000000001", strings.NewReader("b"), 1)
	require.NoError(t, err)
	_, err = store.Put(ctx, "snap-2/chunk-0000000000", strings.NewReader("c"), 1)
	require.NoError(t, err)

	keys, err := store.List(ctx, "snap-1/")
	require.NoError(t, err)
	assert.Len(t, keys, 2)
}

func TestDeleteIsIdempotent(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Delete(ctx, "never-existed"))
}
