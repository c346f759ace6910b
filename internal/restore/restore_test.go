package restore

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snapctl/snapctl/internal/engine"
	"github.com/snapctl/snapctl/internal/objectstore/catalog"
	"github.com/snapctl/snapctl/internal/objectstore/fsstore"
	"github.com/snapctl/snapctl/internal/pipeline"
	"github.com/snapctl/snapctl/internal/snaperrors"
)

const sampleDump = `CREATE TABLE public.customers (customer_id integer PRIMARY KEY, company_name text);

COPY public.customers (customer_id, company_name) FROM stdin;
1	Acme Corp
\.
`

func openerFor(data string) pipeline.SourceOpener {
	return func(ctx context.Context) (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader([]byte(data))), nil
	}
}

func seedSnapshot(t *testing.T, store *fsstore.Store, name string, opts pipeline.BackupOptions) catalog.Snapshot {
	t.Helper()
	opts.SnapshotName = name
	opts.Store = store
	if opts.ChunkSize == 0 {
		opts.ChunkSize = 4096
	}
	snap, err := pipeline.Backup(context.Background(), opts)
	require.NoError(t, err)
	return snap
}

func TestRestoreWritesReconstructedDump(t *testing.T) {
	dir := t.TempDir()
	store, err := fsstore.New(dir)
	require.NoError(t, err)

	seedSnapshot(t, store, "dump-1", pipeline.BackupOptions{
		Engine: engine.Postgres,
		Open:   openerFor(sampleDump),
	})

	var out bytes.Buffer
	snap, err := Restore(context.Background(), Options{
		SnapshotName: "latest",
		Store:        store,
		Dest:         &out,
	})
	require.NoError(t, err)
	assert.Equal(t, "dump-1", snap.Name)
	assert.Equal(t, sampleDump, out.String())
}

func TestRestoreEncryptedRequiresKey(t *testing.T) {
	dir := t.TempDir()
	store, err := fsstore.New(dir)
	require.NoError(t, err)

	seedSnapshot(t, store, "dump-1", pipeline.BackupOptions{
		Engine:        engine.Postgres,
		Open:          openerFor(sampleDump),
		EncryptionKey: "correct-horse",
	})

	_, err = Restore(context.Background(), Options{
		SnapshotName: "dump-1",
		Store:        store,
		Dest:         &bytes.Buffer{},
	})
	require.Error(t, err)
}

func TestRestoreEncryptedRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := fsstore.New(dir)
	require.NoError(t, err)

	seedSnapshot(t, store, "dump-1", pipeline.BackupOptions{
		Engine:        engine.Postgres,
		Open:          openerFor(sampleDump),
		Compress:      true,
		EncryptionKey: "correct-horse",
	})

	var out bytes.Buffer
	_, err = Restore(context.Background(), Options{
		SnapshotName:  "dump-1",
		Store:         store,
		Dest:          &out,
		EncryptionKey: "correct-horse",
	})
	require.NoError(t, err)
	assert.Equal(t, sampleDump, out.String())
}

func TestRestoreWrongKeyFailsAuthentication(t *testing.T) {
	dir := t.TempDir()
	store, err := fsstore.New(dir)
	require.NoError(t, err)

	seedSnapshot(t, store, "dump-1", pipeline.BackupOptions{
		Engine:        engine.Postgres,
		Open:          openerFor(sampleDump),
		EncryptionKey: "correct-horse",
	})

	_, err = Restore(context.Background(), Options{
		SnapshotName:  "dump-1",
		Store:         store,
		Dest:          &bytes.Buffer{},
		EncryptionKey: "wrong-key",
	})
	require.Error(t, err)
}

func TestRestoreUnknownSnapshotNameIsConfigError(t *testing.T) {
	dir := t.TempDir()
	store, err := fsstore.New(dir)
	require.NoError(t, err)

	_, err = Restore(context.Background(), Options{
		SnapshotName: "does-not-exist",
		Store:        store,
		Dest:         &bytes.Buffer{},
	})
	require.Error(t, err)
	var se *snaperrors.Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, snaperrors.KindConfig, se.Kind)
}
