package pipeline

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/mgo.v2/bson"

	"github.com/snapctl/snapctl/internal/config"
	"github.com/snapctl/snapctl/internal/dump/mongoarchive"
	"github.com/snapctl/snapctl/internal/engine"
	"github.com/snapctl/snapctl/internal/objectstore/fsstore"
)

func buildMongoArchive(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := mongoarchive.NewWriter(&buf)
	require.NoError(t, w.WriteHeader("shop", "customers"))
	for i, name := range []string{"Ana", "Bo", "Cy"} {
		raw, err := bson.Marshal(bson.M{"_id": i, "UserName": name, "age": int32(30 + i)})
		require.NoError(t, err)
		require.NoError(t, w.WriteDocument(raw))
	}
	require.NoError(t, w.WriteTerminator())
	return buf.Bytes()
}

func TestBackupMongoPreservesFieldCaseInTransformerPath(t *testing.T) {
	dir := t.TempDir()
	store, err := fsstore.New(dir)
	require.NoError(t, err)

	archive := buildMongoArchive(t)

	opts := BackupOptions{
		SnapshotName: "snap1",
		Engine:       engine.MongoDB,
		Open:         openerFor(string(archive)),
		Store:        store,
		ChunkSize:    4096,
		Source: config.SourceConfig{
			Transformers: []config.TableTransformers{
				{
					Table: "customers",
					Columns: []config.ColumnTransformer{
						// Configured name is mixed-case; a lowercase lookup
						// key must not be used as the BSON field path.
						{Name: "UserName", TransformerName: "redacted", TransformerOptions: map[string]any{"keep": 0}},
					},
				},
			},
		},
	}

	snap, err := Backup(context.Background(), opts)
	require.NoError(t, err)

	got := readBackSnapshot(t, store, snap, "")
	p := mongoarchive.NewParser(bytes.NewReader(got))

	var names []string
	for {
		doc, err := p.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		var decoded bson.M
		require.NoError(t, bson.Unmarshal(doc.Raw, &decoded))
		names = append(names, decoded["UserName"].(string))
		// age is untouched and keeps its original int32 representation.
		assert.IsType(t, int32(0), decoded["age"])
	}

	require.Len(t, names, 3)
	for _, n := range names {
		assert.NotEqual(t, "Ana", n)
		assert.NotEqual(t, "Bo", n)
		assert.NotEqual(t, "Cy", n)
	}
}

func TestBackupMongoSkipCollection(t *testing.T) {
	dir := t.TempDir()
	store, err := fsstore.New(dir)
	require.NoError(t, err)

	archive := buildMongoArchive(t)

	opts := BackupOptions{
		SnapshotName: "snap1",
		Engine:       engine.MongoDB,
		Open:         openerFor(string(archive)),
		Store:        store,
		ChunkSize:    4096,
		Source: config.SourceConfig{
			Skip: []config.TableRef{{Table: "customers"}},
		},
	}

	snap, err := Backup(context.Background(), opts)
	require.NoError(t, err)

	got := readBackSnapshot(t, store, snap, "")
	assert.Empty(t, got)
}
