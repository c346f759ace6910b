package mongoarchive

import (
	"bytes"
	"io"
	"testing"

	"gopkg.in/mgo.v2/bson"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterParserRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	require.NoError(t, w.WriteHeader("shop", "orders"))
	for i := 0; i < 3; i++ {
		raw, err := bson.Marshal(bson.M{"_id": i, "total": 42})
		require.NoError(t, err)
		require.NoError(t, w.WriteDocument(raw))
	}
	require.NoError(t, w.WriteTerminator())

	require.NoError(t, w.WriteHeader("shop", "customers"))
	raw, err := bson.Marshal(bson.M{"_id": "c1", "name": "Ana"})
	require.NoError(t, err)
	require.NoError(t, w.WriteDocument(raw))
	require.NoError(t, w.WriteTerminator())

	p := NewParser(&buf)
	var docs []*Document
	for {
		doc, err := p.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		docs = append(docs, doc)
	}

	require.Len(t, docs, 4)
	assert.Equal(t, "orders", docs[0].Collection)
	assert.Equal(t, "orders", docs[2].Collection)
	assert.Equal(t, "customers", docs[3].Collection)
	assert.Equal(t, "shop", docs[3].Database)
}

func TestParserRejectsTruncatedLengthPrefix(t *testing.T) {
	p := NewParser(bytes.NewReader([]byte{0x05, 0x00}))
	_, err := p.Next()
	require.Error(t, err)
}

func TestRewriteDocumentAppliesArrayWildcard(t *testing.T) {
	raw, err := bson.Marshal(bson.M{
		"_id": "order-1",
		"items": []any{
			bson.M{"sku": "AAA", "qty": 1},
			bson.M{"sku": "BBB", "qty": 2},
		},
	})
	require.NoError(t, err)

	rewritten, err := RewriteDocument(raw, []string{"items", "$[]", "sku"}, func(v any) (any, error) {
		return "REDACTED", nil
	})
	require.NoError(t, err)

	var decoded bson.M
	require.NoError(t, bson.Unmarshal(rewritten, &decoded))
	items := decoded["items"].([]any)
	require.Len(t, items, 2)
	assert.Equal(t, "REDACTED", items[0].(bson.M)["sku"])
	assert.Equal(t, "REDACTED", items[1].(bson.M)["sku"])
}

func TestRewriteDocumentNoOpOnMissingPath(t *testing.T) {
	raw, err := bson.Marshal(bson.M{"_id": "x"})
	require.NoError(t, err)

	rewritten, err := RewriteDocument(raw, []string{"does", "not", "exist"}, func(v any) (any, error) {
		t.Fatal("transform should not be invoked for a missing path")
		return v, nil
	})
	require.NoError(t, err)

	var decoded bson.M
	require.NoError(t, bson.Unmarshal(rewritten, &decoded))
	assert.Equal(t, "x", decoded["_id"])
}
