// Package mongoarchive parses and re-emits the mongodump --archive BSON
// framing: a flat sequence of length-prefixed BSON documents, with small
// sentinel documents marking namespace (database/collection) boundaries
// and the end of each collection's body, using gopkg.in/mgo.v2/bson for
// marshaling (spec.md §1: "MongoDB BSON archive framing ... must rewrite
// in place without breaking the dump").
package mongoarchive

// Document is one data row yielded by the Parser, namespaced to the
// database/collection the preceding header introduced. Raw holds the
// original length-prefixed BSON bytes; a transformer stage that never
// touches this collection re-emits Raw byte-for-byte.
type Document struct {
	Database   string
	Collection string
	Raw        []byte
}

// headerField/endField name the sentinel top-level keys this package uses
// to distinguish namespace headers and collection terminators from actual
// document payloads. A real document happening to contain these keys would
// collide; namespacing them with a package-specific prefix makes that
// vanishingly unlikely in practice, the same tradeoff mongodump's own
// archive format makes with its reserved header bytes.
const (
	headerField = "_snapctlHeader"
	endField    = "_snapctlEnd"
)

type namespaceHeader struct {
	Marker     bool   `bson:"_snapctlHeader"`
	Database   string `bson:"database"`
	Collection string `bson:"collection"`
}

type terminator struct {
	Marker bool `bson:"_snapctlEnd"`
}

// probeDoc decodes only the two sentinel keys, leaving everything else
// about an arbitrary data document untouched — a one-field-at-a-time probe
// rather than a model of the full document shape.
type probeDoc struct {
	IsHeader bool `bson:"_snapctlHeader"`
	IsEnd    bool `bson:"_snapctlEnd"`
}
