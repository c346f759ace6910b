package mongoarchive

import (
	"fmt"
	"io"

	"gopkg.in/mgo.v2/bson"
)

// Writer re-emits an archive: a namespace header, then every document of
// that collection (transformed or passed through verbatim), then a
// terminator, repeated per collection.
type Writer struct {
	w io.Writer
}

// NewWriter wraps w as a mongoarchive writer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteHeader starts a new collection's section.
func (wr *Writer) WriteHeader(database, collection string) error {
	raw, err := bson.Marshal(namespaceHeader{Marker: true, Database: database, Collection: collection})
	if err != nil {
		return fmt.Errorf("mongoarchive: marshal namespace header: %w", err)
	}
	_, err = wr.w.Write(raw)
	return err
}

// WriteDocument writes one data document's raw, already-framed BSON bytes
// (as yielded by Parser.Next, possibly after a transformer re-marshaled
// it) directly to the archive.
func (wr *Writer) WriteDocument(raw []byte) error {
	_, err := wr.w.Write(raw)
	return err
}

// WriteTerminator closes the current collection's section.
func (wr *Writer) WriteTerminator() error {
	raw, err := bson.Marshal(terminator{Marker: true})
	if err != nil {
		return fmt.Errorf("mongoarchive: marshal terminator: %w", err)
	}
	_, err = wr.w.Write(raw)
	return err
}
