package mongoarchive

import (
	"bufio"
	"fmt"
	"io"

	"gopkg.in/mgo.v2/bson"

	"github.com/snapctl/snapctl/internal/snaperrors"
)

// Parser streams Documents out of an archive produced by Writer (or by a
// real `mongodump --archive` run using this package's header convention).
type Parser struct {
	br         *bufio.Reader
	database   string
	collection string
}

// NewParser wraps r as a mongoarchive reader.
func NewParser(r io.Reader) *Parser {
	return &Parser{br: bufio.NewReader(r)}
}

// Next returns the next data document, skipping and applying namespace
// headers and collection terminators transparently. It returns io.EOF once
// the archive is exhausted.
func (p *Parser) Next() (*Document, error) {
	for {
		raw, err := readRawDocument(p.br)
		if err == io.EOF {
			return nil, io.EOF
		}
		if err != nil {
			return nil, err
		}

		var probe probeDoc
		if err := bson.Unmarshal(raw, &probe); err != nil {
			return nil, snaperrors.New(snaperrors.KindParse, fmt.Errorf("mongoarchive: corrupt document: %w", err))
		}

		if probe.IsHeader {
			var hdr namespaceHeader
			if err := bson.Unmarshal(raw, &hdr); err != nil {
				return nil, snaperrors.New(snaperrors.KindParse, fmt.Errorf("mongoarchive: corrupt namespace header: %w", err))
			}
			p.database = hdr.Database
			p.collection = hdr.Collection
			continue
		}
		if probe.IsEnd {
			continue
		}

		return &Document{Database: p.database, Collection: p.collection, Raw: raw}, nil
	}
}
