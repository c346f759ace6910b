// Package pgdump parses PostgreSQL pg_dump text-format output. It is a
// thin PostgreSQL-flavored front-end over internal/dump/sqltext, per
// spec.md §4.1's "three engine parsers share a common contract".
package pgdump

import (
	"io"

	"github.com/snapctl/snapctl/internal/dump/sqltext"
	"github.com/snapctl/snapctl/internal/token"
)

// Re-exported so callers only need to import this package for the
// PostgreSQL case.
type (
	Statement = sqltext.Statement
	Kind      = sqltext.Kind
)

const (
	SetOption            = sqltext.SetOption
	Comment              = sqltext.Comment
	CreateSchema         = sqltext.CreateSchema
	CreateTable          = sqltext.CreateTable
	CreateIndex          = sqltext.CreateIndex
	AlterTableConstraint = sqltext.AlterTableConstraint
	Copy                 = sqltext.Copy
	InsertInto           = sqltext.InsertInto
	Other                = sqltext.Other
)

// Parser streams Statements out of a pg_dump text archive.
type Parser struct {
	inner *sqltext.Parser
}

// NewParser wraps r, a pg_dump --format=plain output stream.
func NewParser(r io.Reader) *Parser {
	return &Parser{inner: sqltext.NewParser(r, token.ModePostgres, true)}
}

// Next returns the next Statement, or io.EOF at end of stream.
func (p *Parser) Next() (*Statement, error) {
	return p.inner.Next()
}
