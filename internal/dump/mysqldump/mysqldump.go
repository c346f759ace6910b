// Package mysqldump parses mysqldump text-format output: backtick
// identifiers, no COPY blocks (mysqldump always emits extended INSERTs),
// otherwise the same statement shapes pg_dump produces. Thin front-end
// over internal/dump/sqltext.
package mysqldump

import (
	"io"

	"github.com/snapctl/snapctl/internal/dump/sqltext"
	"github.com/snapctl/snapctl/internal/token"
)

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
	InsertInto           = sqltext.InsertInto
	Other                = sqltext.Other
)

// Parser streams Statements out of a mysqldump text archive.
type Parser struct {
	inner *sqltext.Parser
}

// NewParser wraps r, a mysqldump output stream.
func NewParser(r io.Reader) *Parser {
	return &Parser{inner: sqltext.NewParser(r, token.ModeMySQL, false)}
}

// Next returns the next Statement, or io.EOF at end of stream.
func (p *Parser) Next() (*Statement, error) {
	return p.inner.Next()
}
