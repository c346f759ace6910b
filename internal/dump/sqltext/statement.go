// Package sqltext is the shared engine-agnostic half of the PostgreSQL and
// MySQL dump parsers: both pg_dump and mysqldump emit a text stream of
// semicolon-terminated statements, differing mainly in identifier quoting
// (double quotes vs backticks) and in whether COPY blocks appear at all.
// pgdump and mysqldump are thin wrappers that pick the token.Mode and the
// supportsCopy flag and otherwise defer to this package, mirroring how the
// teacher shares one yacc grammar across dialect front-ends.
package sqltext

import (
	"strings"

	"github.com/snapctl/snapctl/internal/schema"
	"github.com/snapctl/snapctl/internal/token"
)

// Kind classifies a Statement, per spec.md §3.
type Kind int

const (
	SetOption Kind = iota
	Comment
	CreateSchema
	CreateTable
	CreateIndex
	AlterTableConstraint
	Copy
	InsertInto
	Other
)

func (k Kind) String() string {
	switch k {
	case SetOption:
		return "SetOption"
	case Comment:
		return "Comment"
	case CreateSchema:
		return "CreateSchema"
	case CreateTable:
		return "CreateTable"
	case CreateIndex:
		return "CreateIndex"
	case AlterTableConstraint:
		return "AlterTableConstraint"
	case Copy:
		return "Copy"
	case InsertInto:
		return "InsertInto"
	default:
		return "Other"
	}
}

// Statement is a single parsed unit from the dump, carrying its verbatim
// source bytes (Raw) so any statement the caller doesn't touch can be
// forwarded byte-identical, plus a parsed structure when Kind warrants one.
type Statement struct {
	Kind Kind
	Raw  []byte

	// AllTokens is the full tokenization of Raw (including whitespace and
	// comments); concatenating every token's Text reproduces Raw exactly.
	// Reserialize uses this to splice in replacement value tokens without
	// disturbing anything else.
	AllTokens []token.Token

	// Table is the qualified name the statement addresses, set for
	// CreateTable, AlterTableConstraint, Copy and InsertInto.
	Table string

	// Columns is the column order, set for Copy and InsertInto.
	Columns []string

	// ValueTokenIdx[i][j] is the index into AllTokens of row i, column j's
	// value token, for InsertInto statements.
	ValueTokenIdx [][]int

	// CopyRows holds the tab-separated row data for a Copy statement,
	// already split on '\t'; CopyRows[i][j] is row i, column j's raw field
	// text (possibly "\N" for SQL NULL).
	CopyRows [][]string

	CreateTableInfo *schema.Table
	InlineForeignKeys []schema.ForeignKey
	ForeignKey        *schema.ForeignKey
}

// Value returns the literal text of row i, column j of an InsertInto
// statement's value tuples.
func (s *Statement) Value(row, col int) string {
	idx := s.ValueTokenIdx[row][col]
	return s.AllTokens[idx].Text
}

// ColumnIndex returns the position of name within Columns, or -1.
func (s *Statement) ColumnIndex(name string) int {
	for i, c := range s.Columns {
		if strings.EqualFold(c, name) {
			return i
		}
	}
	return -1
}
