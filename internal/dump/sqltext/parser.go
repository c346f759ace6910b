package sqltext

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/snapctl/snapctl/internal/schema"
	"github.com/snapctl/snapctl/internal/snaperrors"
	"github.com/snapctl/snapctl/internal/token"
)

// Parser produces a lazy, non-restartable sequence of Statements from a
// pg_dump/mysqldump text stream (spec.md §4.1).
type Parser struct {
	br           *bufio.Reader
	mode         token.Mode
	supportsCopy bool
	offset       int64
}

// NewParser wraps r for the given dialect. supportsCopy enables the
// `COPY ... FROM STDIN` recognizer (PostgreSQL only; mysqldump never emits
// COPY).
func NewParser(r io.Reader, mode token.Mode, supportsCopy bool) *Parser {
	return &Parser{br: bufio.NewReaderSize(r, 64*1024), mode: mode, supportsCopy: supportsCopy}
}

// Next returns the next Statement, or io.EOF once the stream is exhausted.
func (p *Parser) Next() (*Statement, error) {
	raw, err := readStatement(p.br, p.mode)
	if err != nil {
		return nil, err
	}
	p.offset += int64(len(raw))

	stmt, err := classify(raw, p.mode)
	if err != nil {
		return nil, snaperrors.NewParse(err, p.offset, preview(raw))
	}

	if stmt.Kind == Copy && p.supportsCopy {
		rows, rawRows, err := p.readCopyRows()
		if err != nil {
			return nil, snaperrors.NewParse(err, p.offset, "")
		}
		stmt.CopyRows = rows
		stmt.Raw = append(stmt.Raw, rawRows...)
	}

	return stmt, nil
}

// readCopyRows reads tab-separated rows following a COPY ... FROM STDIN;
// statement until a line containing exactly "\.".
func (p *Parser) readCopyRows() ([][]string, []byte, error) {
	var rows [][]string
	var raw []byte
	// The statement ended at its ';'; the rest of that line (normally just
	// the newline) comes before the first data row.
	rest, err := p.br.ReadString('\n')
	if err != nil {
		return nil, nil, fmt.Errorf("unterminated COPY block: %w", err)
	}
	raw = append(raw, rest...)
	for {
		line, err := p.br.ReadString('\n')
		if err != nil && len(line) == 0 {
			return nil, nil, fmt.Errorf("unterminated COPY block: %w", err)
		}
		raw = append(raw, line...)
		trimmed := strings.TrimRight(line, "\n")
		trimmed = strings.TrimRight(trimmed, "\r")
		if trimmed == `\.` {
			break
		}
		rows = append(rows, strings.Split(trimmed, "\t"))
		if err != nil {
			break
		}
	}
	return rows, raw, nil
}

func preview(raw []byte) string {
	s := string(raw)
	if len(s) > 60 {
		return s[:60]
	}
	return s
}

// classify tokenizes raw and dispatches on its leading keyword, per
// spec.md §4.1's "Statement classifier".
func classify(raw []byte, mode token.Mode) (*Statement, error) {
	toks, err := token.Tokens(string(raw), mode)
	if err != nil {
		return nil, err
	}
	stmt := &Statement{Kind: Other, Raw: raw, AllTokens: toks}

	c := newStmtCursor(toks)
	if c.peek().Kind == token.EOF {
		// Nothing but whitespace and comments: the cursor skips both.
		for _, t := range toks {
			if t.Kind == token.LineComment || t.Kind == token.BlockComment {
				stmt.Kind = Comment
				break
			}
		}
		return stmt, nil
	}

	switch {
	case c.isKeyword("insert"):
		if err := classifyInsert(stmt, c); err != nil {
			return nil, err
		}
	case c.isKeyword("copy"):
		if err := classifyCopy(stmt, c); err != nil {
			return nil, err
		}
	case c.isKeyword("create"):
		classifyCreate(stmt, toks)
	case c.isKeyword("alter"):
		classifyAlter(stmt, toks)
	case c.isKeyword("set"):
		stmt.Kind = SetOption
	case c.peek().Kind == token.LineComment || c.peek().Kind == token.BlockComment:
		stmt.Kind = Comment
	default:
		stmt.Kind = Other
	}

	return stmt, nil
}

func classifyCreate(stmt *Statement, toks []token.Token) {
	c := newStmtCursor(toks)
	c.next() // CREATE
	switch {
	case c.isKeyword("schema"):
		stmt.Kind = CreateSchema
	case c.isKeyword("table"):
		table, fks, err := schema.ParseCreateTable(toks)
		if err == nil {
			stmt.Kind = CreateTable
			stmt.Table = table.Qualified
			stmt.CreateTableInfo = table
			stmt.InlineForeignKeys = fks
		} else {
			stmt.Kind = Other
		}
	case c.isKeyword("index") || c.isKeyword("unique"):
		stmt.Kind = CreateIndex
	default:
		stmt.Kind = Other
	}
}

func classifyAlter(stmt *Statement, toks []token.Token) {
	fk, err := schema.ParseAlterTableAddForeignKey(toks)
	if err == nil && fk != nil {
		stmt.Kind = AlterTableConstraint
		stmt.ForeignKey = fk
		stmt.Table = fk.Child
		return
	}
	stmt.Kind = Other
}

// stmtCursor is a peek/next helper over significant (non-whitespace,
// non-comment) tokens, mirroring schema.cursor but kept local since
// sqltext needs its own token-index bookkeeping into AllTokens.
type stmtCursor struct {
	toks    []token.Token
	sigIdx  []int
	pos     int
}

func newStmtCursor(toks []token.Token) *stmtCursor {
	var sig []int
	for i, t := range toks {
		switch t.Kind {
		case token.Whitespace, token.LineComment, token.BlockComment:
			continue
		}
		sig = append(sig, i)
	}
	return &stmtCursor{toks: toks, sigIdx: sig}
}

func (c *stmtCursor) peek() token.Token {
	if c.pos >= len(c.sigIdx) {
		return token.Token{Kind: token.EOF}
	}
	return c.toks[c.sigIdx[c.pos]]
}

func (c *stmtCursor) peekIdx() int {
	if c.pos >= len(c.sigIdx) {
		return -1
	}
	return c.sigIdx[c.pos]
}

func (c *stmtCursor) next() token.Token {
	t := c.peek()
	if c.pos < len(c.sigIdx) {
		c.pos++
	}
	return t
}

func (c *stmtCursor) isKeyword(text string) bool {
	t := c.peek()
	return t.Kind == token.Keyword && strings.EqualFold(t.Text, text)
}

func (c *stmtCursor) isPunct(text string) bool {
	t := c.peek()
	return t.Kind == token.Punct && t.Text == text
}

func unquote(text string) string {
	if len(text) < 2 {
		return text
	}
	first, last := text[0], text[len(text)-1]
	if (first == '"' && last == '"') || (first == '`' && last == '`') {
		inner := text[1 : len(text)-1]
		doubled := string(first) + string(first)
		return strings.ReplaceAll(inner, doubled, string(first))
	}
	return text
}

func readQualifiedName(c *stmtCursor) (string, error) {
	t := c.next()
	if t.Kind != token.Identifier && t.Kind != token.Keyword {
		return "", fmt.Errorf("expected identifier at offset %d, got %q", t.Pos, t.Text)
	}
	parts := []string{unquote(t.Text)}
	for c.isPunct(".") {
		c.next()
		t := c.next()
		if t.Kind != token.Identifier && t.Kind != token.Keyword {
			return "", fmt.Errorf("expected identifier after '.' at offset %d", t.Pos)
		}
		parts = append(parts, unquote(t.Text))
	}
	return strings.Join(parts, "."), nil
}

func readNameList(c *stmtCursor) ([]string, error) {
	if !c.isPunct("(") {
		return nil, nil
	}
	c.next()
	var names []string
	for {
		t := c.next()
		if t.Kind != token.Identifier && t.Kind != token.Keyword {
			return nil, fmt.Errorf("expected column name at offset %d", t.Pos)
		}
		names = append(names, unquote(t.Text))
		if c.isPunct(",") {
			c.next()
			continue
		}
		break
	}
	if !c.isPunct(")") {
		return nil, fmt.Errorf("expected ')' at offset %d", c.peek().Pos)
	}
	c.next()
	return names, nil
}

// classifyInsert parses `INSERT INTO <qname> (cols...) VALUES (vals...),
// (vals...), ...;`.
func classifyInsert(stmt *Statement, c *stmtCursor) error {
	c.next() // INSERT
	if !c.isKeyword("into") {
		return fmt.Errorf("expected INTO at offset %d", c.peek().Pos)
	}
	c.next()

	name, err := readQualifiedName(c)
	if err != nil {
		return err
	}
	stmt.Table = name

	cols, err := readNameList(c)
	if err != nil {
		return err
	}
	stmt.Columns = cols

	if !c.isKeyword("values") {
		// Unrecognized INSERT variant (e.g. INSERT ... SELECT); forward verbatim.
		stmt.Kind = Other
		return nil
	}
	c.next()

	for {
		if !c.isPunct("(") {
			return fmt.Errorf("expected '(' at offset %d", c.peek().Pos)
		}
		c.next()
		var rowIdx []int
		depth := 0
		captured := false
		for {
			t := c.peek()
			if t.Kind == token.EOF {
				return fmt.Errorf("unterminated VALUES tuple")
			}
			if t.Kind == token.Punct && t.Text == "(" {
				depth++
			}
			if t.Kind == token.Punct && t.Text == ")" {
				if depth == 0 {
					break
				}
				depth--
			}
			if depth == 0 && t.Kind == token.Punct && t.Text == "," {
				captured = false
				c.next()
				continue
			}
			// Only the first token of each comma-separated value is tracked
			// as "the" value token; a trailing type-cast suffix such as
			// '2020-01-01'::date is left untouched and reproduced verbatim
			// since it is never part of rowIdx.
			if depth == 0 && !captured {
				rowIdx = append(rowIdx, c.peekIdx())
				captured = true
			}
			c.next()
		}
		c.next() // consume ')'
		stmt.ValueTokenIdx = append(stmt.ValueTokenIdx, rowIdx)

		if c.isPunct(",") {
			c.next()
			continue
		}
		break
	}

	stmt.Kind = InsertInto
	return nil
}

// classifyCopy parses `COPY <qname> (cols...) FROM STDIN;`.
func classifyCopy(stmt *Statement, c *stmtCursor) error {
	c.next() // COPY
	name, err := readQualifiedName(c)
	if err != nil {
		return err
	}
	stmt.Table = name

	cols, err := readNameList(c)
	if err != nil {
		return err
	}
	stmt.Columns = cols

	if !c.isKeyword("from") {
		stmt.Kind = Other
		return nil
	}
	c.next()
	if !c.isKeyword("stdin") {
		stmt.Kind = Other
		return nil
	}
	stmt.Kind = Copy
	return nil
}
