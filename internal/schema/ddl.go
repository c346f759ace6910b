package schema

import (
	"fmt"
	"strings"

	"github.com/snapctl/snapctl/internal/token"
)

// cursor walks a statement's significant tokens (whitespace and comments
// filtered out), giving the DDL extractors a simple peek/next interface
// without reimplementing the scanner.
type cursor struct {
	toks []token.Token
	pos  int
}

func newCursor(toks []token.Token) *cursor {
	sig := make([]token.Token, 0, len(toks))
	for _, t := range toks {
		switch t.Kind {
		case token.Whitespace, token.LineComment, token.BlockComment:
			continue
		}
		sig = append(sig, t)
	}
	return &cursor{toks: sig}
}

func (c *cursor) peek() token.Token {
	if c.pos >= len(c.toks) {
		return token.Token{Kind: token.EOF}
	}
	return c.toks[c.pos]
}

func (c *cursor) peekAt(offset int) token.Token {
	idx := c.pos + offset
	if idx >= len(c.toks) {
		return token.Token{Kind: token.EOF}
	}
	return c.toks[idx]
}

func (c *cursor) next() token.Token {
	t := c.peek()
	if c.pos < len(c.toks) {
		c.pos++
	}
	return t
}

func (c *cursor) isKeyword(text string) bool {
	t := c.peek()
	return t.Kind == token.Keyword && strings.EqualFold(t.Text, text)
}

func (c *cursor) isPunct(text string) bool {
	t := c.peek()
	return t.Kind == token.Punct && t.Text == text
}

func (c *cursor) expectPunct(text string) error {
	if !c.isPunct(text) {
		return fmt.Errorf("expected %q, got %q at offset %d", text, c.peek().Text, c.peek().Pos)
	}
	c.next()
	return nil
}

// unquoteIdent strips the quoting from an identifier token's text:
// "name" and `name` forms, with doubled-quote/backtick unescaping.
func unquoteIdent(text string) string {
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

// readQualifiedName reads `ident`, `ident.ident`, or `ident.ident.ident`
// joined with '.', e.g. "public.customers" or "mydb.customers".
func readQualifiedName(c *cursor) (string, error) {
	t := c.next()
	if t.Kind != token.Identifier && t.Kind != token.Keyword {
		return "", fmt.Errorf("expected identifier at offset %d, got %q", t.Pos, t.Text)
	}
	parts := []string{unquoteIdent(t.Text)}
	for c.isPunct(".") {
		c.next()
		t := c.next()
		if t.Kind != token.Identifier && t.Kind != token.Keyword {
			return "", fmt.Errorf("expected identifier after '.' at offset %d", t.Pos)
		}
		parts = append(parts, unquoteIdent(t.Text))
	}
	return strings.Join(parts, "."), nil
}

// readColumnList reads a parenthesized, comma-separated list of column
// names, e.g. "(id, name)".
func readColumnList(c *cursor) ([]string, error) {
	if err := c.expectPunct("("); err != nil {
		return nil, err
	}
	var cols []string
	for {
		name, err := readQualifiedName(c)
		if err != nil {
			return nil, err
		}
		cols = append(cols, name)
		if c.isPunct(",") {
			c.next()
			continue
		}
		break
	}
	if err := c.expectPunct(")"); err != nil {
		return nil, err
	}
	return cols, nil
}

// ParseCreateTable extracts a Table plus any inline foreign keys from the
// significant tokens of a single `CREATE TABLE <qname> (...);` statement.
func ParseCreateTable(toks []token.Token) (*Table, []ForeignKey, error) {
	c := newCursor(toks)
	if !c.isKeyword("create") {
		return nil, nil, fmt.Errorf("not a CREATE TABLE statement")
	}
	c.next()
	// Skip optional TEMP/TEMPORARY/UNLOGGED modifiers: every token between
	// CREATE and TABLE is skipped.
	for !c.isKeyword("table") {
		if c.peek().Kind == token.EOF {
			return nil, nil, fmt.Errorf("expected TABLE keyword")
		}
		c.next()
	}
	c.next() // consume TABLE

	// IF NOT EXISTS; "if" and "exists" lex as identifiers, so match by text.
	if strings.EqualFold(c.peek().Text, "if") && strings.EqualFold(c.peekAt(1).Text, "not") &&
		strings.EqualFold(c.peekAt(2).Text, "exists") {
		c.next()
		c.next()
		c.next()
	}

	name, err := readQualifiedName(c)
	if err != nil {
		return nil, nil, err
	}

	if err := c.expectPunct("("); err != nil {
		return nil, nil, err
	}

	table := &Table{Qualified: name}
	var fks []ForeignKey

	for {
		if c.isKeyword("constraint") {
			c.next()
			_, _ = readQualifiedName(c) // constraint name, unused
		}
		switch {
		case c.isKeyword("primary"):
			c.next()
			if c.isKeyword("key") {
				c.next()
			}
			cols, err := readColumnList(c)
			if err != nil {
				return nil, nil, err
			}
			table.PrimaryKey = cols
		case c.isKeyword("foreign"):
			c.next()
			if c.isKeyword("key") {
				c.next()
			}
			childCols, err := readColumnList(c)
			if err != nil {
				return nil, nil, err
			}
			if !c.isKeyword("references") {
				return nil, nil, fmt.Errorf("expected REFERENCES at offset %d", c.peek().Pos)
			}
			c.next()
			parent, err := readQualifiedName(c)
			if err != nil {
				return nil, nil, err
			}
			var parentCols []string
			if c.isPunct("(") {
				parentCols, err = readColumnList(c)
				if err != nil {
					return nil, nil, err
				}
			}
			fks = append(fks, ForeignKey{
				Child: name, ChildColumns: childCols,
				Parent: parent, ParentColumns: parentCols,
			})
		default:
			col, isPK, err := parseColumnDef(c)
			if err != nil {
				return nil, nil, err
			}
			table.Columns = append(table.Columns, col)
			if isPK {
				table.PrimaryKey = append(table.PrimaryKey, col.Name)
			}
		}

		if c.isPunct(",") {
			c.next()
			continue
		}
		break
	}

	if err := c.expectPunct(")"); err != nil {
		return nil, nil, err
	}

	return table, fks, nil
}

// parseColumnDef parses `name type [NOT NULL] [PRIMARY KEY] ...` up to the
// next top-level comma or closing paren, skipping type parameters and
// further constraint clauses it doesn't need for subsetting.
func parseColumnDef(c *cursor) (Column, bool, error) {
	nameTok := c.next()
	if nameTok.Kind != token.Identifier && nameTok.Kind != token.Keyword {
		return Column{}, false, fmt.Errorf("expected column name at offset %d", nameTok.Pos)
	}
	col := Column{Name: unquoteIdent(nameTok.Text)}

	var typeParts []string
	isPK := false
	depth := 0
	for {
		t := c.peek()
		if t.Kind == token.EOF {
			break
		}
		if depth == 0 {
			if t.Kind == token.Punct && (t.Text == "," || t.Text == ")") {
				break
			}
			if t.Kind == token.Keyword && strings.EqualFold(t.Text, "not") {
				c.next()
				if c.isKeyword("null") {
					c.next()
					col.NotNull = true
				}
				continue
			}
			if t.Kind == token.Keyword && strings.EqualFold(t.Text, "primary") {
				c.next()
				if c.isKeyword("key") {
					c.next()
				}
				isPK = true
				col.NotNull = true
				continue
			}
		}
		if t.Kind == token.Punct && t.Text == "(" {
			depth++
		} else if t.Kind == token.Punct && t.Text == ")" {
			if depth == 0 {
				break
			}
			depth--
		}
		if depth == 0 && len(typeParts) < 4 && (t.Kind == token.Identifier || t.Kind == token.Keyword) {
			typeParts = append(typeParts, t.Text)
		}
		c.next()
	}
	col.Type = strings.Join(typeParts, " ")
	return col, isPK, nil
}

// ParseAlterTableAddForeignKey extracts a ForeignKey from the significant
// tokens of `ALTER TABLE <qname> ADD CONSTRAINT <name> FOREIGN KEY (...)
// REFERENCES <qname>(...);`. Returns (nil, nil) when the ALTER statement
// does not add a foreign key (a different ALTER variant).
func ParseAlterTableAddForeignKey(toks []token.Token) (*ForeignKey, error) {
	c := newCursor(toks)
	if !c.isKeyword("alter") {
		return nil, fmt.Errorf("not an ALTER TABLE statement")
	}
	c.next()
	if !c.isKeyword("table") {
		return nil, fmt.Errorf("expected TABLE at offset %d", c.peek().Pos)
	}
	c.next()
	for c.isKeyword("if") || c.isKeyword("only") {
		c.next()
	}
	child, err := readQualifiedName(c)
	if err != nil {
		return nil, err
	}
	if !c.isKeyword("add") {
		return nil, nil
	}
	c.next()
	if c.isKeyword("constraint") {
		c.next()
		_, _ = readQualifiedName(c)
	}
	if !c.isKeyword("foreign") {
		return nil, nil
	}
	c.next()
	if c.isKeyword("key") {
		c.next()
	}
	childCols, err := readColumnList(c)
	if err != nil {
		return nil, err
	}
	if !c.isKeyword("references") {
		return nil, fmt.Errorf("expected REFERENCES at offset %d", c.peek().Pos)
	}
	c.next()
	parent, err := readQualifiedName(c)
	if err != nil {
		return nil, err
	}
	var parentCols []string
	if c.isPunct("(") {
		parentCols, err = readColumnList(c)
		if err != nil {
			return nil, err
		}
	}
	return &ForeignKey{
		Child: child, ChildColumns: childCols,
		Parent: parent, ParentColumns: parentCols,
	}, nil
}
