package pipeline

import (
	"strings"

	"github.com/snapctl/snapctl/internal/dump/sqltext"
	"github.com/snapctl/snapctl/internal/schema"
	"github.com/snapctl/snapctl/internal/subset"
	"github.com/snapctl/snapctl/internal/transform"
)

// valueAt returns the literal text of row i, column j of a parsed
// InsertInto or Copy statement, in the same representation ParseValue
// expects: quotes included for strings, "NULL" for SQL null.
func valueAt(stmt *sqltext.Statement, row, col int) string {
	if stmt.Kind == sqltext.Copy {
		field := stmt.CopyRows[row][col]
		if field == `\N` {
			return "NULL"
		}
		return "'" + strings.ReplaceAll(field, "'", "''") + "'"
	}
	return stmt.Value(row, col)
}

// rowCount returns how many data rows stmt carries.
func rowCount(stmt *sqltext.Statement) int {
	if stmt.Kind == sqltext.Copy {
		return len(stmt.CopyRows)
	}
	return len(stmt.ValueTokenIdx)
}

// rowRefFromStatement builds the subset planner's RowRef for row i of a
// data statement, using the schema graph to find the table's primary key
// and foreign key columns (spec.md §4.3's "tuples of token slices", here
// reduced to just the key strings the planner needs).
func rowRefFromStatement(graph *schema.Graph, stmt *sqltext.Statement, row int) (subset.RowRef, bool) {
	table, ok := graph.Table(stmt.Table)
	if !ok || len(table.PrimaryKey) == 0 {
		return subset.RowRef{}, false
	}

	pk, ok := keyFor(stmt, row, table.PrimaryKey)
	if !ok {
		return subset.RowRef{}, false
	}

	fkParents := make(map[string]subset.Key)
	for _, fk := range graph.ForeignKeysFrom(stmt.Table) {
		parentKey, ok := keyFor(stmt, row, fk.ChildColumns)
		if !ok {
			continue
		}
		fkParents[fk.Parent] = parentKey
	}

	return subset.RowRef{Table: stmt.Table, PK: pk, FKParents: fkParents}, true
}

// keyFor joins the literal values of cols at row into a subset.Key, or
// reports false if any named column isn't present in the statement.
func keyFor(stmt *sqltext.Statement, row int, cols []string) (subset.Key, bool) {
	parts := make([]string, len(cols))
	for i, col := range cols {
		idx := stmt.ColumnIndex(col)
		if idx < 0 {
			return "", false
		}
		parts[i] = transform.ParseValue(valueAt(stmt, row, idx)).Raw
	}
	return subset.MakeKey(parts...), true
}

// rebuildInsert reconstructs `INSERT INTO table (cols) VALUES (...), ...;`
// keeping only the rows keep[i] marks true, with values already
// transformed to their final literal text. Used whenever subsetting drops
// at least one row — Reserialize can replace value tokens in place but
// can't delete a whole VALUES tuple, so a fresh statement is built instead.
func rebuildInsert(table string, columns []string, rows [][]string, keep []bool) []byte {
	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(table)
	if len(columns) > 0 {
		sb.WriteString(" (")
		sb.WriteString(strings.Join(columns, ", "))
		sb.WriteString(")")
	}
	sb.WriteString(" VALUES ")
	first := true
	for i, row := range rows {
		if !keep[i] {
			continue
		}
		if !first {
			sb.WriteString(", ")
		}
		first = false
		sb.WriteString("(")
		sb.WriteString(strings.Join(row, ", "))
		sb.WriteString(")")
	}
	sb.WriteString(";\n")
	return []byte(sb.String())
}

// rebuildCopy reconstructs a `COPY table (cols) FROM stdin; ... \.` block
// from already-transformed row data, keeping only rows keep[i] marks true.
func rebuildCopy(table string, columns []string, rows [][]string, keep []bool) []byte {
	var sb strings.Builder
	sb.WriteString("COPY ")
	sb.WriteString(table)
	if len(columns) > 0 {
		sb.WriteString(" (")
		sb.WriteString(strings.Join(columns, ", "))
		sb.WriteString(")")
	}
	sb.WriteString(" FROM stdin;\n")
	for i, row := range rows {
		if !keep[i] {
			continue
		}
		sb.WriteString(strings.Join(row, "\t"))
		sb.WriteString("\n")
	}
	sb.WriteString(`\.` + "\n")
	return []byte(sb.String())
}

// copyFieldLiteral renders a transform.Value back to COPY's tab-separated
// field encoding: unquoted, with "\N" for NULL, the inverse of valueAt's
// Copy-row branch.
func copyFieldLiteral(v transform.Value) string {
	if v.Kind == transform.KindNull {
		return `\N`
	}
	if v.Kind == transform.KindString {
		return v.Unquoted
	}
	return v.Raw
}

// insertFieldLiteral renders a transform.Value back to INSERT's
// VALUES-tuple encoding via transform.Literal.
func insertFieldLiteral(v transform.Value) string {
	return transform.Literal(v)
}
