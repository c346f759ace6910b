// Package schema builds the foreign-key graph described in spec.md §3
// ("Schema graph") while a dump header streams past, and extracts the
// per-table column/primary-key metadata the subset planner needs.
//
// The graph does not assume acyclicity: self-referential and mutual
// foreign keys are stored like any other edge, not rejected, and the
// subset planner's keep-set closure terminates on them.
package schema

import "fmt"

// Column describes one column of a CREATE TABLE as parsed from a dump.
type Column struct {
	Name    string
	Type    string
	NotNull bool
}

// Table is the schema-graph vertex: a fully-qualified table name plus its
// column list and primary-key column names, in declaration order.
type Table struct {
	Qualified  string
	Columns    []Column
	PrimaryKey []string
}

// ForeignKey is a schema-graph edge: child.Columns reference
// parent.Columns, the CREATE TABLE inline form or an
// ALTER TABLE ... ADD CONSTRAINT ... FOREIGN KEY form.
type ForeignKey struct {
	Child         string
	ChildColumns  []string
	Parent        string
	ParentColumns []string
}

// Graph is the directed graph of qualified table names with FK edges,
// built incrementally while a dump's DDL header is consumed. It is safe for
// concurrent reads once construction (single-goroutine, streaming) finishes
// — matching §5's "schema graph is read-only after initialization".
type Graph struct {
	tables map[string]*Table
	order  []string
	edges  []ForeignKey
}

// NewGraph returns an empty schema graph.
func NewGraph() *Graph {
	return &Graph{tables: make(map[string]*Table)}
}

// AddTable registers a table vertex, seeded by a CREATE TABLE statement.
// A later AddTable call for the same qualified name replaces it (dumps
// never redeclare a table, but tests may construct graphs incrementally).
func (g *Graph) AddTable(t Table) {
	if _, exists := g.tables[t.Qualified]; !exists {
		g.order = append(g.order, t.Qualified)
	}
	cp := t
	g.tables[t.Qualified] = &cp
}

// AddForeignKey registers an edge extracted from an inline CREATE TABLE
// constraint or a later ALTER TABLE ... ADD CONSTRAINT.
func (g *Graph) AddForeignKey(fk ForeignKey) {
	g.edges = append(g.edges, fk)
}

// Table looks up a vertex by fully-qualified name.
func (g *Graph) Table(qualified string) (*Table, bool) {
	t, ok := g.tables[qualified]
	return t, ok
}

// Tables returns every registered table in declaration order.
func (g *Graph) Tables() []*Table {
	out := make([]*Table, 0, len(g.order))
	for _, name := range g.order {
		out = append(out, g.tables[name])
	}
	return out
}

// ForeignKeys returns every registered edge.
func (g *Graph) ForeignKeys() []ForeignKey {
	return g.edges
}

// ForeignKeysFrom returns the edges whose child is the given qualified
// table name, i.e. the FK columns a row of that table carries.
func (g *Graph) ForeignKeysFrom(child string) []ForeignKey {
	var out []ForeignKey
	for _, fk := range g.edges {
		if fk.Child == child {
			out = append(out, fk)
		}
	}
	return out
}

// ForeignKeysInto returns the edges whose parent is the given qualified
// table name, i.e. the child rows that would dangle if a parent row were
// dropped.
func (g *Graph) ForeignKeysInto(parent string) []ForeignKey {
	var out []ForeignKey
	for _, fk := range g.edges {
		if fk.Parent == parent {
			out = append(out, fk)
		}
	}
	return out
}

// Validate checks that every edge references tables actually present in
// the graph; a dangling FK (referencing a table never declared, e.g. one in
// skip_tables) is reported but not fatal to graph construction.
func (g *Graph) Validate() []error {
	var errs []error
	for _, fk := range g.edges {
		if _, ok := g.tables[fk.Child]; !ok {
			errs = append(errs, fmt.Errorf("foreign key references unknown child table %q", fk.Child))
		}
		if _, ok := g.tables[fk.Parent]; !ok {
			errs = append(errs, fmt.Errorf("foreign key references unknown parent table %q", fk.Parent))
		}
	}
	return errs
}
