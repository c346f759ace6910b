package subset

import (
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/snapctl/snapctl/internal/schema"
)

// Engine names accepted by ValidateConfig; kept local to this package
// rather than imported from internal/engine so the subset planner has no
// dependency on connection/DSN concerns (spec.md §4.3: "subsetting is
// implemented for PostgreSQL").
const (
	EnginePostgres = "postgres"
	EngineMySQL    = "mysql"
	EngineMongoDB  = "mongodb"
)

// RowRef is the per-row information Pass 1 needs to record: its own
// primary-key value, and, for every foreign key its table declares, the
// parent-table key it references.
type RowRef struct {
	Table     string
	PK        Key
	FKParents map[string]Key // parent qualified table name -> referenced parent PK
}

// Planner accumulates Pass 1 observations and computes the ancestor
// closure described in spec.md §4.3.
type Planner struct {
	graph       *schema.Graph
	root        string
	strategy    Strategy
	seed        int64
	passthrough map[string]bool
	skip        map[string]bool

	rowIndex  map[string]map[Key]RowRef
	rootOrder []Key
}

// NewPlanner constructs a planner for the given root (database, table),
// seeded for reproducible sampling (spec.md §4.3: "sample ... seed from
// configuration for reproducibility").
func NewPlanner(graph *schema.Graph, root string, strategy Strategy, seed int64, passthroughTables, skipTables []string) *Planner {
	p := &Planner{
		graph:       graph,
		root:        root,
		strategy:    strategy,
		seed:        seed,
		passthrough: toSet(passthroughTables),
		skip:        toSet(skipTables),
		rowIndex:    make(map[string]map[Key]RowRef),
	}
	return p
}

func toSet(names []string) map[string]bool {
	out := make(map[string]bool, len(names))
	for _, n := range names {
		out[n] = true
	}
	return out
}

// RecordRow feeds Pass 1 with one data row. Rows of skip_tables should not
// be passed in by the caller (their schema and data are both omitted), but
// RecordRow also ignores them defensively.
func (p *Planner) RecordRow(row RowRef) {
	if p.skip[row.Table] {
		return
	}
	if p.rowIndex[row.Table] == nil {
		p.rowIndex[row.Table] = make(map[Key]RowRef)
	}
	p.rowIndex[row.Table][row.PK] = row
	if row.Table == p.root {
		p.rootOrder = append(p.rootOrder, row.PK)
	}
}

type worklistItem struct {
	table string
	key   Key
}

// Plan runs the sampling and ancestor-closure steps and returns the
// decision table Pass 2 consults.
func (p *Planner) Plan() (*Plan, error) {
	if _, ok := p.rowIndex[p.root]; !ok && len(p.rootOrder) == 0 {
		return nil, fmt.Errorf("subset: root table %q has no recorded rows", p.root)
	}

	rng := rand.New(rand.NewSource(p.seed))
	selected := p.strategy.Select(rng, len(p.rootOrder))

	keep := map[string]map[Key]bool{p.root: {}}
	var worklist []worklistItem
	for _, idx := range selected {
		key := p.rootOrder[idx]
		if !keep[p.root][key] {
			keep[p.root][key] = true
			worklist = append(worklist, worklistItem{table: p.root, key: key})
		}
	}

	// Ancestor-only fixpoint (spec.md §4.3 "Closure"): descendants are never
	// auto-included, only the parent chain a kept row's foreign keys name.
	// Bounded by total recorded rows, so self-referential and mutual FKs
	// terminate rather than looping forever.
	for len(worklist) > 0 {
		item := worklist[0]
		worklist = worklist[1:]

		row, ok := p.rowIndex[item.table][item.key]
		if !ok {
			continue
		}
		for parentTable, parentKey := range row.FKParents {
			if p.skip[parentTable] || p.passthrough[parentTable] {
				continue
			}
			if keep[parentTable] == nil {
				keep[parentTable] = make(map[Key]bool)
			}
			if keep[parentTable][parentKey] {
				continue
			}
			keep[parentTable][parentKey] = true
			worklist = append(worklist, worklistItem{table: parentTable, key: parentKey})
		}
	}

	passthrough := cloneSet(p.passthrough)
	for _, t := range p.graph.Tables() {
		if p.skip[t.Qualified] || p.passthrough[t.Qualified] || t.Qualified == p.root {
			continue
		}
		if len(t.PrimaryKey) == 0 {
			slog.Warn("subset: table has no primary key, emitting in full", "table", t.Qualified)
			passthrough[t.Qualified] = true
		}
	}

	return &Plan{keep: keep, passthrough: passthrough, skip: cloneSet(p.skip)}, nil
}

func cloneSet(in map[string]bool) map[string]bool {
	out := make(map[string]bool, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// ValidateConfig checks a subset configuration against the schema graph
// before any data row is recorded, per spec.md §7's configuration-error
// class ("invalid subset root").
func ValidateConfig(engine string, graph *schema.Graph, root string, passthroughTables, skipTables []string) []error {
	var errs []error
	if engine != EnginePostgres {
		errs = append(errs, fmt.Errorf("database_subset is not supported for engine %q", engine))
	}
	rootTable, ok := graph.Table(root)
	if !ok {
		errs = append(errs, fmt.Errorf("subset root table %q not found in schema graph", root))
		return errs
	}
	if len(rootTable.PrimaryKey) == 0 {
		errs = append(errs, fmt.Errorf("subset root table %q has no primary key", root))
	}
	skip := toSet(skipTables)
	passthrough := toSet(passthroughTables)
	for _, name := range skipTables {
		if passthrough[name] {
			errs = append(errs, fmt.Errorf("table %q listed in both passthrough_tables and skip_tables", name))
		}
	}
	for _, fk := range graph.ForeignKeys() {
		if skip[fk.Parent] && !skip[fk.Child] {
			errs = append(errs, fmt.Errorf("skip_tables omits %q but keeps child table %q referencing it", fk.Parent, fk.Child))
		}
	}
	return errs
}
