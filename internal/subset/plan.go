package subset

// Plan is the output of Pass 1 plus closure: for every table in scope, a
// decision procedure Pass 2 consults one row at a time as the dump is
// re-streamed (spec.md §4.3, "Pass 2 — filter").
type Plan struct {
	keep        map[string]map[Key]bool
	passthrough map[string]bool
	skip        map[string]bool
}

// Keep reports whether a row of the given table with the given primary-key
// value should be emitted during Pass 2.
func (p *Plan) Keep(table string, pk Key) bool {
	if p.skip[table] {
		return false
	}
	if p.passthrough[table] {
		return true
	}
	set, ok := p.keep[table]
	if !ok {
		// A table the planner never saw a keep decision for (e.g. one with
		// no foreign-key relationship to the root at all) is conservatively
		// dropped rather than silently emitted in full.
		return false
	}
	return set[pk]
}

// Skip reports whether a table's schema and data should both be omitted
// from the restored snapshot.
func (p *Plan) Skip(table string) bool {
	return p.skip[table]
}

// KeptCount returns the number of distinct primary keys kept for table,
// used by the "subset lower bound" testable property in tests.
func (p *Plan) KeptCount(table string) int {
	if p.passthrough[table] {
		return -1
	}
	return len(p.keep[table])
}
