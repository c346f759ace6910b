// Package subset implements the referential-integrity-preserving subset
// planner of spec.md §4.3: a two-pass streaming algorithm that computes a
// consistent row-id closure over a foreign-key graph.
package subset

import "strings"

// keySeparator is a byte that cannot appear in a primary-key column's text
// representation as produced by the dump tokenizer (it only ever emits
// printable SQL literal text), so joining tuple parts with it is safe.
const keySeparator = "\x1f"

// Key is a canonical, comparable encoding of a (possibly composite) primary
// key value, letting the planner use ordinary Go maps for keep-sets
// (spec.md §4.3 edge case: "composite primary keys: keep-set is a set of
// tuples").
type Key string

// MakeKey joins the ordered column values of a primary or foreign key into
// a single comparable Key.
func MakeKey(parts ...string) Key {
	return Key(strings.Join(parts, keySeparator))
}
