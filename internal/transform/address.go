package transform

import "strings"

// Address identifies a single addressable value location within a
// snapshot, per spec.md §4.2's "Address resolution":
//
//   - SQL engines: a flat (database, table, column) triple.
//   - MongoDB: a dotted path rooted at a collection, with `$[]` segments
//     marking an array whose elements are each visited individually.
type Address struct {
	Database string
	Table    string
	Column   string
	Path     []string
}

// SQLAddress builds the flat triple used by pgdump/mysqldump sources.
func SQLAddress(database, table, column string) Address {
	return Address{Database: database, Table: table, Column: column}
}

// MongoAddress builds a dotted-path address for a MongoDB document field,
// e.g. "orders.items.$[].sku" addresses the sku field of every element of
// the items array within the orders collection.
func MongoAddress(database, collection, dottedPath string) Address {
	return Address{
		Database: database,
		Table:    collection,
		Path:     strings.Split(dottedPath, "."),
	}
}

// String renders the address in the form configuration files reference it
// by (schema.table.column for SQL, collection.dotted.path for Mongo).
func (a Address) String() string {
	if len(a.Path) > 0 {
		return a.Table + "." + strings.Join(a.Path, ".")
	}
	if a.Database != "" {
		return a.Database + "." + a.Table + "." + a.Column
	}
	return a.Table + "." + a.Column
}

// HasArrayWildcard reports whether the path crosses a MongoDB array via a
// `$[]` segment, meaning the transformer must be applied per-element rather
// than once to the field as a whole.
func (a Address) HasArrayWildcard() bool {
	for _, seg := range a.Path {
		if seg == "$[]" {
			return true
		}
	}
	return false
}

// Matches reports whether this address is selected by a configured column
// rule. For SQL addresses, table and column must match exactly (database
// matches only when the rule specifies one). For Mongo addresses, rule is
// compared against the dotted path with $[] treated as a literal segment.
func (a Address) Matches(rule Address) bool {
	if rule.Table != "" && rule.Table != a.Table {
		return false
	}
	if rule.Database != "" && rule.Database != a.Database {
		return false
	}
	if len(rule.Path) > 0 {
		if len(rule.Path) != len(a.Path) {
			return false
		}
		for i, seg := range rule.Path {
			if seg != a.Path[i] {
				return false
			}
		}
		return true
	}
	return rule.Column == a.Column
}
