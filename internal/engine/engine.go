// Package engine names the supported database families and builds the
// connection strings and native dump/restore tool invocations each one
// needs, grounded on the teacher's driver package (driver/postgres.go,
// driver/mysql.go) generalized from a single source/destination database
// abstraction to DSN + subprocess-argv builders for the three engines
// spec.md's source/destination connections name.
package engine

import "fmt"

// Engine is the database family of a source or destination connection
// (spec.md Glossary: "Engine: the database family ... of a snapshot").
type Engine int

const (
	Postgres Engine = iota
	MySQL
	MongoDB
)

func (e Engine) String() string {
	switch e {
	case Postgres:
		return "postgres"
	case MySQL:
		return "mysql"
	case MongoDB:
		return "mongodb"
	default:
		return "unknown"
	}
}

// Parse resolves a lowercase engine name from configuration.
func Parse(name string) (Engine, error) {
	switch name {
	case "postgres", "postgresql":
		return Postgres, nil
	case "mysql":
		return MySQL, nil
	case "mongodb", "mongo":
		return MongoDB, nil
	default:
		return 0, fmt.Errorf("engine: unknown engine %q", name)
	}
}

// Connection carries the parameters needed to build a DSN or a native
// client/tool invocation for any of the three engines.
type Connection struct {
	Engine   Engine
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string // postgres only; empty means the driver default
}
