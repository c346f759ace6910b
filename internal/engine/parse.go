package engine

import (
	"fmt"
	"net/url"
	"strconv"
)

// defaultPort returns the conventional port for e, used when a connection
// URI omits one.
func defaultPort(e Engine) int {
	switch e {
	case Postgres:
		return 5432
	case MySQL:
		return 3306
	case MongoDB:
		return 27017
	default:
		return 0
	}
}

// ParseConnectionURI parses a postgres://, mysql://, or mongodb:// style
// connection URI into a Connection for e, the inverse of Connection.DSN
// for the fields a URI can express. For postgres, SSLMode is taken from the
// sslmode query parameter.
func ParseConnectionURI(e Engine, raw string) (Connection, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Connection{}, fmt.Errorf("engine: parse connection uri: %w", err)
	}

	conn := Connection{
		Engine:   e,
		Host:     u.Hostname(),
		Port:     defaultPort(e),
		Database: trimLeadingSlash(u.Path),
	}
	if u.User != nil {
		conn.User = u.User.Username()
		conn.Password, _ = u.User.Password()
	}
	if p := u.Port(); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return Connection{}, fmt.Errorf("engine: invalid port %q: %w", p, err)
		}
		conn.Port = port
	}
	if e == Postgres {
		conn.SSLMode = u.Query().Get("sslmode")
	}
	return conn, nil
}

func trimLeadingSlash(path string) string {
	if len(path) > 0 && path[0] == '/' {
		return path[1:]
	}
	return path
}
