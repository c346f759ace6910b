package engine

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"time"

	_ "github.com/lib/pq" // registers the "postgres" database/sql driver
)

// Ping verifies that c's connection is reachable before the caller spawns
// an external dump/restore tool, so a transport failure surfaces as a
// KindSource/KindDestination error pointing at the connection rather than
// an opaque pg_dump/mysqldump/mongodump exit code.
func (c Connection) Ping(ctx context.Context) error {
	switch c.Engine {
	case Postgres, MySQL:
		driverName := "postgres"
		if c.Engine == MySQL {
			driverName = "mysql"
		}
		dsn, err := c.DSN()
		if err != nil {
			return err
		}
		db, err := sql.Open(driverName, dsn)
		if err != nil {
			return fmt.Errorf("engine: open %s connection: %w", driverName, err)
		}
		defer db.Close()
		return db.PingContext(ctx)
	default:
		// MongoDB has no registered database/sql driver in this module; a
		// bare TCP dial is the cheapest reachability check available.
		d := net.Dialer{Timeout: 5 * time.Second}
		conn, err := d.DialContext(ctx, "tcp", fmt.Sprintf("%s:%d", c.Host, c.Port))
		if err != nil {
			return fmt.Errorf("engine: dial %s:%d: %w", c.Host, c.Port, err)
		}
		return conn.Close()
	}
}
