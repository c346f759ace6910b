package engine

import (
	"fmt"
	"net/url"

	mysqldriver "github.com/go-sql-driver/mysql"
)

// DSN builds the connection string lib/pq and go-sql-driver/mysql expect,
// mirroring driver/postgres.go's postgresBuildDSN and driver/mysql.go's
// mysqlBuildDSN — generalized from hardcoded defaults to the connection's
// actual fields.
func (c Connection) DSN() (string, error) {
	switch c.Engine {
	case Postgres:
		return c.postgresDSN(), nil
	case MySQL:
		return c.mysqlDSN(), nil
	case MongoDB:
		return c.mongoURI(), nil
	default:
		return "", fmt.Errorf("engine: cannot build DSN for unknown engine")
	}
}

func (c Connection) postgresDSN() string {
	u := url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:   "/" + c.Database,
	}
	if c.User != "" {
		u.User = url.UserPassword(c.User, c.Password)
	}
	q := url.Values{}
	if c.SSLMode != "" {
		q.Set("sslmode", c.SSLMode)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func (c Connection) mysqlDSN() string {
	cfg := mysqldriver.NewConfig()
	cfg.User = c.User
	cfg.Passwd = c.Password
	cfg.Net = "tcp"
	cfg.Addr = fmt.Sprintf("%s:%d", c.Host, c.Port)
	cfg.DBName = c.Database
	return cfg.FormatDSN()
}

func (c Connection) mongoURI() string {
	u := url.URL{
		Scheme: "mongodb",
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:   "/" + c.Database,
	}
	if c.User != "" {
		u.User = url.UserPassword(c.User, c.Password)
	}
	return u.String()
}
