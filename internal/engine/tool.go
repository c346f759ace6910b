package engine

import (
	"fmt"
	"os/exec"
)

// DumpCommand builds the native dump tool invocation for c's engine
// (pg_dump, mysqldump, or mongodump), writing the dump to its standard
// output for the pipeline's source stage to consume.
func (c Connection) DumpCommand() (*exec.Cmd, error) {
	switch c.Engine {
	case Postgres:
		dsn, _ := c.DSN()
		return exec.Command("pg_dump", "--no-owner", "--no-privileges", dsn), nil
	case MySQL:
		return exec.Command("mysqldump",
			"--host", c.Host,
			"--port", fmt.Sprintf("%d", c.Port),
			"--user", c.User,
			fmt.Sprintf("--password=%s", c.Password),
			c.Database,
		), nil
	case MongoDB:
		dsn, _ := c.DSN()
		return exec.Command("mongodump", "--uri", dsn, "--archive"), nil
	default:
		return nil, fmt.Errorf("engine: cannot build dump command for unknown engine")
	}
}

// RestoreCommand builds the native restore tool invocation for c's engine
// (psql, mysql, or mongorestore), reading the reconstructed dump from its
// standard input.
func (c Connection) RestoreCommand() (*exec.Cmd, error) {
	switch c.Engine {
	case Postgres:
		dsn, _ := c.DSN()
		return exec.Command("psql", "--set", "ON_ERROR_STOP=1", dsn), nil
	case MySQL:
		return exec.Command("mysql",
			"--host", c.Host,
			"--port", fmt.Sprintf("%d", c.Port),
			"--user", c.User,
			fmt.Sprintf("--password=%s", c.Password),
			c.Database,
		), nil
	case MongoDB:
		dsn, _ := c.DSN()
		return exec.Command("mongorestore", "--uri", dsn, "--archive", "--drop"), nil
	default:
		return nil, fmt.Errorf("engine: cannot build restore command for unknown engine")
	}
}
