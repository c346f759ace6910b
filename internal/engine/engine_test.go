package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRecognizesAliases(t *testing.T) {
	e, err := Parse("postgresql")
	require.NoError(t, err)
	assert.Equal(t, Postgres, e)

	e, err = Parse("mongo")
	require.NoError(t, err)
	assert.Equal(t, MongoDB, e)

	_, err = Parse("oracle")
	require.Error(t, err)
}

func TestPostgresDSNIncludesSSLMode(t *testing.T) {
	c := Connection{Engine: Postgres, Host: "db.internal", Port: 5432, User: "svc", Password: "p@ss", Database: "app", SSLMode: "require"}
	dsn, err := c.DSN()
	require.NoError(t, err)
	assert.Contains(t, dsn, "sslmode=require")
	assert.Contains(t, dsn, "db.internal:5432")
}

func TestMySQLDSNFormat(t *testing.T) {
	c := Connection{Engine: MySQL, Host: "127.0.0.1", Port: 3306, User: "root", Password: "secret", Database: "shop"}
	dsn, err := c.DSN()
	require.NoError(t, err)
	assert.Contains(t, dsn, "root:secret@tcp(127.0.0.1:3306)/shop")
}

func TestDumpCommandBuildsExpectedArgv(t *testing.T) {
	c := Connection{Engine: MongoDB, Host: "localhost", Port: 27017, Database: "shop"}
	cmd, err := c.DumpCommand()
	require.NoError(t, err)
	assert.Equal(t, "mongodump", cmd.Args[0])
	assert.Contains(t, cmd.Args, "--archive")
}

func TestRestoreCommandBuildsExpectedArgv(t *testing.T) {
	c := Connection{Engine: Postgres, Host: "localhost", Port: 5432, Database: "shop"}
	cmd, err := c.RestoreCommand()
	require.NoError(t, err)
	assert.Equal(t, "psql", cmd.Args[0])
}
