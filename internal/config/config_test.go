package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
encryption_key: $SNAPCTL_TEST_ENCRYPTION_KEY
source:
  connection_uri: postgres://localhost/app
  transformers:
    - database: app
      table: customers
      columns:
        - name: email
          transformer_name: email
datastore:
  local:
    path: /tmp/snapctl-store
destination:
  connection_uri: postgres://localhost/app_dev
`

func TestLoadExpandsEnvironmentVariables(t *testing.T) {
	require.NoError(t, os.Setenv("SNAPCTL_TEST_ENCRYPTION_KEY", "s3cr3t"))
	defer os.Unsetenv("SNAPCTL_TEST_ENCRYPTION_KEY")

	dir := t.TempDir()
	path := filepath.Join(dir, "snapctl.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "s3cr3t", cfg.EncryptionKey)
	assert.Equal(t, "email", cfg.Source.Transformers[0].Columns[0].TransformerName)
	assert.True(t, cfg.Destination.WipeDatabaseOrDefault())
}

func TestLoadFailsOnMissingEnvironmentVariable(t *testing.T) {
	os.Unsetenv("SNAPCTL_TEST_UNSET_VAR")
	dir := t.TempDir()
	path := filepath.Join(dir, "snapctl.yaml")
	require.NoError(t, os.WriteFile(path, []byte("encryption_key: $SNAPCTL_TEST_UNSET_VAR\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestValidateRejectsMissingDatastore(t *testing.T) {
	cfg := &Config{}
	err := cfg.Validate()
	require.Error(t, err)
}

func TestValidateRejectsBothDatastoreBackends(t *testing.T) {
	cfg := &Config{Datastore: DatastoreConfig{
		AWS:   &AWSDatastore{Bucket: "b"},
		Local: &LocalDatastore{Path: "/tmp"},
	}}
	err := cfg.Validate()
	require.Error(t, err)
}

func TestValidateAcceptsMinimalLocalConfig(t *testing.T) {
	cfg := &Config{Datastore: DatastoreConfig{Local: &LocalDatastore{Path: "/tmp/store"}}}
	require.NoError(t, cfg.Validate())
}
