// Package config loads and validates the YAML configuration file
// described in spec.md §6, with `$VAR` environment-variable substitution
// at load time (a missing variable is fatal, not silently blanked).
package config

// Config is the top-level recognized shape; unrecognized keys are
// ignored by yaml.v3's default decode behavior.
type Config struct {
	EncryptionKey string            `yaml:"encryption_key"`
	Source        SourceConfig      `yaml:"source"`
	Datastore     DatastoreConfig   `yaml:"datastore"`
	Destination   DestinationConfig `yaml:"destination"`
}

// TableRef names a (database, table) pair, used by only_tables/skip.
type TableRef struct {
	Database string `yaml:"database"`
	Table    string `yaml:"table"`
}

// ColumnTransformer configures one column's value transformer.
type ColumnTransformer struct {
	Name               string         `yaml:"name"`
	TransformerName    string         `yaml:"transformer_name"`
	TransformerOptions map[string]any `yaml:"transformer_options"`
}

// TableTransformers groups the column transformers declared for one table.
type TableTransformers struct {
	Database string              `yaml:"database"`
	Table    string              `yaml:"table"`
	Columns  []ColumnTransformer `yaml:"columns"`
}

// DatabaseSubsetConfig mirrors spec.md §6's source.database_subset shape.
type DatabaseSubsetConfig struct {
	Database          string         `yaml:"database"`
	Table             string         `yaml:"table"`
	StrategyName      string         `yaml:"strategy_name"`
	StrategyOptions   map[string]any `yaml:"strategy_options"`
	PassthroughTables []string       `yaml:"passthrough_tables"`
}

// SourceConfig is the source.* subtree.
type SourceConfig struct {
	ConnectionURI  string                `yaml:"connection_uri"`
	OnlyTables     []TableRef            `yaml:"only_tables"`
	Skip           []TableRef            `yaml:"skip"`
	Transformers   []TableTransformers   `yaml:"transformers"`
	DatabaseSubset *DatabaseSubsetConfig `yaml:"database_subset"`
}

// AWSCredentials is datastore.aws.credentials.
type AWSCredentials struct {
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	SessionToken    string `yaml:"session_token"`
}

// AWSDatastore is datastore.aws, an S3-compatible backend.
type AWSDatastore struct {
	Bucket      string         `yaml:"bucket"`
	Region      string         `yaml:"region"`
	Endpoint    string         `yaml:"endpoint"`
	Credentials AWSCredentials `yaml:"credentials"`
}

// LocalDatastore is datastore.local, a filesystem backend.
type LocalDatastore struct {
	Path string `yaml:"path"`
}

// DatastoreConfig holds exactly one of AWS or Local.
type DatastoreConfig struct {
	AWS   *AWSDatastore   `yaml:"aws"`
	Local *LocalDatastore `yaml:"local"`
}

// DestinationConfig is the destination.* subtree.
type DestinationConfig struct {
	ConnectionURI string `yaml:"connection_uri"`
	WipeDatabase  *bool  `yaml:"wipe_database"`
}

// WipeDatabaseOrDefault reports the effective wipe_database setting, defaulting to
// true per spec.md §6 ("if true (default), drop target schema before
// restore").
func (d DestinationConfig) WipeDatabaseOrDefault() bool {
	if d.WipeDatabase == nil {
		return true
	}
	return *d.WipeDatabase
}
