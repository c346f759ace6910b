package main

import (
	"fmt"

	"github.com/snapctl/snapctl/internal/config"
	"github.com/snapctl/snapctl/internal/objectstore"
	"github.com/snapctl/snapctl/internal/objectstore/fsstore"
	"github.com/snapctl/snapctl/internal/objectstore/s3store"
)

// buildStore resolves the configured datastore (spec.md §6: "exactly one
// of aws or local") into an objectstore.Store. cfg.Validate must have
// already confirmed exactly one is set.
func buildStore(cfg *config.Config) (objectstore.Store, error) {
	switch {
	case cfg.Datastore.AWS != nil:
		aws := cfg.Datastore.AWS
		return s3store.New(s3store.Config{
			Endpoint:        aws.Endpoint,
			AccessKeyID:     aws.Credentials.AccessKeyID,
			SecretAccessKey: aws.Credentials.SecretAccessKey,
			Bucket:          aws.Bucket,
			UseTLS:          true,
		})
	case cfg.Datastore.Local != nil:
		return fsstore.New(cfg.Datastore.Local.Path)
	default:
		return nil, fmt.Errorf("datastore: neither aws nor local configured")
	}
}

// loadConfig reads and validates the configuration file at path.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
