package config

import (
	"fmt"

	"github.com/snapctl/snapctl/internal/snaperrors"
)

// Validate checks the structural invariants Load cannot express through
// YAML tags alone, returning a KindConfig error naming every problem found
// (spec.md §7's configuration-error class).
func (c *Config) Validate() error {
	var problems []string

	if c.Datastore.AWS == nil && c.Datastore.Local == nil {
		problems = append(problems, "datastore: exactly one of aws or local must be configured")
	}
	if c.Datastore.AWS != nil && c.Datastore.Local != nil {
		problems = append(problems, "datastore: aws and local cannot both be configured")
	}
	if c.Datastore.AWS != nil && c.Datastore.AWS.Bucket == "" {
		problems = append(problems, "datastore.aws.bucket is required")
	}
	if c.Datastore.Local != nil && c.Datastore.Local.Path == "" {
		problems = append(problems, "datastore.local.path is required")
	}

	for _, tt := range c.Source.Transformers {
		for _, col := range tt.Columns {
			if col.TransformerName == "" {
				problems = append(problems, fmt.Sprintf("source.transformers: column %s.%s.%s missing transformer_name", tt.Database, tt.Table, col.Name))
			}
		}
	}

	if sub := c.Source.DatabaseSubset; sub != nil {
		if sub.Table == "" {
			problems = append(problems, "source.database_subset.table is required")
		}
		if sub.StrategyName == "" {
			problems = append(problems, "source.database_subset.strategy_name is required")
		}
	}

	if len(problems) == 0 {
		return nil
	}
	return snaperrors.New(snaperrors.KindConfig, fmt.Errorf("invalid configuration: %v", problems))
}
