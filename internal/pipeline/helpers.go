package pipeline

import (
	"fmt"
	"strings"

	"github.com/snapctl/snapctl/internal/codec"
	"github.com/snapctl/snapctl/internal/config"
	"github.com/snapctl/snapctl/internal/schema"
	"github.com/snapctl/snapctl/internal/subset"
)

// setupCodec builds the encryptor (if opts.EncryptionKey is set) and the
// per-snapshot salt shared by both the SQL and MongoDB backup drivers.
func setupCodec(opts BackupOptions) (*codec.Encryptor, []byte, error) {
	if opts.EncryptionKey == "" {
		return nil, nil, nil
	}
	salt, err := codec.NewSalt()
	if err != nil {
		return nil, nil, err
	}
	key, err := codec.DeriveKey(opts.EncryptionKey, salt)
	if err != nil {
		return nil, nil, err
	}
	enc, err := codec.NewEncryptor(key)
	if err != nil {
		return nil, nil, err
	}
	return enc, salt, nil
}

// resolveQualified maps a bare table name from configuration (e.g.
// "orders") to the fully-qualified name the schema graph indexes rows
// under (e.g. "public.orders"), matching on the last dot-separated
// segment. Falls back to the bare name unchanged if no graph table
// matches, so a misconfigured name surfaces as a subset validation error
// downstream rather than a silent lookup failure here.
func resolveQualified(graph *schema.Graph, name string) string {
	for _, t := range graph.Tables() {
		if strings.EqualFold(lastSegment(t.Qualified), name) {
			return t.Qualified
		}
	}
	return name
}

func resolveQualifiedAll(graph *schema.Graph, names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = resolveQualified(graph, n)
	}
	return out
}

func tableRefNames(refs []config.TableRef) []string {
	out := make([]string, len(refs))
	for i, r := range refs {
		out[i] = r.Table
	}
	return out
}

// buildStrategy constructs the subset.Strategy named by sub.StrategyName.
// "random_percent" is the only strategy currently implemented (spec.md
// §4.3); its fraction comes from strategy_options.percent.
func buildStrategy(sub *config.DatabaseSubsetConfig) (subset.Strategy, error) {
	switch sub.StrategyName {
	case "random_percent", "RandomPercent":
		p, ok := numericOption(sub.StrategyOptions, "percent")
		if !ok || p <= 0 || p > 1 {
			return nil, fmt.Errorf("database_subset: strategy_options.percent must be in (0, 1]")
		}
		return subset.RandomPercent(p), nil
	default:
		return nil, fmt.Errorf("database_subset: unknown strategy_name %q", sub.StrategyName)
	}
}

// seedFor reads an optional integer seed from strategy_options, defaulting
// to a fixed value so repeated runs against the same dump are reproducible
// unless the operator asks otherwise.
func seedFor(sub *config.DatabaseSubsetConfig) int64 {
	if v, ok := numericOption(sub.StrategyOptions, "seed"); ok {
		return int64(v)
	}
	return 1
}

func numericOption(opts map[string]any, key string) (float64, bool) {
	v, ok := opts[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
