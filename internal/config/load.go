package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/snapctl/snapctl/internal/snaperrors"
)

// Load reads, expands, and parses the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	expanded, err := expandEnv(string(data))
	if err != nil {
		return nil, snaperrors.New(snaperrors.KindConfig, fmt.Errorf("config: %w", err))
	}

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return &cfg, nil
}

// expandEnv substitutes $VAR / ${VAR} references against the process
// environment, per spec.md §6 ("environment-variable substitution $VAR
// expanded at load; missing variable is fatal").
func expandEnv(s string) (string, error) {
	var missing []string
	expanded := os.Expand(s, func(key string) string {
		if key == "" {
			return "$"
		}
		v, ok := os.LookupEnv(key)
		if !ok {
			missing = append(missing, key)
			return ""
		}
		return v
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("missing required environment variable(s): %s", strings.Join(missing, ", "))
	}
	return expanded, nil
}
