package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads a configuration file, expands environment variables, applies
// defaults, and validates the result. An empty path yields a pure zero-config.
func Load(path string) (*Config, error) {
	if err := LoadEnvFiles(); err != nil {
		return nil, err
	}

	cfg := &Config{}

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := decodeYAML(raw, cfg); err != nil {
			return nil, err
		}
	}

	cfg.SetDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// decodeYAML unmarshals via an intermediate map so env var expansion sees
// every string value, then re-marshals into the typed config.
func decodeYAML(raw []byte, cfg *Config) error {
	var data map[string]interface{}
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	expanded := ExpandEnvVarsInData(data)

	normalized, err := yaml.Marshal(expanded)
	if err != nil {
		return fmt.Errorf("failed to normalize config: %w", err)
	}

	if err := yaml.Unmarshal(normalized, cfg); err != nil {
		return fmt.Errorf("failed to decode config: %w", err)
	}

	return nil
}
