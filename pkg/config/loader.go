package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// Initialize loads, merges, and validates the agentcore configuration. This
// is the primary entry point for configuration loading.
//
// Steps performed:
//  1. Load agentcore.yaml from configDir (a missing file is not an error —
//     DefaultConfig() alone is returned)
//  2. Expand environment variables
//  3. Parse YAML into a Config
//  4. Merge onto DefaultConfig() so unset YAML fields keep their defaults
//  5. Validate all configuration
func Initialize(_ context.Context, configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.Info("initializing configuration")

	cfg, err := load(configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	log.Info("configuration initialized successfully",
		"max_concurrent_requests", cfg.MaxConcurrentRequests,
		"max_tool_calls", cfg.MaxToolCalls,
		"cacheable_temperature", cfg.CacheableTemperature)

	return cfg, nil
}

func load(configDir string) (*Config, error) {
	defaults := DefaultConfig()

	path := filepath.Join(configDir, "agentcore.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Info("no agentcore.yaml found, using defaults", "path", path)
			return defaults, nil
		}
		return nil, NewLoadError(path, err)
	}

	data = ExpandEnv(data)

	var loaded Config
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}

	if err := mergo.Merge(defaults, &loaded, mergo.WithOverride); err != nil {
		return nil, fmt.Errorf("failed to merge loaded config onto defaults: %w", err)
	}

	return defaults, nil
}

func validate(cfg *Config) error {
	return NewValidator(cfg).ValidateAll()
}
