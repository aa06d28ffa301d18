package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadFile reads a YAML configuration file, applies defaults to any
// unset optional field, and validates the result. This mirrors the
// shape of a workflow-definition loader in the teacher repo
// (engine.LoadWorkflowFromFile), but loads Dispatcher configuration
// instead of a workflow.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return LoadYAML(data)
}

// LoadYAML parses YAML configuration data, applies defaults, and
// validates the result.
func LoadYAML(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	ApplyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}
