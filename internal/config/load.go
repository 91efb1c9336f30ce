package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads, schema-validates and parses an engine configuration file.
func Load(path string) (*EngineConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	return Parse(data)
}

// Parse schema-validates and parses raw YAML config bytes.
func Parse(data []byte) (*EngineConfig, error) {
	if err := Validate(data); err != nil {
		return nil, err
	}

	var cfg EngineConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parsing yaml: %w", err)
	}
	return &cfg, nil
}
