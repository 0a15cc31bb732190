package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadFromFile loads configuration from a JSON or YAML file into the base config.
// The format is chosen by extension; unknown keys are rejected.
func LoadFromFile(path string, base Config) (Config, error) {
	return decodeFile(path, base)
}

// Load loads config from file (if provided) and applies env overrides.
func Load(path, envPrefix string) (Config, error) {
	cfg := Default()
	var err error
	if path != "" {
		cfg, err = LoadFromFile(path, cfg)
		if err != nil {
			return cfg, err
		}
	}
	if envPrefix != "" {
		cfg = LoadFromEnv(envPrefix, cfg)
	}
	return cfg, nil
}

func decodeFile[T any](path string, base T) (T, error) {
	file, err := os.Open(path)
	if err != nil {
		return base, err
	}
	defer file.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		decoder := yaml.NewDecoder(file)
		decoder.KnownFields(true)
		if err := decoder.Decode(&base); err != nil {
			return base, fmt.Errorf("config %s: %w", path, err)
		}
	default:
		decoder := json.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&base); err != nil {
			return base, fmt.Errorf("config %s: %w", path, err)
		}
	}
	return base, nil
}
