package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Profile names the layered config files, applied in order: base, then the
// environment overlay, then secrets. Environment variables apply last.
type Profile struct {
	BasePath     string
	EnvPath      string
	SecretsPath  string
	EnvPrefix    string
	AllowMissing bool
}

// configExtensions are tried, in order, when resolving a layer by name.
var configExtensions = []string{".yaml", ".yml", ".json"}

// ProfileDir lays out a profile from dir: base, <env> and secrets, each as
// YAML or JSON. Layers that do not exist are skipped.
func ProfileDir(dir, env, envPrefix string) Profile {
	profile := Profile{
		BasePath:     findLayer(dir, "base"),
		SecretsPath:  findLayer(dir, "secrets"),
		EnvPrefix:    envPrefix,
		AllowMissing: true,
	}
	if env != "" {
		profile.EnvPath = findLayer(dir, env)
	}
	return profile
}

func findLayer(dir, name string) string {
	for _, ext := range configExtensions {
		candidate := filepath.Join(dir, name+ext)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// Loader composes layered config with defaults and validation.
type Loader[T any] struct {
	Defaults func() T
	ApplyEnv func(prefix string, base T) T
	Validate func(cfg T) error
}

// Load merges profile layers into a typed config.
func (l Loader[T]) Load(profile Profile) (T, error) {
	var cfg T
	if l.Defaults != nil {
		cfg = l.Defaults()
	}

	layers := []string{profile.BasePath, profile.EnvPath, profile.SecretsPath}
	for _, layer := range layers {
		if layer == "" {
			continue
		}
		next, err := decodeFile(layer, cfg)
		switch {
		case err == nil:
			cfg = next
		case profile.AllowMissing && errors.Is(err, fs.ErrNotExist):
		default:
			return cfg, err
		}
	}

	if l.ApplyEnv != nil && profile.EnvPrefix != "" {
		cfg = l.ApplyEnv(profile.EnvPrefix, cfg)
	}
	if l.Validate == nil {
		return cfg, nil
	}
	if err := l.Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// LoadProfile loads Config from a layered profile with validation.
func LoadProfile(profile Profile) (Config, error) {
	return Loader[Config]{
		Defaults: Default,
		ApplyEnv: LoadFromEnv,
		Validate: Validate,
	}.Load(profile)
}
