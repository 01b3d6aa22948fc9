package config

import (
	"errors"
	"io/fs"
	"path/filepath"

	"github.com/spf13/afero"
	"sigs.k8s.io/yaml"
)

// Load loads the configuration from the directory, then applies environment
// overrides and validates the result.
func Load(configFs afero.Fs, path string) (*Configuration, error) {
	// If given the path to a config.yaml file, move back up a level.
	if filepath.Base(path) == ConfigurationName {
		path = filepath.Dir(path)
	}

	configContents, err := afero.ReadFile(configFs, filepath.Join(path, ConfigurationName))
	if err != nil {
		return nil, err
	}
	var out Configuration
	if err := yaml.UnmarshalStrict(configContents, &out); err != nil {
		return nil, err
	}
	out.configFs = configFs
	out.configDir = path

	return finish(&out)
}

// LoadOrDefault behaves like Load but falls back to the built-in defaults
// when the directory holds no configuration.
func LoadOrDefault(configFs afero.Fs, path string) (*Configuration, error) {
	cfg, err := Load(configFs, path)
	if !errors.Is(err, fs.ErrNotExist) {
		return cfg, err
	}

	out := defaultConfig()
	out.configFs = configFs
	return finish(out)
}

func finish(cfg *Configuration) (*Configuration, error) {
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
