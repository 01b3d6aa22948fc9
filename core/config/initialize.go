package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// Initialize writes the default configuration into dir, leaving an existing
// configuration untouched, and loads it.
func Initialize(configFs afero.Fs, dir string, logger *log.Logger) (*Configuration, error) {
	if err := configFs.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}

	configPath := filepath.Join(dir, ConfigurationName)
	switch _, err := configFs.Stat(configPath); {
	case err == nil:
		logger.Printf("%s already exists, keeping it", configPath)
	case os.IsNotExist(err):
		if err := afero.WriteFile(configFs, configPath, defaultConfigData, 0600); err != nil {
			return nil, fmt.Errorf("write %s: %w", configPath, err)
		}
		logger.Printf("wrote %s", configPath)
	default:
		return nil, err
	}

	return Load(configFs, dir)
}
