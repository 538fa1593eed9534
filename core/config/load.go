package config

import (
	"errors"
	"io/fs"
	"log"
	"path/filepath"

	"github.com/spf13/afero"
	"sigs.k8s.io/yaml"
)

func dirOf(path string) string {
	// If given the path to a config.yaml file, move back up a level.
	if filepath.Base(path) == ConfigurationName {
		return filepath.Dir(path)
	}
	return path
}

// Load loads the configuration from the directory.
func Load(fsys afero.Fs, path string) (*Configuration, error) {
	path = dirOf(path)

	configContents, err := afero.ReadFile(fsys, filepath.Join(path, ConfigurationName))
	if err != nil {
		return nil, err
	}
	var out Configuration
	if err := yaml.UnmarshalStrict(configContents, &out); err != nil {
		return nil, err
	}
	out.configFs = fsys
	out.configDir = path

	if err := out.Validate(); err != nil {
		return nil, err
	}
	return &out, nil
}

// LoadOrDefault loads the configuration from the directory, falling back to
// the built-in defaults if it was never initialized.
func LoadOrDefault(fsys afero.Fs, path string) (*Configuration, error) {
	cfg, err := Load(fsys, path)
	if errors.Is(err, fs.ErrNotExist) {
		cfg = defaultConfig()
		cfg.configFs = fsys
		cfg.configDir = dirOf(path)
		return cfg, nil
	}
	return cfg, err
}

// Initialize writes the default configuration into the directory. An
// existing configuration is left alone.
func Initialize(fsys afero.Fs, path string, logger *log.Logger) error {
	path = dirOf(path)
	configPath := filepath.Join(path, ConfigurationName)

	exists, err := afero.Exists(fsys, configPath)
	if err != nil {
		return err
	}
	if exists {
		logger.Printf("- %s already exists, skipping", configPath)
		return nil
	}

	logger.Printf("- Creating %s", path)
	if err := fsys.MkdirAll(path, 0700); err != nil {
		return err
	}

	logger.Printf("- Writing %s", configPath)
	return afero.WriteFile(fsys, configPath, defaultConfigData, 0600)
}
