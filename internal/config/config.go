// Package config assembles the application configuration from
// defaults, YAML files and environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	identity "github.com/stratusbase/stratus/internal/identity/config"
	index "github.com/stratusbase/stratus/internal/index/config"
	provisioner "github.com/stratusbase/stratus/internal/provisioner/config"
	"github.com/stratusbase/stratus/internal/server"
	storage "github.com/stratusbase/stratus/internal/storage/config"
	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	Server      server.Config      `yaml:"server"`
	Storage     storage.Config     `yaml:"storage"`
	Identity    identity.Config    `yaml:"identity"`
	Index       index.Config       `yaml:"index"`
	Provisioner provisioner.Config `yaml:"provisioner"`
	Logging     LoggingConfig      `yaml:"logging"`
}

// LoadConfig loads configuration from the given directory.
// Order: defaults -> config.yml -> config.local.yml -> ApplyEnvOverrides -> Validate
func LoadConfig(configDir string) (*Config, error) {
	// Start with default values so YAML can override them, including
	// bool fields.
	cfg := &Config{
		Server:      server.DefaultConfig(),
		Storage:     storage.DefaultConfig(),
		Identity:    identity.DefaultConfig(),
		Index:       index.DefaultConfig(),
		Provisioner: provisioner.DefaultConfig(),
		Logging:     DefaultLoggingConfig(),
	}

	if err := loadFile(filepath.Join(configDir, "config.yml"), cfg); err != nil {
		return nil, err
	}
	if err := loadFile(filepath.Join(configDir, "config.local.yml"), cfg); err != nil {
		return nil, err
	}

	cfg.Logging.ApplyDefaults()
	if err := ApplyServiceConfigs(
		&cfg.Server,
		&cfg.Storage,
		&cfg.Identity,
		&cfg.Index,
		&cfg.Provisioner,
	); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(filename string, cfg *Config) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // File doesn't exist, skip
		}
		return fmt.Errorf("reading %s: %w", filename, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing %s: %w", filename, err)
	}
	return nil
}
