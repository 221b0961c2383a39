package config

import (
	"errors"
	"os"
	"time"
)

// Config holds the MongoDB storage configuration.
type Config struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`

	// Collection names
	Rules       string `yaml:"rules_collection"`
	Principals  string `yaml:"principals_collection"`
	Workflows   string `yaml:"workflows_collection"`
	Providers   string `yaml:"providers_collection"`
	Collections string `yaml:"collections_collection"`

	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

// DefaultConfig returns default storage configuration.
func DefaultConfig() Config {
	return Config{
		URI:            "mongodb://localhost:27017",
		Database:       "stratus",
		Rules:          "rules",
		Principals:     "principals",
		Workflows:      "workflows",
		Providers:      "providers",
		Collections:    "collections",
		ConnectTimeout: 10 * time.Second,
	}
}

// ApplyDefaults fills in zero values with defaults.
func (c *Config) ApplyDefaults() {
	defaults := DefaultConfig()
	if c.URI == "" {
		c.URI = defaults.URI
	}
	if c.Database == "" {
		c.Database = defaults.Database
	}
	if c.Rules == "" {
		c.Rules = defaults.Rules
	}
	if c.Principals == "" {
		c.Principals = defaults.Principals
	}
	if c.Workflows == "" {
		c.Workflows = defaults.Workflows
	}
	if c.Providers == "" {
		c.Providers = defaults.Providers
	}
	if c.Collections == "" {
		c.Collections = defaults.Collections
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = defaults.ConnectTimeout
	}
}

// ApplyEnvOverrides applies environment variable overrides.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("MONGO_URI"); v != "" {
		c.URI = v
	}
	if v := os.Getenv("DB_NAME"); v != "" {
		c.Database = v
	}
}

// Validate returns an error if the configuration is invalid.
func (c *Config) Validate() error {
	if c.URI == "" {
		return errors.New("storage uri is required")
	}
	if c.Database == "" {
		return errors.New("storage database is required")
	}
	return nil
}
