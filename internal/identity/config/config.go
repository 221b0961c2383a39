package config

import (
	"errors"
	"os"
	"time"
)

// Config holds the authentication gate configuration.
type Config struct {
	// PrivateKeyFile is the PEM file holding the RSA key used to verify
	// bearer tokens. Generated on first use when absent, which keeps local
	// runs and tests self-contained.
	PrivateKeyFile string `yaml:"private_key_file"`

	// TokenTTL bounds tokens minted through GenerateServiceToken.
	TokenTTL time.Duration `yaml:"token_ttl"`
}

// DefaultConfig returns default gate configuration.
func DefaultConfig() Config {
	return Config{
		PrivateKeyFile: "data/identity/private.pem",
		TokenTTL:       time.Hour,
	}
}

// ApplyDefaults fills in zero values with defaults.
func (c *Config) ApplyDefaults() {
	defaults := DefaultConfig()
	if c.PrivateKeyFile == "" {
		c.PrivateKeyFile = defaults.PrivateKeyFile
	}
	if c.TokenTTL == 0 {
		c.TokenTTL = defaults.TokenTTL
	}
}

// ApplyEnvOverrides applies environment variable overrides.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("IDENTITY_PRIVATE_KEY_FILE"); v != "" {
		c.PrivateKeyFile = v
	}
}

// Validate returns an error if the configuration is invalid.
func (c *Config) Validate() error {
	if c.PrivateKeyFile == "" {
		return errors.New("identity private_key_file is required")
	}
	if c.TokenTTL < 0 {
		return errors.New("identity token_ttl must be non-negative")
	}
	return nil
}
