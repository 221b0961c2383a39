package config

import (
	"errors"
	"time"
)

// Config holds the index synchronizer configuration.
type Config struct {
	// QueueSize is the capacity of the pending-mutation queue.
	QueueSize int `yaml:"queue_size"`

	// MaxRetries bounds how often a failed index mutation is retried
	// before it is abandoned to the reconciliation sweep.
	MaxRetries uint64 `yaml:"max_retries"`

	// RetryInterval is the initial backoff between retries.
	RetryInterval time.Duration `yaml:"retry_interval"`

	// ReconcileInterval is the period of the background sweep. Zero
	// disables the loop; the sweep can still be run on demand.
	ReconcileInterval time.Duration `yaml:"reconcile_interval"`
}

// DefaultConfig returns default synchronizer configuration.
func DefaultConfig() Config {
	return Config{
		QueueSize:         256,
		MaxRetries:        4,
		RetryInterval:     100 * time.Millisecond,
		ReconcileInterval: 0,
	}
}

// ApplyDefaults fills in zero values with defaults.
func (c *Config) ApplyDefaults() {
	defaults := DefaultConfig()
	if c.QueueSize <= 0 {
		c.QueueSize = defaults.QueueSize
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = defaults.MaxRetries
	}
	if c.RetryInterval == 0 {
		c.RetryInterval = defaults.RetryInterval
	}
}

// ApplyEnvOverrides applies environment variable overrides.
// No synchronizer-specific env vars.
func (c *Config) ApplyEnvOverrides() { _ = c }

// Validate returns an error if the configuration is invalid.
func (c *Config) Validate() error {
	if c.QueueSize < 0 {
		return errors.New("queue_size must be non-negative")
	}
	if c.ReconcileInterval < 0 {
		return errors.New("reconcile_interval must be non-negative")
	}
	return nil
}
