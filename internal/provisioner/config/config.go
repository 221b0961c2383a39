package config

import (
	"errors"
	"os"
	"time"

	"github.com/nats-io/nats.go"
)

// Config holds the trigger provisioner configuration.
type Config struct {
	// ResourcePrefix namespaces every external resource the
	// provisioner owns (schedule names, consumer names).
	ResourcePrefix string `yaml:"resource_prefix"`

	// AWSRegion selects the region for schedule and stream calls.
	AWSRegion string `yaml:"aws_region"`

	// ScheduleTargetArn is the destination wired to every schedule.
	// The schedule delivers the rule payload to this target on each
	// firing.
	ScheduleTargetArn string `yaml:"schedule_target_arn"`

	// NatsURL is the JetStream endpoint used for workflow invocation.
	NatsURL string `yaml:"nats_url"`

	// InvokeSubjectPrefix is prepended to the workflow name when
	// publishing an invocation.
	InvokeSubjectPrefix string `yaml:"invoke_subject_prefix"`

	// MaxRetries bounds the readiness wait for stream consumer
	// binding before the attempt is reported as failed.
	MaxRetries uint64 `yaml:"max_retries"`

	// RetryInterval is the initial backoff between readiness polls.
	RetryInterval time.Duration `yaml:"retry_interval"`
}

// DefaultConfig returns default provisioner configuration.
func DefaultConfig() Config {
	return Config{
		ResourcePrefix:      "stratus",
		AWSRegion:           "us-east-1",
		NatsURL:             nats.DefaultURL,
		InvokeSubjectPrefix: "workflows.start",
		MaxRetries:          5,
		RetryInterval:       500 * time.Millisecond,
	}
}

// ApplyDefaults fills in zero values with defaults.
func (c *Config) ApplyDefaults() {
	defaults := DefaultConfig()
	if c.ResourcePrefix == "" {
		c.ResourcePrefix = defaults.ResourcePrefix
	}
	if c.AWSRegion == "" {
		c.AWSRegion = defaults.AWSRegion
	}
	if c.NatsURL == "" {
		c.NatsURL = defaults.NatsURL
	}
	if c.InvokeSubjectPrefix == "" {
		c.InvokeSubjectPrefix = defaults.InvokeSubjectPrefix
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = defaults.MaxRetries
	}
	if c.RetryInterval == 0 {
		c.RetryInterval = defaults.RetryInterval
	}
}

// ApplyEnvOverrides applies environment variable overrides.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("AWS_REGION"); v != "" {
		c.AWSRegion = v
	}
	if v := os.Getenv("NATS_URL"); v != "" {
		c.NatsURL = v
	}
	if v := os.Getenv("SCHEDULE_TARGET_ARN"); v != "" {
		c.ScheduleTargetArn = v
	}
}

// Validate returns an error if the configuration is invalid.
func (c *Config) Validate() error {
	if c.ResourcePrefix == "" {
		return errors.New("resource_prefix must not be empty")
	}
	if c.RetryInterval < 0 {
		return errors.New("retry_interval must be non-negative")
	}
	return nil
}
