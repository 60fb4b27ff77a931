// Package config loads the service configuration from defaults, an optional
// YAML file and ACTIVEGRAPH_* environment variables, in that order of
// priority, and validates the result.
package config

import (
	"time"

	"github.com/go-playground/validator/v10"

	"activegraph/internal/errors"
)

// Environment is the deployment environment.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// Config is the root configuration.
type Config struct {
	Environment Environment `yaml:"environment" validate:"required,oneof=development staging production"`
	Logging     Logging     `yaml:"logging"`
	Broadcast   Broadcast   `yaml:"broadcast"`
	Metrics     Metrics     `yaml:"metrics"`
	Tracing     Tracing     `yaml:"tracing"`
	Server      Server      `yaml:"server"`
	Forwarding  Forwarding  `yaml:"forwarding"`

	// LoadedFrom lists the sources applied, lowest priority first.
	LoadedFrom []string `yaml:"-"`
}

// Logging configures the zap logger.
type Logging struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=json console"`
}

// Broadcast configures each graph's bus.
type Broadcast struct {
	MaxDepth int     `yaml:"max_depth" validate:"min=1,max=1024"`
	Breaker  Breaker `yaml:"breaker"`
}

// Breaker configures the per-subscriber circuit breaker.
type Breaker struct {
	Enabled      bool          `yaml:"enabled"`
	MaxRequests  uint32        `yaml:"max_requests" validate:"min=1"`
	Interval     time.Duration `yaml:"interval" validate:"gte=0"`
	Timeout      time.Duration `yaml:"timeout" validate:"gt=0"`
	FailureRatio float64       `yaml:"failure_ratio" validate:"gt=0,lte=1"`
	MinRequests  uint32        `yaml:"min_requests" validate:"min=1"`
}

// Metrics configures the Prometheus collector.
type Metrics struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace" validate:"required"`
}

// Tracing configures OpenTelemetry.
type Tracing struct {
	Enabled     bool    `yaml:"enabled"`
	ServiceName string  `yaml:"service_name" validate:"required"`
	Endpoint    string  `yaml:"endpoint" validate:"required_if=Enabled true"`
	SampleRate  float64 `yaml:"sample_rate" validate:"gte=0,lte=1"`
	Insecure    bool    `yaml:"insecure"`
}

// Server configures the HTTP listener.
type Server struct {
	Address         string        `yaml:"address" validate:"required"`
	ReadTimeout     time.Duration `yaml:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gt=0"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
}

// Forwarding configures external event sinks.
type Forwarding struct {
	EventBridge EventBridge `yaml:"eventbridge"`
}

// EventBridge configures the EventBridge forwarder.
type EventBridge struct {
	Enabled bool          `yaml:"enabled"`
	BusName string        `yaml:"bus_name" validate:"required_if=Enabled true"`
	Source  string        `yaml:"source" validate:"required"`
	Region  string        `yaml:"region"`
	Timeout time.Duration `yaml:"timeout" validate:"gt=0"`
}

// Default returns the configuration used when no file or environment
// variable overrides a value.
func Default() *Config {
	return &Config{
		Environment: Development,
		Logging: Logging{
			Level:  "info",
			Format: "json",
		},
		Broadcast: Broadcast{
			MaxDepth: 32,
			Breaker: Breaker{
				Enabled:      false,
				MaxRequests:  1,
				Interval:     30 * time.Second,
				Timeout:      60 * time.Second,
				FailureRatio: 0.8,
				MinRequests:  5,
			},
		},
		Metrics: Metrics{
			Enabled:   true,
			Namespace: "activegraph",
		},
		Tracing: Tracing{
			Enabled:     false,
			ServiceName: "activegraph",
			Endpoint:    "localhost:4317",
			SampleRate:  1.0,
			Insecure:    true,
		},
		Server: Server{
			Address:         ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			AllowedOrigins:  []string{"*"},
		},
		Forwarding: Forwarding{
			EventBridge: EventBridge{
				Enabled: false,
				Source:  "activegraph",
				Timeout: 5 * time.Second,
			},
		},
	}
}

var validate = validator.New()

// Validate checks struct constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.Validation(errors.CodeConfigInvalid.String(), "configuration validation failed").
			WithResource("config").
			WithDetails(err.Error()).
			WithCause(err).
			Build()
	}
	return nil
}

// IsDevelopment reports whether hot reload and console logging make sense.
func (c *Config) IsDevelopment() bool {
	return c.Environment == Development
}
