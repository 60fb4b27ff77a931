package config

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"activegraph/internal/errors"
)

// EnvPrefix prefixes every environment variable the loader reads.
const EnvPrefix = "ACTIVEGRAPH_"

// Loader builds a Config from layered sources.
//
// Priority, lowest first:
//  1. Default()
//  2. the YAML file at path, when path is set and the file exists
//  3. ACTIVEGRAPH_* environment variables
type Loader struct {
	path   string
	lookup func(string) (string, bool)
}

// NewLoader creates a loader for the given file. An empty path skips the
// file layer.
func NewLoader(path string) *Loader {
	return &Loader{path: path, lookup: os.LookupEnv}
}

// Path returns the configuration file the loader reads.
func (l *Loader) Path() string { return l.path }

// Load assembles and validates the configuration.
func (l *Loader) Load() (*Config, error) {
	cfg := Default()
	cfg.LoadedFrom = []string{"defaults"}

	if l.path != "" {
		loaded, err := l.loadFile(cfg)
		if err != nil {
			return nil, err
		}
		if loaded {
			cfg.LoadedFrom = append(cfg.LoadedFrom, l.path)
		}
	}

	if err := l.loadEnvironmentVariables(cfg); err != nil {
		return nil, err
	}
	cfg.LoadedFrom = append(cfg.LoadedFrom, "environment")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (l *Loader) loadFile(cfg *Config) (bool, error) {
	file, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, unreadable(l.path, err)
	}
	defer file.Close()

	if err := decodeYAML(file, cfg); err != nil {
		return false, unreadable(l.path, err)
	}
	return true, nil
}

// decodeYAML overlays the document on cfg; keys absent from the document
// keep their current values. An empty document is not an error.
func decodeYAML(r io.Reader, cfg *Config) error {
	err := yaml.NewDecoder(r).Decode(cfg)
	if err == io.EOF {
		return nil
	}
	return err
}

func unreadable(path string, err error) error {
	return errors.Validation(errors.CodeConfigUnreadable.String(), "failed to read configuration file").
		WithResource("config").
		WithEntity(path).
		WithDetails(err.Error()).
		WithCause(err).
		Build()
}

// envBinding maps one variable to one field.
type envBinding struct {
	name  string
	apply func(cfg *Config, value string) error
}

var envBindings = []envBinding{
	{"ENVIRONMENT", func(c *Config, v string) error { c.Environment = Environment(strings.ToLower(v)); return nil }},
	{"LOG_LEVEL", func(c *Config, v string) error { c.Logging.Level = strings.ToLower(v); return nil }},
	{"LOG_FORMAT", func(c *Config, v string) error { c.Logging.Format = strings.ToLower(v); return nil }},
	{"BROADCAST_MAX_DEPTH", func(c *Config, v string) error { return setInt(&c.Broadcast.MaxDepth, v) }},
	{"BREAKER_ENABLED", func(c *Config, v string) error { return setBool(&c.Broadcast.Breaker.Enabled, v) }},
	{"BREAKER_TIMEOUT", func(c *Config, v string) error { return setDuration(&c.Broadcast.Breaker.Timeout, v) }},
	{"METRICS_ENABLED", func(c *Config, v string) error { return setBool(&c.Metrics.Enabled, v) }},
	{"METRICS_NAMESPACE", func(c *Config, v string) error { c.Metrics.Namespace = v; return nil }},
	{"TRACING_ENABLED", func(c *Config, v string) error { return setBool(&c.Tracing.Enabled, v) }},
	{"TRACING_ENDPOINT", func(c *Config, v string) error { c.Tracing.Endpoint = v; return nil }},
	{"TRACING_SAMPLE_RATE", func(c *Config, v string) error { return setFloat(&c.Tracing.SampleRate, v) }},
	{"SERVER_ADDRESS", func(c *Config, v string) error { c.Server.Address = v; return nil }},
	{"SERVER_ALLOWED_ORIGINS", func(c *Config, v string) error { c.Server.AllowedOrigins = splitList(v); return nil }},
	{"EVENTBRIDGE_ENABLED", func(c *Config, v string) error { return setBool(&c.Forwarding.EventBridge.Enabled, v) }},
	{"EVENTBRIDGE_BUS_NAME", func(c *Config, v string) error { c.Forwarding.EventBridge.BusName = v; return nil }},
	{"EVENTBRIDGE_REGION", func(c *Config, v string) error { c.Forwarding.EventBridge.Region = v; return nil }},
}

func (l *Loader) loadEnvironmentVariables(cfg *Config) error {
	for _, b := range envBindings {
		value, ok := l.lookup(EnvPrefix + b.name)
		if !ok || value == "" {
			continue
		}
		if err := b.apply(cfg, value); err != nil {
			return errors.Validation(errors.CodeConfigInvalid.String(), "invalid environment variable").
				WithResource("config").
				WithEntity(EnvPrefix + b.name).
				WithDetails(err.Error()).
				WithCause(err).
				Build()
		}
	}
	return nil
}

func setInt(dst *int, v string) error {
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("not an integer: %q", v)
	}
	*dst = n
	return nil
}

func setBool(dst *bool, v string) error {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("not a boolean: %q", v)
	}
	*dst = b
	return nil
}

func setFloat(dst *float64, v string) error {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("not a number: %q", v)
	}
	*dst = f
	return nil
}

func setDuration(dst *time.Duration, v string) error {
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("not a duration: %q", v)
	}
	*dst = d
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
