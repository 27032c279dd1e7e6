package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/hjrent/hjstore/pkg/stores"
	"github.com/hjrent/hjstore/pkg/telemetry"
)

// Environment variables read by Load.
const (
	EnvBackend        = "HJSTORE_BACKEND"
	EnvSQLitePath     = "HJSTORE_SQLITE_PATH"
	EnvRESTURL        = "HJSTORE_REST_URL"
	EnvRESTAPIKey     = "HJSTORE_REST_API_KEY"
	EnvRESTSchema     = "HJSTORE_REST_SCHEMA"
	EnvMetricsAddress = "HJSTORE_METRICS_ADDRESS"
	EnvLogLevel       = "LOG_LEVEL"
)

// DefaultFileName is the config file written by hjstore init.
const DefaultFileName = "hjstore.yaml"

var validate = validator.New()

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Backend: BackendSQLite,
		SQLite: SQLiteConfig{
			Path:        filepath.Join("data", "hjstore.db"),
			BusyTimeout: 5 * time.Second,
		},
		REST: RESTConfig{
			Timeout: 30 * time.Second,
		},
		Telemetry: TelemetryConfig{
			LogLevel:        "info",
			LogFormat:       "console",
			TracingExporter: "none",
			SamplingRate:    1.0,
			Events:          true,
		},
	}
}

// Load resolves the configuration from defaults, the YAML file at path
// (skipped when path is empty) and the process environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	cfg.ApplyEnv(os.LookupEnv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides fields from environment variables found by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	set := func(name string, dst *string) {
		if v, ok := lookup(name); ok && v != "" {
			*dst = v
		}
	}

	set(EnvBackend, &c.Backend)
	set(EnvSQLitePath, &c.SQLite.Path)
	set(EnvRESTURL, &c.REST.URL)
	set(EnvRESTAPIKey, &c.REST.APIKey)
	set(EnvRESTSchema, &c.REST.Schema)
	set(EnvMetricsAddress, &c.Telemetry.MetricsAddress)
	set(EnvLogLevel, &c.Telemetry.LogLevel)

	c.Backend = strings.ToLower(c.Backend)
	c.Telemetry.LogLevel = strings.ToLower(c.Telemetry.LogLevel)
}

// Validate checks field constraints and backend-specific requirements.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	switch c.Backend {
	case BackendSQLite:
		if c.SQLite.Path == "" {
			return fmt.Errorf("invalid configuration: sqlite.path is required for the sqlite backend")
		}
	case BackendREST:
		if c.REST.URL == "" {
			return fmt.Errorf("invalid configuration: rest.url is required for the rest backend")
		}
		if c.REST.APIKey == "" {
			return fmt.Errorf("invalid configuration: rest.api_key is required for the rest backend")
		}
	}

	return nil
}

// Write saves the configuration as YAML, creating parent directories.
func (c *Config) Write(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SQLiteStoreConfig returns the store configuration for the SQLite backend.
func (c *Config) SQLiteStoreConfig() stores.Config {
	return stores.Config{
		Path:         c.SQLite.Path,
		MaxOpenConns: c.SQLite.MaxOpenConns,
		BusyTimeout:  c.SQLite.BusyTimeout,
	}
}

// RESTStoreConfig returns the store configuration for the REST backend.
func (c *Config) RESTStoreConfig() stores.RESTConfig {
	return stores.RESTConfig{
		URL:     c.REST.URL,
		APIKey:  c.REST.APIKey,
		Schema:  c.REST.Schema,
		Timeout: c.REST.Timeout,
	}
}

// TelemetryConfig derives the telemetry configuration.
func (c *Config) TelemetryConfig() *telemetry.Config {
	cfg := telemetry.DefaultConfig()

	cfg.Logging.Level = c.Telemetry.LogLevel
	cfg.Logging.Format = c.Telemetry.LogFormat

	cfg.Metrics.ListenAddress = c.Telemetry.MetricsAddress

	if c.Telemetry.TracingExporter != "" && c.Telemetry.TracingExporter != "none" {
		cfg.Tracing.Enabled = true
		cfg.Tracing.Exporter = c.Telemetry.TracingExporter
		cfg.Tracing.Endpoint = c.Telemetry.TracingEndpoint
		cfg.Tracing.SamplingRate = c.Telemetry.SamplingRate
	}

	cfg.Events.Enabled = c.Telemetry.Events
	cfg.ResourceAttributes["hjstore.backend"] = c.Backend

	return cfg
}
