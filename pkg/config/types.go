package config

import "time"

// Backend names.
const (
	BackendSQLite = "sqlite"
	BackendREST   = "rest"
)

// Config is the top-level hjstore configuration.
type Config struct {
	// Backend selects the record backend (sqlite, rest).
	Backend string `yaml:"backend" validate:"required,oneof=sqlite rest"`

	// SQLite configures the embedded backend.
	SQLite SQLiteConfig `yaml:"sqlite"`

	// REST configures the PostgREST backend.
	REST RESTConfig `yaml:"rest"`

	// Telemetry configures logging, metrics, tracing and events.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// SQLiteConfig configures the SQLite backend.
type SQLiteConfig struct {
	// Path is the database file, or ":memory:".
	Path string `yaml:"path"`

	// MaxOpenConns limits open connections (0 keeps the store default).
	MaxOpenConns int `yaml:"max_open_conns" validate:"gte=0"`

	// BusyTimeout is how long a writer waits for a locked database.
	BusyTimeout time.Duration `yaml:"busy_timeout" validate:"gte=0"`
}

// RESTConfig configures the PostgREST backend.
type RESTConfig struct {
	// URL is the project URL.
	URL string `yaml:"url" validate:"omitempty,url"`

	// APIKey is the anon or service key.
	APIKey string `yaml:"api_key"`

	// Schema selects a non-default database schema.
	Schema string `yaml:"schema"`

	// Timeout bounds each request.
	Timeout time.Duration `yaml:"timeout" validate:"gte=0"`
}

// TelemetryConfig is the user-facing subset of telemetry settings.
type TelemetryConfig struct {
	LogLevel  string `yaml:"log_level" validate:"oneof=trace debug info warn error fatal"`
	LogFormat string `yaml:"log_format" validate:"oneof=console json"`

	// MetricsAddress starts a /metrics endpoint when set.
	MetricsAddress string `yaml:"metrics_address"`

	TracingExporter string  `yaml:"tracing_exporter" validate:"oneof=none otlp stdout"`
	TracingEndpoint string  `yaml:"tracing_endpoint"`
	SamplingRate    float64 `yaml:"sampling_rate" validate:"gte=0,lte=1"`

	// Events enables the in-process event publisher.
	Events bool `yaml:"events"`
}
