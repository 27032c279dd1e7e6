package stores

import (
	"context"
	"time"

	"github.com/hjrent/hjstore/pkg/backend"
)

// Store is a backend executor with a managed lifecycle.
type Store interface {
	backend.Executor

	// Lifecycle
	Init(ctx context.Context) error
	Close() error

	// Utility
	HealthCheck(ctx context.Context) error
}

// Config holds SQLite store configuration
type Config struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	BusyTimeout     time.Duration
}

// RESTConfig holds configuration for a PostgREST-compatible backend.
type RESTConfig struct {
	// URL is the project URL, e.g. https://xxxx.supabase.co.
	URL string

	// APIKey is sent as the apikey header and as a bearer token.
	APIKey string

	// RestPath is the path prefix of the REST endpoint (default /rest/v1).
	RestPath string

	// Schema selects the database schema via profile headers (default public).
	Schema string

	// Timeout bounds each request (default 30s).
	Timeout time.Duration
}

