package telemetry

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides Prometheus metrics for the record store.
type Metrics struct {
	config MetricsConfig

	// Operation metrics
	operations        *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec

	// Read metrics
	readFallbacks *prometheus.CounterVec

	// Write metrics
	rowsWritten *prometheus.CounterVec

	// Backend metrics
	backendErrors *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		// Return a no-op metrics instance
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	buckets := cfg.DefaultHistogramBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	// Create a new registry
	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_operations_total",
				Help:      "Total number of record store operations",
			},
			[]string{"operation", "kind", "status"},
		),
		operationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "store_operation_duration_seconds",
				Help:      "Duration of record store operations in seconds",
				Buckets:   buckets,
			},
			[]string{"operation", "kind"},
		),
		readFallbacks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_read_fallbacks_total",
				Help:      "Total number of reads that returned the caller's default",
			},
			[]string{"kind", "reason"},
		),
		rowsWritten: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_rows_written_total",
				Help:      "Total number of rows written to backend tables",
			},
			[]string{"table"},
		),
		backendErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "backend_errors_total",
				Help:      "Total number of backend errors by operation and code",
			},
			[]string{"operation", "code"},
		),
	}

	// Register all metrics
	registry.MustRegister(
		m.operations,
		m.operationDuration,
		m.readFallbacks,
		m.rowsWritten,
		m.backendErrors,
	)

	return m, nil
}

// RecordOperation records a completed store operation with its status and duration.
func (m *Metrics) RecordOperation(operation, kind, status string, duration time.Duration) {
	if m == nil || m.operations == nil {
		return
	}
	m.operations.WithLabelValues(operation, kind, status).Inc()
	m.operationDuration.WithLabelValues(operation, kind).Observe(duration.Seconds())
}

// RecordReadFallback records a read that resolved to the default value.
func (m *Metrics) RecordReadFallback(kind, reason string) {
	if m == nil || m.readFallbacks == nil {
		return
	}
	m.readFallbacks.WithLabelValues(kind, reason).Inc()
}

// RecordRowsWritten adds n to the rows written for table.
func (m *Metrics) RecordRowsWritten(table string, n int) {
	if m == nil || m.rowsWritten == nil || n <= 0 {
		return
	}
	m.rowsWritten.WithLabelValues(table).Add(float64(n))
}

// RecordBackendError records a backend error by operation and code.
func (m *Metrics) RecordBackendError(operation, code string) {
	if m == nil || m.backendErrors == nil {
		return
	}
	if code == "" {
		code = "unknown"
	}
	m.backendErrors.WithLabelValues(operation, code).Inc()
}

// Registry returns the underlying registry, or nil when metrics are disabled.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Timer provides a convenient way to time operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed time since the timer was created.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// ObserveDuration is a helper to time an operation and record it.
func (t *Timer) ObserveDuration(observer prometheus.Observer) {
	observer.Observe(t.Duration().Seconds())
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// StartMetricsServer starts an HTTP server to expose metrics.
func (m *Metrics) StartMetricsServer() error {
	if !m.config.Enabled || m.config.ListenAddress == "" {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle(m.config.Path, m.Handler())

	server := &http.Server{
		Addr:              m.config.ListenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			// Log error but don't fail the application
			fmt.Fprintf(os.Stderr, "metrics server error: %v\n", err)
		}
	}()

	return nil
}
