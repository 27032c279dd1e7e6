// Package telemetry provides observability instrumentation for the record store.
//
// The telemetry package integrates structured logging (zerolog), distributed tracing
// (OpenTelemetry), metrics (Prometheus), and event publishing into a unified system
// for monitoring reads and writes against the backend.
//
// # Architecture
//
// The telemetry system is built on four pillars:
//
//  1. Structured Logging - Context-aware logging with zerolog
//  2. Distributed Tracing - OpenTelemetry traces with otlp and stdout exporters
//  3. Metrics Collection - Prometheus metrics for operational insights
//  4. Event Publishing - Async event system for change notifications
//
// # Usage
//
// Initialize telemetry at application startup:
//
//	cfg := telemetry.DefaultConfig()
//	cfg.ServiceVersion = "1.0.0"
//
//	tel, err := telemetry.NewTelemetry(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tel.Shutdown(context.Background())
//
//	// Start metrics server
//	if err := tel.StartMetricsServer(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Structured Logging
//
//	logger := tel.Logger.NewComponentLogger("recordstore")
//	logger = logger.WithKey("hj_tenants").WithTable("tenants")
//	logger.WithError(err).Error("failed to replace collection")
//
// Configured levels: trace, debug, info, warn, error, fatal
//
// # Store Operations
//
// StartStoreOperation opens a span, scopes a logger to the key and table,
// and times the operation. Finish records the outcome:
//
//	op := tel.StartStoreOperation(ctx, "set", "hj_tenants", "tenants", "collection")
//	err := replace(op.Ctx)
//	op.Finish(status, err)
//
// # Metrics
//
// Available metrics (prefixed with the configured namespace):
//
//   - store_operations_total{operation,kind,status}
//   - store_operation_duration_seconds{operation,kind}
//   - store_read_fallbacks_total{kind,reason}
//   - store_rows_written_total{table}
//   - backend_errors_total{operation,code}
//
// Metrics are exposed at the configured listen address when one is set.
//
// # Events
//
// Event types: collection.replaced, collection.cleared, setting.updated,
// setting.deleted, read.defaulted, write.failed.
//
//	tel.Events.Subscribe(func(e telemetry.Event) {
//	    fmt.Printf("%s %s\n", e.Type, e.Key)
//	}, telemetry.FilterByType(telemetry.EventTypeCollectionReplaced))
//
// LogEvents adapts a Logger into a subscriber. Failed writes are logged at
// error, reads that fell back after a backend error at warn, and routine
// changes at debug. Shutdown returns once every subscriber call has
// finished.
//
// Disabled components are no-ops, so instrumented code never checks whether
// telemetry is configured.
package telemetry
