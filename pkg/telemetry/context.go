package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

// Telemetry provides a unified telemetry interface combining logging, tracing, metrics, and events.
type Telemetry struct {
	Logger  *Logger
	Tracer  *Tracer
	Metrics *Metrics
	Events  *EventPublisher
	Config  *Config
}

// NewTelemetry creates a new telemetry instance from configuration.
func NewTelemetry(cfg *Config) (*Telemetry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Initialize logger
	logger, err := NewLogger(cfg.Logging)
	if err != nil {
		return nil, err
	}

	// Initialize tracer
	tracer, err := NewTracer(cfg.Tracing, cfg.ServiceName, cfg.ServiceVersion, cfg.Environment)
	if err != nil {
		return nil, err
	}

	// Initialize metrics
	metrics, err := NewMetrics(cfg.Metrics)
	if err != nil {
		return nil, err
	}

	// Initialize event publisher
	events, err := NewEventPublisher(cfg.Events)
	if err != nil {
		return nil, err
	}

	return &Telemetry{
		Logger:  logger,
		Tracer:  tracer,
		Metrics: metrics,
		Events:  events,
		Config:  cfg,
	}, nil
}

// NewNopTelemetry returns telemetry that discards logs and records nothing.
func NewNopTelemetry() *Telemetry {
	cfg := DefaultConfig()
	cfg.Metrics.Enabled = false
	cfg.Events.Enabled = false

	tracer, _ := NewTracer(cfg.Tracing, cfg.ServiceName, cfg.ServiceVersion, cfg.Environment)
	metrics, _ := NewMetrics(cfg.Metrics)
	events, _ := NewEventPublisher(cfg.Events)

	return &Telemetry{
		Logger:  NewNopLogger(),
		Tracer:  tracer,
		Metrics: metrics,
		Events:  events,
		Config:  cfg,
	}
}

// Shutdown gracefully shuts down all telemetry components.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	// Shutdown in reverse order of initialization
	if err := t.Events.Shutdown(ctx); err != nil {
		return err
	}

	if err := t.Tracer.Shutdown(ctx); err != nil {
		return err
	}

	// Metrics server is not explicitly shut down here as it may need to continue
	// serving metrics until the very end of the application lifecycle

	return nil
}

// Flush forces all pending telemetry data to be exported.
func (t *Telemetry) Flush(ctx context.Context) error {
	return t.Tracer.ForceFlush(ctx)
}

// StartMetricsServer starts the metrics HTTP server if metrics are enabled.
func (t *Telemetry) StartMetricsServer() error {
	return t.Metrics.StartMetricsServer()
}

// InstrumentedContext carries the span, scoped logger and timer of one
// operation.
type InstrumentedContext struct {
	Ctx    context.Context
	Span   trace.Span
	Logger *Logger
	Timer  *Timer
}

// End finishes the instrumented operation, recording success or failure.
func (ic *InstrumentedContext) End(err error) {
	if ic.Span != nil {
		if err != nil {
			RecordError(ic.Span, err)
		} else {
			RecordSuccess(ic.Span)
		}
		ic.Span.End()
	}
}

// StoreOperation is an instrumented record store operation.
type StoreOperation struct {
	*InstrumentedContext

	tel       *Telemetry
	operation string
	kind      string
}

// StartStoreOperation begins a record store operation with a span, a scoped
// logger and a timer.
func (t *Telemetry) StartStoreOperation(ctx context.Context, operation, key, table, kind string) *StoreOperation {
	spanCtx, span := t.Tracer.StartStoreSpan(ctx, operation, key, table, kind)

	logger := t.Logger.WithKey(key).WithTable(table).WithOperation(operation, kind)
	if span.SpanContext().IsValid() {
		logger = logger.WithFields(map[string]interface{}{
			"trace_id": span.SpanContext().TraceID().String(),
			"span_id":  span.SpanContext().SpanID().String(),
		})
	}

	return &StoreOperation{
		InstrumentedContext: &InstrumentedContext{
			Ctx:    logger.WithContext(spanCtx),
			Span:   span,
			Logger: logger,
			Timer:  NewTimer(),
		},
		tel:       t,
		operation: operation,
		kind:      kind,
	}
}

// Finish ends the span and records the operation metrics under status.
func (op *StoreOperation) Finish(status string, err error) {
	op.Span.SetAttributes(AttrStatus.String(status))
	op.End(err)
	op.tel.Metrics.RecordOperation(op.operation, op.kind, status, op.Timer.Duration())
}
