package telemetry

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is a zerolog logger scoped with record store fields.
type Logger struct {
	zlog zerolog.Logger
}

type loggerContextKey struct{}

// NewLogger creates a logger for cfg. Output is stdout, stderr or a file
// path; Writer takes precedence when set.
func NewLogger(cfg LoggingConfig) (*Logger, error) {
	if cfg.Writer != nil {
		return NewLoggerWithWriter(cfg, cfg.Writer), nil
	}

	var w io.Writer
	switch cfg.Output {
	case "", "stderr":
		w = os.Stderr
	case "stdout":
		w = os.Stdout
	default:
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log output: %w", err)
		}
		w = file
	}
	return NewLoggerWithWriter(cfg, w), nil
}

// NewLoggerWithWriter creates a logger that writes to w. Writes are
// serialized because event subscribers log from their own goroutines.
func NewLoggerWithWriter(cfg LoggingConfig, w io.Writer) *Logger {
	w = zerolog.SyncWriter(w)
	if cfg.Format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	zlog := zerolog.New(w).
		Level(parseLogLevel(cfg.Level)).
		With().
		Timestamp().
		Logger()
	return &Logger{zlog: zlog}
}

// NewNopLogger returns a logger that discards everything.
func NewNopLogger() *Logger {
	return &Logger{zlog: zerolog.Nop()}
}

// NewComponentLogger creates a child logger for a specific component.
func (l *Logger) NewComponentLogger(component string) *Logger {
	return l.WithField("component", component)
}

// WithContext stores the logger in ctx.
func (l *Logger) WithContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, loggerContextKey{}, l)
}

// FromContext returns the logger stored in ctx, or a nop logger.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerContextKey{}).(*Logger); ok {
		return l
	}
	return NewNopLogger()
}

// WithFields returns a logger with additional fields.
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	zctx := l.zlog.With()
	for k, v := range fields {
		zctx = zctx.Interface(k, v)
	}
	return &Logger{zlog: zctx.Logger()}
}

// WithField returns a logger with a single additional field.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{zlog: l.zlog.With().Interface(key, value).Logger()}
}

// WithKey adds the logical key to the logger.
func (l *Logger) WithKey(key string) *Logger {
	return &Logger{zlog: l.zlog.With().Str("key", key).Logger()}
}

// WithTable adds the backend table to the logger.
func (l *Logger) WithTable(table string) *Logger {
	return &Logger{zlog: l.zlog.With().Str("table", table).Logger()}
}

// WithOperation adds the store operation and key kind.
func (l *Logger) WithOperation(operation, kind string) *Logger {
	return &Logger{zlog: l.zlog.With().Str("operation", operation).Str("kind", kind).Logger()}
}

// WithError adds error information to the logger.
func (l *Logger) WithError(err error) *Logger {
	return &Logger{zlog: l.zlog.With().Err(err).Logger()}
}

func (l *Logger) Debug(msg string) { l.zlog.Debug().Msg(msg) }
func (l *Logger) Info(msg string)  { l.zlog.Info().Msg(msg) }
func (l *Logger) Warn(msg string)  { l.zlog.Warn().Msg(msg) }
func (l *Logger) Error(msg string) { l.zlog.Error().Msg(msg) }

// parseLogLevel maps a configured level name, defaulting to info.
func parseLogLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		return zerolog.InfoLevel
	}
	return lvl
}
