package logger

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log is the process-wide logger. It stays nil until Init is called; the
// helpers below fall back to a no-op logger.
var Log *zap.Logger

// TraceIDKey is the context key for trace ID
type TraceIDKey struct{}

// New builds a logger with the specified level and format ("json" or "text")
func New(level, format string) (*zap.Logger, error) {
	var config zap.Config

	if format == "json" {
		config = zap.NewProductionConfig()
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		config.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
	}

	lvl, err := zapcore.ParseLevel(strings.ToLower(level))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	config.Level = zap.NewAtomicLevelAt(lvl)

	return config.Build()
}

// Init initializes the global logger
func Init(level, format string) error {
	l, err := New(level, format)
	if err != nil {
		return err
	}
	Log = l
	return nil
}

// Sync flushes any buffered log entries
func Sync() {
	if Log != nil {
		_ = Log.Sync()
	}
}

// L returns the global logger, or a no-op logger before Init
func L() *zap.Logger {
	if Log == nil {
		return zap.NewNop()
	}
	return Log
}

// Named creates a named logger
func Named(name string) *zap.Logger {
	return L().Named(name)
}

// WithTraceID creates a logger with trace ID
func WithTraceID(traceID string) *zap.Logger {
	return L().With(zap.String("trace_id", traceID))
}

// FromContext returns a logger carrying the context's trace ID, if any
func FromContext(ctx context.Context) *zap.Logger {
	if traceID := TraceIDFromContext(ctx); traceID != "" {
		return WithTraceID(traceID)
	}
	return L()
}

// ContextWithTraceID adds trace ID to context
func ContextWithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey{}, traceID)
}

// TraceIDFromContext retrieves trace ID from context
func TraceIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if traceID, ok := ctx.Value(TraceIDKey{}).(string); ok {
		return traceID
	}
	return ""
}

// Convenience methods for global logger
func Debug(msg string, fields ...zap.Field) {
	L().Debug(msg, fields...)
}

func Info(msg string, fields ...zap.Field) {
	L().Info(msg, fields...)
}

func Warn(msg string, fields ...zap.Field) {
	L().Warn(msg, fields...)
}

func Error(msg string, fields ...zap.Field) {
	L().Error(msg, fields...)
}
