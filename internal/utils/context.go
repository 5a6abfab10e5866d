package utils

import (
	"context"

	"go.uber.org/zap"
)

type contextKey string

const ContextLoggerKey contextKey = "logger"

// WithLogger returns a copy of ctx carrying the request-scoped logger.
func WithLogger(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, ContextLoggerKey, l)
}

// LoggerFromContext returns the request logger, or a no-op logger when none is set.
func LoggerFromContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(ContextLoggerKey).(*zap.Logger); ok && l != nil {
		return l
	}
	return zap.NewNop()
}
