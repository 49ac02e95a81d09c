package logger

import (
	"context"

	"go.uber.org/zap"
)

type contextKey struct{}

// WithContext returns a context carrying l
func WithContext(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, l)
}

// FromContext returns the request-scoped logger, or a no-op logger
func FromContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(contextKey{}).(*zap.Logger); ok {
		return l
	}
	return zap.NewNop()
}

// WithRequestID attaches a logger tagged with the request id
func WithRequestID(ctx context.Context, l *zap.Logger, requestID string) context.Context {
	if requestID == "" {
		return WithContext(ctx, l)
	}
	return WithContext(ctx, l.With(zap.String("request_id", requestID)))
}
