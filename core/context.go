package core

import (
	"context"
	"log/slog"
)

// Context keys for request options
type contextKey string

const requestIDKey contextKey = "requestID"

// WithRequestID attaches the request ID used to correlate log records.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestID returns the request ID from context, or "" when none is set.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// loggerFor scopes log to the request ID carried by ctx.
func loggerFor(ctx context.Context, log *slog.Logger) *slog.Logger {
	if id := RequestID(ctx); id != "" {
		return log.With("request_id", id)
	}
	return log
}
