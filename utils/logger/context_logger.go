package logger

import (
	"context"
	"log/slog"
)

type ContextKey string

const RequestIDKey ContextKey = "request_id"

type ContextLogger struct {
	logger *slog.Logger
}

func NewContextLogger(logger *slog.Logger) *ContextLogger {
	return &ContextLogger{logger: logger}
}

// WithContext adds request-scoped values to log entries.
func (cl *ContextLogger) WithContext(ctx context.Context) *slog.Logger {
	args := make([]any, 0)

	if requestID := ctx.Value(RequestIDKey); requestID != nil {
		args = append(args, "request_id", requestID.(string))
	}

	return cl.logger.With(args...)
}
