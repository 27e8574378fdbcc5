package middleware

import (
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/pondpilot/cors-proxy/utils/logger"
)

// LoggingMiddleware logs request completion. It records the matched route
// template rather than the raw request path: proxy paths embed the target
// URL, and target URLs must never reach a log line.
func LoggingMiddleware(baseLogger *slog.Logger) echo.MiddlewareFunc {
	contextLogger := logger.NewContextLogger(baseLogger)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			req := c.Request()
			if req.URL.Path == "/health" {
				return next(c)
			}
			ctx := req.Context()

			err := next(c)

			duration := time.Since(start)
			res := c.Response()

			logAttrs := []any{
				"method", req.Method,
				"route", c.Path(),
				"status", res.Status,
				"duration_ms", duration.Milliseconds(),
				"response_size", res.Size,
			}
			switch {
			case res.Status >= 500:
				contextLogger.WithContext(ctx).ErrorContext(ctx, "request completed", logAttrs...)
			case res.Status >= 400:
				contextLogger.WithContext(ctx).WarnContext(ctx, "request completed", logAttrs...)
			default:
				contextLogger.WithContext(ctx).InfoContext(ctx, "request completed", logAttrs...)
			}

			return err
		}
	}
}
