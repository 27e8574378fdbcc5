package middleware

import (
	"context"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/pondpilot/cors-proxy/utils/logger"
)

// RequestIDMiddleware assigns every request an ID, honoring a client-supplied
// X-Request-ID when present.
func RequestIDMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			requestID := c.Request().Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = uuid.New().String()
			}

			c.Response().Header().Set("X-Request-ID", requestID)

			ctx := context.WithValue(c.Request().Context(), logger.RequestIDKey, requestID)
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}
