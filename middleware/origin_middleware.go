// Package middleware provides HTTP middleware for the proxy front end:
// origin validation, per-client rate limiting, request IDs and request
// logging for the Echo web framework.
package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/pondpilot/cors-proxy/utils/errors"
)

// OriginContextKey is where the validated request origin is stored on the
// echo context for handlers to echo back in CORS headers.
const OriginContextKey = "validated_origin"

// publicPaths are reachable without an Origin header and without rate
// limiting: probes and metadata endpoints.
var publicPaths = map[string]struct{}{
	"/":        {},
	"/info":    {},
	"/health":  {},
	"/metrics": {},
}

func isPublicPath(path string) bool {
	_, ok := publicPaths[path]
	return ok
}

// OriginMiddleware rejects requests whose Origin header is absent or not in
// the configured allowlist. It runs before any target-URL work so an
// unrecognized origin never triggers URL parsing or an upstream fetch.
func OriginMiddleware(allowedOrigins map[string]struct{}) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if isPublicPath(c.Request().URL.Path) {
				return next(c)
			}

			origin := c.Request().Header.Get(echo.HeaderOrigin)
			if origin == "" {
				return errors.NewOriginRejectedError("Origin header is required", "OriginMiddleware", "check_origin")
			}

			normalized := strings.ToLower(strings.TrimSuffix(origin, "/"))
			if _, ok := allowedOrigins[normalized]; !ok {
				return errors.NewOriginRejectedError("Origin is not allowed", "OriginMiddleware", "check_origin")
			}

			c.Set(OriginContextKey, origin)
			return next(c)
		}
	}
}
