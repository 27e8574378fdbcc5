package rest

import (
	"net/http"
	"sort"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pondpilot/cors-proxy/config"
	custommw "github.com/pondpilot/cors-proxy/middleware"
	"github.com/pondpilot/cors-proxy/utils/logger"
)

const (
	serviceName    = "pondpilot-cors-proxy"
	serviceVersion = "1.0.0"
)

// Handlers bundles everything RegisterRoutes needs to wire the server.
type Handlers struct {
	Proxy    *ProxyHandler
	Errors   *ErrorHandler
	Config   *config.Config
	Registry *prometheus.Registry
}

// RegisterRoutes attaches middleware and routes to the echo instance. The
// middleware order matters: request IDs and panic recovery come first, then
// logging. The origin gate and rate limiter are attached to the proxy routes
// only, so a request for an unknown path gets a plain 404 instead of an
// origin rejection.
func RegisterRoutes(e *echo.Echo, h *Handlers) {
	e.HTTPErrorHandler = h.Errors.Handle

	e.Use(custommw.RequestIDMiddleware())
	e.Use(echomiddleware.Recover())
	e.Use(custommw.LoggingMiddleware(logger.Logger))

	gate := []echo.MiddlewareFunc{custommw.OriginMiddleware(h.Config.AllowedOriginSet())}
	if h.Config.RateLimit.Enabled {
		gate = append(gate, custommw.RateLimitMiddleware(custommw.RateLimitConfig{
			Enabled: true,
			Limit:   h.Config.RateLimit.Limit,
			Burst:   h.Config.RateLimit.Burst,
			Window:  h.Config.RateLimit.Window,
		}))
	}

	e.GET("/proxy", h.Proxy.HandleQueryProxy, gate...)
	e.HEAD("/proxy", h.Proxy.HandleQueryProxy, gate...)
	e.OPTIONS("/proxy", h.Proxy.HandlePreflight, gate...)

	e.GET("/proxy-path/:protocol/:host/*", h.Proxy.HandlePathProxy, gate...)
	e.HEAD("/proxy-path/:protocol/:host/*", h.Proxy.HandlePathProxy, gate...)
	e.OPTIONS("/proxy-path/:protocol/:host/*", h.Proxy.HandlePreflight, gate...)

	e.GET("/health", h.handleHealth)
	e.GET("/", h.handleInfo)
	e.GET("/info", h.handleInfo)

	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(h.Registry, promhttp.HandlerOpts{})))
}

func (h *Handlers) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "healthy", Service: serviceName})
}

func (h *Handlers) handleInfo(c echo.Context) error {
	securityCfg := h.Proxy.security

	origins := make([]string, 0, len(h.Config.AllowedOriginSet()))
	for origin := range h.Config.AllowedOriginSet() {
		origins = append(origins, origin)
	}
	sort.Strings(origins)

	protocols := make([]string, 0, len(securityCfg.AllowedProtocols))
	for p := range securityCfg.AllowedProtocols {
		protocols = append(protocols, p)
	}
	sort.Strings(protocols)

	info := InfoResponse{
		Service:               serviceName,
		Version:               serviceVersion,
		AllowedOrigins:        origins,
		AllowedDomainPatterns: securityCfg.AllowedDomains.Patterns(),
		AllowedProtocols:      protocols,
		HTTPSOnly:             securityCfg.HTTPSOnly,
		MaxFileSizeMB:         h.Config.Proxy.MaxFileSizeMB,
		RequestTimeout:        securityCfg.RequestTimeout.String(),
		RateLimitEnabled:      h.Config.RateLimit.Enabled,
	}
	if h.Config.RateLimit.Enabled {
		info.RateLimitPerWindow = h.Config.RateLimit.Limit
		info.RateLimitWindow = h.Config.RateLimit.Window.String()
	}

	return c.JSON(http.StatusOK, info)
}
