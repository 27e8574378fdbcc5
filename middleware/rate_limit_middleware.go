package middleware

import (
	"net"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	"github.com/pondpilot/cors-proxy/utils/errors"
)

// RateLimitConfig defines the per-client-IP rate limit window.
type RateLimitConfig struct {
	Enabled bool
	Limit   int           // Requests per window
	Burst   int           // Burst capacity
	Window  time.Duration // Rate limit window
}

// RateLimitMiddleware returns a middleware enforcing a per-client-IP request
// quota. Limiters are created lazily per IP and share a token bucket rate of
// Limit/Window with Burst capacity.
func RateLimitMiddleware(config RateLimitConfig) echo.MiddlewareFunc {
	if !config.Enabled {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return next
		}
	}

	limiters := make(map[string]*rate.Limiter)
	var mu sync.RWMutex

	perSecond := rate.Limit(float64(config.Limit) / config.Window.Seconds())

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if isPublicPath(c.Request().URL.Path) {
				return next(c)
			}

			clientIP := getClientIP(c)
			if clientIP == "" {
				clientIP = "unknown"
			}

			if !limiterForIP(clientIP, perSecond, config.Burst, limiters, &mu).Allow() {
				return errors.NewRateLimitContextError(
					"Too many requests, please retry later", "RateLimitMiddleware", "check_rate_limit")
			}

			return next(c)
		}
	}
}

func limiterForIP(clientIP string, perSecond rate.Limit, burst int, limiters map[string]*rate.Limiter, mu *sync.RWMutex) *rate.Limiter {
	mu.RLock()
	limiter, exists := limiters[clientIP]
	mu.RUnlock()

	if exists {
		return limiter
	}

	mu.Lock()
	defer mu.Unlock()

	// Double-check pattern
	if limiter, exists = limiters[clientIP]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(perSecond, burst)
	limiters[clientIP] = limiter
	return limiter
}

// getClientIP extracts the client IP from proxy headers with a RemoteAddr
// fallback.
func getClientIP(c echo.Context) string {
	if ip := c.Request().Header.Get("X-Real-IP"); ip != "" {
		if net.ParseIP(ip) != nil {
			return ip
		}
	}

	if xff := c.Request().Header.Get("X-Forwarded-For"); xff != "" {
		for _, ip := range strings.Split(xff, ",") {
			ip = strings.TrimSpace(ip)
			if net.ParseIP(ip) != nil {
				return ip
			}
		}
	}

	if ip, _, err := net.SplitHostPort(c.Request().RemoteAddr); err == nil {
		if net.ParseIP(ip) != nil {
			return ip
		}
	}

	return ""
}
