// Package config loads the proxy configuration from environment variables
// once at startup. The rest of the codebase never reads raw environment
// state; it consumes the derived immutable domain.SecurityConfig instead.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/pondpilot/cors-proxy/domain"
	"github.com/pondpilot/cors-proxy/security"
)

type Config struct {
	Server    ServerConfig    `json:"server"`
	Proxy     ProxyConfig     `json:"proxy"`
	RateLimit RateLimitConfig `json:"rate_limit"`
	Logging   LoggingConfig   `json:"logging"`
}

type ServerConfig struct {
	Port         int           `json:"port" env:"SERVER_PORT" default:"8080"`
	ReadTimeout  time.Duration `json:"read_timeout" env:"SERVER_READ_TIMEOUT" default:"60s"`
	WriteTimeout time.Duration `json:"write_timeout" env:"SERVER_WRITE_TIMEOUT" default:"300s"`
	IdleTimeout  time.Duration `json:"idle_timeout" env:"SERVER_IDLE_TIMEOUT" default:"120s"`
}

type ProxyConfig struct {
	AllowedOrigins     string        `json:"allowed_origins" env:"ALLOWED_ORIGINS" default:"https://app.pondpilot.io"`
	AllowedDomains     string        `json:"allowed_domains" env:"ALLOWED_DOMAINS"`
	AllowedDomainsFile string        `json:"allowed_domains_file" env:"ALLOWED_DOMAINS_FILE"`
	AllowedProtocols   string        `json:"allowed_protocols" env:"ALLOWED_PROTOCOLS" default:"https,http"`
	HTTPSOnly          bool          `json:"https_only" env:"HTTPS_ONLY" default:"false"`
	MaxFileSizeMB      int           `json:"max_file_size_mb" env:"MAX_FILE_SIZE_MB" default:"100"`
	RequestTimeout     time.Duration `json:"request_timeout" env:"REQUEST_TIMEOUT" default:"30s"`
	ForwardCredentials bool          `json:"forward_credentials" env:"FORWARD_CREDENTIALS" default:"false"`
}

type RateLimitConfig struct {
	Enabled bool          `json:"enabled" env:"RATE_LIMIT_ENABLED" default:"true"`
	Limit   int           `json:"limit" env:"RATE_LIMIT" default:"60"`
	Burst   int           `json:"burst" env:"RATE_LIMIT_BURST" default:"20"`
	Window  time.Duration `json:"window" env:"RATE_LIMIT_WINDOW" default:"1m"`
}

type LoggingConfig struct {
	Level  string `json:"level" env:"LOG_LEVEL" default:"info"`
	Format string `json:"format" env:"LOG_FORMAT" default:"json"`
}

// NewConfig creates a new configuration by loading from environment
// variables with fallback to default values.
func NewConfig() (*Config, error) {
	config := &Config{}

	if err := loadFromEnvironment(config); err != nil {
		return nil, err
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Proxy.MaxFileSizeMB <= 0 {
		return fmt.Errorf("max file size must be positive, got %d MB", c.Proxy.MaxFileSizeMB)
	}
	if c.Proxy.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive, got %s", c.Proxy.RequestTimeout)
	}
	if c.RateLimit.Enabled {
		if c.RateLimit.Limit <= 0 {
			return fmt.Errorf("rate limit must be positive, got %d", c.RateLimit.Limit)
		}
		if c.RateLimit.Burst <= 0 {
			return fmt.Errorf("rate limit burst must be positive, got %d", c.RateLimit.Burst)
		}
		if c.RateLimit.Window <= 0 {
			return fmt.Errorf("rate limit window must be positive, got %s", c.RateLimit.Window)
		}
	}
	if len(c.AllowedOriginSet()) == 0 {
		return fmt.Errorf("at least one allowed origin is required")
	}
	return nil
}

// SecurityConfig derives the immutable per-process security policy that is
// injected into the validators and handlers.
func (c *Config) SecurityConfig() *domain.SecurityConfig {
	protocols := make(map[string]bool)
	for _, p := range strings.Split(c.Proxy.AllowedProtocols, ",") {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			protocols[p] = true
		}
	}
	if len(protocols) == 0 {
		protocols["https"] = true
	}

	return &domain.SecurityConfig{
		AllowedDomains:     domain.NewMatcherSet(security.ParseAllowedDomains(c.Proxy.AllowedDomains)),
		AllowedProtocols:   protocols,
		HTTPSOnly:          c.Proxy.HTTPSOnly,
		MaxFileSizeBytes:   int64(c.Proxy.MaxFileSizeMB) * domain.MB,
		RequestTimeout:     c.Proxy.RequestTimeout,
		ForwardCredentials: c.Proxy.ForwardCredentials,
	}
}

// AllowedOriginSet returns the allowed origins as a set for O(1) lookup.
// Origins are compared case-insensitively with any trailing slash removed.
func (c *Config) AllowedOriginSet() map[string]struct{} {
	origins := make(map[string]struct{})
	for _, o := range strings.Split(c.Proxy.AllowedOrigins, ",") {
		if o = strings.ToLower(strings.TrimSuffix(strings.TrimSpace(o), "/")); o != "" {
			origins[o] = struct{}{}
		}
	}
	return origins
}
