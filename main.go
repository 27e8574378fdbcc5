package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/pondpilot/cors-proxy/config"
	"github.com/pondpilot/cors-proxy/gateway"
	"github.com/pondpilot/cors-proxy/metrics"
	"github.com/pondpilot/cors-proxy/rest"
	"github.com/pondpilot/cors-proxy/security"
	"github.com/pondpilot/cors-proxy/utils/logger"
)

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.InitLogger(cfg.Logging.Level, cfg.Logging.Format)
	logger.Logger.Info("starting cors proxy",
		"port", cfg.Server.Port,
		"https_only", cfg.Proxy.HTTPSOnly,
		"max_file_size_mb", cfg.Proxy.MaxFileSizeMB,
		"rate_limit_enabled", cfg.RateLimit.Enabled)

	securityCfg := cfg.SecurityConfig()

	if cfg.Proxy.AllowedDomainsFile != "" {
		watcher, err := security.WatchAllowedDomainsFile(cfg.Proxy.AllowedDomainsFile, securityCfg.AllowedDomains)
		if err != nil {
			logger.Logger.Error("failed to watch allowlist file", "error", err)
			os.Exit(1)
		}
		defer watcher.Close()
	}

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)
	upstream := gateway.NewUpstreamGateway(securityCfg)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	rest.RegisterRoutes(e, &rest.Handlers{
		Proxy:    rest.NewProxyHandler(securityCfg, upstream, collector),
		Errors:   rest.NewErrorHandler(collector, securityCfg.ForwardCredentials),
		Config:   cfg,
		Registry: registry,
	})

	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout
	e.Server.IdleTimeout = cfg.Server.IdleTimeout

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		logger.Logger.Info("listening", "addr", addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Logger.Error("server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Logger.Error("graceful shutdown failed", "error", err)
	}
}
