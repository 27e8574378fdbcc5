package rest

import (
	"context"
	stderrors "errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/pondpilot/cors-proxy/domain"
	"github.com/pondpilot/cors-proxy/gateway"
	"github.com/pondpilot/cors-proxy/metrics"
	custommw "github.com/pondpilot/cors-proxy/middleware"
	"github.com/pondpilot/cors-proxy/security"
	"github.com/pondpilot/cors-proxy/utils/errors"
)

// ProxyHandler serves both target-resolution forms of the relay endpoint.
// The query form takes the target verbatim from ?url=; the path form
// reconstructs it from /proxy-path/{protocol}/{host}/{path} so clients that
// derive companion filenames by appending extensions to the path keep
// working. Both feed the same validation and streaming pipeline.
type ProxyHandler struct {
	security  *domain.SecurityConfig
	upstream  *gateway.UpstreamGateway
	collector *metrics.Collector
}

func NewProxyHandler(securityCfg *domain.SecurityConfig, upstream *gateway.UpstreamGateway, collector *metrics.Collector) *ProxyHandler {
	return &ProxyHandler{
		security:  securityCfg,
		upstream:  upstream,
		collector: collector,
	}
}

// HandleQueryProxy serves GET/HEAD /proxy?url=<target>.
func (h *ProxyHandler) HandleQueryProxy(c echo.Context) error {
	rawURL := c.QueryParam("url")
	if rawURL == "" {
		return errors.NewValidationContextError(
			"Missing required query parameter 'url'", "rest", "ProxyHandler", "extract_target", nil)
	}

	return h.serveProxy(c, rawURL)
}

// HandlePathProxy serves GET/HEAD /proxy-path/{protocol}/{host}/{path...}.
// The protocol label and path are sanitized before reassembly; the
// reconstructed URL still goes through the full validator chain, so
// sanitization never substitutes for the allowlist or SSRF checks.
func (h *ProxyHandler) HandlePathProxy(c echo.Context) error {
	protocol := strings.ToLower(c.Param("protocol"))
	if protocol != "http" && protocol != "https" {
		return errors.NewValidationContextError(
			"Invalid protocol label: must be 'http' or 'https'", "rest", "ProxyHandler", "extract_target", nil)
	}

	host := c.Param("host")
	if host == "" {
		return errors.NewValidationContextError(
			"Missing target host", "rest", "ProxyHandler", "extract_target", nil)
	}

	rawURL := protocol + "://" + host + "/" + sanitizeProxyPath(c.Param("*"))
	if qs := c.Request().URL.RawQuery; qs != "" {
		rawURL += "?" + qs
	}

	return h.serveProxy(c, rawURL)
}

// HandlePreflight answers OPTIONS on both proxy forms. The origin was
// already validated by the origin middleware; a disallowed origin never
// reaches this handler.
func (h *ProxyHandler) HandlePreflight(c echo.Context) error {
	origin := validatedOrigin(c)
	header := c.Response().Header()

	applyCORSHeaders(header, origin, h.security.ForwardCredentials)
	header.Set("Access-Control-Max-Age", "86400")

	return c.NoContent(http.StatusNoContent)
}

// serveProxy is the shared pipeline: validate target, fetch with redirects
// disabled and a bounded deadline, validate the response, then stream with
// size enforcement.
func (h *ProxyHandler) serveProxy(c echo.Context, rawURL string) error {
	start := time.Now()
	defer func() {
		h.collector.ObserveDuration(time.Since(start).Seconds())
	}()

	if result := security.ValidateTargetURL(rawURL, h.security); !result.Valid {
		return verdictError(result, "validate_target")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.security.RequestTimeout)
	defer cancel()

	resp, err := h.upstream.Fetch(ctx, c.Request().Method, rawURL, c.Request().Header)
	if err != nil {
		if stderrors.Is(err, context.DeadlineExceeded) {
			return errors.NewTimeoutContextError(
				"Upstream request timed out", "gateway", "ProxyHandler", "fetch_upstream", err, nil)
		}
		return errors.NewExternalAPIContextError(
			"Failed to fetch the requested resource", "gateway", "ProxyHandler", "fetch_upstream", err, nil)
	}
	defer resp.Body.Close()

	if result := security.ValidateUpstreamResponse(resp.StatusCode, resp.ContentLength, h.security.MaxFileSizeBytes); !result.Valid {
		return verdictError(result, "validate_response")
	}

	header := c.Response().Header()
	copyUpstreamHeaders(header, resp.Header)
	if header.Get("Cache-Control") == "" {
		header.Set("Cache-Control", "public, max-age=3600")
	}
	applyCORSHeaders(header, validatedOrigin(c), h.security.ForwardCredentials)

	if c.Request().Method == http.MethodHead {
		c.Response().WriteHeader(resp.StatusCode)
		h.collector.RecordOutcome(metrics.OutcomeProxied)
		return nil
	}

	var written int64
	defer func() {
		h.collector.RecordBytes(written)
	}()

	if err := relayBody(c, resp.Body, resp.StatusCode, h.security.MaxFileSizeBytes, &written); err != nil {
		if stderrors.Is(err, errClientGone) {
			h.collector.RecordOutcome(metrics.OutcomeAborted)
			return nil
		}
		return err
	}

	h.collector.RecordOutcome(metrics.OutcomeProxied)
	return nil
}

// verdictError maps a validator verdict onto the error taxonomy.
func verdictError(result domain.ValidationResult, operation string) *errors.AppContextError {
	switch result.Code {
	case errors.CodeAddressBlocked:
		return errors.NewAddressBlockedError(result.ErrorMessage, "ProxyHandler", operation)
	case errors.CodeDomainNotAllowed:
		return errors.NewDomainNotAllowedError(result.ErrorMessage, "ProxyHandler", operation)
	case errors.CodeRedirectRejected:
		return errors.NewRedirectRejectedError(result.ErrorMessage, "ProxyHandler", operation)
	case errors.CodeSizeLimit:
		return errors.NewSizeLimitContextError(result.ErrorMessage, "ProxyHandler", operation, nil)
	default:
		return errors.NewValidationContextError(result.ErrorMessage, "rest", "ProxyHandler", operation, nil)
	}
}

// sanitizeProxyPath neutralizes traversal sequences before the path is
// reassembled into a URL: `../` groups are removed, duplicate slashes
// collapsed, and any leading slash stripped.
func sanitizeProxyPath(p string) string {
	for strings.Contains(p, "../") {
		p = strings.ReplaceAll(p, "../", "")
	}
	for strings.Contains(p, "//") {
		p = strings.ReplaceAll(p, "//", "/")
	}
	return strings.TrimPrefix(p, "/")
}

// validatedOrigin returns the origin the origin middleware accepted for this
// request.
func validatedOrigin(c echo.Context) string {
	if origin, ok := c.Get(custommw.OriginContextKey).(string); ok {
		return origin
	}
	return ""
}
