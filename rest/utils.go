package rest

import (
	stderrors "errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/pondpilot/cors-proxy/metrics"
	"github.com/pondpilot/cors-proxy/utils/errors"
	"github.com/pondpilot/cors-proxy/utils/logger"
)

// ErrorHandler maps application errors to HTTP responses. Rejections carry
// CORS headers for the validated origin so browser clients can read the
// error body instead of seeing an opaque network failure.
type ErrorHandler struct {
	collector        *metrics.Collector
	allowCredentials bool
}

func NewErrorHandler(collector *metrics.Collector, allowCredentials bool) *ErrorHandler {
	return &ErrorHandler{collector: collector, allowCredentials: allowCredentials}
}

func (h *ErrorHandler) Handle(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var appErr *errors.AppContextError
	if stderrors.As(err, &appErr) {
		h.handleAppError(appErr, c)
		return
	}

	var httpErr *echo.HTTPError
	if stderrors.As(err, &httpErr) {
		h.collector.RecordOutcome(metrics.OutcomeRejected)
		writeErr := c.JSON(httpErr.Code, map[string]interface{}{
			"error": http.StatusText(httpErr.Code),
		})
		if writeErr != nil {
			logger.Logger.Error("failed to write error response", "error", writeErr)
		}
		return
	}

	h.collector.RecordOutcome(metrics.OutcomeUpstreamError)
	logger.Logger.Error("unhandled error", "error", err)
	writeErr := c.JSON(http.StatusInternalServerError, map[string]interface{}{
		"error":   "Internal server error",
		"message": "An unexpected error occurred",
	})
	if writeErr != nil {
		logger.Logger.Error("failed to write error response", "error", writeErr)
	}
}

func (h *ErrorHandler) handleAppError(appErr *errors.AppContextError, c echo.Context) {
	status := appErr.HTTPStatusCode()

	if status == http.StatusRequestEntityTooLarge {
		discardStagedHeaders(c.Response().Header())
		c.Response().Header().Set("Cache-Control", "no-store")
	}

	if origin := validatedOrigin(c); origin != "" {
		applyCORSHeaders(c.Response().Header(), origin, h.allowCredentials)
	}

	h.collector.RecordOutcome(outcomeForCode(appErr.Code))

	logger.Logger.Warn("request rejected",
		"code", appErr.Code,
		"layer", appErr.Layer,
		"component", appErr.Component,
		"operation", appErr.Operation,
		"status", status)

	if writeErr := c.JSON(status, appErr.ToHTTPResponse()); writeErr != nil {
		logger.Logger.Error("failed to write error response", "error", writeErr)
	}
}

func outcomeForCode(code string) string {
	switch code {
	case errors.CodeRateLimit:
		return metrics.OutcomeRateLimited
	case errors.CodeTimeout:
		return metrics.OutcomeTimeout
	case errors.CodeExternalAPI:
		return metrics.OutcomeUpstreamError
	case errors.CodeSizeLimit:
		return metrics.OutcomeOverflow
	default:
		return metrics.OutcomeRejected
	}
}
