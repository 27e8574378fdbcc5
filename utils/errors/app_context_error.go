// Package errors defines the structured error type shared by all layers of
// the proxy and its mapping onto HTTP status codes.
package errors

import (
	"fmt"
	"net/http"
)

// Error codes for the proxy failure taxonomy. Policy violations map to 403
// and are never retried; 429/502/504 are the retryable class.
const (
	CodeValidation       = "VALIDATION_ERROR"
	CodeOriginRejected   = "ORIGIN_REJECTED"
	CodeAddressBlocked   = "ADDRESS_BLOCKED"
	CodeDomainNotAllowed = "DOMAIN_NOT_ALLOWED"
	CodeRedirectRejected = "REDIRECT_REJECTED"
	CodeRateLimit        = "RATE_LIMIT_ERROR"
	CodeSizeLimit        = "SIZE_LIMIT_ERROR"
	CodeExternalAPI      = "EXTERNAL_API_ERROR"
	CodeTimeout          = "TIMEOUT_ERROR"
	CodeUnknown          = "UNKNOWN_ERROR"
)

// AppContextError represents an error with rich context information.
type AppContextError struct {
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Layer     string                 `json:"layer,omitempty"`     // Architecture layer (rest, gateway, security)
	Component string                 `json:"component,omitempty"` // Specific component name
	Operation string                 `json:"operation,omitempty"` // Specific operation/method name
	Cause     error                  `json:"-"`                   // Underlying error (not serialized)
	Context   map[string]interface{} `json:"context,omitempty"`   // Additional context information
}

// Error implements the error interface.
func (e *AppContextError) Error() string {
	var prefix string
	if e.Layer != "" && e.Component != "" && e.Operation != "" {
		prefix = fmt.Sprintf("[%s:%s:%s] ", e.Layer, e.Component, e.Operation)
	}

	if e.Cause != nil {
		return fmt.Sprintf("%s%s: %s (caused by: %v)", prefix, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s%s: %s", prefix, e.Code, e.Message)
}

// Unwrap returns the underlying error for error chain unwrapping.
func (e *AppContextError) Unwrap() error {
	return e.Cause
}

// HTTPStatusCode maps error codes to HTTP status codes.
func (e *AppContextError) HTTPStatusCode() int {
	switch e.Code {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeOriginRejected, CodeAddressBlocked, CodeDomainNotAllowed, CodeRedirectRejected:
		return http.StatusForbidden
	case CodeRateLimit:
		return http.StatusTooManyRequests
	case CodeSizeLimit:
		return http.StatusRequestEntityTooLarge
	case CodeExternalAPI:
		return http.StatusBadGateway
	case CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// HTTPContextResponse is the error payload sent to clients.
type HTTPContextResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ToHTTPResponse converts an AppContextError to an HTTP error payload.
// Internal context (layer, component, request details) never reaches the
// client; only the code and the human-readable message do.
func (e *AppContextError) ToHTTPResponse() HTTPContextResponse {
	return HTTPContextResponse{
		Error:   "error",
		Code:    e.Code,
		Message: e.Message,
	}
}

// IsRetryable determines if the error represents a retryable condition.
func (e *AppContextError) IsRetryable() bool {
	switch e.Code {
	case CodeRateLimit, CodeTimeout, CodeExternalAPI:
		return true
	default:
		return false
	}
}

// NewAppContextError creates a new AppContextError with full context.
func NewAppContextError(
	code, message, layer, component, operation string,
	cause error,
	context map[string]interface{},
) *AppContextError {
	if context == nil {
		context = make(map[string]interface{})
	}

	return &AppContextError{
		Code:      code,
		Message:   message,
		Layer:     layer,
		Component: component,
		Operation: operation,
		Cause:     cause,
		Context:   context,
	}
}

// NewValidationContextError creates a 400-class malformed-input error.
func NewValidationContextError(message, layer, component, operation string, context map[string]interface{}) *AppContextError {
	return NewAppContextError(CodeValidation, message, layer, component, operation, nil, context)
}

// NewOriginRejectedError creates a 403 error for an absent or unknown Origin.
func NewOriginRejectedError(message, component, operation string) *AppContextError {
	return NewAppContextError(CodeOriginRejected, message, "rest", component, operation, nil, nil)
}

// NewAddressBlockedError creates a 403 error for a private/internal target.
func NewAddressBlockedError(message, component, operation string) *AppContextError {
	return NewAppContextError(CodeAddressBlocked, message, "security", component, operation, nil, nil)
}

// NewDomainNotAllowedError creates a 403 error for a host outside the allowlist.
func NewDomainNotAllowedError(message, component, operation string) *AppContextError {
	return NewAppContextError(CodeDomainNotAllowed, message, "security", component, operation, nil, nil)
}

// NewRedirectRejectedError creates a 403 error for an upstream redirect.
func NewRedirectRejectedError(message, component, operation string) *AppContextError {
	return NewAppContextError(CodeRedirectRejected, message, "security", component, operation, nil, nil)
}

// NewRateLimitContextError creates a 429 error.
func NewRateLimitContextError(message, component, operation string) *AppContextError {
	return NewAppContextError(CodeRateLimit, message, "rest", component, operation, nil, nil)
}

// NewSizeLimitContextError creates a 413 error for a size-limit overflow
// caught before the response was committed.
func NewSizeLimitContextError(message, component, operation string, context map[string]interface{}) *AppContextError {
	return NewAppContextError(CodeSizeLimit, message, "rest", component, operation, nil, context)
}

// NewExternalAPIContextError creates a 502 error for an upstream fetch failure.
func NewExternalAPIContextError(message, layer, component, operation string, cause error, context map[string]interface{}) *AppContextError {
	return NewAppContextError(CodeExternalAPI, message, layer, component, operation, cause, context)
}

// NewTimeoutContextError creates a 504 error for an expired upstream fetch.
func NewTimeoutContextError(message, layer, component, operation string, cause error, context map[string]interface{}) *AppContextError {
	return NewAppContextError(CodeTimeout, message, layer, component, operation, cause, context)
}
