package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusCode(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{CodeValidation, http.StatusBadRequest},
		{CodeOriginRejected, http.StatusForbidden},
		{CodeAddressBlocked, http.StatusForbidden},
		{CodeDomainNotAllowed, http.StatusForbidden},
		{CodeRedirectRejected, http.StatusForbidden},
		{CodeRateLimit, http.StatusTooManyRequests},
		{CodeSizeLimit, http.StatusRequestEntityTooLarge},
		{CodeExternalAPI, http.StatusBadGateway},
		{CodeTimeout, http.StatusGatewayTimeout},
		{CodeUnknown, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := NewAppContextError(tt.code, "msg", "rest", "Comp", "op", nil, nil)
			assert.Equal(t, tt.want, err.HTTPStatusCode())
		})
	}
}

func TestToHTTPResponse_OmitsInternalContext(t *testing.T) {
	err := NewAppContextError(CodeAddressBlocked, "Access to private/internal addresses is not allowed",
		"security", "SSRFGuard", "check_host", nil, map[string]interface{}{"internal_detail": "never shown"})

	resp := err.ToHTTPResponse()
	assert.Equal(t, "error", resp.Error)
	assert.Equal(t, CodeAddressBlocked, resp.Code)
	assert.Equal(t, "Access to private/internal addresses is not allowed", resp.Message)
}

func TestErrorAndUnwrap(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := NewExternalAPIContextError("Failed to fetch the requested resource",
		"gateway", "UpstreamGateway", "fetch_upstream", cause, nil)

	assert.Contains(t, err.Error(), "EXTERNAL_API_ERROR")
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, cause, err.Unwrap())
}

func TestRejectionConstructors(t *testing.T) {
	tests := []struct {
		name string
		err  *AppContextError
		code string
	}{
		{"address blocked", NewAddressBlockedError("m", "ProxyHandler", "validate_target"), CodeAddressBlocked},
		{"domain not allowed", NewDomainNotAllowedError("m", "ProxyHandler", "validate_target"), CodeDomainNotAllowed},
		{"redirect rejected", NewRedirectRejectedError("m", "ProxyHandler", "validate_response"), CodeRedirectRejected},
		{"origin rejected", NewOriginRejectedError("m", "OriginMiddleware", "check_origin"), CodeOriginRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, http.StatusForbidden, tt.err.HTTPStatusCode())
			assert.Equal(t, "m", tt.err.Message)
		})
	}
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, NewRateLimitContextError("m", "C", "op").IsRetryable())
	assert.True(t, NewTimeoutContextError("m", "l", "C", "op", nil, nil).IsRetryable())
	assert.False(t, NewValidationContextError("m", "l", "C", "op", nil).IsRetryable())
	assert.False(t, NewDomainNotAllowedError("m", "C", "op").IsRetryable())
}
