package security

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pondpilot/cors-proxy/domain"
	"github.com/pondpilot/cors-proxy/utils/errors"
)

func TestValidateUpstreamResponse(t *testing.T) {
	const maxBytes = 5 * domain.MB

	tests := []struct {
		name          string
		statusCode    int
		contentLength int64
		valid         bool
		code          string
	}{
		{"200 within limit should pass", 200, 1024, true, ""},
		{"200 exactly at limit should pass", 200, maxBytes, true, ""},
		{"200 without content length should pass", 200, -1, true, ""},
		{"404 should pass through", 404, 512, true, ""},
		{"500 should pass through", 500, 128, true, ""},
		{"304 not modified should be rejected as redirect class", 304, 0, false, errors.CodeRedirectRejected},
		{"301 should be rejected", 301, 0, false, errors.CodeRedirectRejected},
		{"302 should be rejected", 302, 0, false, errors.CodeRedirectRejected},
		{"307 should be rejected", 307, 0, false, errors.CodeRedirectRejected},
		{"308 should be rejected", 308, 0, false, errors.CodeRedirectRejected},
		{"declared size over limit should be rejected", 200, maxBytes + 1, false, errors.CodeSizeLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateUpstreamResponse(tt.statusCode, tt.contentLength, maxBytes)

			assert.Equal(t, tt.valid, result.Valid)
			if !tt.valid {
				assert.Equal(t, tt.code, result.Code)
				assert.NotEmpty(t, result.ErrorMessage)
			}
		})
	}
}
