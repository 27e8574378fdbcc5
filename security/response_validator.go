package security

import (
	"fmt"

	"github.com/pondpilot/cors-proxy/domain"
	"github.com/pondpilot/cors-proxy/utils/errors"
)

// ValidateUpstreamResponse checks an upstream response before any body byte
// is relayed. contentLength follows http.Response semantics: -1 means the
// upstream declared no Content-Length, which is accepted here because the
// streaming enforcer still caps the actual transfer.
//
// Redirect statuses are rejected outright. The upstream client never follows
// redirects, so a 3xx arriving here is the raw redirect response; following
// it silently would reopen the SSRF hole the validator chain exists to close.
func ValidateUpstreamResponse(statusCode int, contentLength int64, maxBytes int64) domain.ValidationResult {
	if statusCode >= 300 && statusCode < 400 {
		return domain.InvalidResult(errors.CodeRedirectRejected, "Redirects are not supported")
	}

	if contentLength >= 0 && contentLength > maxBytes {
		return domain.InvalidResult(errors.CodeSizeLimit, fmt.Sprintf(
			"Response size %d bytes exceeds the limit of %d bytes", contentLength, maxBytes))
	}

	return domain.ValidResult()
}
