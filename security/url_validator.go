package security

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/pondpilot/cors-proxy/domain"
	"github.com/pondpilot/cors-proxy/utils/errors"
)

// ValidateTargetURL runs the full verdict chain for a candidate target URL.
// Checks short-circuit in a fixed order so error messages stay predictable:
// parse, protocol membership, HTTPS enforcement, SSRF guard, domain
// allowlist. The SSRF failure message stays generic and never reveals which
// blocked pattern matched.
func ValidateTargetURL(rawURL string, cfg *domain.SecurityConfig) domain.ValidationResult {
	target, err := url.Parse(rawURL)
	if err != nil || !target.IsAbs() || target.Host == "" {
		return domain.InvalidResult(errors.CodeValidation, "Invalid URL format")
	}

	scheme := strings.ToLower(target.Scheme)
	if !cfg.AllowedProtocols[scheme] {
		return domain.InvalidResult(errors.CodeValidation,
			fmt.Sprintf("Protocol '%s' is not allowed", scheme))
	}

	if cfg.HTTPSOnly && scheme != "https" {
		return domain.InvalidResult(errors.CodeValidation, "Only HTTPS URLs are allowed")
	}

	hostname := target.Hostname()
	if IsBlockedHost(hostname) {
		if !(cfg.AllowLoopbackForTesting && isLoopbackHost(hostname)) {
			return domain.InvalidResult(errors.CodeAddressBlocked,
				"Access to private/internal addresses is not allowed")
		}
	}

	if !cfg.AllowedDomains.MatchesAny(hostname) {
		return domain.InvalidResult(errors.CodeDomainNotAllowed,
			fmt.Sprintf("Domain '%s' is not in the allowlist", hostname))
	}

	return domain.ValidResult()
}
