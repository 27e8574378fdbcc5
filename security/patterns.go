// Package security implements the shared validation core of the proxy:
// domain-pattern compilation, the SSRF guard, target-URL validation and
// upstream-response validation. It has no dependency on the hosting HTTP
// framework so both the handlers and their tests can drive it directly.
package security

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pondpilot/cors-proxy/domain"
	"github.com/pondpilot/cors-proxy/utils/logger"
)

const (
	maxPatternLength = 100
	maxWildcards     = 3
)

// ParseAllowedDomains compiles a comma-separated domain-pattern string into
// matchers. Segments failing the complexity limits are skipped with a
// warning. If nothing survives (including the empty string), the built-in
// default set is returned, so the result is never empty.
func ParseAllowedDomains(patternsCsv string) []domain.DomainMatcher {
	var matchers []domain.DomainMatcher

	for _, segment := range strings.Split(patternsCsv, ",") {
		pattern := strings.TrimSpace(segment)
		if pattern == "" {
			continue
		}

		matcher, err := compilePattern(pattern)
		if err != nil {
			logger.Logger.Warn("skipping invalid domain pattern", "pattern", pattern, "reason", err.Error())
			continue
		}
		matchers = append(matchers, matcher)
	}

	if len(matchers) == 0 {
		return defaultMatchers()
	}
	return matchers
}

// compilePattern validates one pattern and compiles it to an anchored,
// case-insensitive matcher. Every regex metacharacter except `*` is escaped;
// `*` becomes a single-label wildcard that cannot cross a dot boundary.
func compilePattern(pattern string) (domain.DomainMatcher, error) {
	if len(pattern) > maxPatternLength {
		return domain.DomainMatcher{}, fmt.Errorf("pattern exceeds %d characters", maxPatternLength)
	}

	wildcards := strings.Count(pattern, "*")
	if wildcards > maxWildcards {
		return domain.DomainMatcher{}, fmt.Errorf("pattern has %d wildcards (max %d)", wildcards, maxWildcards)
	}

	// Consecutive wildcard labels compile to nested unbounded repetition,
	// which is the classic ReDoS shape. Reject rather than compile.
	if strings.Contains(pattern, "*.*") || strings.Contains(pattern, "**") {
		return domain.DomainMatcher{}, fmt.Errorf("consecutive wildcard labels not allowed")
	}

	expr := regexp.QuoteMeta(pattern)
	expr = strings.ReplaceAll(expr, `\*`, `[^.]+`)

	re, err := regexp.Compile(`(?i)^` + expr + `$`)
	if err != nil {
		return domain.DomainMatcher{}, fmt.Errorf("pattern does not compile: %w", err)
	}

	return domain.NewDomainMatcher(pattern, re), nil
}

func defaultMatchers() []domain.DomainMatcher {
	matchers := make([]domain.DomainMatcher, 0, len(domain.DefaultAllowedDomainPatterns))
	for _, pattern := range domain.DefaultAllowedDomainPatterns {
		matcher, err := compilePattern(pattern)
		if err != nil {
			// Defaults are fixed strings; a failure here is a programming error.
			panic(fmt.Sprintf("default domain pattern %q does not compile: %v", pattern, err))
		}
		matchers = append(matchers, matcher)
	}
	return matchers
}
