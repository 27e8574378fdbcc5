package domain

import (
	"regexp"
	"sync"
	"time"
)

const (
	// DefaultMaxFileSizeMB caps proxied responses when MAX_FILE_SIZE_MB is unset.
	DefaultMaxFileSizeMB = 100

	// DefaultRequestTimeout bounds a single upstream fetch.
	DefaultRequestTimeout = 30 * time.Second

	// MB is the unit used for the configured size limit.
	MB = 1024 * 1024
)

// DefaultAllowedDomainPatterns is the built-in allowlist used when no
// ALLOWED_DOMAINS configuration is supplied, or when every supplied pattern
// is rejected during compilation. It covers the common public object-storage
// and CDN hosts that browser clients typically load data files from.
var DefaultAllowedDomainPatterns = []string{
	"*.s3.amazonaws.com",
	"*.s3.*.amazonaws.com",
	"s3.amazonaws.com",
	"s3.*.amazonaws.com",
	"*.cloudfront.net",
	"*.github.io",
	"raw.githubusercontent.com",
	"gist.githubusercontent.com",
	"objects.githubusercontent.com",
	"storage.googleapis.com",
	"*.storage.googleapis.com",
	"*.blob.core.windows.net",
	"data.*.com",
	"cdn.*.com",
	"download.*.com",
}

// DomainMatcher is a compiled hostname pattern. A `*` in the source pattern
// matches exactly one dot-free label: `*.example.com` matches
// `api.example.com` but never `a.b.example.com`.
type DomainMatcher struct {
	pattern string
	re      *regexp.Regexp
}

// NewDomainMatcher wraps a compiled regexp with its source pattern.
func NewDomainMatcher(pattern string, re *regexp.Regexp) DomainMatcher {
	return DomainMatcher{pattern: pattern, re: re}
}

// Pattern returns the textual pattern the matcher was compiled from.
func (m DomainMatcher) Pattern() string {
	return m.pattern
}

// Matches reports whether hostname satisfies the pattern.
func (m DomainMatcher) Matches(hostname string) bool {
	if m.re == nil {
		return false
	}
	return m.re.MatchString(hostname)
}

// MatcherSet holds the active domain allowlist. Reads vastly outnumber
// writes: the set is only replaced when the optional allowlist file is
// reloaded, so a RWMutex around a slice snapshot is sufficient.
type MatcherSet struct {
	mu       sync.RWMutex
	matchers []DomainMatcher
}

// NewMatcherSet creates a MatcherSet from an initial matcher slice.
func NewMatcherSet(matchers []DomainMatcher) *MatcherSet {
	return &MatcherSet{matchers: matchers}
}

// MatchesAny reports whether hostname matches at least one active matcher.
func (s *MatcherSet) MatchesAny(hostname string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, m := range s.matchers {
		if m.Matches(hostname) {
			return true
		}
	}
	return false
}

// Replace atomically swaps the active matcher slice. Empty replacements are
// ignored so the set can never become empty after initialization.
func (s *MatcherSet) Replace(matchers []DomainMatcher) {
	if len(matchers) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.matchers = matchers
}

// Patterns returns the source patterns of the active matchers.
func (s *MatcherSet) Patterns() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	patterns := make([]string, len(s.matchers))
	for i, m := range s.matchers {
		patterns[i] = m.Pattern()
	}
	return patterns
}

// Len returns the number of active matchers.
func (s *MatcherSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.matchers)
}

// SecurityConfig is the process-wide, read-only security policy. It is
// constructed once at startup from configuration and injected into every
// validator and handler; nothing mutates it after init (the MatcherSet has
// its own synchronization for allowlist-file reloads).
type SecurityConfig struct {
	AllowedDomains     *MatcherSet
	AllowedProtocols   map[string]bool
	HTTPSOnly          bool
	MaxFileSizeBytes   int64
	RequestTimeout     time.Duration
	ForwardCredentials bool

	// AllowLoopbackForTesting relaxes the private-address check for
	// loopback hosts so handlers can be exercised against httptest
	// servers. Never enabled in production configuration.
	AllowLoopbackForTesting bool
}

// ValidationResult is the verdict of a single validation call. An invalid
// result always carries a non-empty message plus the error-taxonomy code the
// front end maps onto an HTTP status.
type ValidationResult struct {
	Valid        bool
	ErrorMessage string
	Code         string
}

// ValidResult returns a passing verdict.
func ValidResult() ValidationResult {
	return ValidationResult{Valid: true}
}

// InvalidResult returns a failing verdict with the given code and message.
func InvalidResult(code, message string) ValidationResult {
	if message == "" {
		message = "validation failed"
	}
	return ValidationResult{Valid: false, ErrorMessage: message, Code: code}
}
