package security

import (
	"net"
	"strings"

	"golang.org/x/net/idna"
)

// blockedHostnames are rejected by exact match, case-insensitively. The list
// covers loopback aliases, cloud metadata endpoints and cluster-internal
// service names that must never be reachable through the proxy.
var blockedHostnames = map[string]struct{}{
	"localhost":                  {},
	"0.0.0.0":                    {},
	"metadata.google.internal":   {},
	"metadata.goog":              {},
	"instance-data":              {},
	"instance-data.ec2.internal": {},
	"kubernetes.default":         {},
	"kubernetes.default.svc":     {},
}

// blockedHostSuffixes reject cluster-internal and site-local name spaces.
var blockedHostSuffixes = []string{
	".localhost",
	".local",
	".internal",
	".intranet",
	".corp",
	".lan",
	".svc",
	".cluster.local",
}

// IsBlockedHost classifies a hostname or IP literal as private/internal.
// The decision is pure and operates on the string as it appears in the URL;
// no DNS resolution is performed. A hostname that resolves to a private IP
// but reads as a public domain passes this check; the redirect block and the
// domain allowlist are the layers that cover that gap.
func IsBlockedHost(hostname string) bool {
	if hostname == "" {
		return true
	}

	host := strings.ToLower(strings.TrimSuffix(hostname, "."))

	// Punycode-encoded forms must be judged on their ASCII representation.
	if ascii, err := idna.ToASCII(host); err == nil {
		host = ascii
	}

	if _, blocked := blockedHostnames[host]; blocked {
		return true
	}

	for _, suffix := range blockedHostSuffixes {
		if strings.HasSuffix(host, suffix) {
			return true
		}
	}

	if ip := net.ParseIP(host); ip != nil {
		return isPrivateOrDangerousIP(ip)
	}

	return false
}

// isPrivateOrDangerousIP reports whether the literal IP belongs to a range
// that must never be fetched: loopback, RFC1918 private, link-local (which
// hosts cloud metadata at 169.254.169.254), "this network", multicast,
// reserved/broadcast, and their IPv6 equivalents.
func isPrivateOrDangerousIP(ip net.IP) bool {
	if ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() {
		return true
	}
	if ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsMulticast() {
		return true
	}

	if ipv4 := ip.To4(); ipv4 != nil {
		// 0.0.0.0/8 "this network"
		if ipv4[0] == 0 {
			return true
		}
		// 240.0.0.0/4 reserved, which includes 255.255.255.255 broadcast
		if ipv4[0] >= 240 {
			return true
		}
		return false
	}

	// fc00::/7 unique-local
	if len(ip) == net.IPv6len && (ip[0]&0xfe) == 0xfc {
		return true
	}

	return false
}

// isLoopbackHost is the test-mode escape hatch check: it matches only the
// loopback spellings that httptest servers bind to.
func isLoopbackHost(hostname string) bool {
	host := strings.ToLower(hostname)
	if host == "localhost" || host == "::1" {
		return true
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback()
	}
	return false
}
