package rest

import (
	"net/http"
	"strings"
)

const proxyMarker = "pondpilot-cors-proxy"

// deniedUpstreamHeaders must never be forwarded to the client. Cookies would
// let the proxied origin set state on the proxy's own origin; the security
// policy headers would let it override the proxy's security posture.
var deniedUpstreamHeaders = map[string]struct{}{
	"Set-Cookie":                          {},
	"Set-Cookie2":                         {},
	"Content-Security-Policy":             {},
	"Content-Security-Policy-Report-Only": {},
	"X-Frame-Options":                     {},
	"Referrer-Policy":                     {},
	"Strict-Transport-Security":           {},
	"Permissions-Policy":                  {},
	"Cross-Origin-Opener-Policy":          {},
	"Cross-Origin-Embedder-Policy":        {},
	"Cross-Origin-Resource-Policy":        {},
	"Public-Key-Pins":                     {},
	"Clear-Site-Data":                     {},
	"Report-To":                           {},
	"NEL":                                 {},
}

// hopByHopHeaders are meaningful for one transport leg only (RFC 9110 §7.6.1)
// and are never forwarded by an intermediary.
var hopByHopHeaders = map[string]struct{}{
	"Connection":          {},
	"Keep-Alive":          {},
	"Proxy-Authenticate":  {},
	"Proxy-Authorization": {},
	"Proxy-Connection":    {},
	"TE":                  {},
	"Trailer":             {},
	"Transfer-Encoding":   {},
	"Upgrade":             {},
}

var exposedHeaders = []string{
	"Content-Length",
	"Content-Range",
	"Content-Type",
	"Content-Encoding",
	"Accept-Ranges",
	"ETag",
	"Last-Modified",
	"X-Request-ID",
}

var allowedRequestHeaders = []string{
	"Origin",
	"Accept",
	"Content-Type",
	"Authorization",
	"Range",
	"If-None-Match",
	"If-Modified-Since",
	"X-Request-ID",
}

// copyUpstreamHeaders forwards upstream response headers minus the denylist
// and hop-by-hop sets, also dropping anything named by the upstream
// Connection header.
func copyUpstreamHeaders(dst, src http.Header) {
	connectionScoped := map[string]struct{}{}
	for _, v := range src.Values("Connection") {
		for _, name := range strings.Split(v, ",") {
			if name = strings.TrimSpace(name); name != "" {
				connectionScoped[http.CanonicalHeaderKey(name)] = struct{}{}
			}
		}
	}

	for name, values := range src {
		canonical := http.CanonicalHeaderKey(name)
		if _, denied := deniedUpstreamHeaders[canonical]; denied {
			continue
		}
		if _, hop := hopByHopHeaders[canonical]; hop {
			continue
		}
		if _, scoped := connectionScoped[canonical]; scoped {
			continue
		}
		for _, v := range values {
			dst.Add(canonical, v)
		}
	}
}

// applyCORSHeaders sets the success-path CORS surface. The origin is echoed
// exactly, never `*`: credentialed requests require an exact origin match.
func applyCORSHeaders(h http.Header, origin string, allowCredentials bool) {
	h.Set("Access-Control-Allow-Origin", origin)
	h.Set("Access-Control-Allow-Methods", "GET, HEAD, OPTIONS")
	h.Set("Access-Control-Allow-Headers", strings.Join(allowedRequestHeaders, ", "))
	h.Set("Access-Control-Expose-Headers", strings.Join(exposedHeaders, ", "))
	if allowCredentials {
		h.Set("Access-Control-Allow-Credentials", "true")
	}
	h.Add("Vary", "Origin")
	h.Set("X-Proxy-By", proxyMarker)
}
