// Package gateway contains the upstream HTTP fetch layer. It is the only
// place the proxy opens outbound connections.
package gateway

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/pondpilot/cors-proxy/domain"
)

const userAgent = "pondpilot-cors-proxy/1.0"

// forwardedRequestHeaders are the client request headers relayed upstream.
// Range passes through verbatim so clients can do partial reads of large
// files.
var forwardedRequestHeaders = []string{
	"Range",
	"If-None-Match",
	"If-Modified-Since",
	"Accept",
}

// UpstreamGateway performs target fetches with redirect-following disabled.
// A 3xx from upstream is returned as-is for the response validator to
// reject; silently following it would bypass the URL validation that
// already happened.
type UpstreamGateway struct {
	client             *http.Client
	forwardCredentials bool
}

// NewUpstreamGateway builds the gateway and its HTTP client. The per-request
// deadline comes from the caller's context, not from a client-wide timeout.
func NewUpstreamGateway(cfg *domain.SecurityConfig) *UpstreamGateway {
	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &UpstreamGateway{
		client: &http.Client{
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		forwardCredentials: cfg.ForwardCredentials,
	}
}

// Fetch issues method (GET or HEAD) against target, forwarding the
// allowlisted client headers. The caller owns the response body.
func (g *UpstreamGateway) Fetch(ctx context.Context, method, target string, clientHeader http.Header) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create upstream request: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)
	for _, name := range forwardedRequestHeaders {
		if v := clientHeader.Get(name); v != "" {
			req.Header.Set(name, v)
		}
	}
	if g.forwardCredentials {
		if v := clientHeader.Get("Authorization"); v != "" {
			req.Header.Set("Authorization", v)
		}
	}

	return g.client.Do(req)
}
