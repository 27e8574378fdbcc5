package rest

// HealthResponse is the body served on the liveness endpoint.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// InfoResponse describes the active proxy policy. Only non-secret
// configuration appears here; it is what a browser client needs to decide
// whether a target is worth attempting.
type InfoResponse struct {
	Service               string   `json:"service"`
	Version               string   `json:"version"`
	AllowedOrigins        []string `json:"allowed_origins"`
	AllowedDomainPatterns []string `json:"allowed_domain_patterns"`
	AllowedProtocols      []string `json:"allowed_protocols"`
	HTTPSOnly             bool     `json:"https_only"`
	MaxFileSizeMB         int      `json:"max_file_size_mb"`
	RequestTimeout        string   `json:"request_timeout"`
	RateLimitEnabled      bool     `json:"rate_limit_enabled"`
	RateLimitPerWindow    int      `json:"rate_limit_per_window,omitempty"`
	RateLimitWindow       string   `json:"rate_limit_window,omitempty"`
}
