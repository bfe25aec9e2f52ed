package config

type SecurityConfig interface {
	GetEnableRateLimiting() bool
	GetRateLimitPerMinute() int
	GetTrustProxyHeaders() bool
}

type Security struct{}

var _ SecurityConfig = Security{}

func (Security) GetEnableRateLimiting() bool {
	return Security{}.GetRateLimitPerMinute() > 0
}

// GetRateLimitPerMinute returns the per-client request budget. Zero or less disables limiting.
func (Security) GetRateLimitPerMinute() int {
	return GetEnvInt("RATE_LIMIT_PER_MINUTE", 120)
}

// GetTrustProxyHeaders reports whether X-Forwarded-For is set by a trusted reverse proxy.
// Only then is it used to identify clients.
func (Security) GetTrustProxyHeaders() bool {
	return GetEnv("TRUST_PROXY_HEADERS", "false") == "true"
}
