package config

import (
	"strings"
	"time"
)

type Backend struct{}

var _ BackendConfig = Backend{}

// GetAPIURL returns the backend base URL without a trailing slash.
func (Backend) GetAPIURL() string {
	return strings.TrimRight(GetEnv("PLANTER_API_URL", "http://localhost:8080"), "/")
}

func (Backend) GetGitHubClientID() string {
	return GetEnv("GITHUB_CLIENT_ID", "")
}

func (Backend) GetBackendTimeout() time.Duration {
	return GetEnvDuration("BACKEND_TIMEOUT", 10*time.Second)
}
