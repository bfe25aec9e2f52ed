package config

import "time"

type Config interface {
	EnvConfig
	BackendConfig
	SessionConfig
	SecurityConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetBaseURL() string
	GetLogLevel() string
}

type BackendConfig interface {
	GetAPIURL() string
	GetGitHubClientID() string
	GetBackendTimeout() time.Duration
}

type mainConfig struct {
	EnvVars
	Backend
	Sessions
	Security
}

func New() Config {
	return mainConfig{}
}
