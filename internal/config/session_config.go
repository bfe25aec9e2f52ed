package config

import "time"

const (
	SessionBackendMemory = "memory"
	SessionBackendRedis  = "redis"
)

type SessionConfig interface {
	GetSessionBackend() string
	GetRedisAddr() string
	GetRedisPassword() string
	GetSessionSecret() string
	GetMaxSessionAge() time.Duration
}

type Sessions struct{}

var _ SessionConfig = Sessions{}

func (Sessions) GetSessionBackend() string {
	return GetEnv("SESSION_BACKEND", SessionBackendMemory)
}

func (Sessions) GetRedisAddr() string {
	return GetEnv("REDIS_ADDR", "localhost:6379")
}

func (Sessions) GetRedisPassword() string {
	return GetEnv("REDIS_PASSWORD", "")
}

// GetSessionSecret returns the passphrase used to seal stored values. Empty disables sealing.
func (Sessions) GetSessionSecret() string {
	return GetEnv("SESSION_SECRET", "")
}

func (Sessions) GetMaxSessionAge() time.Duration {
	return GetEnvDuration("SESSION_MAX_AGE", 7*24*time.Hour)
}
