package app

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	BaseURL string // Required: eClinic API base URL

	Env       string        // Environment (dev, staging, prod) (default: dev)
	LogLevel  string        // Log level (debug, info, warn, error) (default: info)
	LogFormat string        // Log format (json, text) (default: text)
	Timeout   time.Duration // Per-request timeout (default: 10s)

	TokenBackend string // Credential storage backend (memory, redis) (default: memory)
	RedisAddr    string // Redis address when TokenBackend=redis (default: localhost:6379)
	RedisKey     string // Redis key for the credential (default: accessToken)

	RefreshPerMinute int // Cap on refresh-token exchanges (default: 30)
}

func LoadConfig() Config {
	return Config{
		BaseURL:          os.Getenv("ECLINIC_BASE_URL"),
		Env:              getEnvOrDefault("ENV", "dev"),
		LogLevel:         getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:        getEnvOrDefault("LOG_FORMAT", "text"),
		Timeout:          getEnvDurationOrDefault("ECLINIC_TIMEOUT", 10*time.Second),
		TokenBackend:     getEnvOrDefault("ECLINIC_TOKEN_BACKEND", "memory"),
		RedisAddr:        getEnvOrDefault("ECLINIC_REDIS_ADDR", "localhost:6379"),
		RedisKey:         getEnvOrDefault("ECLINIC_REDIS_KEY", ""),
		RefreshPerMinute: getEnvIntOrDefault("ECLINIC_REFRESH_PER_MINUTE", 0),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}
	return defaultValue
}
