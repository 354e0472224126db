package app

import (
	"errors"
	"os"
	"strconv"
	"time"
)

type Config struct {
	ProviderURL       string // Required: identity provider base URL (e.g. https://auth.example.com)
	ProviderAnonKey   string // Required: provider publishable API key sent as the apikey header
	ProviderJWTSecret string // Required: shared secret for verifying provider HS256 access tokens

	CleanupWorkflowURL string // Optional: recovery workflow endpoint; empty disables cleanup dispatch

	DatabaseFile         string        // Optional: path to SQLite database file (default: ./provision.db)
	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)

	DetectionTimeout time.Duration // Per-attempt detection budget (default: 200ms)
	DetectionRetries int           // Detection attempts before failing closed (default: 3)
}

func LoadConfig() Config {
	return Config{
		ProviderURL:        os.Getenv("PROVIDER_URL"),
		ProviderAnonKey:    os.Getenv("PROVIDER_ANON_KEY"),
		ProviderJWTSecret:  os.Getenv("PROVIDER_JWT_SECRET"),
		CleanupWorkflowURL: os.Getenv("CLEANUP_WORKFLOW_URL"),

		DatabaseFile:         getEnvOrDefault("DATABASE_FILE", "provision.db"),
		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),

		DetectionTimeout: getEnvDurationOrDefault("DETECTION_TIMEOUT", 200*time.Millisecond),
		DetectionRetries: getEnvIntOrDefault("DETECTION_RETRIES", 3),
	}
}

// Validate reports the first missing required setting.
func (c Config) Validate() error {
	if c.ProviderURL == "" {
		return errors.New("PROVIDER_URL is required")
	}
	if c.ProviderAnonKey == "" {
		return errors.New("PROVIDER_ANON_KEY is required")
	}
	if c.ProviderJWTSecret == "" {
		return errors.New("PROVIDER_JWT_SECRET is required")
	}
	return nil
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
