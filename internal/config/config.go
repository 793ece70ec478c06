package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	Port        string
	Env         string
	DatabaseURL string // postgres; empty means sqlite
	SQLitePath  string
	RedisURL    string // optional; shared replay guard + rate limits

	// DefaultProjectID is granted to freshly registered agents so they
	// can poll out of the box.
	DefaultProjectID string

	// Replay guard sizing (in-memory guard only)
	NonceMaxEntries int
	NonceEvictBatch int

	// FreshnessWindow bounds clock drift on signed poll cursors.
	FreshnessWindow time.Duration
}

// Load reads configuration from environment variables.
// In development, it loads from .env file if present.
// In production, it panics on missing required variables.
func Load() *Config {
	// Load .env file if it exists (for development)
	_ = godotenv.Load()

	cfg := &Config{
		Port:             getEnv("PORT", "8080"),
		Env:              getEnv("ENV", "development"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		SQLitePath:       os.Getenv("SQLITE_PATH"),
		RedisURL:         os.Getenv("REDIS_URL"),
		DefaultProjectID: getEnv("DEFAULT_PROJECT_ID", "default"),
		NonceMaxEntries:  getEnvInt("NONCE_MAX_ENTRIES", 10000),
		NonceEvictBatch:  getEnvInt("NONCE_EVICT_BATCH", 1000),
		FreshnessWindow:  getEnvDuration("FRESHNESS_WINDOW", 5*time.Minute),
	}

	// In production, require a real database
	if cfg.Env == "production" && cfg.DatabaseURL == "" {
		panic("DATABASE_URL is required in production")
	}

	return cfg
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
