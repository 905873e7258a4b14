// Package config loads process configuration from the environment so main
// stays lean. Every knob has a development default; production overrides via env.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config captures everything the server needs at startup.
type Config struct {
	Addr          string
	DatabaseURL   string
	JWTSigningKey string

	// CoreBaseURL is the external compliance/core service endpoint.
	CoreBaseURL string

	// UploadsDir is the root under which per-case report directories live.
	UploadsDir string

	// AutomateReview drives cases through auto-review instead of human sections.
	AutomateReview bool

	Redis RedisConfig

	// GSMACacheTTL bounds how long TAC lookups are served from cache.
	GSMACacheTTL time.Duration
}

// RedisConfig holds connection settings for the shared Redis client.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	return Config{
		Addr:           envOr("DRS_ADDR", ":8080"),
		DatabaseURL:    os.Getenv("DRS_DATABASE_URL"),
		JWTSigningKey:  envOr("DRS_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		CoreBaseURL:    envOr("DRS_CORE_BASE_URL", "http://localhost:5000/api/v2"),
		UploadsDir:     envOr("DRS_UPLOADS_DIR", "uploads"),
		AutomateReview: os.Getenv("DRS_AUTOMATE_REVIEW") == "true",
		GSMACacheTTL:   envDurationOr("DRS_GSMA_CACHE_TTL", 24*time.Hour),
		Redis: RedisConfig{
			URL:          os.Getenv("DRS_REDIS_URL"),
			PoolSize:     envIntOr("DRS_REDIS_POOL_SIZE", 10),
			MinIdleConns: envIntOr("DRS_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDurationOr("DRS_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDurationOr("DRS_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDurationOr("DRS_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
