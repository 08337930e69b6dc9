package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the process-wide configuration.
//
// Loaded once at startup and passed to component constructors; never mutated
// afterwards.
type Config struct {
	// Addr is the address the HTTP server binds to
	Addr string

	// DatabaseURL selects the backing store; SQLite path or Postgres DSN
	DatabaseURL string

	// JWTSecret signs bearer tokens. Empty means a random secret is
	// generated at startup, invalidating all tokens on restart.
	JWTSecret string

	// TokenTTL is the validity duration of issued tokens
	TokenTTL time.Duration

	// InitialUsername and InitialPassword seed the first admin user when
	// the user table is empty. Either may be empty, in which case a value
	// is generated and logged once.
	InitialUsername string
	InitialPassword string

	// HitBuffer is the capacity of the page hit write queue
	HitBuffer int

	// LoginRatePerMinute limits token requests per client IP
	LoginRatePerMinute int
}

// Load reads configuration from the environment, with a .env file as
// fallback for local development
func Load() *Config {
	_ = godotenv.Load() // missing .env is fine

	return &Config{
		Addr:               getEnv("ADDRESS", ":8080"),
		DatabaseURL:        getEnv("DATABASE_URL", "shurly.db"),
		JWTSecret:          getEnv("JWT_SECRET", ""),
		TokenTTL:           getDuration("TOKEN_TTL", time.Hour),
		InitialUsername:    getEnv("INITIAL_USERNAME", ""),
		InitialPassword:    getEnv("INITIAL_PASSWORD", ""),
		HitBuffer:          getInt("HIT_BUFFER", 10000),
		LoginRatePerMinute: getInt("LOGIN_RATE_PER_MINUTE", 10),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}
