package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port     string
	Env      string
	LogLevel string

	// Database
	DatabaseURL   string
	MigrationsDir string

	// Redis
	RedisURL string

	// NATS (optional, events are dropped when empty)
	NATSURL string

	// JWT
	JWTSecret string

	// Progress tracking
	ProgressDebounce        time.Duration
	CompletionThreshold     float64
	ProgressRateLimitPerMin int
	ProgressCacheTTL        time.Duration
	ProgressCachePruneSpec  string

	// Lesson reconciliation
	CourseLockTTL time.Duration

	// Frontend
	FrontendURL string
}

const (
	defaultDebounceMS          = 5000
	defaultCompletionThreshold = 0.90
)

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:          getEnvOrDefault("PORT", "8080"),
		Env:           getEnvOrDefault("ENV", "development"),
		LogLevel:      getEnvOrDefault("LOG_LEVEL", "info"),
		DatabaseURL:   mustGetEnv("DATABASE_URL"),
		MigrationsDir: getEnvOrDefault("MIGRATIONS_DIR", "migrations"),
		RedisURL:      mustGetEnv("REDIS_URL"),
		NATSURL:       getEnvOrDefault("NATS_URL", ""),
		JWTSecret:     mustGetEnv("JWT_SECRET"),

		ProgressDebounce:        time.Duration(getEnvAsIntOrDefault("PROGRESS_DEBOUNCE_MS", defaultDebounceMS)) * time.Millisecond,
		CompletionThreshold:     completionThreshold(getEnvAsFloatOrDefault("COMPLETION_THRESHOLD", defaultCompletionThreshold)),
		ProgressRateLimitPerMin: getEnvAsIntOrDefault("PROGRESS_RATE_LIMIT_PER_MIN", 120),
		ProgressCacheTTL:        time.Duration(getEnvAsIntOrDefault("PROGRESS_CACHE_TTL_MINUTES", 30)) * time.Minute,
		ProgressCachePruneSpec:  getEnvOrDefault("PROGRESS_CACHE_PRUNE_SCHEDULE", "@every 5m"),

		CourseLockTTL: time.Duration(getEnvAsIntOrDefault("COURSE_LOCK_TTL_SECONDS", 60)) * time.Second,

		FrontendURL: getEnvOrDefault("FRONTEND_URL", "http://localhost:5173"),
	}

	if cfg.ProgressRateLimitPerMin <= 0 {
		cfg.ProgressRateLimitPerMin = 120
	}
	if cfg.ProgressDebounce <= 0 {
		cfg.ProgressDebounce = defaultDebounceMS * time.Millisecond
	}

	return cfg
}

// completionThreshold keeps the watch ratio threshold inside (0, 1].
func completionThreshold(v float64) float64 {
	if v <= 0 || v > 1 {
		return defaultCompletionThreshold
	}
	return v
}

func mustGetEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", key))
	}
	return val
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

func getEnvAsFloatOrDefault(key string, defaultVal float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return defaultVal
	}
	return f
}
