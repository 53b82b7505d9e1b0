package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type APIConfig struct {
	Addr         string
	Store        string
	DatabaseURL  string
	JWTSecret    string
	TokenTTL     time.Duration
	RedisURL     string
	LockTTL      time.Duration
	AutoMigrate  bool
	SeedProducts bool
	LogLevel     slog.Level
}

type WorkerConfig struct {
	DatabaseURL    string
	PayoutSchedule string
	SettleEvery    time.Duration
	PayoutBatch    int
	RunOnce        bool
	LogLevel       slog.Level
}

type CLIConfig struct {
	APIBaseURL string
}

// LoadDotEnv reads .env from the working directory when present. Variables
// already set in the environment win.
func LoadDotEnv() {
	_ = godotenv.Load()
}

func LoadAPIFromEnv() (APIConfig, error) {
	addr := os.Getenv("PORT")
	if addr != "" {
		if !strings.HasPrefix(addr, ":") {
			addr = ":" + addr
		}
	} else {
		addr = envDefault("MONETY_API_ADDR", ":8080")
	}

	cfg := APIConfig{
		Addr:         addr,
		Store:        strings.ToLower(envDefault("MONETY_STORE", "postgres")),
		DatabaseURL:  strings.TrimSpace(os.Getenv("DATABASE_URL")),
		JWTSecret:    strings.TrimSpace(os.Getenv("JWT_SECRET")),
		TokenTTL:     envDurationDefault("MONETY_TOKEN_TTL", 168*time.Hour),
		RedisURL:     strings.TrimSpace(os.Getenv("REDIS_URL")),
		LockTTL:      envDurationDefault("MONETY_LOCK_TTL", 5*time.Second),
		AutoMigrate:  envBoolDefault("MONETY_AUTO_MIGRATE", true),
		SeedProducts: envBoolDefault("MONETY_SEED_PRODUCTS", true),
		LogLevel:     envLevelDefault("LOG_LEVEL", slog.LevelInfo),
	}
	switch cfg.Store {
	case "postgres":
		if cfg.DatabaseURL == "" {
			return cfg, fmt.Errorf("DATABASE_URL is required")
		}
	case "memory":
	default:
		return cfg, fmt.Errorf("MONETY_STORE must be postgres or memory, got %q", cfg.Store)
	}
	if cfg.JWTSecret == "" {
		return cfg, fmt.Errorf("JWT_SECRET is required")
	}
	return cfg, nil
}

func LoadWorkerFromEnv() (WorkerConfig, error) {
	cfg := WorkerConfig{
		DatabaseURL:    strings.TrimSpace(os.Getenv("DATABASE_URL")),
		PayoutSchedule: envDefault("MONETY_PAYOUT_SCHEDULE", "0 5 0 * * *"),
		SettleEvery:    envDurationDefault("MONETY_SETTLE_EVERY", time.Minute),
		PayoutBatch:    envIntDefault("MONETY_PAYOUT_BATCH", 500),
		RunOnce:        envBoolDefault("MONETY_WORKER_RUN_ONCE", false),
		LogLevel:       envLevelDefault("LOG_LEVEL", slog.LevelInfo),
	}
	if cfg.DatabaseURL == "" {
		return cfg, fmt.Errorf("DATABASE_URL is required")
	}
	return cfg, nil
}

func LoadCLIFromEnv() CLIConfig {
	return CLIConfig{
		APIBaseURL: strings.TrimRight(envDefault("MONETY_API_BASE_URL", "http://localhost:8080"), "/"),
	}
}

func envDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envDurationDefault(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func envIntDefault(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func envBoolDefault(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func envLevelDefault(key string, fallback slog.Level) slog.Level {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(v)); err != nil {
		return fallback
	}
	return lvl
}
