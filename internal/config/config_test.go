package config

import (
	"log/slog"
	"testing"
	"time"
)

func TestLoadAPIFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("MONETY_STORE", "memory")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET", "abc")
	t.Setenv("MONETY_TOKEN_TTL", "2h")
	t.Setenv("MONETY_LOCK_TTL", "bogus")
	t.Setenv("MONETY_AUTO_MIGRATE", "false")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadAPIFromEnv()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9090" {
		t.Fatalf("addr got %q", cfg.Addr)
	}
	if cfg.TokenTTL != 2*time.Hour || cfg.LockTTL != 5*time.Second {
		t.Fatalf("durations got %s %s", cfg.TokenTTL, cfg.LockTTL)
	}
	if cfg.AutoMigrate || !cfg.SeedProducts {
		t.Fatalf("bools got migrate=%v seed=%v", cfg.AutoMigrate, cfg.SeedProducts)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Fatalf("log level got %s", cfg.LogLevel)
	}
}

func TestLoadAPIFromEnvRequired(t *testing.T) {
	tests := []struct {
		name  string
		store string
		db    string
		jwt   string
	}{
		{"postgres without url", "postgres", "", "abc"},
		{"missing secret", "memory", "", ""},
		{"unknown store", "sqlite", "", "abc"},
	}
	for _, tc := range tests {
		t.Setenv("PORT", "")
		t.Setenv("MONETY_STORE", tc.store)
		t.Setenv("DATABASE_URL", tc.db)
		t.Setenv("JWT_SECRET", tc.jwt)
		if _, err := LoadAPIFromEnv(); err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
}

func TestLoadWorkerFromEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/monety")
	t.Setenv("MONETY_PAYOUT_SCHEDULE", "")
	t.Setenv("MONETY_WORKER_RUN_ONCE", "true")
	cfg, err := LoadWorkerFromEnv()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.PayoutSchedule != "0 5 0 * * *" || !cfg.RunOnce || cfg.SettleEvery != time.Minute || cfg.PayoutBatch != 500 {
		t.Fatalf("unexpected config %+v", cfg)
	}

	t.Setenv("MONETY_PAYOUT_BATCH", "50")
	if cfg, _ := LoadWorkerFromEnv(); cfg.PayoutBatch != 50 {
		t.Fatalf("payout batch got %d want 50", cfg.PayoutBatch)
	}
	t.Setenv("MONETY_PAYOUT_BATCH", "-1")
	if cfg, _ := LoadWorkerFromEnv(); cfg.PayoutBatch != 500 {
		t.Fatalf("invalid payout batch must fall back, got %d", cfg.PayoutBatch)
	}
}

func TestLoadCLIFromEnv(t *testing.T) {
	t.Setenv("MONETY_API_BASE_URL", "https://api.monety.app/")
	if got := LoadCLIFromEnv().APIBaseURL; got != "https://api.monety.app" {
		t.Fatalf("base url got %q", got)
	}
}
