package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"monety/internal/api"
	"monety/internal/auth"
	"monety/internal/config"
	"monety/internal/db"
	"monety/internal/invest"
	"monety/internal/metrics"
	"monety/internal/store/memstore"
	"monety/internal/store/pgstore"
	"monety/internal/userlock"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	config.LoadDotEnv()
	cfg, err := config.LoadAPIFromEnv()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))

	var store invest.Store
	switch cfg.Store {
	case "memory":
		logger.Warn("using in-memory store, data is lost on restart")
		store = memstore.New()
	default:
		pool, err := db.Connect(ctx, cfg.DatabaseURL, db.PoolOptions{})
		if err != nil {
			logger.Error("db connect failed", "err", err)
			os.Exit(1)
		}
		defer pool.Close()
		if cfg.AutoMigrate {
			if err := db.Migrate(ctx, pool); err != nil {
				logger.Error("migrate failed", "err", err)
				os.Exit(1)
			}
		}
		store = pgstore.New(pool)
	}

	var locks userlock.Locker = userlock.Noop{}
	if cfg.RedisURL != "" {
		rdb, err := userlock.Connect(ctx, cfg.RedisURL)
		if err != nil {
			logger.Error("redis connect failed", "err", err)
			os.Exit(1)
		}
		defer rdb.Close()
		locks = userlock.NewRedis(rdb, cfg.LockTTL)
	}

	tokens, err := auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		logger.Error("token issuer init failed", "err", err)
		os.Exit(1)
	}

	svc := invest.NewService(store, auth.BcryptHasher{}, logger,
		invest.WithNotifier(metrics.Notifier{Next: invest.LogNotifier{Log: logger}}),
	)
	if cfg.SeedProducts {
		if err := svc.SeedProducts(ctx); err != nil {
			logger.Error("seed products failed", "err", err)
			os.Exit(1)
		}
	}

	server := api.New(logger, tokens, svc, locks)
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info("monety api listening", "addr", cfg.Addr, "store", cfg.Store, "redis_lock", cfg.RedisURL != "")
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed", "err", err)
		os.Exit(1)
	}
}
