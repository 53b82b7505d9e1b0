package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"monety/internal/config"
	"monety/internal/db"
	"monety/internal/invest"
	"monety/internal/metrics"
	"monety/internal/store/pgstore"

	"github.com/robfig/cron"
)

// settleGrace keeps the sweep away from cascades still running inline in
// the API request that created them.
const settleGrace = 30 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	config.LoadDotEnv()
	cfg, err := config.LoadWorkerFromEnv()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	pool, err := db.Connect(ctx, cfg.DatabaseURL, db.PoolOptions{MaxConns: 4, MinConns: 1})
	if err != nil {
		logger.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	svc := invest.NewService(pgstore.New(pool), nil, logger,
		invest.WithNotifier(metrics.Notifier{Next: invest.LogNotifier{Log: logger}}),
		invest.WithPayoutBatchSize(cfg.PayoutBatch),
	)

	payout := func() {
		report, err := svc.RunDailyPayout(ctx)
		metrics.ObservePayout(report.Paid, report.Completed, report.Failed)
		if err != nil {
			logger.Error("daily payout failed", "err", err)
		}
	}
	settle := func() {
		report, err := svc.SettleCommissions(ctx, time.Now().Add(-settleGrace))
		metrics.ObserveSettle(report.Settled, report.Failed)
		if err != nil {
			logger.Error("commission sweep failed", "err", err)
		}
	}

	if cfg.RunOnce {
		settle()
		payout()
		logger.Info("worker run-once completed")
		return
	}

	c := cron.NewWithLocation(invest.CivilZone)
	if err := c.AddFunc(cfg.PayoutSchedule, payout); err != nil {
		logger.Error("invalid payout schedule", "schedule", cfg.PayoutSchedule, "err", err)
		os.Exit(1)
	}
	c.Start()
	defer c.Stop()

	ticker := time.NewTicker(cfg.SettleEvery)
	defer ticker.Stop()

	logger.Info("worker started", "payout_schedule", cfg.PayoutSchedule, "settle_every", cfg.SettleEvery.String())
	for {
		select {
		case <-ctx.Done():
			logger.Info("worker shutdown")
			return
		case <-ticker.C:
			settle()
		}
	}
}
