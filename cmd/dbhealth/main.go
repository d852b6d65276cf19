package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/zivvlabs/token-triage/internal/common"
	"github.com/zivvlabs/token-triage/internal/repository"
)

// dbhealth connects with the configured DSN, pings, and reports pool stats.
// Useful for catching DSN/network issues before deploying the worker.
func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg, err := common.LoadConfig()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if cfg.Database.DSN == "" {
		logger.Error("DB_URL is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := repository.Open(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("open failed", "error", err)
		os.Exit(1)
	}
	defer repository.Close(pool, logger)

	if err := repository.HealthCheck(ctx, pool, cfg.Database.DialTimeout, logger); err != nil {
		logger.Error("ping failed", "error", err)
		os.Exit(1)
	}

	stats := pool.Stat()
	logger.Info("database healthy",
		"total_conns", stats.TotalConns(),
		"idle_conns", stats.IdleConns(),
		"max_conns", stats.MaxConns(),
	)
}
