package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/zivvlabs/token-triage/internal/common"
	"github.com/zivvlabs/token-triage/internal/llm/openai"
	"github.com/zivvlabs/token-triage/internal/onchain"
	"github.com/zivvlabs/token-triage/internal/ops"
	"github.com/zivvlabs/token-triage/internal/persist"
	"github.com/zivvlabs/token-triage/internal/pipeline"
	"github.com/zivvlabs/token-triage/internal/repository"
	"github.com/zivvlabs/token-triage/internal/worker"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := common.LoadConfig()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := repository.Open(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer repository.Close(pool, logger)

	if err := repository.HealthCheck(ctx, pool, cfg.Database.DialTimeout, logger); err != nil {
		logger.Error("database health check failed", "error", err)
		os.Exit(1)
	}
	if cfg.Database.RunMigrations {
		if err := repository.RunMigrations(pool, logger); err != nil {
			logger.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}
	}

	jobs := repository.NewJobRepository(pool, logger)
	tokens := repository.NewTokenRepository(pool, logger)
	results := repository.NewResultRepository(logger)
	display := repository.NewDisplayRepository(logger)

	classifier := openai.NewClient(openai.Config{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.SLMModel,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.SLMTimeout,
	}, logger)
	investigator := openai.NewClient(openai.Config{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.DeepModel,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.DeepTimeout,
	}, logger)

	var signals onchain.SignalSource
	detective := onchain.NewDetective(cfg.Onchain, logger)
	if detective.Enabled() {
		signals = detective
	} else {
		logger.Info("onchain signal collaborator disabled: no HELIUS_API_KEY")
	}

	proc := pipeline.NewProcessor(
		pipeline.NewFilterStage(&cfg.Filter, logger),
		pipeline.NewClassifyStage(classifier, logger),
		pipeline.NewDeepDiveStage(investigator, signals, logger),
		logger,
	)
	persister := persist.NewPersister(pool, jobs, results, display, cfg, logger)

	reg := prometheus.NewRegistry()
	metrics := ops.NewMetrics(reg)
	opsServer := ops.NewServer(cfg.Ops.Addr, pool, reg, logger)
	opsServer.Start()

	w := worker.New(jobs, tokens, proc, persister, &cfg.Worker, metrics, logger)
	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker exited", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	opsServer.Shutdown(shutdownCtx)
	logger.Info("shutdown complete")
}
