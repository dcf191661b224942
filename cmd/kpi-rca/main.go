package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/netsentry/kpi-rca/internal/api"
	"github.com/netsentry/kpi-rca/internal/cache"
	"github.com/netsentry/kpi-rca/internal/config"
	"github.com/netsentry/kpi-rca/internal/engine"
	"github.com/netsentry/kpi-rca/internal/ingest"
	"github.com/netsentry/kpi-rca/internal/metrics"
	"github.com/netsentry/kpi-rca/internal/reasoning"
	"github.com/netsentry/kpi-rca/internal/utils"
)

func main() {
	var (
		configPath   string
		readingsPath string
		eventsPath   string
		noReasoning  bool
	)
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.StringVar(&readingsPath, "readings", "", "Path to KPI readings file (CSV)")
	flag.StringVar(&eventsPath, "events", "", "Path to fault events file (JSON or NDJSON)")
	flag.BoolVar(&noReasoning, "no-reasoning", false, "Skip the causal reasoning stage")
	flag.Parse()

	// Optional .env carries the reasoning API key in local setups.
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("path", configPath), slog.Any("error", err))
		os.Exit(1)
	}

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)

	if readingsPath == "" || eventsPath == "" {
		logger.Error("both -readings and -events are required")
		os.Exit(2)
	}

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("failed to register metrics", slog.Any("error", err))
		os.Exit(1)
	}

	var cacheProvider cache.Provider = cache.NoopProvider{}
	if cfg.Cache.Enabled && cfg.Cache.Addr != "" {
		provider, err := cache.NewRedisProvider(cache.RedisConfig{
			Addr:     cfg.Cache.Addr,
			Password: cfg.Cache.Password,
			DB:       cfg.Cache.DB,
		})
		if err != nil {
			logger.Warn("verdict cache unavailable", slog.Any("error", err))
		} else {
			cacheProvider = provider
			defer provider.Close()
		}
	}

	var evaluator engine.Evaluator
	if cfg.Reasoning.Enabled && !noReasoning {
		if cfg.Reasoning.APIKey == "" {
			logger.Warn("reasoning enabled but no API key configured; skipping reasoning stage")
		} else {
			evaluator = reasoning.NewClient(reasoning.Config{
				Model:       cfg.Reasoning.Model,
				BaseURL:     cfg.Reasoning.BaseURL,
				APIKey:      cfg.Reasoning.APIKey,
				Timeout:     cfg.Reasoning.Timeout,
				MaxAttempts: cfg.Reasoning.MaxAttempts,
				VerdictTTL:  cfg.Cache.VerdictTTL,
			}, cacheProvider, logger)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pipeline := engine.NewPipeline(logger, cfg, ingest.NewLoader(logger), evaluator)
	bundle, err := pipeline.Process(ctx, engine.Options{
		ReadingsPath: readingsPath,
		EventsPath:   eventsPath,
		Progress: func(done, total int) {
			logger.Debug("reasoning progress", slog.Int("done", done), slog.Int("total", total))
		},
	})
	if err != nil {
		logger.Error("batch failed", slog.String("kind", string(utils.KindOf(err))), slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("batch complete",
		slog.String("run_id", bundle.RunID),
		slog.Int("degradations", bundle.Summary.TotalDegradations),
		slog.Int("affected_nodes", bundle.Summary.AffectedNodes),
		slog.Int("correlated_events", bundle.Summary.TotalCorrelatedEvents),
		slog.Int("with_events", bundle.Summary.DegradationsWithEvents))
	for verdict, count := range bundle.Summary.Verdicts {
		logger.Info("verdict tally", slog.String("verdict", string(verdict)), slog.Int("count", count))
	}

	if cfg.Server.Address == "" {
		return
	}

	server, err := api.NewServer(cfg.Server, logger, &api.Results{
		Bundle:     bundle,
		Baselines:  pipeline.Baselines(),
		Statistics: pipeline.NodeStatistics(),
	})
	if err != nil {
		logger.Error("failed to create results server", slog.Any("error", err))
		os.Exit(1)
	}

	go func() {
		logger.Info("results server listening", slog.String("address", server.Address()))
		if serveErr := server.Start(); serveErr != nil {
			logger.Error("results server exited", slog.Any("error", serveErr))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()
	server.Shutdown(shutdownCtx)

	logger.Info("kpi-rca stopped")
}
