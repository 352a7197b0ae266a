package main

import (
	"context"
	"os/signal"
	"syscall"

	"brashlens-backend/internal/common/config"
	"brashlens-backend/internal/common/logger"
	"brashlens-backend/internal/metrics"
	redisplatform "brashlens-backend/internal/platform/redis"
	"brashlens-backend/internal/service/tasks"
	"brashlens-backend/internal/workers"
)

func main() {
	cfg := config.MustLoad()
	logger.Init("worker", cfg.Debug)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rdb, err := redisplatform.OpenFromConfig(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	registry := tasks.NewRegistry()
	tasks.RegisterBuiltins(registry)

	m := metrics.New()
	go func() {
		if err := m.Serve(ctx, cfg.Metrics.Listen); err != nil {
			logger.Error().Err(err).Msg("Metrics server failed")
		}
	}()

	worker := workers.NewTaskWorker(rdb, registry, tasks.NewDispatcher(rdb, registry, cfg.Tasks.ResultTTL), m, workers.Options{
		Consumer:      cfg.Tasks.WorkerName,
		TimeLimit:     cfg.Tasks.TimeLimit,
		SoftTimeLimit: cfg.Tasks.SoftTimeLimit,
	})
	if err := worker.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Task worker failed")
	}
	logger.Info().Msg("Worker stopped")
}
