package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "brashlens-backend/docs"
	rcache "brashlens-backend/internal/cache/redis"
	"brashlens-backend/internal/common/cache"
	"brashlens-backend/internal/common/config"
	"brashlens-backend/internal/common/logger"
	apphttp "brashlens-backend/internal/http"
	"brashlens-backend/internal/metrics"
	"brashlens-backend/internal/platform/db"
	"brashlens-backend/internal/platform/postgres"
	redisplatform "brashlens-backend/internal/platform/redis"
	pgrepo "brashlens-backend/internal/repository/postgres"
	"brashlens-backend/internal/service/tasks"
	usersvc "brashlens-backend/internal/service/user"
)

// @title           BrashLens API
// @version         1.0
// @description     Backend of the BrashLens Telegram Mini App for photographers and their clients.

// @BasePath  /api/v1

// @securityDefinitions.apikey TelegramInitData
// @in header
// @name X-Telegram-Init-Data
// @description Telegram Mini App init data

// @tag.name users
// @tag.description Accounts of photographers and clients

// @tag.name health
// @tag.description Liveness and dependency checks

// @tag.name cache
// @tag.description Redis key-value cache

// @tag.name tasks
// @tag.description Background tasks

// @tag.name test
// @tag.description Database write check

func main() {
	cfg := config.MustLoad()
	logger.Init("api", cfg.Debug)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info().Bool("debug", cfg.Debug).Msg("Starting BrashLens API")

	if cfg.Postgres.AutoMigrate {
		if err := db.ApplyMigrations(ctx, cfg.Postgres.URL); err != nil {
			logger.Fatal().Err(err).Msg("Failed to apply migrations")
		}
		logger.Info().Msg("Migrations applied")
	}

	pg, err := postgres.NewClient(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pg.Close()

	rdb, err := redisplatform.OpenFromConfig(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	profiles := pgrepo.NewProfileRepository(pg.GetDB())
	users := usersvc.NewService(
		pgrepo.NewUserRepository(pg.GetDB(), profiles),
		rcache.NewUserCache(rdb, cfg.Cache.UserTTL),
	)

	registry := tasks.NewRegistry()
	tasks.RegisterBuiltins(registry)

	router := apphttp.NewRouter(apphttp.Options{
		Debug:              cfg.Debug,
		AllowedOrigins:     cfg.Server.Origins,
		BotToken:           cfg.Telegram.BotToken,
		InitDataTTL:        time.Duration(cfg.Server.InitDataTTL) * time.Second,
		RateLimitEnabled:   cfg.RateLimit.Enabled,
		RateLimitPerMinute: cfg.RateLimit.PerMinute,
		Users:              users,
		DB:                 pg,
		Cache:              cache.NewCacheService(rdb, cfg.Cache.DefaultTTL),
		Tasks:              tasks.NewDispatcher(rdb, registry, cfg.Tasks.ResultTTL),
		TestRecords:        pgrepo.NewTestRecordRepository(pg.GetDB()),
		Metrics:            metrics.New(),
	})

	server := &http.Server{
		Addr:         cfg.HTTPAddr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", server.Addr).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}
	logger.Info().Msg("Server exited")
}
