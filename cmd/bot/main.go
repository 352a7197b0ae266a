package main

import (
	"context"
	"os/signal"
	"syscall"

	rcache "brashlens-backend/internal/cache/redis"
	"brashlens-backend/internal/common/config"
	"brashlens-backend/internal/common/logger"
	"brashlens-backend/internal/metrics"
	"brashlens-backend/internal/platform/postgres"
	redisplatform "brashlens-backend/internal/platform/redis"
	"brashlens-backend/internal/platform/telegram"
	pgrepo "brashlens-backend/internal/repository/postgres"
	"brashlens-backend/internal/service/bot"
	usersvc "brashlens-backend/internal/service/user"
)

func main() {
	cfg := config.MustLoad()
	logger.Init("bot", cfg.Debug)

	if cfg.Telegram.BotToken == "" {
		logger.Fatal().Msg("TELEGRAM_BOT_TOKEN is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pg, err := postgres.NewClient(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pg.Close()

	// Кэш пользователей необязателен: без Redis бот работает напрямую с БД
	var users *usersvc.Service
	profiles := pgrepo.NewProfileRepository(pg.GetDB())
	repo := pgrepo.NewUserRepository(pg.GetDB(), profiles)
	rdb, err := redisplatform.OpenFromConfig(ctx, cfg)
	if err != nil {
		logger.Warn().Err(err).Msg("Redis unavailable, user cache disabled")
		users = usersvc.NewService(repo, nil)
	} else {
		defer rdb.Close()
		users = usersvc.NewService(repo, rcache.NewUserCache(rdb, cfg.Cache.UserTTL))
	}

	client, err := telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.Debug)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create Telegram client")
	}

	enabled, explicit := cfg.TestBotMode()
	testMode := bot.ResolveTestMode(ctx, enabled, explicit, client.Username)
	gate := bot.NewGate(testMode, cfg.Telegram.AllowedUserID)
	logger.Info().
		Bool("test_mode", testMode).
		Int64("allowed_user_id", cfg.Telegram.AllowedUserID).
		Msg("Access gate configured")

	m := metrics.New()
	go func() {
		if err := m.Serve(ctx, cfg.Metrics.Listen); err != nil {
			logger.Error().Err(err).Msg("Metrics server failed")
		}
	}()

	controller := bot.NewController(users, client, gate, m)

	if cfg.Telegram.WebhookURL != "" {
		err = client.RunWebhook(ctx, cfg.Telegram.WebhookURL, cfg.Telegram.WebhookListen, controller.Handle)
	} else {
		err = client.RunPolling(ctx, controller.Handle)
	}
	if err != nil {
		logger.Fatal().Err(err).Msg("Bot stopped with error")
	}
	logger.Info().Msg("Bot stopped")
}
