package telegram

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"brashlens-backend/internal/service/bot"
)

// HandlerFunc processes one event.
type HandlerFunc func(ctx context.Context, ev bot.Event) error

// RunPolling receives updates with long polling until ctx is cancelled.
func (c *Client) RunPolling(ctx context.Context, handle HandlerFunc) error {
	// A webhook left over from a previous deployment blocks getUpdates.
	if _, err := c.api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		c.log.Warn().Err(err).Msg("Failed to delete webhook before polling")
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := c.api.GetUpdatesChan(u)

	c.log.Info().Msg("Bot started in polling mode")
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			c.api.StopReceivingUpdates()
			c.log.Info().Msg("Polling stopped")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			c.dispatch(ctx, &wg, update, handle)
		}
	}
}

// RunWebhook registers webhookURL and serves updates on listen until ctx is cancelled.
func (c *Client) RunWebhook(ctx context.Context, webhookURL, listen string, handle HandlerFunc) error {
	wh, err := tgbotapi.NewWebhook(webhookURL)
	if err != nil {
		return err
	}
	if _, err := c.api.Request(wh); err != nil {
		return err
	}

	var wg sync.WaitGroup
	defer wg.Wait()

	router := gin.New()
	router.Use(gin.Recovery())
	router.POST("/*path", func(g *gin.Context) {
		update, err := c.api.HandleUpdate(g.Request)
		if err != nil {
			c.log.Warn().Err(err).Msg("Bad webhook payload")
			g.Status(http.StatusBadRequest)
			return
		}
		c.dispatch(ctx, &wg, *update, handle)
		g.Status(http.StatusOK)
	})

	srv := &http.Server{
		Addr:              listen,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		c.log.Info().Str("listen", listen).Str("webhook_url", webhookURL).Msg("Bot started in webhook mode")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (c *Client) dispatch(ctx context.Context, wg *sync.WaitGroup, update tgbotapi.Update, handle HandlerFunc) {
	ev, ok := ToEvent(update)
	if !ok {
		return
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer func() {
			if r := recover(); r != nil {
				c.log.Error().Interface("panic", r).Int64("user_id", ev.UserID).Msg("Panic while handling update")
			}
		}()
		if err := handle(ctx, ev); err != nil {
			c.log.Error().Err(err).Int64("user_id", ev.UserID).Msg("Failed to handle update")
		}
	}()
}
