package bot

import (
	"context"
	"strings"
	"time"

	"brashlens-backend/internal/common/logger"
)

// Gate restricts a test deployment to a single Telegram user.
// It is configured once at startup and read-only afterwards.
type Gate struct {
	enabled   bool
	allowedID int64
}

// NewGate builds the gate. allowedID 0 means nobody is singled out and everyone passes.
func NewGate(enabled bool, allowedID int64) *Gate {
	return &Gate{enabled: enabled, allowedID: allowedID}
}

func (g *Gate) Enabled() bool { return g != nil && g.enabled }

// Allow reports whether userID may reach the conversation controller.
func (g *Gate) Allow(userID int64) bool {
	if !g.Enabled() || g.allowedID == 0 {
		return true
	}
	return userID == g.allowedID
}

// UsernameLookup returns the bot's own username.
type UsernameLookup func(ctx context.Context) (string, error)

// ResolveTestMode decides whether the gate is on. An explicit setting wins;
// otherwise the bot's username is checked for "test". Lookup failures disable the gate.
func ResolveTestMode(ctx context.Context, enabled, explicit bool, lookup UsernameLookup) bool {
	if explicit {
		return enabled
	}
	if lookup == nil {
		return false
	}

	lookupCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	username, err := lookup(lookupCtx)
	if err != nil {
		logger.Warn().Err(err).Msg("Could not detect bot mode, assuming production bot")
		return false
	}
	isTest := strings.Contains(strings.ToLower(username), "test")
	logger.Info().Str("bot_username", username).Bool("test_bot", isTest).Msg("Bot mode detected")
	return isTest
}
