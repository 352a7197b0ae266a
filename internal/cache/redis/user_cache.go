package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	domain "brashlens-backend/internal/domain/user"
	rplatform "brashlens-backend/internal/platform/redis"
)

// UserCache provides Redis-based caching for users keyed by Telegram ID.
type UserCache struct {
	client *rplatform.Client
	ttl    time.Duration
}

var _ domain.Cache = (*UserCache)(nil)

func NewUserCache(client *rplatform.Client, ttl time.Duration) *UserCache {
	return &UserCache{client: client, ttl: ttl}
}

func (c *UserCache) keyByTelegramID(id int64) string { return fmt.Sprintf("user:tg:%d", id) }

func (c *UserCache) versionKey(id int64) string { return fmt.Sprintf("user:tg:%d:ver", id) }

// versionTTL только ограничивает мусор от удалённых аккаунтов,
// должен быть намного больше длительности одного запроса.
const versionTTL = 24 * time.Hour

// Version returns the current entry version, zero when none was recorded.
func (c *UserCache) Version(ctx context.Context, telegramID int64) (int64, error) {
	v, err := c.client.Get(ctx, c.versionKey(telegramID)).Int64()
	if errors.Is(err, goredis.Nil) {
		return 0, nil
	}
	return v, err
}

// Set stores the user under its Telegram ID if the version is still current.
func (c *UserCache) Set(ctx context.Context, u *domain.User, version int64) error {
	b, err := json.Marshal(u)
	if err != nil {
		return err
	}
	key := c.keyByTelegramID(u.TelegramID)
	verKey := c.versionKey(u.TelegramID)

	err = c.client.Watch(ctx, func(tx *goredis.Tx) error {
		cur, err := tx.Get(ctx, verKey).Int64()
		if err != nil && !errors.Is(err, goredis.Nil) {
			return err
		}
		if cur != version {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(p goredis.Pipeliner) error {
			p.Set(ctx, key, b, c.ttl)
			return nil
		})
		return err
	}, verKey)
	// версию сменили между WATCH и EXEC: кэшировать нечего
	if errors.Is(err, goredis.TxFailedErr) {
		return nil
	}
	return err
}

// Get returns the cached user, or nil on a miss.
func (c *UserCache) Get(ctx context.Context, telegramID int64) (*domain.User, error) {
	v, err := c.client.Get(ctx, c.keyByTelegramID(telegramID)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var u domain.User
	if err := json.Unmarshal(v, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Invalidate removes the cached entry and bumps its version.
func (c *UserCache) Invalidate(ctx context.Context, u *domain.User) error {
	verKey := c.versionKey(u.TelegramID)
	_, err := c.client.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.Incr(ctx, verKey)
		p.Expire(ctx, verKey, versionTTL)
		p.Del(ctx, c.keyByTelegramID(u.TelegramID))
		return nil
	})
	return err
}
