package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"brashlens-backend/internal/common/logger"
)

// DefaultTTL is used when Set is called with a non-positive ttl.
const DefaultTTL = time.Hour

// KeyPrefix отделяет ключи этого кэша от служебных (user:tg:*, task:*).
const KeyPrefix = "kv:"

// CacheService is a JSON key-value cache over Redis.
// Every Redis failure is logged and reported as a miss or false; callers never see it.
// Keys are stored under KeyPrefix.
type CacheService struct {
	redisClient redis.Cmdable
	defaultTTL  time.Duration
}

func NewCacheService(redisClient redis.Cmdable, defaultTTL time.Duration) *CacheService {
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}
	return &CacheService{
		redisClient: redisClient,
		defaultTTL:  defaultTTL,
	}
}

func (c *CacheService) key(k string) string { return KeyPrefix + k }

// Ping reports whether Redis answers.
func (c *CacheService) Ping(ctx context.Context) bool {
	if err := c.redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn().Err(err).Msg("Redis ping failed")
		return false
	}
	return true
}

// Get декодирует значение в dest. Возвращает false при промахе или ошибке.
func (c *CacheService) Get(ctx context.Context, key string, dest interface{}) bool {
	data, err := c.redisClient.Get(ctx, c.key(key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Warn().Err(err).Str("key", key).Msg("Cache get failed")
		}
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		logger.Warn().Err(err).Str("key", key).Msg("Cache value is not valid JSON")
		return false
	}
	return true
}

// Set сохраняет значение в кэш
func (c *CacheService) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) bool {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	data, err := json.Marshal(value)
	if err != nil {
		logger.Warn().Err(err).Str("key", key).Msg("Cache value marshal failed")
		return false
	}
	if err := c.redisClient.Set(ctx, c.key(key), data, ttl).Err(); err != nil {
		logger.Warn().Err(err).Str("key", key).Msg("Cache set failed")
		return false
	}
	return true
}

// Delete удаляет значение из кэша
func (c *CacheService) Delete(ctx context.Context, key string) bool {
	if err := c.redisClient.Del(ctx, c.key(key)).Err(); err != nil {
		logger.Warn().Err(err).Str("key", key).Msg("Cache delete failed")
		return false
	}
	return true
}

// TTL returns the remaining lifetime of key, or zero when it has none or Redis fails.
func (c *CacheService) TTL(ctx context.Context, key string) time.Duration {
	d, err := c.redisClient.TTL(ctx, c.key(key)).Result()
	if err != nil || d < 0 {
		return 0
	}
	return d
}
