package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"brashlens-backend/internal/common/errors"
)

// RateLimit ограничивает число запросов с одного IP за минуту.
func RateLimit(perMinute int64) gin.HandlerFunc {
	rate := limiter.Rate{Period: time.Minute, Limit: perMinute}
	instance := limiter.New(memory.NewStore(), rate)

	return mgin.NewMiddleware(instance,
		mgin.WithLimitReachedHandler(func(c *gin.Context) {
			sendErrorResponse(c, errors.New(errors.ErrCodeTooManyRequests, "Rate limit exceeded").
				WithDetail("limit_per_minute", perMinute))
		}),
		mgin.WithKeyGetter(func(c *gin.Context) string {
			return c.ClientIP()
		}),
	)
}
