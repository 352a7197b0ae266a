package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	initdata "github.com/telegram-mini-apps/init-data-golang"

	"brashlens-backend/internal/common/errors"
)

const (
	InitDataHeader = "X-Telegram-Init-Data"
	initDataUser   = "tg_user"
)

// TelegramInitData проверяет подпись Mini App init data, если она пришла.
// Запрос без init data пропускается: обработчик сам решает, нужна ли она.
func TelegramInitData(botToken string, expIn time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(InitDataHeader)
		if raw == "" {
			c.Next()
			return
		}

		if botToken == "" {
			_ = c.Error(errors.New(errors.ErrCodeInternal, "Init data validation is not configured"))
			c.Abort()
			return
		}

		if err := initdata.Validate(raw, botToken, expIn); err != nil {
			_ = c.Error(errors.Wrap(err, errors.ErrCodeUnauthorized, "Invalid init data"))
			c.Abort()
			return
		}

		parsed, err := initdata.Parse(raw)
		if err != nil || parsed.User.ID == 0 {
			_ = c.Error(errors.New(errors.ErrCodeUnauthorized, "Init data carries no user"))
			c.Abort()
			return
		}

		c.Set(initDataUser, parsed.User)
		c.Next()
	}
}

// TelegramUser возвращает пользователя из проверенной init data.
func TelegramUser(c *gin.Context) (initdata.User, bool) {
	v, ok := c.Get(initDataUser)
	if !ok {
		return initdata.User{}, false
	}
	u, ok := v.(initdata.User)
	return u, ok
}
