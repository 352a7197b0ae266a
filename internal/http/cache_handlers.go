package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"brashlens-backend/internal/common/errors"
)

// KeyValueCache is the generic cache behind the /cache endpoints.
type KeyValueCache interface {
	Pinger
	Get(ctx context.Context, key string, dest interface{}) bool
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) bool
}

type CacheHandler struct {
	cache KeyValueCache
}

func NewCacheHandler(cache KeyValueCache) *CacheHandler {
	return &CacheHandler{cache: cache}
}

func (h *CacheHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/cache")
	{
		group.GET("/test", h.testRedis)
		group.POST("", h.set)
		group.GET("/:key", h.get)
	}
}

type RedisTestResponse struct {
	Redis string `json:"redis" example:"ok"`
}

type CacheSetRequest struct {
	Key   string          `json:"key" binding:"required,min=1,max=255" example:"my_key"`
	Value json.RawMessage `json:"value" binding:"required" swaggertype:"string" example:"my_value"`
	// TTL в секундах, 0: значение по умолчанию. Не больше 30 дней
	TTL int64 `json:"ttl" binding:"omitempty,min=0,max=2592000" example:"3600"`
}

type CacheSetResponse struct {
	Status string `json:"status" example:"saved"`
}

type CacheGetResponse struct {
	Key   string          `json:"key" example:"my_key"`
	Value json.RawMessage `json:"value" swaggertype:"string" example:"my_value"`
}

// @Summary Test Redis connection
// @Tags cache
// @Produce json
// @Success 200 {object} RedisTestResponse
// @Router /cache/test [get]
func (h *CacheHandler) testRedis(c *gin.Context) {
	status := "ok"
	if !h.cache.Ping(c.Request.Context()) {
		status = "error"
	}
	c.JSON(http.StatusOK, RedisTestResponse{Redis: status})
}

// @Summary Set cache value
// @Description Stores any JSON value. Default TTL is 3600 seconds, maximum 2592000 (30 days).
// @Tags cache
// @Accept json
// @Produce json
// @Param request body CacheSetRequest true "Key and value"
// @Success 201 {object} CacheSetResponse
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 503 {object} middleware.ErrorResponse "Redis unavailable"
// @Router /cache [post]
func (h *CacheHandler) set(c *gin.Context) {
	var req CacheSetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errors.NewValidationError("body", err.Error()))
		return
	}

	ttl := time.Duration(req.TTL) * time.Second
	if !h.cache.Set(c.Request.Context(), req.Key, req.Value, ttl) {
		_ = c.Error(errors.New(errors.ErrCodeCacheError, "Failed to save to cache").WithDetail("key", req.Key))
		return
	}
	c.JSON(http.StatusCreated, CacheSetResponse{Status: "saved"})
}

// @Summary Get cache value
// @Tags cache
// @Produce json
// @Param key path string true "Cache key"
// @Success 200 {object} CacheGetResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Router /cache/{key} [get]
func (h *CacheHandler) get(c *gin.Context) {
	key := c.Param("key")

	var value json.RawMessage
	if !h.cache.Get(c.Request.Context(), key, &value) {
		_ = c.Error(errors.NewNotFoundError("key", key))
		return
	}
	c.JSON(http.StatusOK, CacheGetResponse{Key: key, Value: value})
}
