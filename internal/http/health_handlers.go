package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// DBChecker is the part of the postgres client the probes use.
type DBChecker interface {
	HealthCheck(ctx context.Context) error
	Version(ctx context.Context) (string, error)
}

// Pinger reports whether a dependency answers.
type Pinger interface {
	Ping(ctx context.Context) bool
}

type HealthHandler struct {
	db    DBChecker
	redis Pinger
}

func NewHealthHandler(db DBChecker, redis Pinger) *HealthHandler {
	return &HealthHandler{db: db, redis: redis}
}

func (h *HealthHandler) RegisterRoutes(router gin.IRoutes) {
	router.GET("/health", h.health)
	router.GET("/health/db", h.healthDB)
	router.GET("/live", h.live)
	router.GET("/ready", h.ready)
}

type HealthResponse struct {
	Status    string `json:"status" example:"ok"`
	Timestamp string `json:"timestamp" example:"2024-01-01T12:00:00Z"`
}

type HealthDBResponse struct {
	Status   string  `json:"status" example:"ok"`
	Database string  `json:"database" example:"connected"`
	Version  *string `json:"version" example:"PostgreSQL 16.0"`
	Error    *string `json:"error"`
}

type ReadyResponse struct {
	Status   string `json:"status" example:"ready"`
	Postgres string `json:"postgres" example:"ok"`
	Redis    string `json:"redis" example:"ok"`
}

// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// @Summary Database health check
// @Description Runs SELECT version(). A dead database is reported in the body with status 200.
// @Tags health
// @Produce json
// @Success 200 {object} HealthDBResponse
// @Router /health/db [get]
func (h *HealthHandler) healthDB(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	version, err := h.db.Version(ctx)
	if err != nil {
		msg := err.Error()
		c.JSON(http.StatusOK, HealthDBResponse{Status: "error", Database: "disconnected", Error: &msg})
		return
	}
	c.JSON(http.StatusOK, HealthDBResponse{Status: "ok", Database: "connected", Version: &version})
}

// @Summary Liveness probe
// @Tags health
// @Success 200
// @Router /live [get]
func (h *HealthHandler) live(c *gin.Context) {
	c.Status(http.StatusOK)
}

// @Summary Readiness probe
// @Description Ready when both Postgres and Redis answer.
// @Tags health
// @Produce json
// @Success 200 {object} ReadyResponse
// @Failure 503 {object} ReadyResponse
// @Router /ready [get]
func (h *HealthHandler) ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	resp := ReadyResponse{Status: "ready", Postgres: "ok", Redis: "ok"}
	if err := h.db.HealthCheck(ctx); err != nil {
		resp.Status, resp.Postgres = "unready", "unavailable"
	}
	if !h.redis.Ping(ctx) {
		resp.Status, resp.Redis = "unready", "unavailable"
	}

	status := http.StatusOK
	if resp.Status != "ready" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, resp)
}
