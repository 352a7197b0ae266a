package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"brashlens-backend/internal/common/errors"
	"brashlens-backend/internal/common/validation"
	"brashlens-backend/internal/domain/testrecord"
)

type TestRecordHandler struct {
	repo testrecord.Repository
}

func NewTestRecordHandler(repo testrecord.Repository) *TestRecordHandler {
	return &TestRecordHandler{repo: repo}
}

func (h *TestRecordHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/test/db", h.create)
	router.GET("/test/db", h.list)
}

type TestRecordRequest struct {
	Message string `json:"message" binding:"required,min=1,max=255" example:"hello"`
}

type TestRecordResponse struct {
	Status    string    `json:"status" example:"ok"`
	Message   string    `json:"message" example:"Record created successfully"`
	ID        uuid.UUID `json:"id" swaggertype:"string" example:"123e4567-e89b-12d3-a456-426614174000"`
	CreatedAt time.Time `json:"created_at"`
}

type TestRecordsResponse struct {
	Status  string                      `json:"status" example:"ok"`
	Count   int                         `json:"count" example:"1"`
	Records []testrecord.TestConnection `json:"records"`
}

// @Summary Create test record
// @Description Writes a row into test_connections to check that the database accepts writes.
// @Tags test
// @Accept json
// @Produce json
// @Param request body TestRecordRequest true "Message"
// @Success 201 {object} TestRecordResponse
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 500 {object} middleware.ErrorResponse
// @Router /test/db [post]
func (h *TestRecordHandler) create(c *gin.Context) {
	var req TestRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errors.NewValidationError("body", err.Error()))
		return
	}
	if err := validation.ValidateMessage(req.Message); err != nil {
		_ = c.Error(errors.NewValidationError("message", err.Error()))
		return
	}

	rec, err := h.repo.Create(c.Request.Context(), req.Message)
	if err != nil {
		_ = c.Error(errors.NewDatabaseError("create test record", err))
		return
	}
	c.JSON(http.StatusCreated, TestRecordResponse{
		Status:    "ok",
		Message:   "Record created successfully",
		ID:        rec.ID,
		CreatedAt: rec.CreatedAt,
	})
}

// @Summary List test records
// @Description All rows of test_connections, newest first.
// @Tags test
// @Produce json
// @Success 200 {object} TestRecordsResponse
// @Failure 500 {object} middleware.ErrorResponse
// @Router /test/db [get]
func (h *TestRecordHandler) list(c *gin.Context) {
	records, err := h.repo.List(c.Request.Context())
	if err != nil {
		_ = c.Error(errors.NewDatabaseError("list test records", err))
		return
	}
	c.JSON(http.StatusOK, TestRecordsResponse{Status: "ok", Count: len(records), Records: records})
}
