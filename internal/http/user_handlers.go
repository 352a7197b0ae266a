package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"brashlens-backend/internal/common/errors"
	"brashlens-backend/internal/common/middleware"
	domain "brashlens-backend/internal/domain/user"
	userservice "brashlens-backend/internal/service/user"
)

// UserService is what the user endpoints need from the account store.
type UserService interface {
	CreateUser(ctx context.Context, in domain.Create) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByTelegramID(ctx context.Context, telegramID int64) (*domain.User, error)
	UpdateUser(ctx context.Context, id int64, upd domain.Update) (*domain.User, error)
	ListByRole(ctx context.Context, role string, offset, limit int) ([]domain.User, error)
	DeactivateUser(ctx context.Context, id int64) (bool, error)
	DeleteByTelegramID(ctx context.Context, telegramID int64) (bool, error)
}

type UserHandler struct {
	service UserService
}

func NewUserHandler(service UserService) *UserHandler {
	return &UserHandler{service: service}
}

func (h *UserHandler) RegisterRoutes(router *gin.RouterGroup) {
	users := router.Group("/users")
	{
		users.POST("", h.createUser)
		users.GET("", h.listUsers)
		users.GET("/me", h.getMe)
		users.GET("/:id", h.getUser)
		users.PATCH("/:id", h.updateUser)
		users.DELETE("/:id", h.deactivateUser)
		users.DELETE("/telegram/:telegram_id", h.deleteByTelegramID)
	}
}

// MessageResponse is a plain acknowledgement.
type MessageResponse struct {
	Message string `json:"message" example:"User deactivated successfully"`
}

// @Summary Register user
// @Description Creates an account for a Telegram identity. Role must be photographer or client.
// @Tags users
// @Accept json
// @Produce json
// @Param user body domain.Create true "Registration payload"
// @Success 201 {object} domain.User
// @Failure 400 {object} middleware.ErrorResponse "Validation error"
// @Failure 409 {object} middleware.ErrorResponse "telegram_id already registered"
// @Router /users [post]
func (h *UserHandler) createUser(c *gin.Context) {
	var in domain.Create
	if err := c.ShouldBindJSON(&in); err != nil {
		_ = c.Error(errors.NewValidationError("body", err.Error()))
		return
	}

	u, err := h.service.CreateUser(c.Request.Context(), in)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, u)
}

// @Summary Get user
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} domain.User
// @Failure 404 {object} middleware.ErrorResponse
// @Router /users/{id} [get]
func (h *UserHandler) getUser(c *gin.Context) {
	id, ok := pathInt64(c, "id")
	if !ok {
		return
	}

	u, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if u == nil {
		_ = c.Error(errors.NewUserNotFoundError("id", id))
		return
	}
	c.JSON(http.StatusOK, u)
}

// @Summary Current user
// @Description Resolves the caller by Mini App init data (header X-Telegram-Init-Data) or by the telegram_id query parameter.
// @Tags users
// @Produce json
// @Security TelegramInitData
// @Param telegram_id query int false "Telegram ID, used when no init data is sent"
// @Success 200 {object} domain.User
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 401 {object} middleware.ErrorResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Router /users/me [get]
func (h *UserHandler) getMe(c *gin.Context) {
	var telegramID int64
	if tgUser, ok := middleware.TelegramUser(c); ok {
		telegramID = tgUser.ID
	} else {
		raw := c.Query("telegram_id")
		if raw == "" {
			_ = c.Error(errors.New(errors.ErrCodeUnauthorized, "Telegram init data or telegram_id required"))
			return
		}
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || v <= 0 {
			_ = c.Error(errors.NewValidationError("telegram_id", "must be a positive integer"))
			return
		}
		telegramID = v
	}

	u, err := h.service.GetByTelegramID(c.Request.Context(), telegramID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if u == nil {
		_ = c.Error(errors.NewUserNotFoundError("telegram_id", telegramID))
		return
	}
	c.JSON(http.StatusOK, u)
}

// @Summary Update user
// @Description Changes first_name, last_name or language. Role and telegram_id are immutable.
// @Tags users
// @Accept json
// @Produce json
// @Param id path int true "User ID"
// @Param user body domain.Update true "Fields to change"
// @Success 200 {object} domain.User
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Router /users/{id} [patch]
func (h *UserHandler) updateUser(c *gin.Context) {
	id, ok := pathInt64(c, "id")
	if !ok {
		return
	}

	var upd domain.Update
	if err := c.ShouldBindJSON(&upd); err != nil {
		_ = c.Error(errors.NewValidationError("body", err.Error()))
		return
	}

	u, err := h.service.UpdateUser(c.Request.Context(), id, upd)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if u == nil {
		_ = c.Error(errors.NewUserNotFoundError("id", id))
		return
	}
	c.JSON(http.StatusOK, u)
}

// @Summary Deactivate user
// @Description Soft delete: sets is_active=false, the row stays.
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} MessageResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Router /users/{id} [delete]
func (h *UserHandler) deactivateUser(c *gin.Context) {
	id, ok := pathInt64(c, "id")
	if !ok {
		return
	}

	done, err := h.service.DeactivateUser(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if !done {
		_ = c.Error(errors.NewUserNotFoundError("id", id))
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "User deactivated successfully"})
}

// @Summary Delete user by Telegram ID
// @Description Hard delete of the account and its photographer profile in one transaction.
// @Tags users
// @Produce json
// @Param telegram_id path int true "Telegram ID"
// @Success 200 {object} MessageResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Failure 500 {object} middleware.ErrorResponse "Transaction rolled back"
// @Router /users/telegram/{telegram_id} [delete]
func (h *UserHandler) deleteByTelegramID(c *gin.Context) {
	telegramID, ok := pathInt64(c, "telegram_id")
	if !ok {
		return
	}

	done, err := h.service.DeleteByTelegramID(c.Request.Context(), telegramID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if !done {
		_ = c.Error(errors.NewUserNotFoundError("telegram_id", telegramID))
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "User deleted successfully"})
}

// @Summary List users by role
// @Description Active users with the given role. Without role the list is empty.
// @Tags users
// @Produce json
// @Param role query string false "photographer, client or admin"
// @Param skip query int false "Offset" default(0)
// @Param limit query int false "Page size, 1..1000" default(100)
// @Success 200 {array} domain.User
// @Failure 400 {object} middleware.ErrorResponse
// @Router /users [get]
func (h *UserHandler) listUsers(c *gin.Context) {
	skip, ok := queryInt(c, "skip", 0)
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit", userservice.DefaultListLimit)
	if !ok {
		return
	}

	users, err := h.service.ListByRole(c.Request.Context(), c.Query("role"), skip, limit)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func pathInt64(c *gin.Context, name string) (int64, bool) {
	v, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		_ = c.Error(errors.NewValidationError(name, "must be an integer"))
		return 0, false
	}
	return v, true
}

func queryInt(c *gin.Context, name string, def int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		_ = c.Error(errors.NewValidationError(name, "must be an integer"))
		return 0, false
	}
	return v, true
}
