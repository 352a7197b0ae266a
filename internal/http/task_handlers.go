package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"brashlens-backend/internal/common/errors"
	"brashlens-backend/internal/domain/task"
	"brashlens-backend/internal/service/tasks"
)

// TaskQueue submits background tasks and reports their state.
type TaskQueue interface {
	Submit(ctx context.Context, name string, args interface{}) (string, error)
	Status(ctx context.Context, id string) (*task.Record, error)
}

type TaskHandler struct {
	queue TaskQueue
}

func NewTaskHandler(queue TaskQueue) *TaskHandler {
	return &TaskHandler{queue: queue}
}

func (h *TaskHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/tasks")
	{
		group.POST("/test", h.submitTest)
		group.POST("/add", h.submitAdd)
		group.GET("/status/:id", h.status)
	}
}

type TestTaskRequest struct {
	Message string `json:"message" binding:"required,min=1,max=255" example:"test"`
}

type AddNumbersRequest struct {
	A *float64 `json:"a" binding:"required" example:"2"`
	B *float64 `json:"b" binding:"required" example:"3"`
}

type TaskSubmittedResponse struct {
	TaskID string `json:"task_id" example:"123e4567-e89b-12d3-a456-426614174000"`
}

// @Summary Start test task
// @Description Queues test_task. It takes about 5 seconds in the worker.
// @Tags tasks
// @Accept json
// @Produce json
// @Param request body TestTaskRequest true "Task payload"
// @Success 202 {object} TaskSubmittedResponse
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 503 {object} middleware.ErrorResponse "Queue unavailable"
// @Router /tasks/test [post]
func (h *TaskHandler) submitTest(c *gin.Context) {
	var req TestTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errors.NewValidationError("body", err.Error()))
		return
	}
	h.submit(c, tasks.TaskTest, tasks.TestTaskArgs{Message: req.Message})
}

// @Summary Start add_numbers task
// @Tags tasks
// @Accept json
// @Produce json
// @Param request body AddNumbersRequest true "Operands"
// @Success 202 {object} TaskSubmittedResponse
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 503 {object} middleware.ErrorResponse "Queue unavailable"
// @Router /tasks/add [post]
func (h *TaskHandler) submitAdd(c *gin.Context) {
	var req AddNumbersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errors.NewValidationError("body", err.Error()))
		return
	}
	h.submit(c, tasks.TaskAddNumbers, tasks.AddNumbersArgs{A: *req.A, B: *req.B})
}

func (h *TaskHandler) submit(c *gin.Context, name string, args interface{}) {
	id, err := h.queue.Submit(c.Request.Context(), name, args)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusAccepted, TaskSubmittedResponse{TaskID: id})
}

// @Summary Get task status
// @Description PENDING, STARTED, SUCCESS or FAILURE. Unknown ids are reported as PENDING.
// @Tags tasks
// @Produce json
// @Param id path string true "Task ID"
// @Success 200 {object} task.Record
// @Failure 503 {object} middleware.ErrorResponse "Queue unavailable"
// @Router /tasks/status/{id} [get]
func (h *TaskHandler) status(c *gin.Context) {
	rec, err := h.queue.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, rec)
}
