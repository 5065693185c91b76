package handlers

import (
	"errors"
	"log"

	"taskchat/internal/gateway"
	"taskchat/internal/models"

	"github.com/gofiber/fiber/v2"
)

// TaskHandler exposes the task store over REST. Every call goes through
// the same gateway the chat orchestrator uses, so validation and
// ownership checks are identical on both surfaces.
type TaskHandler struct {
	gateway *gateway.Gateway
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(gw *gateway.Gateway) *TaskHandler {
	return &TaskHandler{gateway: gw}
}

// CreateTaskRequest is the request body for task creation
type CreateTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// UpdateTaskRequest is the request body for a title change
type UpdateTaskRequest struct {
	Title string `json:"title"`
}

// List returns the user's tasks
// GET /api/tasks?status=pending|completed
func (h *TaskHandler) List(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	status, ok := models.ParseTaskStatus(c.Query("status"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid status filter",
		})
	}

	tasks, err := h.gateway.List(c.Context(), userID, status)
	if err != nil {
		return h.gatewayError(c, err)
	}

	return c.JSON(fiber.Map{
		"tasks": tasks,
		"count": len(tasks),
	})
}

// Create adds a new task
// POST /api/tasks
func (h *TaskHandler) Create(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var req CreateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	task, err := h.gateway.Create(c.Context(), userID, req.Title, req.Description)
	if err != nil {
		return h.gatewayError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(task)
}

// Get returns one task
// GET /api/tasks/:id
func (h *TaskHandler) Get(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	taskID, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid task id",
		})
	}

	task, err := h.gateway.Get(c.Context(), userID, int64(taskID))
	if err != nil {
		return h.gatewayError(c, err)
	}

	return c.JSON(task)
}

// Update changes a task's title
// PUT /api/tasks/:id
func (h *TaskHandler) Update(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	taskID, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid task id",
		})
	}

	var req UpdateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	task, err := h.gateway.Update(c.Context(), userID, int64(taskID), req.Title)
	if err != nil {
		return h.gatewayError(c, err)
	}

	return c.JSON(task)
}

// Complete marks a task done
// POST /api/tasks/:id/complete
func (h *TaskHandler) Complete(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	taskID, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid task id",
		})
	}

	task, err := h.gateway.Complete(c.Context(), userID, int64(taskID))
	if err != nil {
		return h.gatewayError(c, err)
	}

	return c.JSON(task)
}

// Delete removes a task. The REST surface requires no conversational
// confirmation; an explicit DELETE request is its own confirmation.
// DELETE /api/tasks/:id
func (h *TaskHandler) Delete(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	taskID, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid task id",
		})
	}

	if _, err := h.gateway.Delete(c.Context(), userID, int64(taskID)); err != nil {
		return h.gatewayError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// gatewayError maps the gateway's error taxonomy to HTTP statuses
func (h *TaskHandler) gatewayError(c *fiber.Ctx, err error) error {
	var ve *gateway.ValidationError
	switch {
	case errors.Is(err, gateway.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Task not found",
		})
	case errors.As(err, &ve):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": ve.Error(),
		})
	default:
		log.Printf("❌ Task operation failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Task operation failed",
		})
	}
}
