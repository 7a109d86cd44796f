package handler

import (
	"encoding/json"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/streamvault/archiver/internal/task"
	"github.com/streamvault/archiver/pkg/response"
)

type TaskHandler struct {
	manager   *task.Manager
	command   *task.Command
	validator *validator.Validate
}

func NewTaskHandler(manager *task.Manager, command *task.Command, v *validator.Validate) *TaskHandler {
	return &TaskHandler{
		manager:   manager,
		command:   command,
		validator: v,
	}
}

// TaskStartRequest enqueues a new run of a registered task.
type TaskStartRequest struct {
	Name    string          `json:"name" validate:"required"`
	Payload json.RawMessage `json:"payload"`
}

// List handles GET /api/tasks
func (h *TaskHandler) List(c *fiber.Ctx) error {
	records, err := h.manager.GetAll(c.Context())
	if err != nil {
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, records)
}

// Get handles GET /api/tasks/:taskId
func (h *TaskHandler) Get(c *fiber.Ctx) error {
	taskID := c.Params("taskId")
	if taskID == "" {
		return response.ValidationError(c, "Task ID is required", nil)
	}

	record, err := h.manager.Get(c.Context(), taskID)
	if err != nil {
		return response.ServiceError(c, err.Error())
	}
	if record == nil {
		return response.NotFound(c, "Task not found")
	}

	return response.OK(c, record)
}

// Start handles POST /api/tasks
func (h *TaskHandler) Start(c *fiber.Ctx) error {
	var req TaskStartRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	if _, ok := task.Registry[req.Name]; !ok {
		return response.ValidationError(c, "Unknown task name", nil)
	}

	pending, err := h.manager.IsPending(c.Context(), req.Name)
	if err != nil {
		return response.ServiceError(c, err.Error())
	}
	if pending {
		return response.ValidationError(c, "Task is already pending", nil)
	}

	taskID, err := h.command.Start(c.Context(), req.Name, req.Payload)
	if err != nil {
		return response.TaskFailed(c, err.Error())
	}

	return response.Accepted(c, fiber.Map{"task_id": taskID})
}

// Stop handles POST /api/tasks/:taskId/stop
func (h *TaskHandler) Stop(c *fiber.Ctx) error {
	taskID := c.Params("taskId")
	if taskID == "" {
		return response.ValidationError(c, "Task ID is required", nil)
	}

	if err := h.command.Stop(c.Context(), taskID); err != nil {
		if errors.Is(err, task.ErrTaskNotFound) {
			return response.NotFound(c, "Task not found")
		}
		return response.TaskFailed(c, err.Error())
	}

	return response.NoContent(c)
}

// Kill handles POST /api/tasks/:taskId/kill
func (h *TaskHandler) Kill(c *fiber.Ctx) error {
	taskID := c.Params("taskId")
	if taskID == "" {
		return response.ValidationError(c, "Task ID is required", nil)
	}

	if err := h.command.Kill(c.Context(), taskID); err != nil {
		return response.TaskFailed(c, err.Error())
	}

	return response.NoContent(c)
}

// formatValidationErrors formats validator errors for response
func formatValidationErrors(err error) interface{} {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		errors := make(map[string]string)
		for _, e := range validationErrors {
			errors[e.Field()] = e.Tag()
		}
		return errors
	}
	return nil
}
