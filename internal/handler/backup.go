package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/streamvault/archiver/internal/backup"
	"github.com/streamvault/archiver/internal/task"
	"github.com/streamvault/archiver/internal/worker"
	"github.com/streamvault/archiver/pkg/response"
)

type BackupHandler struct {
	engine    *backup.Engine
	command   *task.Command
	validator *validator.Validate
}

func NewBackupHandler(engine *backup.Engine, command *task.Command, v *validator.Validate) *BackupHandler {
	return &BackupHandler{
		engine:    engine,
		command:   command,
		validator: v,
	}
}

// BackupCreateRequest starts a new backup run.
type BackupCreateRequest struct {
	Reason string `json:"reason"`
}

// List handles GET /api/backups
func (h *BackupHandler) List(c *fiber.Ctx) error {
	backups, err := h.engine.List()
	if err != nil {
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, backups)
}

// Create handles POST /api/backups
func (h *BackupHandler) Create(c *fiber.Ctx) error {
	var req BackupCreateRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return response.ValidationError(c, "Invalid request body", nil)
		}
	}
	if req.Reason == "" {
		req.Reason = "api"
	}

	taskID, err := h.command.Start(c.Context(), task.TypeRunBackup, worker.BackupPayload{Reason: req.Reason})
	if err != nil {
		return response.TaskFailed(c, err.Error())
	}

	return response.Accepted(c, fiber.Map{"task_id": taskID})
}

// Restore handles POST /api/backups/:filename/restore
func (h *BackupHandler) Restore(c *fiber.Ctx) error {
	filename := c.Params("filename")
	if filename == "" {
		return response.ValidationError(c, "Backup filename is required", nil)
	}
	if _, ok := backup.ParseBackupName(filename); !ok {
		return response.ValidationError(c, "Invalid backup filename", nil)
	}

	taskID, err := h.command.Start(c.Context(), task.TypeRestoreBackup, worker.RestorePayload{Filename: filename})
	if err != nil {
		return response.TaskFailed(c, err.Error())
	}

	return response.Accepted(c, fiber.Map{"task_id": taskID})
}
