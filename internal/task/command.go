package task

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/streamvault/archiver/internal/model"
)

// QueueArchive is the single work queue every task runs on.
const QueueArchive = "archive"

// Command drives the task lifecycle from the API side: enqueue, cooperative
// stop, hard kill.
type Command struct {
	manager   *Manager
	client    *asynq.Client
	inspector *asynq.Inspector
	hub       Broadcaster
}

func NewCommand(manager *Manager, client *asynq.Client, inspector *asynq.Inspector, hub Broadcaster) *Command {
	return &Command{manager: manager, client: client, inspector: inspector, hub: hub}
}

// Start enqueues a new run of the named task and returns its id. The payload
// is task-specific and passed through as the message body.
func (c *Command) Start(ctx context.Context, name string, payload any) (string, error) {
	if _, ok := Registry[name]; !ok {
		return "", fmt.Errorf("unknown task name %q", name)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal task payload: %w", err)
	}

	taskID := uuid.New().String()
	asynqTask := asynq.NewTask(name, data)
	if _, err := c.client.EnqueueContext(ctx, asynqTask,
		asynq.TaskID(taskID),
		asynq.Queue(QueueArchive),
		asynq.MaxRetry(0),
		asynq.Retention(24*time.Hour),
	); err != nil {
		return "", fmt.Errorf("failed to enqueue task %s: %w", name, err)
	}

	log.Printf("%s: enqueued task %s", taskID, name)
	return taskID, nil
}

// Stop flags a running task to stop cooperatively. The task itself observes
// the flag at its next poll, nothing is interrupted here.
func (c *Command) Stop(ctx context.Context, taskID string) error {
	record, err := c.manager.Get(ctx, taskID)
	if err != nil {
		return err
	}
	if record == nil {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}
	if _, ok := Registry[record.Name]; !ok {
		return fmt.Errorf("task %s does not support stop", record.Name)
	}

	log.Printf("%s: received STOP signal", taskID)
	if err := c.manager.SetCommand(ctx, taskID, model.CommandStop); err != nil {
		return err
	}

	notifier := c.manager.Notifier(taskID, record.Name, c.hub)
	return notifier.SetCommand(ctx, model.CommandStop)
}

// Kill cancels the in-flight worker execution immediately.
func (c *Command) Kill(ctx context.Context, taskID string) error {
	log.Printf("%s: received KILL signal", taskID)
	if err := c.inspector.CancelProcessing(taskID); err != nil {
		return fmt.Errorf("failed to kill task %s: %w", taskID, err)
	}
	return nil
}
