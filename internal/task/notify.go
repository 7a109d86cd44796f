package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Broadcaster pushes a progress message to live subscribers. Implemented by
// the websocket hub.
type Broadcaster interface {
	BroadcastTask(taskID string, message []byte)
}

// ProgressMessage is the consumer-facing progress record of one task run.
type ProgressMessage struct {
	Title    string   `json:"title"`
	Group    string   `json:"group"`
	Level    string   `json:"level"`
	ID       string   `json:"id"`
	Messages []string `json:"messages"`
	Progress float64  `json:"progress"`
	Command  string   `json:"command,omitempty"`
}

// Notifier publishes progress for a single task run. It writes the message
// slot in the shared store and mirrors it to live websocket subscribers.
type Notifier struct {
	rdb    *redis.Client
	hub    Broadcaster
	taskID string
	def    Definition
}

// Notifier builds a progress publisher for one task run. hub may be nil when
// no live subscribers exist.
func (m *Manager) Notifier(taskID, name string, hub Broadcaster) *Notifier {
	return &Notifier{
		rdb:    m.rdb,
		hub:    hub,
		taskID: taskID,
		def:    Registry[name],
	}
}

// SendProgress publishes the current message lines and progress fraction.
// Message slots never expire, the record lives until the next run of the
// same group overwrites it.
func (n *Notifier) SendProgress(ctx context.Context, lines []string, progress float64) {
	message := ProgressMessage{
		Title:    n.def.Title,
		Group:    n.def.Group,
		Level:    "info",
		ID:       n.taskID,
		Messages: lines,
		Progress: progress,
	}

	// keep a pending stop command visible across progress updates
	if existing, err := n.get(ctx); err == nil && existing != nil {
		message.Command = existing.Command
	}

	n.publish(ctx, &message)
}

// SetCommand mirrors a task command onto the message slot so subscribers see
// the stop request without polling the task record.
func (n *Notifier) SetCommand(ctx context.Context, command string) error {
	message, err := n.get(ctx)
	if err != nil {
		return err
	}
	if message == nil {
		message = &ProgressMessage{
			Title: n.def.Title,
			Group: n.def.Group,
			Level: "info",
			ID:    n.taskID,
		}
	}

	message.Command = command
	n.publish(ctx, message)
	return nil
}

func (n *Notifier) get(ctx context.Context) (*ProgressMessage, error) {
	data, err := n.rdb.Get(ctx, messageKey(n.def.Group, n.taskID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read task message: %w", err)
	}

	var message ProgressMessage
	if err := json.Unmarshal(data, &message); err != nil {
		return nil, fmt.Errorf("failed to unmarshal task message: %w", err)
	}
	return &message, nil
}

func (n *Notifier) publish(ctx context.Context, message *ProgressMessage) {
	data, err := json.Marshal(message)
	if err != nil {
		return
	}
	n.rdb.Set(ctx, messageKey(n.def.Group, n.taskID), data, 0)

	if n.hub != nil {
		n.hub.BroadcastTask(n.taskID, data)
	}
}
