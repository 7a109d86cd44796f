package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/streamvault/archiver/internal/model"
)

// resultTTL bounds how long finished task records stay around.
const resultTTL = 24 * time.Hour

// DefaultPollInterval is how often a running job re-reads its own record to
// detect a cooperative STOP command.
const DefaultPollInterval = 2 * time.Second

// ErrTaskNotFound means no record exists for the given task id.
var ErrTaskNotFound = errors.New("task not found")

// Manager owns the shared task records. It writes status and command, the
// executing task owns result and completion time. The store supports plain
// read-modify-write only, last-writer-wins on command/status is accepted
// since stop signals are advisory.
type Manager struct {
	rdb *redis.Client

	// PollInterval is the cooperative cancellation check frequency.
	PollInterval time.Duration
}

func NewManager(rdb *redis.Client) *Manager {
	return &Manager{rdb: rdb, PollInterval: DefaultPollInterval}
}

// Init writes a fresh PENDING record for an enqueued task.
func (m *Manager) Init(ctx context.Context, name, taskID string) error {
	record := &model.TaskRecord{
		TaskID: taskID,
		Name:   name,
		Status: model.StatusPending,
	}
	return m.save(ctx, record, false)
}

// Start flips a record to STARTED once a worker picks it up.
func (m *Manager) Start(ctx context.Context, taskID string) error {
	record, err := m.Get(ctx, taskID)
	if err != nil {
		return err
	}
	if record == nil {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}

	record.Status = model.StatusStarted
	return m.save(ctx, record, false)
}

// Get returns the record for one task id, nil when none exists.
func (m *Manager) Get(ctx context.Context, taskID string) (*model.TaskRecord, error) {
	data, err := m.rdb.Get(ctx, resultKey(taskID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read task %s: %w", taskID, err)
	}

	var record model.TaskRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal task %s: %w", taskID, err)
	}
	return &record, nil
}

// GetAll list-scans every task record.
func (m *Manager) GetAll(ctx context.Context) ([]*model.TaskRecord, error) {
	keys, err := m.rdb.Keys(ctx, resultKeyPattern()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list task keys: %w", err)
	}

	records := make([]*model.TaskRecord, 0, len(keys))
	for _, key := range keys {
		record, err := m.Get(ctx, taskIDFromKey(key))
		if err != nil {
			return nil, err
		}
		if record != nil {
			records = append(records, record)
		}
	}
	return records, nil
}

// GetByName filters all records by task name.
func (m *Manager) GetByName(ctx context.Context, name string) ([]*model.TaskRecord, error) {
	all, err := m.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	var matches []*model.TaskRecord
	for _, record := range all {
		if record.Name == name {
			matches = append(matches, record)
		}
	}
	return matches, nil
}

// GetPending returns every in-flight record of a task name, queued or
// already running.
func (m *Manager) GetPending(ctx context.Context, name string) ([]*model.TaskRecord, error) {
	byName, err := m.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}

	var pending []*model.TaskRecord
	for _, record := range byName {
		if record.Status == model.StatusPending || record.Status == model.StatusStarted {
			pending = append(pending, record)
		}
	}
	return pending, nil
}

// IsPending reports whether any run of the named task is still in flight. The
// caller owns the check-then-act, this only answers the query.
func (m *Manager) IsPending(ctx context.Context, name string) (bool, error) {
	pending, err := m.GetPending(ctx, name)
	if err != nil {
		return false, err
	}
	return len(pending) > 0, nil
}

// IsStopped reports whether the record carries a STOP command.
func (m *Manager) IsStopped(ctx context.Context, taskID string) (bool, error) {
	record, err := m.Get(ctx, taskID)
	if err != nil {
		return false, err
	}
	return record != nil && record.Command == model.CommandStop, nil
}

// SetCommand sets the cooperative command on an existing record.
func (m *Manager) SetCommand(ctx context.Context, taskID, command string) error {
	if command != model.CommandStop {
		return fmt.Errorf("invalid task command %q", command)
	}

	record, err := m.Get(ctx, taskID)
	if err != nil {
		return err
	}
	if record == nil {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}

	record.Command = command
	return m.save(ctx, record, false)
}

// Complete marks a task successful with its result payload.
func (m *Manager) Complete(ctx context.Context, taskID string, result any) error {
	record, err := m.Get(ctx, taskID)
	if err != nil {
		return err
	}
	if record == nil {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}

	if result != nil {
		data, err := json.Marshal(result)
		if err != nil {
			return fmt.Errorf("failed to marshal task result: %w", err)
		}
		record.Result = data
	}
	record.Status = model.StatusSuccess
	record.DateDone = time.Now().Unix()
	return m.save(ctx, record, true)
}

// Fail marks a task failed with the error text in the traceback slot.
func (m *Manager) Fail(ctx context.Context, taskID, errMsg string) error {
	record, err := m.Get(ctx, taskID)
	if err != nil {
		return err
	}
	if record == nil {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}

	record.Status = model.StatusFailed
	record.Traceback = errMsg
	record.DateDone = time.Now().Unix()
	return m.save(ctx, record, true)
}

// FailPending sweeps every record still PENDING or STARTED to FAILED with an
// expiring TTL. Run at startup so a hard restart never leaves ghost
// in-progress entries.
func (m *Manager) FailPending(ctx context.Context) error {
	all, err := m.GetAll(ctx)
	if err != nil {
		return err
	}

	for _, record := range all {
		if record.Status != model.StatusPending && record.Status != model.StatusStarted {
			continue
		}
		record.Status = model.StatusFailed
		if err := m.save(ctx, record, true); err != nil {
			return err
		}
	}
	return nil
}

// WatchStop derives a context that is cancelled once the task record carries
// a STOP command, polled at PollInterval. The returned cancel func releases
// the poller.
func (m *Manager) WatchStop(parent context.Context, taskID string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	go func() {
		ticker := time.NewTicker(m.PollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				stopped, err := m.IsStopped(ctx, taskID)
				if err != nil {
					continue
				}
				if stopped {
					cancel()
					return
				}
			}
		}
	}()

	return ctx, cancel
}

func (m *Manager) save(ctx context.Context, record *model.TaskRecord, expire bool) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal task record: %w", err)
	}

	ttl := time.Duration(0)
	if expire {
		ttl = resultTTL
	}
	if err := m.rdb.Set(ctx, resultKey(record.TaskID), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save task %s: %w", record.TaskID, err)
	}
	return nil
}
