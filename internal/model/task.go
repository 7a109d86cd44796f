package model

import "encoding/json"

// Task statuses as reported through the shared record.
const (
	StatusPending = "PENDING"
	StatusStarted = "STARTED"
	StatusSuccess = "SUCCESS"
	StatusFailed  = "FAILED"
)

// CommandStop is the only cooperative command a task honors.
const CommandStop = "STOP"

// TaskRecord is the shared task result record. The coordination layer owns
// Status and Command, the executing task owns Result and DateDone.
type TaskRecord struct {
	TaskID    string          `json:"task_id"`
	Name      string          `json:"name"`
	Status    string          `json:"status"`
	Result    json.RawMessage `json:"result"`
	Traceback string          `json:"traceback,omitempty"`
	// DateDone is unix seconds, zero while the task is incomplete.
	DateDone int64  `json:"date_done,omitempty"`
	Command  string `json:"command,omitempty"`
}
