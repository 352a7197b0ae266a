package task

import (
	"encoding/json"
	"time"
)

// Status of a background task as reported to pollers.
type Status string

const (
	StatusPending Status = "PENDING"
	StatusStarted Status = "STARTED"
	StatusSuccess Status = "SUCCESS"
	StatusFailure Status = "FAILURE"
)

// Done reports whether the task reached a final state.
func (s Status) Done() bool { return s == StatusSuccess || s == StatusFailure }

// Record is the stored state of one submitted task.
type Record struct {
	ID        string          `json:"task_id"`
	Name      string          `json:"name,omitempty"`
	Status    Status          `json:"status"`
	Result    json.RawMessage `json:"result,omitempty" swaggertype:"object"`
	Error     string          `json:"error,omitempty"`
	CreatedAt *time.Time      `json:"created_at,omitempty"`
	UpdatedAt *time.Time      `json:"updated_at,omitempty"`
}

// Message is what travels through the queue.
type Message struct {
	ID   string          `json:"id"`
	Name string          `json:"name"`
	Args json.RawMessage `json:"args"`
}
