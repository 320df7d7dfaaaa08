package types

import "time"

// EventType represents the type of outcome event pushed to feed subscribers
type EventType string

const (
	EventJobSubmitted   EventType = "job.submitted"
	EventJobFailed      EventType = "job.failed"
	EventBatchCompleted EventType = "batch.completed"
)

// Event represents a real-time event that can be sent over WebSocket
type Event struct {
	Type      EventType   `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp string      `json:"timestamp"`
}

// JobEvent describes the outcome of one submission
type JobEvent struct {
	BatchID string `json:"batch_id"`
	Bucket  string `json:"bucket"`
	Key     string `json:"key"`
	JobID   string `json:"job_id,omitempty"`
	Error   string `json:"error,omitempty"`
}

// BatchEvent summarises a handled trigger batch
type BatchEvent struct {
	BatchID   string `json:"batch_id"`
	Total     int    `json:"total"`
	Submitted int    `json:"submitted"`
	Failed    int    `json:"failed"`
}

// NewEvent creates a new event with the current timestamp
func NewEvent(eventType EventType, data interface{}) *Event {
	return &Event{
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}
