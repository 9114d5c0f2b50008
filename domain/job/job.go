package job

import (
	"time"

	"video2audio/domain/audio"
)

// State is the bucket a media job currently belongs to
type State string

const (
	StatePending   State = "pending"
	StateActive    State = "active"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// MediaJob tracks one source file through the conversion lifecycle
type MediaJob struct {
	Filename   string
	State      State
	Output     string // artifact file name, set once conversion has been attempted
	Err        error  // set when State is StateFailed
	BatchID    string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Result is the outcome of converting one file within a batch
type Result struct {
	BatchID    string
	Filename   string
	OutputPath string
	Settings   audio.TranscodeSettings
	Err        error
}

// OK returns true if the file reached the completed state
func (r Result) OK() bool {
	return r.Err == nil
}

// EventType classifies lifecycle events
type EventType string

const (
	EventAccepted  EventType = "accepted"
	EventSubmitted EventType = "submitted"
	EventStarted   EventType = "started"
	EventCompleted EventType = "completed"
	EventFailed    EventType = "failed"
	EventCleared   EventType = "cleared"
	EventSettings  EventType = "settings"
)

// Event is a sequenced lifecycle notification
type Event struct {
	Seq       int64     `json:"seq"`
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	Filename  string    `json:"filename,omitempty"`
	BatchID   string    `json:"batchId,omitempty"`
	Output    string    `json:"output,omitempty"`
	Message   string    `json:"message,omitempty"`
}
