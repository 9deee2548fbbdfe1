package queue

import (
	"errors"
	"time"
)

// ErrNoMessage is returned when no trigger is ready for delivery
var ErrNoMessage = errors.New("no messages in queue")

// JobTrigger asks the worker pool to run analysis for a job. The
// trigger carries no payload beyond the job ID; all state lives on the
// job record.
type JobTrigger struct {
	JobID      string    `json:"job_id"`
	Source     string    `json:"source"`
	EnqueuedAt time.Time `json:"enqueued_at"`

	// MessageID identifies the queue envelope for visibility extension.
	// Set on receive, never persisted.
	MessageID string `json:"-"`
}
