package interfaces

import (
	"context"
	"time"

	"github.com/ternarybob/folio/internal/queue"
)

// QueueManager manages the persistent trigger queue
type QueueManager interface {
	// Enqueue adds a job trigger to the queue
	Enqueue(ctx context.Context, trigger *queue.JobTrigger) error

	// Receive pulls the next visible trigger from the queue. The second
	// return value deletes the trigger once processing succeeds; leaving
	// it undeleted redelivers the trigger after the visibility timeout.
	Receive(ctx context.Context) (*queue.JobTrigger, func() error, error)

	// Extend pushes out the visibility timeout for an in-flight trigger
	Extend(ctx context.Context, triggerID string, duration time.Duration) error

	// Length returns the number of triggers currently in the queue
	Length(ctx context.Context) (int, error)

	Close() error
}

// WorkerPool manages concurrent trigger processing
type WorkerPool interface {
	Start() error
	Stop() error
}
