package driven

import (
	"context"

	"github.com/clearfield-labs/inquiry-core/internal/core/domain"
)

// TaskQueue hands deep-mode jobs to workers, detached from the request
// that created them. Implementations can use Redis (preferred) or
// Postgres (fallback).
type TaskQueue interface {
	// Enqueue adds a task to the queue for processing
	Enqueue(ctx context.Context, task *domain.Task) error

	// Dequeue retrieves the next available task for processing.
	// The task is marked as processing and will not be returned to other
	// workers. Returns nil, nil if no tasks are available.
	Dequeue(ctx context.Context) (*domain.Task, error)

	// DequeueWithTimeout retrieves the next available task, waiting up to
	// timeout seconds. Returns nil, nil when the wait expires empty.
	DequeueWithTimeout(ctx context.Context, timeout int) (*domain.Task, error)

	// Ack acknowledges successful completion of a task
	Ack(ctx context.Context, taskID string) error

	// Nack indicates task processing failed. The task is retried with
	// backoff while attempts remain, then moved to failed.
	Nack(ctx context.Context, taskID string, reason string) error

	// GetTask retrieves a task by id (for status checking)
	GetTask(ctx context.Context, taskID string) (*domain.Task, error)

	// PurgeTasks removes completed/failed tasks older than the given age
	// in seconds and returns the number removed
	PurgeTasks(ctx context.Context, olderThanSeconds int) (int, error)

	// Ping checks if the queue backend is healthy
	Ping(ctx context.Context) error

	// Close cleans up resources
	Close() error
}
