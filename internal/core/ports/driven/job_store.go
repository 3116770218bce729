package driven

import (
	"context"
	"time"

	"github.com/clearfield-labs/inquiry-core/internal/core/domain"
)

// JobStore is the durable state machine for long-running completions.
// Status changes are monotonic; terminal jobs are immutable and are
// removed by bounded retention cleanup.
type JobStore interface {
	// Create persists a new job (status queued)
	Create(ctx context.Context, job *domain.Job) error

	// Get retrieves a job by id
	Get(ctx context.Context, id string) (*domain.Job, error)

	// GetByExternalID retrieves a job by its external task handle
	GetByExternalID(ctx context.Context, externalTaskID string) (*domain.Job, error)

	// UpdateStatus merges the partial update and always bumps updated_at.
	// Re-setting the current status with no other change is the heartbeat.
	// Returns domain.ErrInvalidTransition for regressions.
	UpdateStatus(ctx context.Context, id string, upd domain.JobUpdate) error

	// GetStuckJobs returns non-terminal jobs whose updated_at is strictly
	// older than now - maxAge
	GetStuckJobs(ctx context.Context, maxAge time.Duration) ([]*domain.Job, error)

	// GetActiveJobs returns all non-terminal jobs
	GetActiveJobs(ctx context.Context) ([]*domain.Job, error)

	// GetAllJobs returns every job, newest first
	GetAllJobs(ctx context.Context) ([]*domain.Job, error)

	// CleanupOldJobs deletes terminal jobs older than the retention window
	// and returns the number deleted
	CleanupOldJobs(ctx context.Context, retention time.Duration) (int, error)
}
