package driving

import (
	"context"

	"github.com/clearfield-labs/inquiry-core/internal/core/domain"
)

// QueryService handles question submission and the exposed job surface
type QueryService interface {
	// Submit routes a question to a domain, consults the semantic cache,
	// and either answers synchronously or launches a deep-mode job
	Submit(ctx context.Context, req domain.SubmitQueryRequest) (*domain.QueryResponse, error)

	// JobStatus reports the progress of a deep-mode job
	JobStatus(ctx context.Context, jobID string) (*domain.JobStatusResponse, error)

	// JobResult returns the final persisted content of a completed job.
	// Returns domain.ErrJobNotCompleted until the job is completed.
	JobResult(ctx context.Context, jobID string) (*domain.JobResultResponse, error)

	// ListJobs returns jobs for observability; activeOnly restricts the
	// listing to non-terminal jobs
	ListJobs(ctx context.Context, activeOnly bool) ([]*domain.Job, error)
}

// RecoveryService reconciles jobs abandoned in a non-terminal state
type RecoveryService interface {
	// RecoverStuckJobs marks stale non-terminal jobs failed with a
	// timeout notice. Idempotent: recovered jobs become terminal.
	RecoverStuckJobs(ctx context.Context) (*domain.RecoveryResult, error)
}
