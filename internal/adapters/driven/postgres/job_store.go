package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/clearfield-labs/inquiry-core/internal/core/domain"
	"github.com/clearfield-labs/inquiry-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.JobStore = (*JobStore)(nil)

// JobStore implements driven.JobStore using PostgreSQL.
// Status updates run in a transaction with SELECT ... FOR UPDATE so the
// state machine stays monotonic under concurrent writers.
type JobStore struct {
	db *DB
}

// NewJobStore creates a new JobStore
func NewJobStore(db *DB) *JobStore {
	return &JobStore{db: db}
}

const jobColumns = `id, thread_id, message_id, question, external_task_id, status,
       raw_response, formatted_result, metadata, error, created_at, updated_at`

// Create persists a new job
func (s *JobStore) Create(ctx context.Context, job *domain.Job) error {
	metadataJSON, err := json.Marshal(job.Metadata)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO jobs (id, thread_id, message_id, question, external_task_id, status,
		                  raw_response, formatted_result, metadata, error, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err = s.db.ExecContext(ctx, query,
		job.ID,
		job.ThreadID,
		job.MessageID,
		job.Question,
		job.ExternalTaskID,
		string(job.Status),
		job.RawResponse,
		job.FormattedResult,
		metadataJSON,
		job.Error,
		job.CreatedAt,
		job.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return domain.ErrAlreadyExists
	}
	return err
}

// Get retrieves a job by ID
func (s *JobStore) Get(ctx context.Context, id string) (*domain.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE id = $1`
	return s.scanJob(s.db.QueryRowContext(ctx, query, id))
}

// GetByExternalID retrieves a job by its external task handle
func (s *JobStore) GetByExternalID(ctx context.Context, externalTaskID string) (*domain.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE external_task_id = $1 ORDER BY created_at DESC LIMIT 1`
	return s.scanJob(s.db.QueryRowContext(ctx, query, externalTaskID))
}

// UpdateStatus merges the partial update, enforcing the status state machine
// and always bumping updated_at
func (s *JobStore) UpdateStatus(ctx context.Context, id string, upd domain.JobUpdate) error {
	return s.db.Transaction(ctx, func(tx *sql.Tx) error {
		query := `SELECT ` + jobColumns + ` FROM jobs WHERE id = $1 FOR UPDATE`
		job, err := s.scanJob(tx.QueryRowContext(ctx, query, id))
		if err != nil {
			return err
		}

		if err := job.Apply(upd, time.Now().UTC()); err != nil {
			return err
		}

		metadataJSON, err := json.Marshal(job.Metadata)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE jobs
			SET status = $2, raw_response = $3, formatted_result = $4,
			    metadata = $5, error = $6, updated_at = $7
			WHERE id = $1
		`,
			job.ID,
			string(job.Status),
			job.RawResponse,
			job.FormattedResult,
			metadataJSON,
			job.Error,
			job.UpdatedAt,
		)
		return err
	})
}

// GetStuckJobs returns non-terminal jobs whose updated_at is strictly older
// than now - maxAge
func (s *JobStore) GetStuckJobs(ctx context.Context, maxAge time.Duration) ([]*domain.Job, error) {
	cutoff := time.Now().UTC().Add(-maxAge)
	query := `
		SELECT ` + jobColumns + `
		FROM jobs
		WHERE status NOT IN ($1, $2) AND updated_at < $3
		ORDER BY updated_at ASC
	`
	return s.queryJobs(ctx, query, string(domain.JobStatusCompleted), string(domain.JobStatusFailed), cutoff)
}

// GetActiveJobs returns all non-terminal jobs
func (s *JobStore) GetActiveJobs(ctx context.Context) ([]*domain.Job, error) {
	query := `
		SELECT ` + jobColumns + `
		FROM jobs
		WHERE status NOT IN ($1, $2)
		ORDER BY created_at DESC
	`
	return s.queryJobs(ctx, query, string(domain.JobStatusCompleted), string(domain.JobStatusFailed))
}

// GetAllJobs returns every job, newest first
func (s *JobStore) GetAllJobs(ctx context.Context) ([]*domain.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs ORDER BY created_at DESC`
	return s.queryJobs(ctx, query)
}

// CleanupOldJobs deletes terminal jobs last touched before the retention window
func (s *JobStore) CleanupOldJobs(ctx context.Context, retention time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-retention)
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM jobs
		WHERE status IN ($1, $2) AND updated_at < $3
	`, string(domain.JobStatusCompleted), string(domain.JobStatusFailed), cutoff)
	if err != nil {
		return 0, err
	}
	n, err := result.RowsAffected()
	return int(n), err
}

func (s *JobStore) queryJobs(ctx context.Context, query string, args ...any) ([]*domain.Job, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*domain.Job
	for rows.Next() {
		job, err := s.scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *JobStore) scanJob(row rowScanner) (*domain.Job, error) {
	var job domain.Job
	var status string
	var metadataJSON []byte

	err := row.Scan(
		&job.ID,
		&job.ThreadID,
		&job.MessageID,
		&job.Question,
		&job.ExternalTaskID,
		&status,
		&job.RawResponse,
		&job.FormattedResult,
		&metadataJSON,
		&job.Error,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	job.Status = domain.JobStatus(status)
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &job.Metadata); err != nil {
			return nil, err
		}
	}
	job.Metadata = domain.ParseAnswerMetadata(job.Metadata)

	return &job, nil
}
