package domain

import "time"

// JobStatus represents the current state of a deep-mode job.
//
// The state machine is monotonic:
//
//	queued -> polling -> retrieving -> formatting -> completed
//
// with failed reachable from any non-terminal state. A status never
// regresses, and terminal jobs are immutable.
type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusPolling    JobStatus = "polling"
	JobStatusRetrieving JobStatus = "retrieving"
	JobStatusFormatting JobStatus = "formatting"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// jobStatusRank orders the forward progression of the pipeline.
var jobStatusRank = map[JobStatus]int{
	JobStatusQueued:     0,
	JobStatusPolling:    1,
	JobStatusRetrieving: 2,
	JobStatusFormatting: 3,
	JobStatusCompleted:  4,
}

// Terminal reports whether the status is an end state.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Valid reports whether the status is a known state.
func (s JobStatus) Valid() bool {
	if s == JobStatusFailed {
		return true
	}
	_, ok := jobStatusRank[s]
	return ok
}

// CanTransition reports whether a job may move from one status to another.
// Re-setting the current non-terminal status is allowed; this is how
// heartbeats refresh a job's recency without changing its state.
func CanTransition(from, to JobStatus) bool {
	if from.Terminal() {
		return false
	}
	if to == JobStatusFailed {
		return true
	}
	if from == to {
		return true
	}
	fromRank, ok := jobStatusRank[from]
	if !ok {
		return false
	}
	toRank, ok := jobStatusRank[to]
	if !ok {
		return false
	}
	return toRank > fromRank
}

// ActiveJobStatuses are the non-terminal states considered by staleness scans.
var ActiveJobStatuses = []JobStatus{
	JobStatusQueued,
	JobStatusPolling,
	JobStatusRetrieving,
	JobStatusFormatting,
}

// Job is the durable record of one long-running completion.
// It is created when the completion service returns an async task handle,
// mutated only by the orchestrator and the stuck-job recovery path, and
// deleted by bounded retention cleanup once terminal.
type Job struct {
	// ID is the unique identifier for this job
	ID string `json:"id"`

	// ThreadID is the owning conversation thread
	ThreadID string `json:"thread_id"`

	// MessageID is the user-visible message the result lands in
	MessageID string `json:"message_id"`

	// Question is the original user question
	Question string `json:"question"`

	// ExternalTaskID is the completion service's task handle
	ExternalTaskID string `json:"external_task_id"`

	// Status is the current pipeline state
	Status JobStatus `json:"status"`

	// RawResponse is the unformatted answer from the completion service
	RawResponse string `json:"raw_response,omitempty"`

	// FormattedResult is the cleaned answer after the formatting pass
	FormattedResult string `json:"formatted_result,omitempty"`

	// Metadata carries the domain resolution and pipeline context
	Metadata AnswerMetadata `json:"metadata"`

	// Error is the failure message when status is failed
	Error string `json:"error,omitempty"`

	// CreatedAt is when the job was created
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is bumped on every update, including heartbeats
	UpdatedAt time.Time `json:"updated_at"`
}

// NewJob creates a queued job for an async completion task.
func NewJob(threadID, messageID, question, externalTaskID string, meta AnswerMetadata) *Job {
	now := time.Now().UTC()
	return &Job{
		ID:             GenerateID(),
		ThreadID:       threadID,
		MessageID:      messageID,
		Question:       question,
		ExternalTaskID: externalTaskID,
		Status:         JobStatusQueued,
		Metadata:       meta,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// JobUpdate is a partial update merged into a job row.
// Nil fields are left untouched; updated_at is always bumped.
type JobUpdate struct {
	Status          *JobStatus
	RawResponse     *string
	FormattedResult *string
	Error           *string
	Metadata        *AnswerMetadata
}

// Apply merges the update into the job, enforcing the state machine.
// Returns ErrInvalidTransition when the status change would regress.
func (j *Job) Apply(upd JobUpdate, now time.Time) error {
	if upd.Status != nil {
		if !upd.Status.Valid() {
			return ErrInvalidInput
		}
		if !CanTransition(j.Status, *upd.Status) {
			return ErrInvalidTransition
		}
		j.Status = *upd.Status
	}
	if upd.RawResponse != nil {
		j.RawResponse = *upd.RawResponse
	}
	if upd.FormattedResult != nil {
		j.FormattedResult = *upd.FormattedResult
	}
	if upd.Error != nil {
		j.Error = *upd.Error
	}
	if upd.Metadata != nil {
		j.Metadata = *upd.Metadata
	}
	j.UpdatedAt = now
	return nil
}

// Stuck reports whether the job is non-terminal and was last touched
// strictly before the cutoff. A job updated exactly at the cutoff is
// not stuck.
func (j *Job) Stuck(cutoff time.Time) bool {
	return !j.Status.Terminal() && j.UpdatedAt.Before(cutoff)
}
