package driven

import "context"

// CompletionState is the lifecycle of an external completion task.
type CompletionState string

const (
	CompletionStatePending   CompletionState = "pending"
	CompletionStateCompleted CompletionState = "completed"
	CompletionStateFailed    CompletionState = "failed"
)

// SubmitResult is the immediate outcome of submitting a question.
// Either Answer is populated (synchronous) or TaskID is (async deep mode).
type SubmitResult struct {
	// Answer is the synchronous answer text, empty for async tasks
	Answer string

	// ResponseID identifies the synchronous response, when provided
	ResponseID string

	// Async indicates the service returned a task handle instead of an answer
	Async bool

	// TaskID is the handle to poll for async completions
	TaskID string
}

// PollResult reports the state of one async completion task.
type PollResult struct {
	State  CompletionState
	Answer string
	Error  string
}

// CompletionService is the external knowledge/completion service.
// Deep-mode questions come back as async task handles to be polled.
type CompletionService interface {
	// Submit sends a question for answering in the given domain and mode
	Submit(ctx context.Context, question, domainID, mode string) (*SubmitResult, error)

	// Poll checks the state of an async completion task
	Poll(ctx context.Context, taskID string) (*PollResult, error)
}
