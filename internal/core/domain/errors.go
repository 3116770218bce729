package domain

import "errors"

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates the resource already exists
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidTransition indicates a job status change that would
	// regress the state machine or mutate a terminal job
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrJobNotCompleted indicates the job result was requested before
	// the job reached the completed state
	ErrJobNotCompleted = errors.New("job not completed")

	// ErrServiceUnavailable indicates an external AI service could not be reached
	ErrServiceUnavailable = errors.New("service unavailable")
)
