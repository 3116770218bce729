package mocks

import (
	"context"
	"errors"
	"sync"

	"github.com/clearfield-labs/inquiry-core/internal/core/ports/driven"
)

// MockCompletionService is a scriptable completion service for testing.
// Submissions return a configured result; polls walk a configured sequence
// of states so tests can drive the orchestrator tick by tick.
type MockCompletionService struct {
	mu sync.Mutex

	// SubmitResult returned on Submit; SubmitErr takes precedence
	SubmitResult *driven.SubmitResult
	SubmitErr    error

	// PollResults are returned in order; the last one repeats
	PollResults []*driven.PollResult
	PollErr     error

	// FailFirstPolls makes the first N polls return a transient error
	// before the scripted results begin
	FailFirstPolls int

	submitCalls int
	pollCalls   int
	pollIdx     int
	lastDomain  string
	lastMode    string
}

// NewMockCompletionService creates a mock that answers synchronously.
func NewMockCompletionService() *MockCompletionService {
	return &MockCompletionService{
		SubmitResult: &driven.SubmitResult{Answer: "a synchronous answer", ResponseID: "resp-1"},
	}
}

func (m *MockCompletionService) Submit(ctx context.Context, question, domainID, mode string) (*driven.SubmitResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.submitCalls++
	m.lastDomain = domainID
	m.lastMode = mode
	if m.SubmitErr != nil {
		return nil, m.SubmitErr
	}
	res := *m.SubmitResult
	return &res, nil
}

func (m *MockCompletionService) Poll(ctx context.Context, taskID string) (*driven.PollResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PollErr != nil {
		return nil, m.PollErr
	}
	m.pollCalls++
	if m.FailFirstPolls > 0 {
		m.FailFirstPolls--
		return nil, errors.New("transient poll failure")
	}
	idx := m.pollIdx
	m.pollIdx++
	if len(m.PollResults) == 0 {
		return &driven.PollResult{State: driven.CompletionStateCompleted, Answer: "a deep answer"}, nil
	}
	if idx >= len(m.PollResults) {
		idx = len(m.PollResults) - 1
	}
	res := *m.PollResults[idx]
	return &res, nil
}

// SubmitCalls returns how many times Submit was invoked.
func (m *MockCompletionService) SubmitCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.submitCalls
}

// PollCalls returns how many times Poll was invoked.
func (m *MockCompletionService) PollCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pollCalls
}

// LastDomain returns the domain id of the most recent Submit.
func (m *MockCompletionService) LastDomain() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastDomain
}

// LastMode returns the mode of the most recent Submit.
func (m *MockCompletionService) LastMode() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastMode
}
