package mocks

import (
	"context"
	"errors"
	"sync"
)

// MockFormatterService is a mock implementation of FormatterService.
type MockFormatterService struct {
	mu       sync.Mutex
	fail     bool
	prefix   string
	calls    int
	lastRaw  string
	lastQ    string
	lastCtx  string
	failWith error
}

// NewMockFormatterService creates a formatter that wraps raw text with a
// recognisable prefix so tests can tell formatted output from raw.
func NewMockFormatterService() *MockFormatterService {
	return &MockFormatterService{prefix: "formatted: "}
}

func (m *MockFormatterService) Format(ctx context.Context, rawText, question, domainContext string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.lastRaw = rawText
	m.lastQ = question
	m.lastCtx = domainContext
	if m.fail {
		if m.failWith != nil {
			return "", m.failWith
		}
		return "", errors.New("formatter unavailable")
	}
	return m.prefix + rawText, nil
}

func (m *MockFormatterService) Close() error {
	return nil
}

// SetFail makes every Format call return an error.
func (m *MockFormatterService) SetFail(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = fail
}

// Calls returns how many times Format was invoked.
func (m *MockFormatterService) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
