package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/clearfield-labs/inquiry-core/internal/core/domain"
)

// MockConversationStore is an in-memory ConversationStore for testing.
type MockConversationStore struct {
	mu       sync.Mutex
	threads  map[string]*domain.Thread
	messages map[string]*domain.Message
}

// NewMockConversationStore creates a new MockConversationStore
func NewMockConversationStore() *MockConversationStore {
	return &MockConversationStore{
		threads:  make(map[string]*domain.Thread),
		messages: make(map[string]*domain.Message),
	}
}

func (m *MockConversationStore) CreateThread(ctx context.Context, thread *domain.Thread) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.threads[thread.ID]; ok {
		return domain.ErrAlreadyExists
	}
	cp := *thread
	m.threads[thread.ID] = &cp
	return nil
}

func (m *MockConversationStore) GetThread(ctx context.Context, id string) (*domain.Thread, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	thread, ok := m.threads[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *thread
	return &cp, nil
}

func (m *MockConversationStore) AppendMessage(ctx context.Context, msg *domain.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	thread, ok := m.threads[msg.ThreadID]
	if !ok {
		return domain.ErrNotFound
	}
	cp := *msg
	m.messages[msg.ID] = &cp
	m.bumpThreadLocked(thread, msg, time.Now())
	return nil
}

func (m *MockConversationStore) UpdateMessage(ctx context.Context, msg *domain.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.messages[msg.ID]
	if !ok {
		return domain.ErrNotFound
	}
	now := time.Now()
	stored.Content = msg.Content
	stored.Metadata = msg.Metadata
	stored.UpdatedAt = now
	if thread, ok := m.threads[stored.ThreadID]; ok {
		m.bumpThreadLocked(thread, stored, now)
	}
	return nil
}

func (m *MockConversationStore) GetMessage(ctx context.Context, id string) (*domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.messages[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *msg
	return &cp, nil
}

func (m *MockConversationStore) ListMessages(ctx context.Context, threadID string) ([]*domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Message
	for _, msg := range m.messages {
		if msg.ThreadID == threadID {
			cp := *msg
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MockConversationStore) bumpThreadLocked(thread *domain.Thread, msg *domain.Message, now time.Time) {
	thread.UpdatedAt = now
	if msg.Role == domain.MessageRoleAssistant && msg.Metadata.Domain != "" {
		thread.LastDomainID = msg.Metadata.Domain
	}
}
