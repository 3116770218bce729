package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/clearfield-labs/inquiry-core/internal/core/domain"
)

// MockCacheStore is an in-memory CacheStore computing cosine similarity
// over stored entries, mirroring the Postgres backend's linear scan.
type MockCacheStore struct {
	mu      sync.Mutex
	entries map[string]*domain.CacheEntry
	saveErr error
}

// NewMockCacheStore creates a new MockCacheStore
func NewMockCacheStore() *MockCacheStore {
	return &MockCacheStore{entries: make(map[string]*domain.CacheEntry)}
}

func (m *MockCacheStore) Save(ctx context.Context, entry *domain.CacheEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	cp := *entry
	m.entries[entry.ID] = &cp
	return nil
}

func (m *MockCacheStore) Get(ctx context.Context, id string) (*domain.CacheEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *entry
	return &cp, nil
}

func (m *MockCacheStore) Search(ctx context.Context, embedding []float32, mode string, limit int) ([]*domain.CacheMatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matches []*domain.CacheMatch
	for _, entry := range m.entries {
		if mode != "" && entry.Mode != mode {
			continue
		}
		cp := *entry
		matches = append(matches, &domain.CacheMatch{
			Entry:      &cp,
			Similarity: domain.CosineSimilarity(embedding, entry.Embedding),
		})
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Similarity != matches[j].Similarity {
			return matches[i].Similarity > matches[j].Similarity
		}
		return matches[i].Entry.LastAccessedAt.After(matches[j].Entry.LastAccessedAt)
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func (m *MockCacheStore) Touch(ctx context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[id]
	if !ok {
		return domain.ErrNotFound
	}
	entry.AccessCount++
	entry.LastAccessedAt = at
	return nil
}

func (m *MockCacheStore) Cleanup(ctx context.Context, olderThan time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	deleted := 0
	for id, entry := range m.entries {
		if entry.LastAccessedAt.Before(olderThan) {
			delete(m.entries, id)
			deleted++
		}
	}
	return deleted, nil
}

// Len returns the number of stored entries.
func (m *MockCacheStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Entries returns all stored entries in no particular order.
func (m *MockCacheStore) Entries() []*domain.CacheEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.CacheEntry, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e)
	}
	return out
}

// SetSaveErr makes subsequent saves fail.
func (m *MockCacheStore) SetSaveErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveErr = err
}
