package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/clearfield-labs/inquiry-core/internal/core/domain"
)

// MockDomainRegistry is an in-memory DomainRegistry for testing.
type MockDomainRegistry struct {
	mu       sync.RWMutex
	configs  []domain.DomainConfig
	lastSync time.Time
	refreshN int
}

// NewMockDomainRegistry creates a registry with the given configs.
// The default domain is appended when missing.
func NewMockDomainRegistry(configs ...domain.DomainConfig) *MockDomainRegistry {
	hasDefault := false
	for _, c := range configs {
		if c.ID == domain.DefaultDomainID {
			hasDefault = true
		}
	}
	if !hasDefault {
		configs = append(configs, domain.DomainConfig{
			ID:   domain.DefaultDomainID,
			Name: "Default",
		})
	}
	return &MockDomainRegistry{configs: configs, lastSync: time.Now()}
}

func (m *MockDomainRegistry) List() []domain.DomainConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.DomainConfig, len(m.configs))
	copy(out, m.configs)
	return out
}

func (m *MockDomainRegistry) Exists(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.configs {
		if c.ID == id {
			return true
		}
	}
	return false
}

func (m *MockDomainRegistry) Default() domain.DomainConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.configs {
		if c.ID == domain.DefaultDomainID {
			return c
		}
	}
	return domain.DomainConfig{ID: domain.DefaultDomainID, Name: "Default"}
}

func (m *MockDomainRegistry) Refresh(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshN++
	m.lastSync = time.Now()
	return nil
}

func (m *MockDomainRegistry) LastSyncedAt() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastSync
}

// SetLastSyncedAt backdates the snapshot, simulating a stale registry.
func (m *MockDomainRegistry) SetLastSyncedAt(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastSync = t
}

// SetConfigs replaces the registry snapshot, simulating a registry shrink.
func (m *MockDomainRegistry) SetConfigs(configs []domain.DomainConfig) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.configs = configs
}

// RefreshCalls returns how many times Refresh was invoked.
func (m *MockDomainRegistry) RefreshCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.refreshN
}
