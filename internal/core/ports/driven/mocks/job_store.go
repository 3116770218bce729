package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/clearfield-labs/inquiry-core/internal/core/domain"
)

// MockJobStore is an in-memory JobStore for testing. It enforces the same
// status state machine as the durable implementation.
type MockJobStore struct {
	mu   sync.Mutex
	jobs map[string]*domain.Job

	// History records every observed status per job, in order, so tests
	// can assert monotonicity.
	History map[string][]domain.JobStatus

	// Now overrides the clock used for updated_at (nil means time.Now)
	Now func() time.Time
}

// NewMockJobStore creates a new MockJobStore
func NewMockJobStore() *MockJobStore {
	return &MockJobStore{
		jobs:    make(map[string]*domain.Job),
		History: make(map[string][]domain.JobStatus),
	}
}

func (m *MockJobStore) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

func (m *MockJobStore) Create(ctx context.Context, job *domain.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[job.ID]; ok {
		return domain.ErrAlreadyExists
	}
	cp := *job
	m.jobs[job.ID] = &cp
	m.History[job.ID] = append(m.History[job.ID], job.Status)
	return nil
}

func (m *MockJobStore) Get(ctx context.Context, id string) (*domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *job
	return &cp, nil
}

func (m *MockJobStore) GetByExternalID(ctx context.Context, externalTaskID string) (*domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, job := range m.jobs {
		if job.ExternalTaskID == externalTaskID {
			cp := *job
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockJobStore) UpdateStatus(ctx context.Context, id string, upd domain.JobUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return domain.ErrNotFound
	}
	if err := job.Apply(upd, m.now()); err != nil {
		return err
	}
	if upd.Status != nil {
		m.History[id] = append(m.History[id], *upd.Status)
	}
	return nil
}

func (m *MockJobStore) GetStuckJobs(ctx context.Context, maxAge time.Duration) ([]*domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := m.now().Add(-maxAge)
	var out []*domain.Job
	for _, job := range m.jobs {
		if job.Stuck(cutoff) {
			cp := *job
			out = append(out, &cp)
		}
	}
	sortJobs(out)
	return out, nil
}

func (m *MockJobStore) GetActiveJobs(ctx context.Context) ([]*domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Job
	for _, job := range m.jobs {
		if !job.Status.Terminal() {
			cp := *job
			out = append(out, &cp)
		}
	}
	sortJobs(out)
	return out, nil
}

func (m *MockJobStore) GetAllJobs(ctx context.Context) ([]*domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Job
	for _, job := range m.jobs {
		cp := *job
		out = append(out, &cp)
	}
	sortJobs(out)
	return out, nil
}

func (m *MockJobStore) CleanupOldJobs(ctx context.Context, retention time.Duration) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := m.now().Add(-retention)
	deleted := 0
	for id, job := range m.jobs {
		if job.Status.Terminal() && job.UpdatedAt.Before(cutoff) {
			delete(m.jobs, id)
			deleted++
		}
	}
	return deleted, nil
}

// SetUpdatedAt backdates a job for staleness tests.
func (m *MockJobStore) SetUpdatedAt(id string, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if job, ok := m.jobs[id]; ok {
		job.UpdatedAt = at
	}
}

func sortJobs(jobs []*domain.Job) {
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})
}
