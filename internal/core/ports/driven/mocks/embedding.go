package mocks

import (
	"context"
	"hash/fnv"
)

// MockEmbeddingService is a mock implementation of EmbeddingService for testing.
// By default it generates deterministic embeddings from a text hash; fixed
// vectors can be pinned per text to control similarity in cache tests.
type MockEmbeddingService struct {
	dimensions  int
	failNext    bool
	unavailable bool
	fixed       map[string][]float32
}

// NewMockEmbeddingService creates a new MockEmbeddingService
func NewMockEmbeddingService() *MockEmbeddingService {
	return &MockEmbeddingService{
		dimensions: 384,
		fixed:      make(map[string][]float32),
	}
}

func (m *MockEmbeddingService) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	if err := m.checkAvailability(); err != nil {
		return nil, err
	}
	return m.embeddingFor(query), nil
}

func (m *MockEmbeddingService) Dimensions() int {
	return m.dimensions
}

func (m *MockEmbeddingService) HealthCheck(ctx context.Context) error {
	return nil
}

func (m *MockEmbeddingService) Close() error {
	return nil
}

func (m *MockEmbeddingService) checkAvailability() error {
	if m.unavailable {
		return context.DeadlineExceeded
	}
	if m.failNext {
		m.failNext = false
		return context.DeadlineExceeded
	}
	return nil
}

func (m *MockEmbeddingService) embeddingFor(text string) []float32 {
	if v, ok := m.fixed[text]; ok {
		return v
	}
	return m.generateEmbedding(text)
}

// generateEmbedding generates a deterministic embedding based on text hash.
// Components are centred so distinct texts embed near-orthogonally, keeping
// them well clear of the cache hit threshold.
func (m *MockEmbeddingService) generateEmbedding(text string) []float32 {
	h := fnv.New32a()
	h.Write([]byte(text))
	seed := h.Sum32()

	embedding := make([]float32, m.dimensions)
	for i := range embedding {
		seed = seed*1103515245 + 12345
		embedding[i] = float32(seed%1000)/1000.0 - 0.5
	}
	return embedding
}

// Helper methods for testing

// SetFixed pins the embedding returned for a specific text.
func (m *MockEmbeddingService) SetFixed(text string, vector []float32) {
	m.fixed[text] = vector
	m.dimensions = len(vector)
}

func (m *MockEmbeddingService) SetFailNext(fail bool) {
	m.failNext = fail
}

// SetUnavailable makes every call fail, simulating missing credentials.
func (m *MockEmbeddingService) SetUnavailable(unavailable bool) {
	m.unavailable = unavailable
}

func (m *MockEmbeddingService) SetDimensions(dim int) {
	m.dimensions = dim
}
