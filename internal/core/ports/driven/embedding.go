package driven

import (
	"context"
)

// EmbeddingService generates question embeddings for the semantic cache.
// The service may be unavailable (missing credentials, network failure);
// callers treat that as a designed fail-open, never as an error.
type EmbeddingService interface {
	// EmbedQuery generates an embedding for a single question
	EmbedQuery(ctx context.Context, query string) ([]float32, error)

	// Dimensions returns the embedding dimension size
	Dimensions() int

	// HealthCheck verifies the embedding service is available
	HealthCheck(ctx context.Context) error

	// Close releases resources held by the embedding service
	Close() error
}
