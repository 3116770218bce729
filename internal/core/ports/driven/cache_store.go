package driven

import (
	"context"
	"time"

	"github.com/clearfield-labs/inquiry-core/internal/core/domain"
)

// CacheStore persists semantic cache entries and searches them by vector
// similarity. Implementations back onto Qdrant (preferred) or Postgres
// with an in-process cosine scan.
type CacheStore interface {
	// Save persists a new cache entry
	Save(ctx context.Context, entry *domain.CacheEntry) error

	// Get retrieves an entry by id
	Get(ctx context.Context, id string) (*domain.CacheEntry, error)

	// Search returns up to limit candidates for the query vector scoped to
	// the given mode, ordered by descending similarity
	Search(ctx context.Context, embedding []float32, mode string, limit int) ([]*domain.CacheMatch, error)

	// Touch bumps access_count and last_accessed_at for a hit
	Touch(ctx context.Context, id string, at time.Time) error

	// Cleanup deletes entries whose last_accessed_at predates the cutoff
	// and returns the number deleted
	Cleanup(ctx context.Context, olderThan time.Time) (int, error)
}
