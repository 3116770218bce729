package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"sort"
	"time"

	"github.com/clearfield-labs/inquiry-core/internal/core/domain"
	"github.com/clearfield-labs/inquiry-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.CacheStore = (*CacheStore)(nil)

// CacheStore implements driven.CacheStore using PostgreSQL. Embeddings are
// stored as JSON and similarity search is a linear cosine scan in process.
// This is the fallback backend; deployments with Qdrant available should
// prefer it for larger caches.
type CacheStore struct {
	db *DB
}

// NewCacheStore creates a new CacheStore
func NewCacheStore(db *DB) *CacheStore {
	return &CacheStore{db: db}
}

const cacheColumns = `id, question, embedding, mode, response, raw_response, metadata,
       external_response_id, is_deep_mode, created_at, last_accessed_at,
       access_count, is_refreshed, original_cache_id`

// Save persists a new cache entry
func (s *CacheStore) Save(ctx context.Context, entry *domain.CacheEntry) error {
	embeddingJSON, err := json.Marshal(entry.Embedding)
	if err != nil {
		return err
	}
	metadataJSON, err := json.Marshal(entry.Metadata)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO cache_entries (id, question, embedding, mode, response, raw_response, metadata,
		                           external_response_id, is_deep_mode, created_at, last_accessed_at,
		                           access_count, is_refreshed, original_cache_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err = s.db.ExecContext(ctx, query,
		entry.ID,
		entry.Question,
		embeddingJSON,
		entry.Mode,
		entry.Response,
		entry.RawResponse,
		metadataJSON,
		entry.ExternalResponseID,
		entry.IsDeepMode,
		entry.CreatedAt,
		entry.LastAccessedAt,
		entry.AccessCount,
		entry.IsRefreshed,
		NullString(entry.OriginalCacheID),
	)
	if isUniqueViolation(err) {
		return domain.ErrAlreadyExists
	}
	return err
}

// Get retrieves an entry by ID
func (s *CacheStore) Get(ctx context.Context, id string) (*domain.CacheEntry, error) {
	query := `SELECT ` + cacheColumns + ` FROM cache_entries WHERE id = $1`
	return s.scanEntry(s.db.QueryRowContext(ctx, query, id))
}

// Search returns up to limit candidates for the query vector scoped to the
// given mode, ordered by similarity then recency
func (s *CacheStore) Search(ctx context.Context, embedding []float32, mode string, limit int) ([]*domain.CacheMatch, error) {
	query := `SELECT ` + cacheColumns + ` FROM cache_entries WHERE mode = $1`
	rows, err := s.db.QueryContext(ctx, query, mode)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []*domain.CacheMatch
	for rows.Next() {
		entry, err := s.scanEntry(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, &domain.CacheMatch{
			Entry:      entry,
			Similarity: domain.CosineSimilarity(embedding, entry.Embedding),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(matches, func(i, j int) bool {
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

// Touch bumps access_count and last_accessed_at for a hit
func (s *CacheStore) Touch(ctx context.Context, id string, at time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE cache_entries
		SET access_count = access_count + 1, last_accessed_at = $2
		WHERE id = $1
	`, id, at)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Cleanup deletes entries whose last_accessed_at predates the cutoff
func (s *CacheStore) Cleanup(ctx context.Context, olderThan time.Time) (int, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM cache_entries WHERE last_accessed_at < $1
	`, olderThan)
	if err != nil {
		return 0, err
	}
	n, err := result.RowsAffected()
	return int(n), err
}

func (s *CacheStore) scanEntry(row rowScanner) (*domain.CacheEntry, error) {
	var entry domain.CacheEntry
	var embeddingJSON, metadataJSON []byte
	var originalCacheID sql.NullString

	err := row.Scan(
		&entry.ID,
		&entry.Question,
		&embeddingJSON,
		&entry.Mode,
		&entry.Response,
		&entry.RawResponse,
		&metadataJSON,
		&entry.ExternalResponseID,
		&entry.IsDeepMode,
		&entry.CreatedAt,
		&entry.LastAccessedAt,
		&entry.AccessCount,
		&entry.IsRefreshed,
		&originalCacheID,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(embeddingJSON, &entry.Embedding); err != nil {
		return nil, err
	}
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &entry.Metadata); err != nil {
			return nil, err
		}
	}
	entry.Metadata = domain.ParseAnswerMetadata(entry.Metadata)
	entry.OriginalCacheID = StringPtr(originalCacheID)

	return &entry, nil
}
