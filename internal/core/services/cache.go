package services

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/clearfield-labs/inquiry-core/internal/core/domain"
	"github.com/clearfield-labs/inquiry-core/internal/core/ports/driven"
	"github.com/clearfield-labs/inquiry-core/internal/runtime"
)

// CacheService is the semantic answer cache. Lookups and saves are
// best-effort: when the embedding service is unavailable or the store
// errors, the cache is transparently bypassed and the caller proceeds
// to a fresh completion.
type CacheService struct {
	store    driven.CacheStore
	services *runtime.Services
	logger   *slog.Logger

	// now is injectable for tests
	now func() time.Time

	// searchLimit bounds candidates fetched per lookup
	searchLimit int
}

// CacheSaveParams carries everything needed to persist a new cache entry.
type CacheSaveParams struct {
	Question           string
	Mode               string
	Response           string
	RawResponse        string
	Metadata           domain.AnswerMetadata
	ExternalResponseID string
	IsDeepMode         bool

	// OriginalCacheID links a refreshed entry to the one it supersedes
	OriginalCacheID *string
}

// NewCacheService creates a new semantic cache service.
func NewCacheService(store driven.CacheStore, services *runtime.Services, logger *slog.Logger) *CacheService {
	if logger == nil {
		logger = slog.Default()
	}
	return &CacheService{
		store:       store,
		services:    services,
		logger:      logger,
		now:         time.Now,
		searchLimit: 5,
	}
}

// FindSimilar looks up a previously answered question semantically close to
// the given one, scoped to the same answer mode. A hit requires cosine
// similarity >= domain.CacheSimilarityThreshold (boundary inclusive); ties
// go to the most recently accessed entry. Hits bump the entry's recency.
//
// Returns (nil, nil) on a miss and whenever the cache cannot be consulted.
func (s *CacheService) FindSimilar(ctx context.Context, question, mode string) (*domain.CacheMatch, error) {
	embedding := s.embedQuestion(ctx, question)
	if embedding == nil {
		return nil, nil
	}

	candidates, err := s.store.Search(ctx, embedding, mode, s.searchLimit)
	if err != nil {
		s.logger.Warn("cache search failed, bypassing cache", "error", err)
		return nil, nil
	}

	best := pickBestMatch(candidates)
	if best == nil {
		return nil, nil
	}

	if err := s.store.Touch(ctx, best.Entry.ID, s.now().UTC()); err != nil {
		// A hit is still a hit even when the recency bump is lost.
		s.logger.Warn("cache touch failed", "cache_id", best.Entry.ID, "error", err)
	}

	s.logger.Debug("cache hit",
		"cache_id", best.Entry.ID,
		"similarity", best.Similarity,
		"mode", mode,
	)
	return best, nil
}

// Save persists a freshly computed answer for future lookups. Failures are
// logged and swallowed: losing a cache write never fails the request that
// produced the answer. Returns the stored entry, or nil when nothing was
// stored.
func (s *CacheService) Save(ctx context.Context, params CacheSaveParams) *domain.CacheEntry {
	embedding := s.embedQuestion(ctx, params.Question)
	if embedding == nil {
		return nil
	}

	now := s.now().UTC()
	entry := &domain.CacheEntry{
		ID:                 domain.GenerateID(),
		Question:           params.Question,
		Embedding:          embedding,
		Mode:               params.Mode,
		Response:           params.Response,
		RawResponse:        domain.TruncateRaw(params.RawResponse),
		Metadata:           params.Metadata,
		ExternalResponseID: params.ExternalResponseID,
		IsDeepMode:         params.IsDeepMode,
		CreatedAt:          now,
		LastAccessedAt:     now,
		AccessCount:        0,
		IsRefreshed:        params.OriginalCacheID != nil,
		OriginalCacheID:    params.OriginalCacheID,
	}

	if err := s.store.Save(ctx, entry); err != nil {
		s.logger.Warn("cache save failed", "mode", params.Mode, "error", err)
		return nil
	}
	return entry
}

// Cleanup deletes entries not accessed within maxAge.
func (s *CacheService) Cleanup(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := s.now().UTC().Add(-maxAge)
	return s.store.Cleanup(ctx, cutoff)
}

// embedQuestion returns the question's vector, or nil when the embedding
// service is missing or failing. Unavailability is a bypass, not an error.
func (s *CacheService) embedQuestion(ctx context.Context, question string) []float32 {
	svc := s.services.EmbeddingService()
	if svc == nil {
		s.logger.Debug("embedding service unavailable, bypassing cache")
		return nil
	}
	embedding, err := svc.EmbedQuery(ctx, question)
	if err != nil {
		s.logger.Warn("embedding failed, bypassing cache", "error", err)
		return nil
	}
	if len(embedding) == 0 {
		return nil
	}
	return embedding
}

// pickBestMatch applies the hit threshold and ordering to search candidates
// regardless of how the backing store sorted them.
func pickBestMatch(candidates []*domain.CacheMatch) *domain.CacheMatch {
	eligible := make([]*domain.CacheMatch, 0, len(candidates))
	for _, c := range candidates {
		if c.Similarity >= domain.CacheSimilarityThreshold {
			eligible = append(eligible, c)
		}
	}
	if len(eligible) == 0 {
		return nil
	}
	sort.SliceStable(eligible, func(i, j int) bool {
		if eligible[i].Similarity != eligible[j].Similarity {
			return eligible[i].Similarity > eligible[j].Similarity
		}
		return eligible[i].Entry.LastAccessedAt.After(eligible[j].Entry.LastAccessedAt)
	})
	return eligible[0]
}
