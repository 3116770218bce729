package qdrant

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/clearfield-labs/inquiry-core/internal/core/domain"
	"github.com/clearfield-labs/inquiry-core/internal/core/ports/driven"
)

const defaultCollection = "inquiry_cache"

// Point IDs in Qdrant must be UUIDs, so logical entry IDs are mapped
// through a deterministic namespace UUID. The logical ID travels in the
// payload.
var pointNamespace = uuid.MustParse("9f1c6a3e-2d44-4d8a-9b6e-0c5f4a1e7b21")

// Verify interface compliance
var _ driven.CacheStore = (*CacheStore)(nil)

// CacheStore implements the semantic cache on Qdrant. Similarity search
// runs server-side against a cosine-distance collection, unlike the
// Postgres store's in-process scan.
type CacheStore struct {
	client     *qdrant.Client
	collection string
}

// Config holds connection settings for the Qdrant cache backend.
type Config struct {
	Host       string
	Port       int
	Collection string

	// Dimensions is the embedding vector size the collection is created with
	Dimensions int
}

// NewCacheStore connects to Qdrant and ensures the cache collection exists.
func NewCacheStore(cfg Config) (*CacheStore, error) {
	if cfg.Collection == "" {
		cfg.Collection = defaultCollection
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host: cfg.Host,
		Port: cfg.Port,
	})
	if err != nil {
		return nil, fmt.Errorf("create qdrant client: %w", err)
	}

	s := &CacheStore{
		client:     client,
		collection: cfg.Collection,
	}

	if err := s.ensureCollection(context.Background(), cfg.Dimensions); err != nil {
		return nil, fmt.Errorf("ensure collection %s: %w", cfg.Collection, err)
	}

	return s, nil
}

func (s *CacheStore) ensureCollection(ctx context.Context, dimensions int) error {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("check collection: %w", err)
	}
	if exists {
		return nil
	}

	return s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dimensions),
			Distance: qdrant.Distance_Cosine,
		}),
	})
}

// Save persists a new cache entry as a Qdrant point.
func (s *CacheStore) Save(ctx context.Context, entry *domain.CacheEntry) error {
	payload, err := entryPayload(entry)
	if err != nil {
		return err
	}

	_, err = s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Points: []*qdrant.PointStruct{
			{
				Id:      qdrant.NewID(pointID(entry.ID)),
				Vectors: qdrant.NewVectorsDense(entry.Embedding),
				Payload: qdrant.NewValueMap(payload),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("upsert cache point: %w", err)
	}
	return nil
}

// Get retrieves an entry by its logical id.
func (s *CacheStore) Get(ctx context.Context, id string) (*domain.CacheEntry, error) {
	points, err := s.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: s.collection,
		Ids:            []*qdrant.PointId{qdrant.NewID(pointID(id))},
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get cache point: %w", err)
	}
	if len(points) == 0 {
		return nil, domain.ErrNotFound
	}

	entry, err := entryFromPayload(points[0].Payload)
	if err != nil {
		return nil, err
	}
	if v := points[0].Vectors.GetVector(); v != nil {
		entry.Embedding = v.Data
	}
	return entry, nil
}

// Search returns up to limit candidates for the query vector scoped to mode,
// ordered by descending cosine similarity.
func (s *CacheStore) Search(ctx context.Context, embedding []float32, mode string, limit int) ([]*domain.CacheMatch, error) {
	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQueryDense(embedding),
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatch("mode", mode),
			},
		},
		Limit:       qdrant.PtrOf(uint64(limit)),
		WithPayload: qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("query cache: %w", err)
	}

	matches := make([]*domain.CacheMatch, 0, len(results))
	for _, point := range results {
		entry, err := entryFromPayload(point.Payload)
		if err != nil {
			return nil, err
		}
		matches = append(matches, &domain.CacheMatch{
			Entry:      entry,
			Similarity: float64(point.Score),
		})
	}
	return matches, nil
}

// Touch bumps access_count and last_accessed_at for a hit.
func (s *CacheStore) Touch(ctx context.Context, id string, at time.Time) error {
	entry, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	_, err = s.client.SetPayload(ctx, &qdrant.SetPayloadPoints{
		CollectionName: s.collection,
		Payload: qdrant.NewValueMap(map[string]any{
			"access_count":     entry.AccessCount + 1,
			"last_accessed_at": at.Unix(),
		}),
		PointsSelector: qdrant.NewPointsSelector(qdrant.NewID(pointID(id))),
	})
	if err != nil {
		return fmt.Errorf("touch cache point: %w", err)
	}
	return nil
}

// Cleanup deletes entries whose last_accessed_at predates the cutoff.
func (s *CacheStore) Cleanup(ctx context.Context, olderThan time.Time) (int, error) {
	filter := &qdrant.Filter{
		Must: []*qdrant.Condition{
			qdrant.NewRange("last_accessed_at", &qdrant.Range{
				Lt: qdrant.PtrOf(float64(olderThan.Unix())),
			}),
		},
	}

	// Delete reports no count, so take it up front.
	count, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: s.collection,
		Filter:         filter,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("count stale cache points: %w", err)
	}
	if count == 0 {
		return 0, nil
	}

	_, err = s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collection,
		Points:         qdrant.NewPointsSelectorFilter(filter),
	})
	if err != nil {
		return 0, fmt.Errorf("delete stale cache points: %w", err)
	}

	return int(count), nil
}

// Close releases the underlying gRPC connection.
func (s *CacheStore) Close() error {
	return s.client.Close()
}

func pointID(entryID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(entryID)).String()
}

func entryPayload(entry *domain.CacheEntry) (map[string]any, error) {
	metadata, err := json.Marshal(entry.Metadata)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}

	payload := map[string]any{
		"id":                   entry.ID,
		"question":             entry.Question,
		"mode":                 entry.Mode,
		"response":             entry.Response,
		"raw_response":         entry.RawResponse,
		"metadata":             string(metadata),
		"external_response_id": entry.ExternalResponseID,
		"is_deep_mode":         entry.IsDeepMode,
		"created_at":           entry.CreatedAt.Unix(),
		"last_accessed_at":     entry.LastAccessedAt.Unix(),
		"access_count":         entry.AccessCount,
		"is_refreshed":         entry.IsRefreshed,
	}
	if entry.OriginalCacheID != nil {
		payload["original_cache_id"] = *entry.OriginalCacheID
	}
	return payload, nil
}

func entryFromPayload(payload map[string]*qdrant.Value) (*domain.CacheEntry, error) {
	entry := &domain.CacheEntry{
		ID:                 payloadString(payload, "id"),
		Question:           payloadString(payload, "question"),
		Mode:               payloadString(payload, "mode"),
		Response:           payloadString(payload, "response"),
		RawResponse:        payloadString(payload, "raw_response"),
		ExternalResponseID: payloadString(payload, "external_response_id"),
		IsDeepMode:         payloadBool(payload, "is_deep_mode"),
		CreatedAt:          time.Unix(payloadInt(payload, "created_at"), 0).UTC(),
		LastAccessedAt:     time.Unix(payloadInt(payload, "last_accessed_at"), 0).UTC(),
		AccessCount:        int(payloadInt(payload, "access_count")),
		IsRefreshed:        payloadBool(payload, "is_refreshed"),
	}

	if raw := payloadString(payload, "metadata"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &entry.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}
	entry.Metadata = domain.ParseAnswerMetadata(entry.Metadata)

	if original := payloadString(payload, "original_cache_id"); original != "" {
		entry.OriginalCacheID = &original
	}

	return entry, nil
}

func payloadString(payload map[string]*qdrant.Value, key string) string {
	if v, ok := payload[key]; ok {
		return v.GetStringValue()
	}
	return ""
}

func payloadInt(payload map[string]*qdrant.Value, key string) int64 {
	if v, ok := payload[key]; ok {
		return v.GetIntegerValue()
	}
	return 0
}

func payloadBool(payload map[string]*qdrant.Value, key string) bool {
	if v, ok := payload[key]; ok {
		return v.GetBoolValue()
	}
	return false
}
