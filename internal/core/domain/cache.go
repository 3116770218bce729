package domain

import (
	"math"
	"time"
	"unicode/utf8"
)

const (
	// CacheSimilarityThreshold is the minimum cosine similarity for a
	// cache hit. Applied boundary-inclusive: similarity >= threshold.
	CacheSimilarityThreshold = 0.80

	// MaxRawResponseLen bounds the stored pre-formatting response.
	MaxRawResponseLen = 10000
)

// CacheEntry is one answered question in the semantic cache.
// Entries are created on save, mutated only to bump recency on hits,
// and deleted only by age-based retention cleanup.
type CacheEntry struct {
	ID        string    `json:"id"`
	Question  string    `json:"question"`
	Embedding []float32 `json:"embedding,omitempty"`
	Mode      string    `json:"mode"`

	// Response is the final (formatted) answer text
	Response string `json:"response"`

	// RawResponse is the pre-formatting answer, truncated to MaxRawResponseLen
	RawResponse string `json:"raw_response,omitempty"`

	Metadata AnswerMetadata `json:"metadata"`

	// ExternalResponseID is the completion service's response/task id
	ExternalResponseID string `json:"external_response_id,omitempty"`

	// IsDeepMode marks answers produced by a long-running completion
	IsDeepMode bool `json:"is_deep_mode"`

	CreatedAt      time.Time `json:"created_at"`
	LastAccessedAt time.Time `json:"last_accessed_at"`
	AccessCount    int       `json:"access_count"`

	// IsRefreshed is set when this entry supersedes an earlier one
	IsRefreshed bool `json:"is_refreshed"`

	// OriginalCacheID links a refreshed entry to the entry it supersedes.
	// When set, it must reference a prior entry for the same logical
	// question and mode.
	OriginalCacheID *string `json:"original_cache_id,omitempty"`
}

// CacheMatch is a search candidate with its similarity to the query vector.
type CacheMatch struct {
	Entry      *CacheEntry
	Similarity float64
}

// TruncateRaw bounds a raw response to MaxRawResponseLen bytes, cutting on a
// rune boundary so a multi-byte character is never split.
func TruncateRaw(raw string) string {
	if len(raw) <= MaxRawResponseLen {
		return raw
	}
	cut := MaxRawResponseLen
	for cut > 0 && !utf8.RuneStart(raw[cut]) {
		cut--
	}
	return raw[:cut]
}

// CosineSimilarity computes the cosine of the angle between two vectors.
// Returns 0 for mismatched or zero-length vectors.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
