package qdrant

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearfield-labs/inquiry-core/internal/core/domain"
)

func TestPointID_Deterministic(t *testing.T) {
	a := pointID("cache-entry-1")
	b := pointID("cache-entry-1")
	c := pointID("cache-entry-2")

	assert.Equal(t, a, b, "same entry id must map to the same point id")
	assert.NotEqual(t, a, c, "distinct entry ids must map to distinct point ids")

	// Qdrant only accepts UUIDs or unsigned integers as point ids
	_, err := uuid.Parse(a)
	require.NoError(t, err)
}

func TestEntryPayload_RoundTrip(t *testing.T) {
	original := "prior-entry"
	created := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	entry := &domain.CacheEntry{
		ID:          "entry-1",
		Question:    "what is an expense ratio",
		Mode:        domain.ModeBalanced,
		Response:    "The expense ratio is the annual fee a fund charges.",
		RawResponse: "raw engine text",
		Metadata: domain.AnswerMetadata{
			Domain:   "mutual-funds",
			Strategy: domain.StrategyKeywordMatch,
		},
		ExternalResponseID: "resp-9",
		IsDeepMode:         true,
		CreatedAt:          created,
		LastAccessedAt:     created.Add(time.Hour),
		AccessCount:        3,
		IsRefreshed:        true,
		OriginalCacheID:    &original,
	}

	payload, err := entryPayload(entry)
	require.NoError(t, err)

	got, err := entryFromPayload(qdrant.NewValueMap(payload))
	require.NoError(t, err)

	assert.Equal(t, entry.ID, got.ID)
	assert.Equal(t, entry.Question, got.Question)
	assert.Equal(t, entry.Mode, got.Mode)
	assert.Equal(t, entry.Response, got.Response)
	assert.Equal(t, entry.RawResponse, got.RawResponse)
	assert.Equal(t, entry.Metadata.Domain, got.Metadata.Domain)
	assert.Equal(t, entry.Metadata.Strategy, got.Metadata.Strategy)
	assert.Equal(t, entry.ExternalResponseID, got.ExternalResponseID)
	assert.True(t, got.IsDeepMode)
	assert.Equal(t, entry.CreatedAt, got.CreatedAt)
	assert.Equal(t, entry.LastAccessedAt, got.LastAccessedAt)
	assert.Equal(t, entry.AccessCount, got.AccessCount)
	assert.True(t, got.IsRefreshed)
	require.NotNil(t, got.OriginalCacheID)
	assert.Equal(t, original, *got.OriginalCacheID)
}

func TestEntryPayload_NoLineage(t *testing.T) {
	entry := &domain.CacheEntry{
		ID:             "entry-2",
		Question:       "q",
		Mode:           domain.ModeConcise,
		Response:       "a",
		CreatedAt:      time.Now().UTC().Truncate(time.Second),
		LastAccessedAt: time.Now().UTC().Truncate(time.Second),
	}

	payload, err := entryPayload(entry)
	require.NoError(t, err)
	assert.NotContains(t, payload, "original_cache_id")

	got, err := entryFromPayload(qdrant.NewValueMap(payload))
	require.NoError(t, err)
	assert.Nil(t, got.OriginalCacheID)
	assert.False(t, got.IsRefreshed)
}
