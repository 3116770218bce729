package ai

import (
	"github.com/clearfield-labs/inquiry-core/internal/core/ports/driven"
)

// ServiceConfig holds credentials for the optional AI services.
// Both services fail open: when unconfigured, the semantic cache is
// bypassed and raw answers are served unformatted.
type ServiceConfig struct {
	// APIKey authenticates against the OpenAI-compatible API
	APIKey string

	// BaseURL overrides the API endpoint (e.g. for a proxy)
	BaseURL string

	// EmbeddingModel selects the embedding model (default text-embedding-3-small)
	EmbeddingModel string

	// FormatterModel selects the chat model used for formatting (default gpt-4o-mini)
	FormatterModel string
}

// IsConfigured reports whether the config carries usable credentials.
func (c ServiceConfig) IsConfigured() bool {
	return c.APIKey != ""
}

// BuildEmbeddingService creates an embedding service from config.
// Returns nil, nil when unconfigured.
func BuildEmbeddingService(cfg ServiceConfig) (driven.EmbeddingService, error) {
	if !cfg.IsConfigured() {
		return nil, nil
	}
	return NewOpenAIEmbedding(cfg.APIKey, cfg.EmbeddingModel, cfg.BaseURL)
}

// BuildFormatterService creates a formatter service from config.
// Returns nil, nil when unconfigured.
func BuildFormatterService(cfg ServiceConfig) (driven.FormatterService, error) {
	if !cfg.IsConfigured() {
		return nil, nil
	}
	return NewOpenAIFormatter(cfg.APIKey, cfg.FormatterModel, cfg.BaseURL)
}
