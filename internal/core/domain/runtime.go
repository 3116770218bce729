package domain

import "sync"

// RuntimeConfig tracks which services are available at runtime.
// This is determined at startup and can be updated dynamically for AI services.
// Thread-safe for concurrent access.
type RuntimeConfig struct {
	mu sync.RWMutex

	// Static (set at startup, read-only)
	QueueBackend string // "redis" or "postgres"
	CacheBackend string // "qdrant" or "postgres"

	// Dynamic capability flags (updated when AI services change)
	embeddingAvailable bool
	formatterAvailable bool
}

// NewRuntimeConfig creates a new RuntimeConfig with initial values
func NewRuntimeConfig(queueBackend, cacheBackend string) *RuntimeConfig {
	return &RuntimeConfig{
		QueueBackend: queueBackend,
		CacheBackend: cacheBackend,
	}
}

// EmbeddingAvailable returns whether the embedding service is available.
// When false, the semantic cache is transparently bypassed.
func (c *RuntimeConfig) EmbeddingAvailable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.embeddingAvailable
}

// FormatterAvailable returns whether the secondary formatting model is
// available. When false, raw answers are served unmodified.
func (c *RuntimeConfig) FormatterAvailable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.formatterAvailable
}

// SetEmbeddingAvailable updates the embedding availability flag
func (c *RuntimeConfig) SetEmbeddingAvailable(available bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.embeddingAvailable = available
}

// SetFormatterAvailable updates the formatter availability flag
func (c *RuntimeConfig) SetFormatterAvailable(available bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.formatterAvailable = available
}
