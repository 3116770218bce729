package driven

import (
	"context"
	"time"

	"github.com/clearfield-labs/inquiry-core/internal/core/domain"
)

// DomainRegistry exposes the periodically refreshed list of knowledge
// domains. Reads serve from an in-memory snapshot; Refresh replaces it.
type DomainRegistry interface {
	// List returns the current domain config snapshot
	List() []domain.DomainConfig

	// Exists reports whether a domain id is currently registered
	Exists(id string) bool

	// Default returns the fallback domain config
	Default() domain.DomainConfig

	// Refresh reloads the registry from its upstream source
	Refresh(ctx context.Context) error

	// LastSyncedAt is when the snapshot was last refreshed
	LastSyncedAt() time.Time
}
