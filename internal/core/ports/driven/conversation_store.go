package driven

import (
	"context"

	"github.com/clearfield-labs/inquiry-core/internal/core/domain"
)

// ConversationStore is the append-only per-thread message log.
// Appending or updating a message bumps the owning thread's timestamp.
type ConversationStore interface {
	// CreateThread persists a new conversation thread
	CreateThread(ctx context.Context, thread *domain.Thread) error

	// GetThread retrieves a thread by id
	GetThread(ctx context.Context, id string) (*domain.Thread, error)

	// AppendMessage appends a message and bumps the thread timestamp.
	// Assistant messages also update the thread's last domain hint.
	AppendMessage(ctx context.Context, msg *domain.Message) error

	// UpdateMessage rewrites a message's content and metadata in place
	// and bumps the thread timestamp
	UpdateMessage(ctx context.Context, msg *domain.Message) error

	// GetMessage retrieves a message by id
	GetMessage(ctx context.Context, id string) (*domain.Message, error)

	// ListMessages returns a thread's messages oldest first
	ListMessages(ctx context.Context, threadID string) ([]*domain.Message, error)
}
