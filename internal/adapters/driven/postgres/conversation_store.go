package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/clearfield-labs/inquiry-core/internal/core/domain"
	"github.com/clearfield-labs/inquiry-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.ConversationStore = (*ConversationStore)(nil)

// ConversationStore implements driven.ConversationStore using PostgreSQL
type ConversationStore struct {
	db *DB
}

// NewConversationStore creates a new ConversationStore
func NewConversationStore(db *DB) *ConversationStore {
	return &ConversationStore{db: db}
}

// CreateThread persists a new conversation thread
func (s *ConversationStore) CreateThread(ctx context.Context, thread *domain.Thread) error {
	query := `
		INSERT INTO threads (id, title, last_domain_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.db.ExecContext(ctx, query,
		thread.ID,
		thread.Title,
		thread.LastDomainID,
		thread.CreatedAt,
		thread.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return domain.ErrAlreadyExists
	}
	return err
}

// GetThread retrieves a thread by ID
func (s *ConversationStore) GetThread(ctx context.Context, id string) (*domain.Thread, error) {
	query := `SELECT id, title, last_domain_id, created_at, updated_at FROM threads WHERE id = $1`

	var thread domain.Thread
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&thread.ID,
		&thread.Title,
		&thread.LastDomainID,
		&thread.CreatedAt,
		&thread.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &thread, nil
}

// AppendMessage appends a message and bumps the thread timestamp. Assistant
// messages also refresh the thread's last domain hint from their metadata.
func (s *ConversationStore) AppendMessage(ctx context.Context, msg *domain.Message) error {
	metadataJSON, err := json.Marshal(msg.Metadata)
	if err != nil {
		return err
	}

	return s.db.Transaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO messages (id, thread_id, role, content, metadata, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`,
			msg.ID,
			msg.ThreadID,
			string(msg.Role),
			msg.Content,
			metadataJSON,
			msg.CreatedAt,
			msg.UpdatedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return domain.ErrAlreadyExists
			}
			return err
		}
		return s.bumpThread(ctx, tx, msg, time.Now().UTC())
	})
}

// UpdateMessage rewrites a message's content and metadata in place and bumps
// the thread timestamp
func (s *ConversationStore) UpdateMessage(ctx context.Context, msg *domain.Message) error {
	metadataJSON, err := json.Marshal(msg.Metadata)
	if err != nil {
		return err
	}

	return s.db.Transaction(ctx, func(tx *sql.Tx) error {
		now := time.Now().UTC()
		result, err := tx.ExecContext(ctx, `
			UPDATE messages
			SET content = $2, metadata = $3, updated_at = $4
			WHERE id = $1
		`, msg.ID, msg.Content, metadataJSON, now)
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
		return s.bumpThread(ctx, tx, msg, now)
	})
}

// GetMessage retrieves a message by ID
func (s *ConversationStore) GetMessage(ctx context.Context, id string) (*domain.Message, error) {
	query := `
		SELECT id, thread_id, role, content, metadata, created_at, updated_at
		FROM messages
		WHERE id = $1
	`
	return s.scanMessage(s.db.QueryRowContext(ctx, query, id))
}

// ListMessages returns a thread's messages oldest first
func (s *ConversationStore) ListMessages(ctx context.Context, threadID string) ([]*domain.Message, error) {
	query := `
		SELECT id, thread_id, role, content, metadata, created_at, updated_at
		FROM messages
		WHERE thread_id = $1
		ORDER BY created_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, threadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []*domain.Message
	for rows.Next() {
		msg, err := s.scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// bumpThread advances the owning thread's updated_at; assistant messages
// carrying a resolved domain also refresh last_domain_id.
func (s *ConversationStore) bumpThread(ctx context.Context, tx *sql.Tx, msg *domain.Message, now time.Time) error {
	if msg.Role == domain.MessageRoleAssistant && msg.Metadata.Domain != "" {
		_, err := tx.ExecContext(ctx, `
			UPDATE threads SET updated_at = $2, last_domain_id = $3 WHERE id = $1
		`, msg.ThreadID, now, msg.Metadata.Domain)
		return err
	}
	_, err := tx.ExecContext(ctx, `UPDATE threads SET updated_at = $2 WHERE id = $1`, msg.ThreadID, now)
	return err
}

func (s *ConversationStore) scanMessage(row rowScanner) (*domain.Message, error) {
	var msg domain.Message
	var role string
	var metadataJSON []byte

	err := row.Scan(
		&msg.ID,
		&msg.ThreadID,
		&role,
		&msg.Content,
		&metadataJSON,
		&msg.CreatedAt,
		&msg.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	msg.Role = domain.MessageRole(role)
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &msg.Metadata); err != nil {
			return nil, err
		}
	}
	return &msg, nil
}
