package domain

import "time"

// MessageRole identifies who authored a message.
type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
)

// Thread is one conversation. Its UpdatedAt is bumped whenever a message
// is appended or rewritten, and LastDomainID carries the prior-conversation
// domain hint used by the resolver.
type Thread struct {
	ID           string    `json:"id"`
	Title        string    `json:"title,omitempty"`
	LastDomainID string    `json:"last_domain_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewThread creates an empty conversation thread.
func NewThread(title string) *Thread {
	now := time.Now().UTC()
	return &Thread{
		ID:        GenerateID(),
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Message is one entry in a thread's append-only log. Assistant messages
// are updated in place as a deep-mode job progresses (placeholder, then
// near-completion notice, then the final answer).
type Message struct {
	ID        string         `json:"id"`
	ThreadID  string         `json:"thread_id"`
	Role      MessageRole    `json:"role"`
	Content   string         `json:"content"`
	Metadata  AnswerMetadata `json:"metadata"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// NewMessage creates a message for a thread.
func NewMessage(threadID string, role MessageRole, content string) *Message {
	now := time.Now().UTC()
	return &Message{
		ID:        GenerateID(),
		ThreadID:  threadID,
		Role:      role,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// User-visible content written by the deep-mode pipeline. The user always
// ends up with an answer, a placeholder later replaced, or an explicit
// error or timeout notice.
const (
	PlaceholderWorking = "Working on your question in the background. " +
		"This deep analysis can take a while; check back shortly."
	PlaceholderFinalizing = "Almost done. Retrieving and formatting the answer..."
	NoticeJobFailed       = "Something went wrong while answering this question. Please try again."
	NoticeJobTimedOut     = "This question took too long to answer and was abandoned. Please try again."
)
