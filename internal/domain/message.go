package domain

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// MessageRole represents the sender of a message
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Message is one immutable turn in a session's append-only log. Ordering is
// (created_at, id) ascending. A trailing user turn without an assistant reply
// is a legitimate state: it means the generation call for that turn failed.
type Message struct {
	ID        uuid.UUID       `json:"id"`
	SessionID uuid.UUID       `json:"session_id"`
	Role      MessageRole     `json:"role"`
	Content   string          `json:"content"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// MessageRepository defines the interface for message storage
type MessageRepository interface {
	Create(ctx context.Context, message *Message) error
	// ListBySession returns the full log ordered by (created_at, id) ascending.
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]Message, error)
	// ListBefore returns the most recent limit messages committed strictly
	// before (createdAt, beforeID), in chronological order. This is the
	// history window for prompt building; older turns are dropped.
	ListBefore(ctx context.Context, sessionID uuid.UUID, createdAt time.Time, beforeID uuid.UUID, limit int) ([]Message, error)
}
