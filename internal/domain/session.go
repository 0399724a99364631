package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ChatSession represents a category-bound conversation thread owned by one
// user. UpdatedAt advances on every committed message pair, so session lists
// reflect last activity rather than last read.
type ChatSession struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"user_id"`
	CategoryID uuid.UUID `json:"category_id"`
	Title      string    `json:"title"`
	Context    string    `json:"context,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// SessionSummary is a session row joined with its category and a derived
// message count for list views.
type SessionSummary struct {
	ChatSession
	CategoryName string `json:"category_name"`
	CategorySlug string `json:"category_slug"`
	MessageCount int    `json:"message_count"`
}

// SessionRepository defines ownership-checked session storage. Every read,
// delete and list re-verifies the owner in the statement itself; a session
// owned by someone else is reported as ErrNotFound, same as a missing one.
type SessionRepository interface {
	Create(ctx context.Context, session *ChatSession) error
	GetByOwner(ctx context.Context, ownerID, id uuid.UUID) (*ChatSession, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]SessionSummary, error)
	// Touch advances updated_at; called after a completed turn pair.
	Touch(ctx context.Context, id uuid.UUID, at time.Time) error
	DeleteByOwner(ctx context.Context, ownerID, id uuid.UUID) error
}
