package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Category is an assistant topic with its own instruction template. Read-only
// to the chat flow; rows are managed through migrations.
type Category struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Slug         string    `json:"slug"`
	Description  string    `json:"description,omitempty"`
	SystemPrompt string    `json:"system_prompt,omitempty"`
	Icon         string    `json:"icon,omitempty"`
	IsActive     bool      `json:"is_active"`
	IsPremium    bool      `json:"is_premium"`
	CreatedAt    time.Time `json:"created_at"`
}

// CategoryRepository defines the interface for category lookups
type CategoryRepository interface {
	ListActive(ctx context.Context) ([]Category, error)
	// GetActiveBySlug returns ErrCategoryNotFound for unknown or inactive slugs.
	GetActiveBySlug(ctx context.Context, slug string) (*Category, error)
	GetActiveByID(ctx context.Context, id uuid.UUID) (*Category, error)
}
