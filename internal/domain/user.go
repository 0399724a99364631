package domain

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// User represents a platform user
type User struct {
	ID           uuid.UUID       `json:"id"`
	Email        string          `json:"email"`
	Name         string          `json:"name"`
	PasswordHash string          `json:"-"`
	Location     string          `json:"location,omitempty"`
	Preferences  json.RawMessage `json:"preferences,omitempty"`
	IsPremium    bool            `json:"is_premium"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// UserCreate represents user registration data
type UserCreate struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Location string `json:"location" validate:"omitempty,max=255"`
}

// UserUpdate is a partial profile update; nil fields stay unchanged. A
// non-nil empty Location clears the stored location.
type UserUpdate struct {
	Name        *string         `json:"name" validate:"omitempty,max=100"`
	Location    *string         `json:"location" validate:"omitempty,max=255"`
	Preferences json.RawMessage `json:"preferences,omitempty"`
}

// UserLogin represents login credentials
type UserLogin struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// TokenPair represents a JWT token pair
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// UserRepository defines the interface for user storage
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	// Update persists name, location and preferences along with updated_at.
	Update(ctx context.Context, user *User) error
}
