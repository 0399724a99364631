package domain

import "errors"

// Sentinel errors returned by services and repositories. Handlers map these to
// HTTP statuses with errors.Is so wrapped context is preserved.
var (
	// ErrNotFound covers both a missing session and a session owned by another
	// user. The two cases must stay indistinguishable to the caller.
	ErrNotFound = errors.New("not found")

	ErrCategoryNotFound = errors.New("category not found or inactive")
	ErrPremiumRequired  = errors.New("premium access required for this category")
	ErrRateLimited      = errors.New("rate limit exceeded")

	// ErrGenerationFailed signals an upstream generation error or timeout. The
	// user turn is already durable when this is returned; the caller may retry.
	ErrGenerationFailed = errors.New("failed to generate response")

	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
)
