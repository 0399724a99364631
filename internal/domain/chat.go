package domain

import (
	"encoding/json"

	"github.com/google/uuid"
)

// CreateSessionRequest starts a new conversation thread in a category.
type CreateSessionRequest struct {
	CategorySlug string `json:"category_slug" validate:"required,max=100"`
	Title        string `json:"title" validate:"omitempty,max=200"`
}

// SendMessageRequest is one turn submitted by the caller. Metadata is an
// opaque pass-through blob (e.g. receipt-scan results) stored verbatim.
type SendMessageRequest struct {
	SessionID uuid.UUID       `json:"session_id" validate:"required"`
	Content   string          `json:"content" validate:"required,max=8000"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	Provider  string          `json:"provider,omitempty" validate:"omitempty,oneof=openai gemini ollama"`
	Model     string          `json:"model,omitempty" validate:"omitempty,max=100"`
}

// MessageExchange is the committed turn pair returned from a successful send.
type MessageExchange struct {
	UserMessage      Message `json:"user_message"`
	AssistantMessage Message `json:"assistant_message"`
}
