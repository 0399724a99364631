package llm

import "context"

// Role identifies the author of a prompt turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn in the prompt sent to a provider.
type Message struct {
	Role    Role
	Content string
}

// Request contains chat completion parameters. Messages always carry the
// instruction turn first and the newest user turn last.
type Request struct {
	Messages    []Message
	MaxTokens   int
	Temperature float64
}

// Usage reports token accounting from the provider.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response contains the generation result
type Response struct {
	Content   string
	Model     string
	Usage     Usage
	LatencyMs int64
}

// Provider defines the interface for generation backends
type Provider interface {
	// Name returns the provider identifier
	Name() string

	// AvailableModels returns list of supported models
	AvailableModels() []string

	// DefaultModel returns the default model
	DefaultModel() string

	// IsConfigured checks if provider has valid credentials
	IsConfigured() bool

	// Complete generates the next assistant turn for the given context
	Complete(ctx context.Context, req Request, model string) (*Response, error)
}
