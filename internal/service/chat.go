package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mhartmann/optima-api/internal/config"
	"github.com/mhartmann/optima-api/internal/domain"
	"github.com/mhartmann/optima-api/internal/llm"
	"github.com/mhartmann/optima-api/internal/ratelimit"
	"github.com/rs/zerolog/log"
)

// CategoryResolver resolves active categories for the chat flow
type CategoryResolver interface {
	GetBySlug(ctx context.Context, slug string) (*domain.Category, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Category, error)
}

// Entitlements reports subscription state for premium category access
type Entitlements interface {
	IsPremium(ctx context.Context, userID uuid.UUID) (bool, error)
}

// ChatService orchestrates one message exchange: admission, ownership check,
// durable user turn, context assembly, generation, durable assistant turn.
// The user turn is committed before generation is attempted, so a failed
// generation leaves it behind as a valid trailing turn.
type ChatService struct {
	sessionRepo  domain.SessionRepository
	messageRepo  domain.MessageRepository
	userRepo     domain.UserRepository
	categories   CategoryResolver
	entitlements Entitlements
	llmRouter    *llm.Router
	genGate      *ratelimit.Gate
	cfg          config.ChatConfig
}

// NewChatService creates a new chat service
func NewChatService(
	sessionRepo domain.SessionRepository,
	messageRepo domain.MessageRepository,
	userRepo domain.UserRepository,
	categories CategoryResolver,
	entitlements Entitlements,
	llmRouter *llm.Router,
	genGate *ratelimit.Gate,
	cfg config.ChatConfig,
) *ChatService {
	return &ChatService{
		sessionRepo:  sessionRepo,
		messageRepo:  messageRepo,
		userRepo:     userRepo,
		categories:   categories,
		entitlements: entitlements,
		llmRouter:    llmRouter,
		genGate:      genGate,
		cfg:          cfg,
	}
}

// CreateSession starts a new conversation thread in a category
func (s *ChatService) CreateSession(ctx context.Context, userID uuid.UUID, req domain.CreateSessionRequest) (*domain.ChatSession, error) {
	category, err := s.categories.GetBySlug(ctx, req.CategorySlug)
	if err != nil {
		return nil, err
	}

	if category.IsPremium {
		premium, err := s.entitlements.IsPremium(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to check subscription: %w", err)
		}
		if !premium {
			return nil, domain.ErrPremiumRequired
		}
	}

	title := req.Title
	if title == "" {
		title = category.Name + " Chat"
	}

	now := time.Now()
	session := &domain.ChatSession{
		ID:         uuid.New(),
		UserID:     userID,
		CategoryID: category.ID,
		Title:      title,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return session, nil
}

// ListSessions returns the user's sessions ordered by last activity
func (s *ChatService) ListSessions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.SessionSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return s.sessionRepo.ListByOwner(ctx, userID, limit, offset)
}

// GetSession returns one owned session with its full message log
func (s *ChatService) GetSession(ctx context.Context, userID, sessionID uuid.UUID) (*domain.ChatSession, []domain.Message, error) {
	session, err := s.sessionRepo.GetByOwner(ctx, userID, sessionID)
	if err != nil {
		return nil, nil, err
	}

	messages, err := s.messageRepo.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list messages: %w", err)
	}

	return session, messages, nil
}

// DeleteSession removes an owned session and its messages
func (s *ChatService) DeleteSession(ctx context.Context, userID, sessionID uuid.UUID) error {
	return s.sessionRepo.DeleteByOwner(ctx, userID, sessionID)
}

// SendMessage runs one exchange. Order matters: the admission check happens
// before any state change, and the user turn is persisted before generation.
func (s *ChatService) SendMessage(ctx context.Context, userID uuid.UUID, req domain.SendMessageRequest) (*domain.MessageExchange, error) {
	if decision := s.genGate.Allow(userID.String()); !decision.Allowed {
		return nil, fmt.Errorf("%w: retry after %s", domain.ErrRateLimited, decision.ResetAt.Format(time.RFC3339))
	}

	session, err := s.sessionRepo.GetByOwner(ctx, userID, req.SessionID)
	if err != nil {
		return nil, err
	}

	category, err := s.categories.GetByID(ctx, session.CategoryID)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	now := time.Now()
	userMsg := domain.Message{
		ID:        uuid.New(),
		SessionID: session.ID,
		Role:      domain.RoleUser,
		Content:   req.Content,
		Metadata:  req.Metadata,
		CreatedAt: now,
	}
	if err := s.messageRepo.Create(ctx, &userMsg); err != nil {
		return nil, fmt.Errorf("failed to save user message: %w", err)
	}

	// A failed history read is fatal: generating with a silently empty window
	// would violate the last-N context contract. The user turn stays behind.
	history, err := s.messageRepo.ListBefore(ctx, session.ID, userMsg.CreatedAt, userMsg.ID, s.cfg.HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch chat history: %w", err)
	}

	base := category.SystemPrompt
	if session.Context != "" {
		base = base + "\n\n" + session.Context
	}
	instructions := llm.AugmentInstructions(base, llm.UserContext{
		Location:    user.Location,
		Preferences: user.Preferences,
	}, now)

	messages := llm.BuildContext(instructions, toPromptMessages(history), req.Content)

	provider, err := s.llmRouter.GetProvider(req.Provider)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrGenerationFailed, err)
	}

	genCtx, cancel := context.WithTimeout(ctx, s.cfg.GenerationTimeout)
	defer cancel()

	resp, err := provider.Complete(genCtx, llm.Request{
		Messages:    messages,
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
	}, req.Model)
	if err != nil {
		log.Error().Err(err).
			Str("session_id", session.ID.String()).
			Str("provider", provider.Name()).
			Msg("generation failed, user turn retained")
		return nil, fmt.Errorf("%w: %v", domain.ErrGenerationFailed, err)
	}
	if resp.Content == "" {
		return nil, fmt.Errorf("%w: empty response from %s", domain.ErrGenerationFailed, provider.Name())
	}

	metadata, err := json.Marshal(map[string]any{
		"provider":   provider.Name(),
		"model":      resp.Model,
		"usage":      resp.Usage,
		"latency_ms": resp.LatencyMs,
	})
	if err != nil {
		metadata = nil
	}

	assistantMsg := domain.Message{
		ID:        uuid.New(),
		SessionID: session.ID,
		Role:      domain.RoleAssistant,
		Content:   resp.Content,
		Metadata:  metadata,
		CreatedAt: time.Now(),
	}
	if err := s.messageRepo.Create(ctx, &assistantMsg); err != nil {
		return nil, fmt.Errorf("failed to save assistant message: %w", err)
	}

	// The exchange is committed at this point; a failed touch only delays the
	// session's position in list views.
	if err := s.sessionRepo.Touch(ctx, session.ID, assistantMsg.CreatedAt); err != nil {
		log.Error().Err(err).Str("session_id", session.ID.String()).Msg("failed to touch session")
	}

	return &domain.MessageExchange{
		UserMessage:      userMsg,
		AssistantMessage: assistantMsg,
	}, nil
}

func toPromptMessages(history []domain.Message) []llm.Message {
	messages := make([]llm.Message, len(history))
	for i, m := range history {
		messages[i] = llm.Message{Role: llm.Role(m.Role), Content: m.Content}
	}
	return messages
}
