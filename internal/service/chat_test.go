package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mhartmann/optima-api/internal/config"
	"github.com/mhartmann/optima-api/internal/domain"
	"github.com/mhartmann/optima-api/internal/llm"
	"github.com/mhartmann/optima-api/internal/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testChatConfig() config.ChatConfig {
	return config.ChatConfig{
		HistoryLimit:      10,
		MaxTokens:         1000,
		Temperature:       0.7,
		GenerationTimeout: 5 * time.Second,
	}
}

func newTestRouter(p llm.Provider) *llm.Router {
	router := llm.NewRouter(p.Name())
	router.RegisterProvider(p)
	return router
}

func TestChatService_CreateSession(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	category := &domain.Category{
		ID:   uuid.New(),
		Name: "Einkaufen & Sparen",
		Slug: "shopping",
	}

	t.Run("success with explicit title", func(t *testing.T) {
		mockSessions := new(MockSessionRepository)
		mockCategories := new(MockCategoryResolver)

		mockCategories.On("GetBySlug", ctx, "shopping").Return(category, nil)
		mockSessions.On("Create", ctx, mock.AnythingOfType("*domain.ChatSession")).Return(nil)

		svc := &ChatService{sessionRepo: mockSessions, categories: mockCategories}

		session, err := svc.CreateSession(ctx, userID, domain.CreateSessionRequest{
			CategorySlug: "shopping",
			Title:        "Wocheneinkauf",
		})
		require.NoError(t, err)
		assert.Equal(t, "Wocheneinkauf", session.Title)
		assert.Equal(t, userID, session.UserID)
		assert.Equal(t, category.ID, session.CategoryID)

		mockSessions.AssertExpectations(t)
	})

	t.Run("default title from category", func(t *testing.T) {
		mockSessions := new(MockSessionRepository)
		mockCategories := new(MockCategoryResolver)

		mockCategories.On("GetBySlug", ctx, "shopping").Return(category, nil)
		mockSessions.On("Create", ctx, mock.AnythingOfType("*domain.ChatSession")).Return(nil)

		svc := &ChatService{sessionRepo: mockSessions, categories: mockCategories}

		session, err := svc.CreateSession(ctx, userID, domain.CreateSessionRequest{CategorySlug: "shopping"})
		require.NoError(t, err)
		assert.Equal(t, "Einkaufen & Sparen Chat", session.Title)
	})

	t.Run("unknown category", func(t *testing.T) {
		mockCategories := new(MockCategoryResolver)
		mockCategories.On("GetBySlug", ctx, "nope").Return(nil, domain.ErrCategoryNotFound)

		svc := &ChatService{categories: mockCategories}

		_, err := svc.CreateSession(ctx, userID, domain.CreateSessionRequest{CategorySlug: "nope"})
		assert.ErrorIs(t, err, domain.ErrCategoryNotFound)
	})

	t.Run("premium category requires subscription", func(t *testing.T) {
		premiumCategory := &domain.Category{
			ID:        uuid.New(),
			Name:      "Finanzen & Verträge",
			Slug:      "finance",
			IsPremium: true,
		}

		mockCategories := new(MockCategoryResolver)
		mockEntitlements := new(MockEntitlements)
		mockCategories.On("GetBySlug", ctx, "finance").Return(premiumCategory, nil)
		mockEntitlements.On("IsPremium", ctx, userID).Return(false, nil)

		svc := &ChatService{categories: mockCategories, entitlements: mockEntitlements}

		_, err := svc.CreateSession(ctx, userID, domain.CreateSessionRequest{CategorySlug: "finance"})
		assert.ErrorIs(t, err, domain.ErrPremiumRequired)
	})

	t.Run("premium category with subscription", func(t *testing.T) {
		premiumCategory := &domain.Category{
			ID:        uuid.New(),
			Name:      "Finanzen & Verträge",
			Slug:      "finance",
			IsPremium: true,
		}

		mockSessions := new(MockSessionRepository)
		mockCategories := new(MockCategoryResolver)
		mockEntitlements := new(MockEntitlements)
		mockCategories.On("GetBySlug", ctx, "finance").Return(premiumCategory, nil)
		mockEntitlements.On("IsPremium", ctx, userID).Return(true, nil)
		mockSessions.On("Create", ctx, mock.AnythingOfType("*domain.ChatSession")).Return(nil)

		svc := &ChatService{sessionRepo: mockSessions, categories: mockCategories, entitlements: mockEntitlements}

		session, err := svc.CreateSession(ctx, userID, domain.CreateSessionRequest{CategorySlug: "finance"})
		require.NoError(t, err)
		assert.Equal(t, premiumCategory.ID, session.CategoryID)
	})
}

func TestChatService_SendMessage_RateLimited(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	mockSessions := new(MockSessionRepository)
	mockMessages := new(MockMessageRepository)

	svc := &ChatService{
		sessionRepo: mockSessions,
		messageRepo: mockMessages,
		genGate:     ratelimit.New(1, time.Minute),
		cfg:         testChatConfig(),
	}

	// Exhaust the single slot directly on the gate
	svc.genGate.Allow(userID.String())

	_, err := svc.SendMessage(ctx, userID, domain.SendMessageRequest{
		SessionID: uuid.New(),
		Content:   "Hallo",
	})
	assert.ErrorIs(t, err, domain.ErrRateLimited)

	// A denied request must not touch storage
	mockSessions.AssertNotCalled(t, "GetByOwner", mock.Anything, mock.Anything, mock.Anything)
	mockMessages.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestChatService_SendMessage_SessionNotFound(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	sessionID := uuid.New()

	mockSessions := new(MockSessionRepository)
	mockMessages := new(MockMessageRepository)
	mockSessions.On("GetByOwner", ctx, userID, sessionID).Return(nil, domain.ErrNotFound)

	svc := &ChatService{
		sessionRepo: mockSessions,
		messageRepo: mockMessages,
		genGate:     ratelimit.New(10, time.Minute),
		cfg:         testChatConfig(),
	}

	_, err := svc.SendMessage(ctx, userID, domain.SendMessageRequest{
		SessionID: sessionID,
		Content:   "Hallo",
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	mockMessages.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestChatService_SendMessage_Success(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	sessionID := uuid.New()
	categoryID := uuid.New()

	session := &domain.ChatSession{ID: sessionID, UserID: userID, CategoryID: categoryID}
	category := &domain.Category{
		ID:           categoryID,
		Name:         "Einkaufen & Sparen",
		Slug:         "shopping",
		SystemPrompt: "Du bist ein Einkaufsberater.",
	}
	user := &domain.User{ID: userID, Email: "test@example.com", Location: "Berlin"}

	history := []domain.Message{
		{ID: uuid.New(), SessionID: sessionID, Role: domain.RoleUser, Content: "Wo finde ich günstige Milch?"},
		{ID: uuid.New(), SessionID: sessionID, Role: domain.RoleAssistant, Content: "Beim Discounter."},
	}

	provider := &stubProvider{
		name: "openai",
		response: &llm.Response{
			Content:   "Butter ist diese Woche bei Aldi im Angebot.",
			Model:     "gpt-4o-mini",
			Usage:     llm.Usage{PromptTokens: 100, CompletionTokens: 20, TotalTokens: 120},
			LatencyMs: 42,
		},
	}

	mockSessions := new(MockSessionRepository)
	mockMessages := new(MockMessageRepository)
	mockUsers := new(MockUserRepository)
	mockCategories := new(MockCategoryResolver)

	mockSessions.On("GetByOwner", ctx, userID, sessionID).Return(session, nil)
	mockCategories.On("GetByID", ctx, categoryID).Return(category, nil)
	mockUsers.On("GetByID", ctx, userID).Return(user, nil)

	var persisted []domain.Message
	mockMessages.On("Create", mock.Anything, mock.AnythingOfType("*domain.Message")).
		Run(func(args mock.Arguments) {
			persisted = append(persisted, *args.Get(1).(*domain.Message))
		}).Return(nil)
	mockMessages.On("ListBefore", mock.Anything, sessionID, mock.Anything, mock.Anything, 10).
		Return(history, nil)
	mockSessions.On("Touch", mock.Anything, sessionID, mock.Anything).Return(nil)

	svc := &ChatService{
		sessionRepo: mockSessions,
		messageRepo: mockMessages,
		userRepo:    mockUsers,
		categories:  mockCategories,
		llmRouter:   newTestRouter(provider),
		genGate:     ratelimit.New(10, time.Minute),
		cfg:         testChatConfig(),
	}

	exchange, err := svc.SendMessage(ctx, userID, domain.SendMessageRequest{
		SessionID: sessionID,
		Content:   "Und Butter?",
	})
	require.NoError(t, err)

	// Both turns committed in order
	require.Len(t, persisted, 2)
	assert.Equal(t, domain.RoleUser, persisted[0].Role)
	assert.Equal(t, "Und Butter?", persisted[0].Content)
	assert.Equal(t, domain.RoleAssistant, persisted[1].Role)
	assert.Equal(t, "Butter ist diese Woche bei Aldi im Angebot.", persisted[1].Content)

	assert.Equal(t, exchange.UserMessage.ID, persisted[0].ID)
	assert.Equal(t, exchange.AssistantMessage.ID, persisted[1].ID)

	// Prompt shape: instruction turn first, history in order, new content last
	req := provider.lastReq
	require.Len(t, req.Messages, 4)
	assert.Equal(t, llm.RoleSystem, req.Messages[0].Role)
	assert.Contains(t, req.Messages[0].Content, "Du bist ein Einkaufsberater.")
	assert.Contains(t, req.Messages[0].Content, "Benutzer-Standort: Berlin")
	assert.Equal(t, "Wo finde ich günstige Milch?", req.Messages[1].Content)
	assert.Equal(t, "Beim Discounter.", req.Messages[2].Content)
	assert.Equal(t, llm.RoleUser, req.Messages[3].Role)
	assert.Equal(t, "Und Butter?", req.Messages[3].Content)

	assert.Equal(t, 1000, req.MaxTokens)
	assert.Equal(t, 0.7, req.Temperature)

	// Assistant metadata carries generation accounting
	var meta map[string]any
	require.NoError(t, json.Unmarshal(persisted[1].Metadata, &meta))
	assert.Equal(t, "openai", meta["provider"])
	assert.Equal(t, "gpt-4o-mini", meta["model"])

	mockSessions.AssertExpectations(t)
	mockMessages.AssertExpectations(t)
}

func TestChatService_SendMessage_GenerationFailureRetainsUserTurn(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	sessionID := uuid.New()
	categoryID := uuid.New()

	session := &domain.ChatSession{ID: sessionID, UserID: userID, CategoryID: categoryID}
	category := &domain.Category{ID: categoryID, Name: "Fitness & Ernährung", Slug: "fitness"}
	user := &domain.User{ID: userID, Email: "test@example.com"}

	provider := &stubProvider{name: "openai", err: errors.New("upstream timeout")}

	mockSessions := new(MockSessionRepository)
	mockMessages := new(MockMessageRepository)
	mockUsers := new(MockUserRepository)
	mockCategories := new(MockCategoryResolver)

	mockSessions.On("GetByOwner", ctx, userID, sessionID).Return(session, nil)
	mockCategories.On("GetByID", ctx, categoryID).Return(category, nil)
	mockUsers.On("GetByID", ctx, userID).Return(user, nil)

	var persisted []domain.Message
	mockMessages.On("Create", mock.Anything, mock.AnythingOfType("*domain.Message")).
		Run(func(args mock.Arguments) {
			persisted = append(persisted, *args.Get(1).(*domain.Message))
		}).Return(nil)
	mockMessages.On("ListBefore", mock.Anything, sessionID, mock.Anything, mock.Anything, 10).
		Return([]domain.Message{}, nil).Once()

	svc := &ChatService{
		sessionRepo: mockSessions,
		messageRepo: mockMessages,
		userRepo:    mockUsers,
		categories:  mockCategories,
		llmRouter:   newTestRouter(provider),
		genGate:     ratelimit.New(10, time.Minute),
		cfg:         testChatConfig(),
	}

	_, err := svc.SendMessage(ctx, userID, domain.SendMessageRequest{
		SessionID: sessionID,
		Content:   "Trainingsplan bitte",
	})
	assert.ErrorIs(t, err, domain.ErrGenerationFailed)

	// The user turn stays durable; no assistant turn, no touch
	require.Len(t, persisted, 1)
	assert.Equal(t, domain.RoleUser, persisted[0].Role)
	assert.Equal(t, "Trainingsplan bitte", persisted[0].Content)
	mockSessions.AssertNotCalled(t, "Touch", mock.Anything, mock.Anything, mock.Anything)

	// The retained turn is ordinary history: the next exchange must carry it
	// in its context window.
	orphan := persisted[0]
	provider.err = nil
	provider.response = &llm.Response{Content: "Hier ist dein Trainingsplan.", Model: "stub-model"}

	mockMessages.On("ListBefore", mock.Anything, sessionID, mock.Anything, mock.Anything, 10).
		Return([]domain.Message{orphan}, nil).Once()
	mockSessions.On("Touch", mock.Anything, sessionID, mock.Anything).Return(nil)

	exchange, err := svc.SendMessage(ctx, userID, domain.SendMessageRequest{
		SessionID: sessionID,
		Content:   "Und ein Ernährungsplan?",
	})
	require.NoError(t, err)
	assert.Equal(t, "Hier ist dein Trainingsplan.", exchange.AssistantMessage.Content)

	req := provider.lastReq
	require.Len(t, req.Messages, 3)
	assert.Equal(t, llm.RoleSystem, req.Messages[0].Role)
	assert.Equal(t, llm.RoleUser, req.Messages[1].Role)
	assert.Equal(t, "Trainingsplan bitte", req.Messages[1].Content)
	assert.Equal(t, "Und ein Ernährungsplan?", req.Messages[2].Content)
}

func TestChatService_SendMessage_HistoryReadFailure(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	sessionID := uuid.New()
	categoryID := uuid.New()

	session := &domain.ChatSession{ID: sessionID, UserID: userID, CategoryID: categoryID}
	category := &domain.Category{ID: categoryID, Name: "Einkaufen & Sparen", Slug: "shopping"}
	user := &domain.User{ID: userID}

	provider := &stubProvider{name: "openai", response: &llm.Response{Content: "unreachable"}}

	mockSessions := new(MockSessionRepository)
	mockMessages := new(MockMessageRepository)
	mockUsers := new(MockUserRepository)
	mockCategories := new(MockCategoryResolver)

	mockSessions.On("GetByOwner", ctx, userID, sessionID).Return(session, nil)
	mockCategories.On("GetByID", ctx, categoryID).Return(category, nil)
	mockUsers.On("GetByID", ctx, userID).Return(user, nil)
	mockMessages.On("Create", mock.Anything, mock.AnythingOfType("*domain.Message")).Return(nil)
	mockMessages.On("ListBefore", mock.Anything, sessionID, mock.Anything, mock.Anything, 10).
		Return([]domain.Message{}, errors.New("store unavailable"))

	svc := &ChatService{
		sessionRepo: mockSessions,
		messageRepo: mockMessages,
		userRepo:    mockUsers,
		categories:  mockCategories,
		llmRouter:   newTestRouter(provider),
		genGate:     ratelimit.New(10, time.Minute),
		cfg:         testChatConfig(),
	}

	_, err := svc.SendMessage(ctx, userID, domain.SendMessageRequest{
		SessionID: sessionID,
		Content:   "Hallo",
	})
	require.Error(t, err)
	assert.ErrorContains(t, err, "store unavailable")

	// The request fails instead of generating with an empty window; the user
	// turn is already durable, no assistant turn follows.
	assert.Empty(t, provider.lastReq.Messages)
	mockMessages.AssertNumberOfCalls(t, "Create", 1)
	mockSessions.AssertNotCalled(t, "Touch", mock.Anything, mock.Anything, mock.Anything)
}

func TestChatService_SendMessage_EmptyResponse(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	sessionID := uuid.New()
	categoryID := uuid.New()

	session := &domain.ChatSession{ID: sessionID, UserID: userID, CategoryID: categoryID}
	category := &domain.Category{ID: categoryID, Name: "Einkaufen & Sparen", Slug: "shopping"}
	user := &domain.User{ID: userID}

	provider := &stubProvider{name: "openai", response: &llm.Response{Content: ""}}

	mockSessions := new(MockSessionRepository)
	mockMessages := new(MockMessageRepository)
	mockUsers := new(MockUserRepository)
	mockCategories := new(MockCategoryResolver)

	mockSessions.On("GetByOwner", ctx, userID, sessionID).Return(session, nil)
	mockCategories.On("GetByID", ctx, categoryID).Return(category, nil)
	mockUsers.On("GetByID", ctx, userID).Return(user, nil)
	mockMessages.On("Create", mock.Anything, mock.AnythingOfType("*domain.Message")).Return(nil)
	mockMessages.On("ListBefore", mock.Anything, sessionID, mock.Anything, mock.Anything, 10).
		Return([]domain.Message{}, nil)

	svc := &ChatService{
		sessionRepo: mockSessions,
		messageRepo: mockMessages,
		userRepo:    mockUsers,
		categories:  mockCategories,
		llmRouter:   newTestRouter(provider),
		genGate:     ratelimit.New(10, time.Minute),
		cfg:         testChatConfig(),
	}

	_, err := svc.SendMessage(ctx, userID, domain.SendMessageRequest{
		SessionID: sessionID,
		Content:   "Hallo",
	})
	assert.ErrorIs(t, err, domain.ErrGenerationFailed)
	mockMessages.AssertNumberOfCalls(t, "Create", 1)
}

func TestChatService_ListSessions_Bounds(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	mockSessions := new(MockSessionRepository)
	mockSessions.On("ListByOwner", ctx, userID, 20, 0).Return([]domain.SessionSummary{}, nil)
	mockSessions.On("ListByOwner", ctx, userID, 100, 0).Return([]domain.SessionSummary{}, nil)

	svc := &ChatService{sessionRepo: mockSessions}

	_, err := svc.ListSessions(ctx, userID, 0, -5)
	require.NoError(t, err)

	_, err = svc.ListSessions(ctx, userID, 500, 0)
	require.NoError(t, err)

	mockSessions.AssertExpectations(t)
}

func TestChatService_GetSession(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	sessionID := uuid.New()

	session := &domain.ChatSession{ID: sessionID, UserID: userID}
	messages := []domain.Message{
		{ID: uuid.New(), SessionID: sessionID, Role: domain.RoleUser, Content: "Hallo"},
	}

	mockSessions := new(MockSessionRepository)
	mockMessages := new(MockMessageRepository)
	mockSessions.On("GetByOwner", ctx, userID, sessionID).Return(session, nil)
	mockMessages.On("ListBySession", ctx, sessionID).Return(messages, nil)

	svc := &ChatService{sessionRepo: mockSessions, messageRepo: mockMessages}

	got, gotMessages, err := svc.GetSession(ctx, userID, sessionID)
	require.NoError(t, err)
	assert.Equal(t, session, got)
	assert.Equal(t, messages, gotMessages)
}

func TestChatService_GetSession_ForeignSession(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	sessionID := uuid.New()

	mockSessions := new(MockSessionRepository)
	mockMessages := new(MockMessageRepository)
	mockSessions.On("GetByOwner", ctx, userID, sessionID).Return(nil, domain.ErrNotFound)

	svc := &ChatService{sessionRepo: mockSessions, messageRepo: mockMessages}

	_, _, err := svc.GetSession(ctx, userID, sessionID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	mockMessages.AssertNotCalled(t, "ListBySession", mock.Anything, mock.Anything)
}
