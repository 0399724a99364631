package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mhartmann/optima-api/internal/domain"
	"github.com/mhartmann/optima-api/internal/llm"
	"github.com/stretchr/testify/mock"
)

// MockSessionRepository mocks the SessionRepository interface
type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) Create(ctx context.Context, session *domain.ChatSession) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockSessionRepository) GetByOwner(ctx context.Context, ownerID, id uuid.UUID) (*domain.ChatSession, error) {
	args := m.Called(ctx, ownerID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ChatSession), args.Error(1)
}

func (m *MockSessionRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]domain.SessionSummary, error) {
	args := m.Called(ctx, ownerID, limit, offset)
	return args.Get(0).([]domain.SessionSummary), args.Error(1)
}

func (m *MockSessionRepository) Touch(ctx context.Context, id uuid.UUID, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *MockSessionRepository) DeleteByOwner(ctx context.Context, ownerID, id uuid.UUID) error {
	args := m.Called(ctx, ownerID, id)
	return args.Error(0)
}

// MockMessageRepository mocks the MessageRepository interface
type MockMessageRepository struct {
	mock.Mock
}

func (m *MockMessageRepository) Create(ctx context.Context, message *domain.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

func (m *MockMessageRepository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]domain.Message, error) {
	args := m.Called(ctx, sessionID)
	return args.Get(0).([]domain.Message), args.Error(1)
}

func (m *MockMessageRepository) ListBefore(ctx context.Context, sessionID uuid.UUID, createdAt time.Time, beforeID uuid.UUID, limit int) ([]domain.Message, error) {
	args := m.Called(ctx, sessionID, createdAt, beforeID, limit)
	return args.Get(0).([]domain.Message), args.Error(1)
}

// MockUserRepository mocks the UserRepository interface
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) Update(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

// MockCategoryResolver mocks the CategoryResolver interface
type MockCategoryResolver struct {
	mock.Mock
}

func (m *MockCategoryResolver) GetBySlug(ctx context.Context, slug string) (*domain.Category, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Category), args.Error(1)
}

func (m *MockCategoryResolver) GetByID(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Category), args.Error(1)
}

// MockEntitlements mocks the Entitlements interface
type MockEntitlements struct {
	mock.Mock
}

func (m *MockEntitlements) IsPremium(ctx context.Context, userID uuid.UUID) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

// stubProvider is a canned llm.Provider that records the request it received
type stubProvider struct {
	name     string
	response *llm.Response
	err      error
	lastReq  llm.Request
}

func (p *stubProvider) Name() string              { return p.name }
func (p *stubProvider) AvailableModels() []string { return []string{"stub-model"} }
func (p *stubProvider) DefaultModel() string      { return "stub-model" }
func (p *stubProvider) IsConfigured() bool        { return true }

func (p *stubProvider) Complete(ctx context.Context, req llm.Request, model string) (*llm.Response, error) {
	p.lastReq = req
	if p.err != nil {
		return nil, p.err
	}
	return p.response, nil
}
