package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/mhartmann/optima-api/internal/api/middleware"
	"github.com/mhartmann/optima-api/internal/api/response"
	"github.com/mhartmann/optima-api/internal/domain"
	"github.com/mhartmann/optima-api/internal/service"
)

// ChatHandler handles session and message endpoints
type ChatHandler struct {
	chatService *service.ChatService
}

// NewChatHandler creates a new chat handler
func NewChatHandler(chatService *service.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// writeChatError maps service sentinels to HTTP statuses
func writeChatError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrRateLimited):
		response.TooManyRequests(w, "rate limit exceeded")
	case errors.Is(err, domain.ErrNotFound):
		response.NotFound(w, "session not found")
	case errors.Is(err, domain.ErrCategoryNotFound):
		response.NotFound(w, "category not found")
	case errors.Is(err, domain.ErrPremiumRequired):
		response.Error(w, http.StatusForbidden, map[string]any{
			"message":          "premium access required for this category",
			"upgrade_required": true,
		})
	case errors.Is(err, domain.ErrGenerationFailed):
		response.BadGateway(w, "failed to generate response")
	default:
		response.InternalError(w, "internal error")
	}
}

// CreateSession creates a new chat session
func (h *ChatHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req domain.CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	if err := validate.Struct(req); err != nil {
		response.BadRequest(w, validationMessages(err))
		return
	}

	session, err := h.chatService.CreateSession(r.Context(), userID, req)
	if err != nil {
		writeChatError(w, err)
		return
	}

	response.Created(w, session)
}

// ListSessions returns the user's sessions ordered by last activity
func (h *ChatHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	limit := 0
	offset := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil {
			limit = v
		}
	}
	if o := r.URL.Query().Get("offset"); o != "" {
		if v, err := strconv.Atoi(o); err == nil {
			offset = v
		}
	}

	sessions, err := h.chatService.ListSessions(r.Context(), userID, limit, offset)
	if err != nil {
		response.InternalError(w, "failed to list sessions")
		return
	}

	response.OK(w, sessions)
}

// GetSession returns one session with its message log
func (h *ChatHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	sessionID, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		response.BadRequest(w, "invalid session ID")
		return
	}

	session, messages, err := h.chatService.GetSession(r.Context(), userID, sessionID)
	if err != nil {
		writeChatError(w, err)
		return
	}

	response.OK(w, map[string]any{
		"session":  session,
		"messages": messages,
	})
}

// DeleteSession removes a session and its messages
func (h *ChatHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	sessionID, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		response.BadRequest(w, "invalid session ID")
		return
	}

	if err := h.chatService.DeleteSession(r.Context(), userID, sessionID); err != nil {
		writeChatError(w, err)
		return
	}

	response.NoContent(w)
}

// SendMessage runs one message exchange
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req domain.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	if err := validate.Struct(req); err != nil {
		response.BadRequest(w, validationMessages(err))
		return
	}

	exchange, err := h.chatService.SendMessage(r.Context(), userID, req)
	if err != nil {
		writeChatError(w, err)
		return
	}

	response.OK(w, exchange)
}
