package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/mhartmann/optima-api/internal/api/response"
	"github.com/mhartmann/optima-api/internal/domain"
	"github.com/mhartmann/optima-api/internal/service"
)

// CategoryHandler serves the category catalog
type CategoryHandler struct {
	categoryService *service.CategoryService
}

// NewCategoryHandler creates a new category handler
func NewCategoryHandler(categoryService *service.CategoryService) *CategoryHandler {
	return &CategoryHandler{categoryService: categoryService}
}

// List returns all active categories
func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	categories, err := h.categoryService.List(r.Context())
	if err != nil {
		response.InternalError(w, "failed to list categories")
		return
	}

	response.OK(w, categories)
}

// Get returns one active category by slug
func (h *CategoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	category, err := h.categoryService.GetBySlug(r.Context(), slug)
	if err != nil {
		if errors.Is(err, domain.ErrCategoryNotFound) {
			response.NotFound(w, "category not found")
			return
		}
		response.InternalError(w, "failed to get category")
		return
	}

	response.OK(w, category)
}
