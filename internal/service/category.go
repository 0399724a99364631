package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/mhartmann/optima-api/internal/domain"
	"github.com/mhartmann/optima-api/internal/repository/redis"
)

// CategoryService serves category lookups through an optional cache. A nil
// cache degrades to direct repository reads.
type CategoryService struct {
	categoryRepo  domain.CategoryRepository
	categoryCache *redis.CategoryCache
}

// NewCategoryService creates a new category service
func NewCategoryService(categoryRepo domain.CategoryRepository, categoryCache *redis.CategoryCache) *CategoryService {
	return &CategoryService{
		categoryRepo:  categoryRepo,
		categoryCache: categoryCache,
	}
}

// List returns all active categories
func (s *CategoryService) List(ctx context.Context) ([]domain.Category, error) {
	categories, err := s.categoryRepo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

// GetBySlug returns an active category by slug, cache first
func (s *CategoryService) GetBySlug(ctx context.Context, slug string) (*domain.Category, error) {
	if s.categoryCache != nil {
		if cached, err := s.categoryCache.Get(ctx, slug); err == nil && cached != nil {
			return cached, nil
		}
	}

	category, err := s.categoryRepo.GetActiveBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	if s.categoryCache != nil {
		s.categoryCache.Set(ctx, category)
	}

	return category, nil
}

// GetByID returns an active category by ID
func (s *CategoryService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	return s.categoryRepo.GetActiveByID(ctx, id)
}
