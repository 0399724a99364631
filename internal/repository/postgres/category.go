package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/mhartmann/optima-api/internal/domain"
)

// CategoryRepository implements domain.CategoryRepository
type CategoryRepository struct {
	db *DB
}

// NewCategoryRepository creates a new category repository
func NewCategoryRepository(db *DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

const categoryColumns = `id, name, slug, description, system_prompt, icon, is_active, is_premium, created_at`

func (r *CategoryRepository) ListActive(ctx context.Context) ([]domain.Category, error) {
	query := `
		SELECT ` + categoryColumns + `
		FROM categories
		WHERE is_active = TRUE
		ORDER BY name
	`
	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var categories []domain.Category
	for rows.Next() {
		var c domain.Category
		if err := scanCategory(rows.Scan, &c); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (r *CategoryRepository) GetActiveBySlug(ctx context.Context, slug string) (*domain.Category, error) {
	query := `
		SELECT ` + categoryColumns + `
		FROM categories
		WHERE slug = $1 AND is_active = TRUE
	`
	var c domain.Category
	err := scanCategory(r.db.Pool.QueryRow(ctx, query, slug).Scan, &c)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return &c, nil
}

func (r *CategoryRepository) GetActiveByID(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	query := `
		SELECT ` + categoryColumns + `
		FROM categories
		WHERE id = $1 AND is_active = TRUE
	`
	var c domain.Category
	err := scanCategory(r.db.Pool.QueryRow(ctx, query, id).Scan, &c)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return &c, nil
}

func scanCategory(scan func(dest ...any) error, c *domain.Category) error {
	return scan(
		&c.ID,
		&c.Name,
		&c.Slug,
		&c.Description,
		&c.SystemPrompt,
		&c.Icon,
		&c.IsActive,
		&c.IsPremium,
		&c.CreatedAt,
	)
}
