package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mhartmann/optima-api/internal/domain"
)

const (
	categoryCachePrefix = "category:"
	categoryCacheTTL    = 5 * time.Minute
)

// CategoryCache caches category rows by slug. Categories change only through
// migrations, so a short TTL plus explicit invalidation is enough.
type CategoryCache struct {
	client *Client
}

// NewCategoryCache creates a new category cache
func NewCategoryCache(client *Client) *CategoryCache {
	return &CategoryCache{client: client}
}

// Get retrieves a cached category; a miss returns (nil, nil).
func (c *CategoryCache) Get(ctx context.Context, slug string) (*domain.Category, error) {
	key := categoryCachePrefix + slug

	data, err := c.client.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return nil, nil // Cache miss
	}

	var category domain.Category
	if err := json.Unmarshal(data, &category); err != nil {
		return nil, fmt.Errorf("failed to unmarshal category: %w", err)
	}

	return &category, nil
}

// Set caches a category under its slug
func (c *CategoryCache) Set(ctx context.Context, category *domain.Category) error {
	data, err := json.Marshal(category)
	if err != nil {
		return fmt.Errorf("failed to marshal category: %w", err)
	}

	key := categoryCachePrefix + category.Slug
	return c.client.rdb.Set(ctx, key, data, categoryCacheTTL).Err()
}

// Invalidate removes a cached category
func (c *CategoryCache) Invalidate(ctx context.Context, slug string) error {
	return c.client.rdb.Del(ctx, categoryCachePrefix+slug).Err()
}
