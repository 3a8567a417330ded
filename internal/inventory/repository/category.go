package repository

import (
	"context"

	"github.com/stoklog/stoklog-backend/internal/inventory/domain"
	"github.com/stoklog/stoklog-backend/pkg/database"
)

// CategoryRepository handles category persistence
type CategoryRepository struct {
	db *database.DB
}

// NewCategoryRepository creates a new category repository
func NewCategoryRepository(db *database.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// Create creates a new category
// TENANT-ISOLATED: Inserts via RLS
func (r *CategoryRepository) Create(ctx context.Context, c *domain.Category) error {
	return r.db.WithTenant(ctx, c.TenantID, func(ctx context.Context) error {
		query := `
			INSERT INTO categories (tenant_id, name)
			VALUES ($1, $2)
			RETURNING id, created_at, updated_at
		`
		return r.db.QueryRowxContext(ctx, query, c.TenantID, c.Name).
			Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	})
}

// List lists the tenant's categories by name
// TENANT-ISOLATED: Queries via RLS
func (r *CategoryRepository) List(ctx context.Context, tenantID int64) ([]*domain.Category, error) {
	var categories []*domain.Category

	err := r.db.WithTenant(ctx, tenantID, func(ctx context.Context) error {
		query := `
			SELECT id, tenant_id, name, created_at, updated_at, deleted_at
			FROM categories
			WHERE tenant_id = $1 AND deleted_at IS NULL
			ORDER BY lower(name)
		`
		return r.db.SelectContext(ctx, &categories, query, tenantID)
	})
	if err != nil {
		return nil, err
	}
	return categories, nil
}
