package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/stoklog/stoklog-backend/internal/inventory/domain"
	"github.com/stoklog/stoklog-backend/pkg/database"
	"github.com/stoklog/stoklog-backend/pkg/errors"
)

// ItemRepository handles item persistence
type ItemRepository struct {
	db *database.DB
}

// NewItemRepository creates a new item repository
func NewItemRepository(db *database.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

// ItemFilter narrows List
type ItemFilter struct {
	CategoryID *int64
	Search     string
	Page       int
	PerPage    int
}

const itemColumns = `
	i.id, i.tenant_id, i.warehouse_id, i.category_id, i.name, i.unit,
	i.min_threshold, i.max_threshold, i.is_active, i.created_at, i.updated_at, i.deleted_at`

// Create creates a new item
// TENANT-ISOLATED: Inserts via RLS
func (r *ItemRepository) Create(ctx context.Context, item *domain.Item) error {
	return r.db.WithTenant(ctx, item.TenantID, func(ctx context.Context) error {
		query := `
			INSERT INTO items (
				tenant_id, warehouse_id, category_id, name, unit, min_threshold, max_threshold, is_active
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id, created_at, updated_at
		`
		return r.db.QueryRowxContext(ctx, query,
			item.TenantID, item.WarehouseID, item.CategoryID, item.Name, item.Unit,
			item.MinThreshold, item.MaxThreshold, item.IsActive,
		).Scan(&item.ID, &item.CreatedAt, &item.UpdatedAt)
	})
}

// GetByID gets a non-deleted item of the warehouse
// TENANT-ISOLATED: Queries via RLS
func (r *ItemRepository) GetByID(ctx context.Context, tenantID, warehouseID, id int64) (*domain.Item, error) {
	return r.get(ctx, tenantID, warehouseID, id, "")
}

// LockForUpdate reads an item and holds its row lock until the surrounding
// transaction ends. Every stock write on the item locks this row first, which
// serializes receive, issue and reconcile per item.
func (r *ItemRepository) LockForUpdate(ctx context.Context, tenantID, warehouseID, id int64) (*domain.Item, error) {
	return r.get(ctx, tenantID, warehouseID, id, " FOR UPDATE OF i")
}

func (r *ItemRepository) get(ctx context.Context, tenantID, warehouseID, id int64, lock string) (*domain.Item, error) {
	var item domain.Item

	err := r.db.WithTenant(ctx, tenantID, func(ctx context.Context) error {
		query := `
			SELECT ` + itemColumns + `
			FROM items i
			WHERE i.id = $1 AND i.tenant_id = $2 AND i.warehouse_id = $3 AND i.deleted_at IS NULL` + lock
		return r.db.GetContext(ctx, &item, query, id, tenantID, warehouseID)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.NotFound("item")
		}
		return nil, err
	}
	return &item, nil
}

// GetWithStock gets an item with its batch total
// TENANT-ISOLATED: Queries via RLS
func (r *ItemRepository) GetWithStock(ctx context.Context, tenantID, warehouseID, id int64) (*domain.ItemStock, error) {
	var item domain.ItemStock

	err := r.db.WithTenant(ctx, tenantID, func(ctx context.Context) error {
		query := `
			SELECT ` + itemColumns + `, COALESCE(SUM(b.quantity), 0) AS total
			FROM items i
			LEFT JOIN batches b ON b.item_id = i.id AND b.deleted_at IS NULL
			WHERE i.id = $1 AND i.tenant_id = $2 AND i.warehouse_id = $3 AND i.deleted_at IS NULL
			GROUP BY i.id
		`
		return r.db.GetContext(ctx, &item, query, id, tenantID, warehouseID)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.NotFound("item")
		}
		return nil, err
	}
	return &item, nil
}

// List lists items of the warehouse with their batch totals
// TENANT-ISOLATED: Queries via RLS
func (r *ItemRepository) List(ctx context.Context, tenantID, warehouseID int64, filter ItemFilter) ([]*domain.ItemStock, int64, error) {
	var total int64
	var items []*domain.ItemStock

	err := r.db.WithTenant(ctx, tenantID, func(ctx context.Context) error {
		where := ` WHERE i.tenant_id = $1 AND i.warehouse_id = $2 AND i.deleted_at IS NULL`
		args := []any{tenantID, warehouseID}

		if filter.CategoryID != nil {
			args = append(args, *filter.CategoryID)
			where += fmt.Sprintf(` AND i.category_id = $%d`, len(args))
		}
		if filter.Search != "" {
			args = append(args, "%"+filter.Search+"%")
			where += fmt.Sprintf(` AND i.name ILIKE $%d`, len(args))
		}

		if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM items i`+where, args...); err != nil {
			return err
		}

		query := `
			SELECT ` + itemColumns + `, COALESCE(SUM(b.quantity), 0) AS total
			FROM items i
			LEFT JOIN batches b ON b.item_id = i.id AND b.deleted_at IS NULL` + where + `
			GROUP BY i.id
			ORDER BY lower(i.name), i.id`

		args = append(args, filter.PerPage, (filter.Page-1)*filter.PerPage)
		query += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

		return r.db.SelectContext(ctx, &items, query, args...)
	})
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// ListActiveWithStock returns every active item of the warehouse with its
// total over non-deleted batches. Items without batches total 0.
// TENANT-ISOLATED: Queries via RLS
func (r *ItemRepository) ListActiveWithStock(ctx context.Context, tenantID, warehouseID int64) ([]*domain.ItemStock, error) {
	var items []*domain.ItemStock

	err := r.db.WithTenant(ctx, tenantID, func(ctx context.Context) error {
		query := `
			SELECT ` + itemColumns + `, COALESCE(SUM(b.quantity), 0) AS total
			FROM items i
			LEFT JOIN batches b ON b.item_id = i.id AND b.deleted_at IS NULL
			WHERE i.tenant_id = $1 AND i.warehouse_id = $2
			  AND i.deleted_at IS NULL AND i.is_active = TRUE
			GROUP BY i.id
			ORDER BY i.id
		`
		return r.db.SelectContext(ctx, &items, query, tenantID, warehouseID)
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// Update updates an item's descriptive fields and thresholds
// TENANT-ISOLATED: Updates via RLS
func (r *ItemRepository) Update(ctx context.Context, item *domain.Item) error {
	return r.db.WithTenant(ctx, item.TenantID, func(ctx context.Context) error {
		query := `
			UPDATE items SET
				category_id = $4, name = $5, unit = $6, min_threshold = $7, max_threshold = $8, is_active = $9
			WHERE id = $1 AND tenant_id = $2 AND warehouse_id = $3 AND deleted_at IS NULL
			RETURNING updated_at
		`
		err := r.db.QueryRowxContext(ctx, query,
			item.ID, item.TenantID, item.WarehouseID, item.CategoryID, item.Name, item.Unit,
			item.MinThreshold, item.MaxThreshold, item.IsActive,
		).Scan(&item.UpdatedAt)
		if errors.Is(err, sql.ErrNoRows) {
			return errors.NotFound("item")
		}
		return err
	})
}

// SoftDelete soft deletes an item
// TENANT-ISOLATED: Updates via RLS
func (r *ItemRepository) SoftDelete(ctx context.Context, tenantID, warehouseID, id int64) error {
	return r.db.WithTenant(ctx, tenantID, func(ctx context.Context) error {
		query := `UPDATE items SET deleted_at = NOW() WHERE id = $1 AND tenant_id = $2 AND warehouse_id = $3 AND deleted_at IS NULL`
		result, err := r.db.ExecContext(ctx, query, id, tenantID, warehouseID)
		if err != nil {
			return err
		}

		affected, _ := result.RowsAffected()
		if affected == 0 {
			return errors.NotFound("item")
		}
		return nil
	})
}
