package repository

import (
	"context"
	"database/sql"

	"github.com/stoklog/stoklog-backend/internal/inventory/domain"
	"github.com/stoklog/stoklog-backend/pkg/database"
	"github.com/stoklog/stoklog-backend/pkg/errors"
)

// WarehouseRepository handles warehouse persistence
type WarehouseRepository struct {
	db *database.DB
}

// NewWarehouseRepository creates a new warehouse repository
func NewWarehouseRepository(db *database.DB) *WarehouseRepository {
	return &WarehouseRepository{db: db}
}

const warehouseColumns = `id, tenant_id, name, is_active, created_at, deleted_at`

// ListActive lists the tenant's active, non-deleted warehouses
// TENANT-ISOLATED: Queries via RLS
func (r *WarehouseRepository) ListActive(ctx context.Context, tenantID int64) ([]*domain.Warehouse, error) {
	var warehouses []*domain.Warehouse

	err := r.db.WithTenant(ctx, tenantID, func(ctx context.Context) error {
		query := `
			SELECT ` + warehouseColumns + `
			FROM warehouses
			WHERE tenant_id = $1 AND is_active = TRUE AND deleted_at IS NULL
			ORDER BY id
		`
		return r.db.SelectContext(ctx, &warehouses, query, tenantID)
	})
	if err != nil {
		return nil, err
	}
	return warehouses, nil
}

// GetByID gets a non-deleted warehouse of the tenant
// TENANT-ISOLATED: Queries via RLS
func (r *WarehouseRepository) GetByID(ctx context.Context, tenantID, id int64) (*domain.Warehouse, error) {
	var w domain.Warehouse

	err := r.db.WithTenant(ctx, tenantID, func(ctx context.Context) error {
		query := `SELECT ` + warehouseColumns + ` FROM warehouses WHERE id = $1 AND tenant_id = $2 AND deleted_at IS NULL`
		return r.db.GetContext(ctx, &w, query, id, tenantID)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.NotFound("warehouse")
		}
		return nil, err
	}
	return &w, nil
}

// SetActive freezes (false) or unfreezes (true) a warehouse
// TENANT-ISOLATED: Updates via RLS
func (r *WarehouseRepository) SetActive(ctx context.Context, tenantID, id int64, active bool) error {
	return r.db.WithTenant(ctx, tenantID, func(ctx context.Context) error {
		result, err := r.db.ExecContext(ctx,
			`UPDATE warehouses SET is_active = $3 WHERE id = $1 AND tenant_id = $2 AND deleted_at IS NULL`,
			id, tenantID, active)
		if err != nil {
			return err
		}

		affected, _ := result.RowsAffected()
		if affected == 0 {
			return errors.NotFound("warehouse")
		}
		return nil
	})
}
