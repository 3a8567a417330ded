package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/stoklog/stoklog-backend/internal/inventory/domain"
	"github.com/stoklog/stoklog-backend/pkg/database"
	"github.com/stoklog/stoklog-backend/pkg/errors"
)

// BatchRepository handles batch persistence
type BatchRepository struct {
	db *database.DB
}

// NewBatchRepository creates a new batch repository
func NewBatchRepository(db *database.DB) *BatchRepository {
	return &BatchRepository{db: db}
}

const batchColumns = `
	b.id, b.tenant_id, b.warehouse_id, b.item_id, b.quantity, b.supplier,
	b.expiry_date, b.created_at, b.updated_at, b.deleted_at`

// fefoOrder is the depletion order; batches_fefo_idx serves it
const fefoOrder = ` ORDER BY b.expiry_date ASC NULLS LAST, b.created_at ASC, b.id ASC`

// Create inserts a new batch. Batches are never merged.
// TENANT-ISOLATED: Inserts via RLS
func (r *BatchRepository) Create(ctx context.Context, batch *domain.Batch) error {
	return r.db.WithTenant(ctx, batch.TenantID, func(ctx context.Context) error {
		query := `
			INSERT INTO batches (tenant_id, warehouse_id, item_id, quantity, supplier, expiry_date)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id, created_at, updated_at
		`
		return r.db.QueryRowxContext(ctx, query,
			batch.TenantID, batch.WarehouseID, batch.ItemID, batch.Quantity, batch.Supplier, batch.ExpiryDate,
		).Scan(&batch.ID, &batch.CreatedAt, &batch.UpdatedAt)
	})
}

// GetByID gets a non-deleted batch of the warehouse
// TENANT-ISOLATED: Queries via RLS
func (r *BatchRepository) GetByID(ctx context.Context, tenantID, warehouseID, id int64) (*domain.Batch, error) {
	return r.get(ctx, tenantID, warehouseID, id, "")
}

// LockByID reads a batch and holds its row lock for the transaction
func (r *BatchRepository) LockByID(ctx context.Context, tenantID, warehouseID, id int64) (*domain.Batch, error) {
	return r.get(ctx, tenantID, warehouseID, id, " FOR UPDATE")
}

func (r *BatchRepository) get(ctx context.Context, tenantID, warehouseID, id int64, lock string) (*domain.Batch, error) {
	var batch domain.Batch

	err := r.db.WithTenant(ctx, tenantID, func(ctx context.Context) error {
		query := `
			SELECT ` + batchColumns + `
			FROM batches b
			WHERE b.id = $1 AND b.tenant_id = $2 AND b.warehouse_id = $3 AND b.deleted_at IS NULL` + lock
		return r.db.GetContext(ctx, &batch, query, id, tenantID, warehouseID)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.NotFound("batch")
		}
		return nil, err
	}
	return &batch, nil
}

// ListByItem lists an item's non-deleted batches in FEFO order
// TENANT-ISOLATED: Queries via RLS
func (r *BatchRepository) ListByItem(ctx context.Context, tenantID, warehouseID, itemID int64) ([]*domain.Batch, error) {
	var batches []*domain.Batch

	err := r.db.WithTenant(ctx, tenantID, func(ctx context.Context) error {
		query := `
			SELECT ` + batchColumns + `
			FROM batches b
			WHERE b.item_id = $1 AND b.tenant_id = $2 AND b.warehouse_id = $3 AND b.deleted_at IS NULL` + fefoOrder
		return r.db.SelectContext(ctx, &batches, query, itemID, tenantID, warehouseID)
	})
	if err != nil {
		return nil, err
	}
	return batches, nil
}

// LockForDepletion locks every non-deleted batch of the item in FEFO order.
// Must run inside the issuing transaction.
func (r *BatchRepository) LockForDepletion(ctx context.Context, tenantID, warehouseID, itemID int64) ([]domain.Batch, error) {
	if !database.InTransaction(ctx) {
		return nil, fmt.Errorf("LockForDepletion requires a transaction")
	}

	var batches []domain.Batch
	query := `
		SELECT ` + batchColumns + `
		FROM batches b
		WHERE b.item_id = $1 AND b.tenant_id = $2 AND b.warehouse_id = $3 AND b.deleted_at IS NULL` +
		fefoOrder + ` FOR UPDATE`
	if err := r.db.SelectContext(ctx, &batches, query, itemID, tenantID, warehouseID); err != nil {
		return nil, err
	}
	return batches, nil
}

// Decrement lowers a batch quantity by n. The update only applies while the
// batch still holds at least n, so a lost race surfaces as a concurrency
// conflict instead of a negative quantity.
func (r *BatchRepository) Decrement(ctx context.Context, tenantID, id, n int64) error {
	return r.db.WithTenant(ctx, tenantID, func(ctx context.Context) error {
		query := `
			UPDATE batches SET quantity = quantity - $3
			WHERE id = $1 AND tenant_id = $2 AND deleted_at IS NULL AND quantity >= $3
		`
		result, err := r.db.ExecContext(ctx, query, id, tenantID, n)
		if err != nil {
			return err
		}

		affected, _ := result.RowsAffected()
		if affected == 0 {
			return errors.ConcurrencyConflict(fmt.Errorf("batch %d no longer holds %d", id, n))
		}
		return nil
	})
}

// SetQuantity overwrites a batch quantity (reconciliation)
// TENANT-ISOLATED: Updates via RLS
func (r *BatchRepository) SetQuantity(ctx context.Context, tenantID, id, quantity int64) error {
	return r.db.WithTenant(ctx, tenantID, func(ctx context.Context) error {
		query := `UPDATE batches SET quantity = $3 WHERE id = $1 AND tenant_id = $2 AND deleted_at IS NULL`
		result, err := r.db.ExecContext(ctx, query, id, tenantID, quantity)
		if err != nil {
			return err
		}

		affected, _ := result.RowsAffected()
		if affected == 0 {
			return errors.NotFound("batch")
		}
		return nil
	})
}

// TotalForItem sums the item's non-deleted batch quantities
// TENANT-ISOLATED: Queries via RLS
func (r *BatchRepository) TotalForItem(ctx context.Context, tenantID, warehouseID, itemID int64) (int64, error) {
	var total int64

	err := r.db.WithTenant(ctx, tenantID, func(ctx context.Context) error {
		query := `
			SELECT COALESCE(SUM(quantity), 0)
			FROM batches
			WHERE item_id = $1 AND tenant_id = $2 AND warehouse_id = $3 AND deleted_at IS NULL
		`
		return r.db.GetContext(ctx, &total, query, itemID, tenantID, warehouseID)
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}

// SoftDelete removes a batch from totals while keeping its history
// TENANT-ISOLATED: Updates via RLS
func (r *BatchRepository) SoftDelete(ctx context.Context, tenantID, warehouseID, id int64) error {
	return r.db.WithTenant(ctx, tenantID, func(ctx context.Context) error {
		query := `UPDATE batches SET deleted_at = NOW() WHERE id = $1 AND tenant_id = $2 AND warehouse_id = $3 AND deleted_at IS NULL`
		result, err := r.db.ExecContext(ctx, query, id, tenantID, warehouseID)
		if err != nil {
			return err
		}

		affected, _ := result.RowsAffected()
		if affected == 0 {
			return errors.NotFound("batch")
		}
		return nil
	})
}

// ListWithExpiry returns the warehouse's non-deleted batches that carry an
// expiry date, joined with their active item. skipEmpty drops batches whose
// quantity is 0.
// TENANT-ISOLATED: Queries via RLS
func (r *BatchRepository) ListWithExpiry(ctx context.Context, tenantID, warehouseID int64, skipEmpty bool) ([]*domain.ExpiringBatch, error) {
	var batches []*domain.ExpiringBatch

	err := r.db.WithTenant(ctx, tenantID, func(ctx context.Context) error {
		query := `
			SELECT ` + batchColumns + `, i.name AS item_name, i.unit AS item_unit
			FROM batches b
			JOIN items i ON i.id = b.item_id AND i.deleted_at IS NULL AND i.is_active = TRUE
			WHERE b.tenant_id = $1 AND b.warehouse_id = $2
			  AND b.deleted_at IS NULL AND b.expiry_date IS NOT NULL`
		if skipEmpty {
			query += ` AND b.quantity > 0`
		}
		query += ` ORDER BY b.expiry_date, b.id`
		return r.db.SelectContext(ctx, &batches, query, tenantID, warehouseID)
	})
	if err != nil {
		return nil, err
	}
	return batches, nil
}
