package repository

import (
	"context"
	"fmt"

	"github.com/stoklog/stoklog-backend/internal/inventory/domain"
	"github.com/stoklog/stoklog-backend/pkg/database"
)

// OpnameRepository stores stock counts. Rows are never updated.
type OpnameRepository struct {
	db *database.DB
}

// NewOpnameRepository creates a new opname repository
func NewOpnameRepository(db *database.DB) *OpnameRepository {
	return &OpnameRepository{db: db}
}

// OpnameFilter narrows List
type OpnameFilter struct {
	ItemID  *int64
	BatchID *int64
	Page    int
	PerPage int
}

// Create records a stock count
// TENANT-ISOLATED: Inserts via RLS
func (r *OpnameRepository) Create(ctx context.Context, o *domain.Opname) error {
	return r.db.WithTenant(ctx, o.TenantID, func(ctx context.Context) error {
		query := `
			INSERT INTO stock_opnames (
				tenant_id, warehouse_id, item_id, batch_id, system_quantity, physical_quantity,
				difference, applied, note, count_date, actor_id, actor_name
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			RETURNING id, created_at
		`
		return r.db.QueryRowxContext(ctx, query,
			o.TenantID, o.WarehouseID, o.ItemID, o.BatchID, o.SystemQuantity, o.PhysicalQuantity,
			o.Difference, o.Applied, o.Note, o.CountDate, o.ActorID, o.ActorName,
		).Scan(&o.ID, &o.CreatedAt)
	})
}

// List lists stock counts newest first
// TENANT-ISOLATED: Queries via RLS
func (r *OpnameRepository) List(ctx context.Context, tenantID, warehouseID int64, filter OpnameFilter) ([]*domain.Opname, int64, error) {
	var total int64
	var opnames []*domain.Opname

	err := r.db.WithTenant(ctx, tenantID, func(ctx context.Context) error {
		where := ` WHERE tenant_id = $1 AND warehouse_id = $2`
		args := []any{tenantID, warehouseID}

		if filter.ItemID != nil {
			args = append(args, *filter.ItemID)
			where += fmt.Sprintf(` AND item_id = $%d`, len(args))
		}
		if filter.BatchID != nil {
			args = append(args, *filter.BatchID)
			where += fmt.Sprintf(` AND batch_id = $%d`, len(args))
		}

		if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM stock_opnames`+where, args...); err != nil {
			return err
		}

		args = append(args, filter.PerPage, (filter.Page-1)*filter.PerPage)
		query := `
			SELECT id, tenant_id, warehouse_id, item_id, batch_id, system_quantity, physical_quantity,
			       difference, applied, note, count_date, actor_id, actor_name, created_at
			FROM stock_opnames` + where +
			fmt.Sprintf(` ORDER BY count_date DESC, id DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

		return r.db.SelectContext(ctx, &opnames, query, args...)
	})
	if err != nil {
		return nil, 0, err
	}
	return opnames, total, nil
}
