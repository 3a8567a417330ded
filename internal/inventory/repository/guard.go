package repository

import (
	"context"
	"database/sql"

	"github.com/stoklog/stoklog-backend/pkg/database"
	"github.com/stoklog/stoklog-backend/pkg/errors"
)

// ResourceGuard answers whether a tenant's warehouse accepts writes, from the
// is_active flags the subscription consumer keeps current.
type ResourceGuard struct {
	db *database.DB
}

// NewResourceGuard creates a Postgres-backed resource guard
func NewResourceGuard(db *database.DB) *ResourceGuard {
	return &ResourceGuard{db: db}
}

// CheckWritable returns RESOURCE_FROZEN when the tenant or the warehouse is
// inactive and NOT_FOUND when the warehouse does not exist.
//
// Inside a stock write the warehouse row is share-locked, so a concurrent
// freeze waits for the write to finish rather than racing it.
// TENANT-ISOLATED: Queries via RLS
func (g *ResourceGuard) CheckWritable(ctx context.Context, tenantID, warehouseID int64) error {
	var status struct {
		TenantActive    bool `db:"tenant_active"`
		WarehouseActive bool `db:"warehouse_active"`
	}

	err := g.db.WithTenant(ctx, tenantID, func(ctx context.Context) error {
		query := `
			SELECT t.is_active AS tenant_active, w.is_active AS warehouse_active
			FROM warehouses w
			JOIN tenants t ON t.id = w.tenant_id
			WHERE w.id = $1 AND w.tenant_id = $2 AND w.deleted_at IS NULL
			FOR SHARE OF w
		`
		return g.db.GetContext(ctx, &status, query, warehouseID, tenantID)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return errors.NotFound("warehouse")
		}
		return err
	}

	if !status.TenantActive {
		return errors.ResourceFrozen("tenant")
	}
	if !status.WarehouseActive {
		return errors.ResourceFrozen("warehouse")
	}
	return nil
}
