package repository

import (
	"context"
	"database/sql"

	"github.com/lib/pq"
	"github.com/stoklog/stoklog-backend/internal/inventory/domain"
	"github.com/stoklog/stoklog-backend/pkg/database"
	"github.com/stoklog/stoklog-backend/pkg/errors"
)

// TenantRepository reads the tenants registry. The table has no row level
// security; it is the entry point for cross-tenant background work.
type TenantRepository struct {
	db *database.DB
}

// NewTenantRepository creates a new tenant repository
func NewTenantRepository(db *database.DB) *TenantRepository {
	return &TenantRepository{db: db}
}

type tenantRow struct {
	domain.Tenant
	Emails pq.StringArray `db:"notification_emails"`
}

func (r tenantRow) toDomain() *domain.Tenant {
	t := r.Tenant
	t.NotificationEmails = []string(r.Emails)
	return &t
}

const tenantColumns = `id, name, is_active, notification_emails, created_at`

// ListActive returns every active tenant ordered by id
func (r *TenantRepository) ListActive(ctx context.Context) ([]*domain.Tenant, error) {
	var rows []tenantRow
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE is_active = TRUE ORDER BY id`
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, err
	}

	tenants := make([]*domain.Tenant, len(rows))
	for i, row := range rows {
		tenants[i] = row.toDomain()
	}
	return tenants, nil
}

// GetByID gets a tenant by ID
func (r *TenantRepository) GetByID(ctx context.Context, id int64) (*domain.Tenant, error) {
	var row tenantRow
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE id = $1`
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.NotFound("tenant")
		}
		return nil, err
	}
	return row.toDomain(), nil
}

// SetActive activates or deactivates a tenant
func (r *TenantRepository) SetActive(ctx context.Context, id int64, active bool) error {
	result, err := r.db.ExecContext(ctx, `UPDATE tenants SET is_active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("tenant")
	}
	return nil
}
