package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/stoklog/stoklog-backend/internal/inventory/domain"
	"github.com/stoklog/stoklog-backend/pkg/database"
	"github.com/stoklog/stoklog-backend/pkg/errors"
)

// AlertRepository handles alert persistence
type AlertRepository struct {
	db *database.DB
}

// NewAlertRepository creates a new alert repository
func NewAlertRepository(db *database.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

// AlertFilter narrows List
type AlertFilter struct {
	Kind             domain.AlertKind
	IncludeDismissed bool
	Page             int
	PerPage          int
}

type alertRow struct {
	ID          int64      `db:"id"`
	TenantID    int64      `db:"tenant_id"`
	WarehouseID int64      `db:"warehouse_id"`
	TargetType  string     `db:"target_type"`
	TargetID    int64      `db:"target_id"`
	Kind        string     `db:"kind"`
	Message     string     `db:"message"`
	CreatedAt   time.Time  `db:"created_at"`
	DismissedAt *time.Time `db:"dismissed_at"`
	DismissedBy *string    `db:"dismissed_by"`
}

func (r alertRow) toDomain() (*domain.Alert, error) {
	target, err := domain.ParseTarget(r.TargetType, r.TargetID)
	if err != nil {
		return nil, err
	}
	return &domain.Alert{
		ID:          r.ID,
		TenantID:    r.TenantID,
		WarehouseID: r.WarehouseID,
		Target:      target,
		Kind:        domain.AlertKind(r.Kind),
		Message:     r.Message,
		CreatedAt:   r.CreatedAt,
		DismissedAt: r.DismissedAt,
		DismissedBy: r.DismissedBy,
	}, nil
}

const alertColumns = `
	id, tenant_id, warehouse_id, target_type, target_id, kind, message,
	created_at, dismissed_at, dismissed_by`

// InsertIfAbsent creates the alert unless an open alert with the same
// (tenant, warehouse, target, kind) exists. The check and the insert are one
// statement against alerts_open_unique, so concurrent generators cannot both
// insert. Returns false, leaving the existing alert untouched, on a duplicate.
// TENANT-ISOLATED: Inserts via RLS
func (r *AlertRepository) InsertIfAbsent(ctx context.Context, alert *domain.Alert) (bool, error) {
	if err := domain.CheckTarget(alert.Kind, alert.Target); err != nil {
		return false, err
	}
	targetType, targetID := domain.TargetRef(alert.Target)

	var created bool
	err := r.db.WithTenant(ctx, alert.TenantID, func(ctx context.Context) error {
		query := `
			INSERT INTO alerts (tenant_id, warehouse_id, target_type, target_id, kind, message)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (tenant_id, warehouse_id, target_type, target_id, kind)
				WHERE dismissed_at IS NULL
				DO NOTHING
			RETURNING id, created_at
		`
		err := r.db.QueryRowxContext(ctx, query,
			alert.TenantID, alert.WarehouseID, targetType, targetID, string(alert.Kind), alert.Message,
		).Scan(&alert.ID, &alert.CreatedAt)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		created = true
		return nil
	})
	return created, err
}

// GetByID gets an alert by ID
// TENANT-ISOLATED: Queries via RLS
func (r *AlertRepository) GetByID(ctx context.Context, tenantID, warehouseID, id int64) (*domain.Alert, error) {
	var row alertRow

	err := r.db.WithTenant(ctx, tenantID, func(ctx context.Context) error {
		query := `SELECT ` + alertColumns + ` FROM alerts WHERE id = $1 AND tenant_id = $2 AND warehouse_id = $3`
		return r.db.GetContext(ctx, &row, query, id, tenantID, warehouseID)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.NotFound("alert")
		}
		return nil, err
	}
	return row.toDomain()
}

// List lists alerts newest first; open alerts only unless IncludeDismissed
// TENANT-ISOLATED: Queries via RLS
func (r *AlertRepository) List(ctx context.Context, tenantID, warehouseID int64, filter AlertFilter) ([]*domain.Alert, int64, error) {
	var total int64
	var rows []alertRow

	err := r.db.WithTenant(ctx, tenantID, func(ctx context.Context) error {
		where := ` WHERE tenant_id = $1 AND warehouse_id = $2`
		args := []any{tenantID, warehouseID}

		if !filter.IncludeDismissed {
			where += ` AND dismissed_at IS NULL`
		}
		if filter.Kind != "" {
			args = append(args, string(filter.Kind))
			where += fmt.Sprintf(` AND kind = $%d`, len(args))
		}

		if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM alerts`+where, args...); err != nil {
			return err
		}

		args = append(args, filter.PerPage, (filter.Page-1)*filter.PerPage)
		query := `SELECT ` + alertColumns + ` FROM alerts` + where +
			fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

		return r.db.SelectContext(ctx, &rows, query, args...)
	})
	if err != nil {
		return nil, 0, err
	}

	alerts := make([]*domain.Alert, 0, len(rows))
	for _, row := range rows {
		a, err := row.toDomain()
		if err != nil {
			return nil, 0, err
		}
		alerts = append(alerts, a)
	}
	return alerts, total, nil
}

// Dismiss closes one open alert
// TENANT-ISOLATED: Updates via RLS
func (r *AlertRepository) Dismiss(ctx context.Context, tenantID, warehouseID, id int64, by string) error {
	return r.db.WithTenant(ctx, tenantID, func(ctx context.Context) error {
		query := `
			UPDATE alerts SET dismissed_at = NOW(), dismissed_by = $4
			WHERE id = $1 AND tenant_id = $2 AND warehouse_id = $3 AND dismissed_at IS NULL
		`
		result, err := r.db.ExecContext(ctx, query, id, tenantID, warehouseID, by)
		if err != nil {
			return err
		}

		affected, _ := result.RowsAffected()
		if affected == 0 {
			return errors.NotFound("alert")
		}
		return nil
	})
}

// DismissMany closes the open alerts among ids and returns how many closed
// TENANT-ISOLATED: Updates via RLS
func (r *AlertRepository) DismissMany(ctx context.Context, tenantID, warehouseID int64, ids []int64, by string) (int64, error) {
	var affected int64

	err := r.db.WithTenant(ctx, tenantID, func(ctx context.Context) error {
		query := `
			UPDATE alerts SET dismissed_at = NOW(), dismissed_by = $4
			WHERE id = ANY($1) AND tenant_id = $2 AND warehouse_id = $3 AND dismissed_at IS NULL
		`
		result, err := r.db.ExecContext(ctx, query, pq.Array(ids), tenantID, warehouseID, by)
		if err != nil {
			return err
		}
		affected, _ = result.RowsAffected()
		return nil
	})
	return affected, err
}

// DismissByKind closes every open alert of a kind in the warehouse
// TENANT-ISOLATED: Updates via RLS
func (r *AlertRepository) DismissByKind(ctx context.Context, tenantID, warehouseID int64, kind domain.AlertKind, by string) (int64, error) {
	var affected int64

	err := r.db.WithTenant(ctx, tenantID, func(ctx context.Context) error {
		query := `
			UPDATE alerts SET dismissed_at = NOW(), dismissed_by = $4
			WHERE kind = $1 AND tenant_id = $2 AND warehouse_id = $3 AND dismissed_at IS NULL
		`
		result, err := r.db.ExecContext(ctx, query, string(kind), tenantID, warehouseID, by)
		if err != nil {
			return err
		}
		affected, _ = result.RowsAffected()
		return nil
	})
	return affected, err
}

// CountOpenByKind counts open alerts of the warehouse per kind
// TENANT-ISOLATED: Queries via RLS
func (r *AlertRepository) CountOpenByKind(ctx context.Context, tenantID, warehouseID int64) (map[domain.AlertKind]int64, error) {
	var rows []struct {
		Kind  string `db:"kind"`
		Count int64  `db:"count"`
	}

	err := r.db.WithTenant(ctx, tenantID, func(ctx context.Context) error {
		query := `
			SELECT kind, COUNT(*) AS count
			FROM alerts
			WHERE tenant_id = $1 AND warehouse_id = $2 AND dismissed_at IS NULL
			GROUP BY kind
		`
		return r.db.SelectContext(ctx, &rows, query, tenantID, warehouseID)
	})
	if err != nil {
		return nil, err
	}

	counts := make(map[domain.AlertKind]int64, len(domain.AllKinds))
	for _, k := range domain.AllKinds {
		counts[k] = 0
	}
	for _, row := range rows {
		counts[domain.AlertKind(row.Kind)] = row.Count
	}
	return counts, nil
}
