package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/stoklog/stoklog-backend/internal/inventory/domain"
	"github.com/stoklog/stoklog-backend/pkg/database"
	"github.com/stoklog/stoklog-backend/pkg/errors"
)

// TransactionRepository is the append-only stock ledger
type TransactionRepository struct {
	db *database.DB
}

// NewTransactionRepository creates a new ledger repository
func NewTransactionRepository(db *database.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// TransactionFilter narrows List
type TransactionFilter struct {
	ItemID    *int64
	BatchID   *int64
	Direction domain.Direction
	From      *time.Time
	To        *time.Time
	Page      int
	PerPage   int
}

const transactionColumns = `
	id, tenant_id, warehouse_id, item_id, batch_id, direction, quantity, counterpart,
	responsible_person, actor_id, note, stock_snapshot, transaction_date,
	created_at, updated_at, deleted_at`

// Append writes one ledger entry. Entries are never updated except for
// metadata through UpdateMetadata.
// TENANT-ISOLATED: Inserts via RLS
func (r *TransactionRepository) Append(ctx context.Context, tx *domain.Transaction) error {
	return r.db.WithTenant(ctx, tx.TenantID, func(ctx context.Context) error {
		query := `
			INSERT INTO stock_transactions (
				tenant_id, warehouse_id, item_id, batch_id, direction, quantity, counterpart,
				responsible_person, actor_id, note, stock_snapshot, transaction_date
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			RETURNING id, created_at, updated_at
		`
		return r.db.QueryRowxContext(ctx, query,
			tx.TenantID, tx.WarehouseID, tx.ItemID, tx.BatchID, tx.Direction, tx.Quantity, tx.Counterpart,
			tx.ResponsiblePerson, tx.ActorID, tx.Note, tx.StockSnapshot, tx.TransactionDate,
		).Scan(&tx.ID, &tx.CreatedAt, &tx.UpdatedAt)
	})
}

// GetByID gets a ledger entry
// TENANT-ISOLATED: Queries via RLS
func (r *TransactionRepository) GetByID(ctx context.Context, tenantID, warehouseID, id int64) (*domain.Transaction, error) {
	var tx domain.Transaction

	err := r.db.WithTenant(ctx, tenantID, func(ctx context.Context) error {
		query := `
			SELECT ` + transactionColumns + `
			FROM stock_transactions
			WHERE id = $1 AND tenant_id = $2 AND warehouse_id = $3 AND deleted_at IS NULL
		`
		return r.db.GetContext(ctx, &tx, query, id, tenantID, warehouseID)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.NotFound("transaction")
		}
		return nil, err
	}
	return &tx, nil
}

// UpdateMetadata changes counterpart, note and date of an entry. Quantities,
// direction and snapshot are never touched.
// TENANT-ISOLATED: Updates via RLS
func (r *TransactionRepository) UpdateMetadata(ctx context.Context, tx *domain.Transaction) error {
	return r.db.WithTenant(ctx, tx.TenantID, func(ctx context.Context) error {
		query := `
			UPDATE stock_transactions SET counterpart = $4, note = $5, transaction_date = $6
			WHERE id = $1 AND tenant_id = $2 AND warehouse_id = $3 AND deleted_at IS NULL
			RETURNING updated_at
		`
		err := r.db.QueryRowxContext(ctx, query,
			tx.ID, tx.TenantID, tx.WarehouseID, tx.Counterpart, tx.Note, tx.TransactionDate,
		).Scan(&tx.UpdatedAt)
		if errors.Is(err, sql.ErrNoRows) {
			return errors.NotFound("transaction")
		}
		return err
	})
}

// List lists ledger entries newest first
// TENANT-ISOLATED: Queries via RLS
func (r *TransactionRepository) List(ctx context.Context, tenantID, warehouseID int64, filter TransactionFilter) ([]*domain.Transaction, int64, error) {
	var total int64
	var entries []*domain.Transaction

	err := r.db.WithTenant(ctx, tenantID, func(ctx context.Context) error {
		where := ` WHERE tenant_id = $1 AND warehouse_id = $2 AND deleted_at IS NULL`
		args := []any{tenantID, warehouseID}

		if filter.ItemID != nil {
			args = append(args, *filter.ItemID)
			where += fmt.Sprintf(` AND item_id = $%d`, len(args))
		}
		if filter.BatchID != nil {
			args = append(args, *filter.BatchID)
			where += fmt.Sprintf(` AND batch_id = $%d`, len(args))
		}
		if filter.Direction != "" {
			args = append(args, filter.Direction)
			where += fmt.Sprintf(` AND direction = $%d`, len(args))
		}
		if filter.From != nil {
			args = append(args, *filter.From)
			where += fmt.Sprintf(` AND transaction_date >= $%d`, len(args))
		}
		if filter.To != nil {
			args = append(args, *filter.To)
			where += fmt.Sprintf(` AND transaction_date <= $%d`, len(args))
		}

		if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM stock_transactions`+where, args...); err != nil {
			return err
		}

		args = append(args, filter.PerPage, (filter.Page-1)*filter.PerPage)
		query := `SELECT ` + transactionColumns + ` FROM stock_transactions` + where +
			fmt.Sprintf(` ORDER BY transaction_date DESC, id DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

		return r.db.SelectContext(ctx, &entries, query, args...)
	})
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}
