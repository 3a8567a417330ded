package database

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jmoiron/sqlx"
)

type txKey struct{}

type tenantKey struct{}

// WithTenant executes fn inside a transaction scoped to one tenant.
//
//  1. Starts a transaction (or joins the one already carried by ctx)
//  2. Sets app.current_tenant for the row level security policies
//  3. Sets lock_timeout so blocked writers fail instead of queueing forever
//  4. Commits when fn returns nil, rolls back otherwise
//
// Both settings use set_config(..., true) so they are transaction-local and
// pooled connections come back clean.
func (db *DB) WithTenant(ctx context.Context, tenantID int64, fn func(context.Context) error) error {
	if tx := db.getTx(ctx); tx != nil {
		if current, ok := ctx.Value(tenantKey{}).(int64); ok && current != tenantID {
			return fmt.Errorf("transaction already bound to tenant %d, not %d", current, tenantID)
		}
		return fn(ctx)
	}

	return db.Transaction(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, "SELECT set_config('app.current_tenant', $1, true)", strconv.FormatInt(tenantID, 10)); err != nil {
			return fmt.Errorf("failed to set app.current_tenant to %d: %w", tenantID, err)
		}

		if db.lockTimeout > 0 {
			ms := strconv.FormatInt(db.lockTimeout.Milliseconds(), 10)
			if _, err := tx.ExecContext(ctx, "SELECT set_config('lock_timeout', $1, true)", ms); err != nil {
				return fmt.Errorf("failed to set lock_timeout: %w", err)
			}
		}

		txCtx := context.WithValue(ctx, txKey{}, tx)
		txCtx = context.WithValue(txCtx, tenantKey{}, tenantID)
		return fn(txCtx)
	})
}

// InTransaction reports whether ctx carries a transaction started by WithTenant
func InTransaction(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{}).(*sqlx.Tx)
	return ok
}

// getTx extracts transaction from context if present
func (db *DB) getTx(ctx context.Context) *sqlx.Tx {
	if tx, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return nil
}
