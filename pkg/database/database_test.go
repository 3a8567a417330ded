package database_test

import (
	"context"
	"database/sql/driver"
	stderrors "errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stoklog/stoklog-backend/pkg/database"
	"github.com/stoklog/stoklog-backend/pkg/errors"
	"github.com/stoklog/stoklog-backend/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithTenant(t *testing.T) {
	ctx := context.Background()

	t.Run("commits and exposes the transaction", func(t *testing.T) {
		mockDB := testutil.NewMockDB(t)
		defer mockDB.Close()
		db := mockDB.Wrapped()

		mockDB.ExpectTenantBegin(7)
		mockDB.ExpectExec("UPDATE batches").WillReturnResult(sqlmock.NewResult(0, 1))
		mockDB.ExpectCommit()

		err := db.WithTenant(ctx, 7, func(ctx context.Context) error {
			assert.True(t, database.InTransaction(ctx))
			_, err := db.ExecContext(ctx, "UPDATE batches SET quantity = 1")
			return err
		})
		require.NoError(t, err)
		mockDB.ExpectationsWereMet(t)
	})

	t.Run("rolls back when fn fails", func(t *testing.T) {
		mockDB := testutil.NewMockDB(t)
		defer mockDB.Close()
		db := mockDB.Wrapped()

		mockDB.ExpectTenantBegin(7)
		mockDB.ExpectRollback()

		boom := stderrors.New("boom")
		err := db.WithTenant(ctx, 7, func(context.Context) error { return boom })
		assert.ErrorIs(t, err, boom)
		mockDB.ExpectationsWereMet(t)
	})

	t.Run("nested calls join the outer transaction", func(t *testing.T) {
		mockDB := testutil.NewMockDB(t)
		defer mockDB.Close()
		db := mockDB.Wrapped()

		mockDB.ExpectTenantBegin(7)
		mockDB.ExpectCommit()

		err := db.WithTenant(ctx, 7, func(ctx context.Context) error {
			return db.WithTenant(ctx, 7, func(context.Context) error { return nil })
		})
		require.NoError(t, err)
		mockDB.ExpectationsWereMet(t)
	})

	t.Run("a transaction cannot switch tenants", func(t *testing.T) {
		mockDB := testutil.NewMockDB(t)
		defer mockDB.Close()
		db := mockDB.Wrapped()

		mockDB.ExpectTenantBegin(7)
		mockDB.ExpectRollback()

		err := db.WithTenant(ctx, 7, func(ctx context.Context) error {
			return db.WithTenant(ctx, 8, func(context.Context) error { return nil })
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already bound to tenant 7")
		mockDB.ExpectationsWereMet(t)
	})

	t.Run("sets lock timeout when configured", func(t *testing.T) {
		mockDB := testutil.NewMockDB(t)
		defer mockDB.Close()
		db := mockDB.Wrapped()
		db.SetLockTimeout(1500 * time.Millisecond)

		mockDB.ExpectTenantBegin(7)
		mockDB.Mock.ExpectExec(regexp.QuoteMeta("SELECT set_config('lock_timeout', $1, true)")).
			WithArgs("1500").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mockDB.ExpectCommit()

		require.NoError(t, db.WithTenant(ctx, 7, func(context.Context) error { return nil }))
		mockDB.ExpectationsWereMet(t)
	})
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"unique violation", &pq.Error{Code: "23505", Constraint: "items_name_key"}, errors.ErrConflict},
		{"quantity check", &pq.Error{Code: "23514", Constraint: "batches_quantity_check"}, errors.ErrValidation},
		{"missing parent", &pq.Error{Code: "23503", Constraint: "batches_item_id_fkey"}, errors.ErrNotFound},
		{"lock timeout", &pq.Error{Code: "55P03"}, errors.ErrConcurrencyConflict},
		{"deadlock", &pq.Error{Code: "40P01"}, errors.ErrConcurrencyConflict},
		{"connection exception", &pq.Error{Code: "08006"}, errors.ErrStorageFailure},
		{"bad conn", driver.ErrBadConn, errors.ErrStorageFailure},
		{"app error passes through", errors.InsufficientStock(5, 2), errors.ErrInsufficientStock},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.True(t, errors.Is(database.MapError(tc.err), tc.want))
		})
	}

	t.Run("unknown errors are unchanged", func(t *testing.T) {
		plain := stderrors.New("plain")
		assert.Same(t, plain, database.MapError(plain))
		assert.NoError(t, database.MapError(nil))
	})

	t.Run("foreign key names the resource", func(t *testing.T) {
		mapped := database.MapPQError(&pq.Error{Code: "23503", Constraint: "stock_transactions_batch_id_fkey"})
		require.NotNil(t, mapped)
		assert.Equal(t, "batch not found", mapped.Message)
	})
}
