package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stoklog/stoklog-backend/internal/inventory/repository"
	"github.com/stoklog/stoklog-backend/internal/inventory/service"
	"github.com/stoklog/stoklog-backend/pkg/actor"
	apperrors "github.com/stoklog/stoklog-backend/pkg/errors"
	"github.com/stoklog/stoklog-backend/pkg/logger"
	"github.com/stoklog/stoklog-backend/pkg/tenant"
	"github.com/stoklog/stoklog-backend/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// UNIT TESTS: transaction boundaries of stock writes against sqlmock
// ============================================================================

var mockScope = tenant.Scope{TenantID: 7, WarehouseID: 3, Actor: actor.Actor{ID: "u-9", Name: "Sari"}}

func newMockStockService(t *testing.T) (*service.StockService, *testutil.MockDB) {
	t.Helper()
	mockDB := testutil.NewMockDB(t)
	db := mockDB.Wrapped()

	svc := service.NewStockService(
		db,
		repository.NewItemRepository(db),
		repository.NewBatchRepository(db),
		repository.NewTransactionRepository(db),
		repository.NewResourceGuard(db),
		nil, nil, logger.Nop(),
	)
	return svc, mockDB
}

func guardRows(tenantActive, warehouseActive bool) *sqlmock.Rows {
	return testutil.MockRows("tenant_active", "warehouse_active").AddRow(tenantActive, warehouseActive)
}

func itemRows(id int64) *sqlmock.Rows {
	now := time.Now()
	return testutil.MockRows(
		"id", "tenant_id", "warehouse_id", "category_id", "name", "unit",
		"min_threshold", "max_threshold", "is_active", "created_at", "updated_at", "deleted_at",
	).AddRow(id, 7, 3, nil, "Saline 500ml", "btl", nil, nil, true, now, now, nil)
}

func inactiveItemRows(id int64) *sqlmock.Rows {
	now := time.Now()
	return testutil.MockRows(
		"id", "tenant_id", "warehouse_id", "category_id", "name", "unit",
		"min_threshold", "max_threshold", "is_active", "created_at", "updated_at", "deleted_at",
	).AddRow(id, 7, 3, nil, "Saline 500ml", "btl", nil, nil, false, now, now, nil)
}

func batchRows() *sqlmock.Rows {
	return testutil.MockRows(
		"id", "tenant_id", "warehouse_id", "item_id", "quantity", "supplier",
		"expiry_date", "created_at", "updated_at", "deleted_at",
	)
}

func TestStockService_Issue_RollsBackOnShortage(t *testing.T) {
	svc, mockDB := newMockStockService(t)
	defer mockDB.Close()
	now := time.Now()

	mockDB.ExpectTenantBegin(7)
	mockDB.ExpectQuery("FROM warehouses w").WillReturnRows(guardRows(true, true))
	mockDB.ExpectQuery("FOR UPDATE OF i").WillReturnRows(itemRows(42))
	mockDB.ExpectQuery("FROM batches b").WillReturnRows(
		batchRows().
			AddRow(1, 7, 3, 42, 2, "A", now.AddDate(0, 1, 0), now, now, nil).
			AddRow(2, 7, 3, 42, 1, "B", nil, now, now, nil),
	)
	mockDB.ExpectRollback()

	_, err := svc.Issue(context.Background(), mockScope, service.IssueInput{ItemID: 42, Quantity: 5, Counterpart: "ER"})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrInsufficientStock))

	var appErr *apperrors.AppError
	require.True(t, apperrors.As(err, &appErr))
	assert.Equal(t, map[string]string{"requested": "5", "available": "3", "short": "2"}, appErr.Details)

	mockDB.ExpectationsWereMet(t)
}

func TestStockService_Issue_LostRaceIsConcurrencyConflict(t *testing.T) {
	svc, mockDB := newMockStockService(t)
	defer mockDB.Close()
	now := time.Now()

	mockDB.ExpectTenantBegin(7)
	mockDB.ExpectQuery("FROM warehouses w").WillReturnRows(guardRows(true, true))
	mockDB.ExpectQuery("FOR UPDATE OF i").WillReturnRows(itemRows(42))
	mockDB.ExpectQuery("FROM batches b").WillReturnRows(batchRows().AddRow(1, 7, 3, 42, 5, "A", nil, now, now, nil))
	mockDB.ExpectExec("UPDATE batches SET quantity = quantity - $3").WillReturnResult(sqlmock.NewResult(0, 0))
	mockDB.ExpectRollback()

	_, err := svc.Issue(context.Background(), mockScope, service.IssueInput{ItemID: 42, Quantity: 4, Counterpart: "ER"})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrConcurrencyConflict))

	var appErr *apperrors.AppError
	require.True(t, apperrors.As(err, &appErr))
	assert.True(t, appErr.Retryable)

	mockDB.ExpectationsWereMet(t)
}

func TestStockService_Receive_FrozenWarehouseWritesNothing(t *testing.T) {
	svc, mockDB := newMockStockService(t)
	defer mockDB.Close()

	mockDB.ExpectTenantBegin(7)
	mockDB.ExpectQuery("FROM warehouses w").WillReturnRows(guardRows(true, false))
	mockDB.ExpectRollback()

	_, err := svc.Receive(context.Background(), mockScope, service.ReceiveInput{ItemID: 42, Quantity: 1, Supplier: "PT A"})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrResourceFrozen))

	mockDB.ExpectationsWereMet(t)
}

func TestStockService_Receive_InactiveItemWritesNothing(t *testing.T) {
	svc, mockDB := newMockStockService(t)
	defer mockDB.Close()

	mockDB.ExpectTenantBegin(7)
	mockDB.ExpectQuery("FROM warehouses w").WillReturnRows(guardRows(true, true))
	mockDB.ExpectQuery("FOR UPDATE OF i").WillReturnRows(inactiveItemRows(42))
	mockDB.ExpectRollback()

	_, err := svc.Receive(context.Background(), mockScope, service.ReceiveInput{ItemID: 42, Quantity: 1, Supplier: "PT A"})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))

	var appErr *apperrors.AppError
	require.True(t, apperrors.As(err, &appErr))
	assert.Contains(t, appErr.Details, "item_id")

	mockDB.ExpectationsWereMet(t)
}

func TestStockService_Receive_StorageFailure(t *testing.T) {
	svc, mockDB := newMockStockService(t)
	defer mockDB.Close()

	mockDB.ExpectTenantBegin(7)
	mockDB.ExpectQuery("FROM warehouses w").WillReturnRows(guardRows(true, true))
	mockDB.ExpectQuery("FOR UPDATE OF i").WillReturnRows(itemRows(42))
	mockDB.ExpectQuery("INSERT INTO batches").WillReturnError(&pq.Error{Code: "08006", Message: "connection failure"})
	mockDB.ExpectRollback()

	_, err := svc.Receive(context.Background(), mockScope, service.ReceiveInput{ItemID: 42, Quantity: 1, Supplier: "PT A"})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrStorageFailure))

	mockDB.ExpectationsWereMet(t)
}

func TestStockService_ValidationBeforeStorage(t *testing.T) {
	svc, mockDB := newMockStockService(t)
	defer mockDB.Close()

	tests := []struct {
		name string
		call func() error
	}{
		{"issue zero", func() error {
			_, err := svc.Issue(context.Background(), mockScope, service.IssueInput{ItemID: 1, Quantity: 0, Counterpart: "x"})
			return err
		}},
		{"issue without counterpart", func() error {
			_, err := svc.Issue(context.Background(), mockScope, service.IssueInput{ItemID: 1, Quantity: 1})
			return err
		}},
		{"receive negative", func() error {
			_, err := svc.Receive(context.Background(), mockScope, service.ReceiveInput{ItemID: 1, Quantity: -4, Supplier: "x"})
			return err
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.True(t, apperrors.Is(tc.call(), apperrors.ErrValidation))
		})
	}

	t.Run("missing scope", func(t *testing.T) {
		_, err := svc.Issue(context.Background(), tenant.Scope{TenantID: 7}, service.IssueInput{ItemID: 1, Quantity: 1, Counterpart: "x"})
		assert.True(t, apperrors.Is(err, apperrors.ErrBadRequest))
	})

	// no expectations were registered: nothing may have reached the database
	mockDB.ExpectationsWereMet(t)
}
