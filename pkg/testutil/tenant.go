package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stoklog/stoklog-backend/pkg/actor"
	"github.com/stoklog/stoklog-backend/pkg/tenant"
)

// TestTenant is a tenant row with its first warehouse, created for one test
type TestTenant struct {
	ID          int64
	Name        string
	WarehouseID int64
}

// Scope returns an operator scope on the tenant's first warehouse
func (tt *TestTenant) Scope() tenant.Scope {
	return tt.ScopeFor(tt.WarehouseID)
}

// ScopeFor returns an operator scope on a given warehouse of the tenant
func (tt *TestTenant) ScopeFor(warehouseID int64) tenant.Scope {
	return tenant.Scope{
		TenantID:    tt.ID,
		WarehouseID: warehouseID,
		Actor:       actor.Actor{ID: "user-1", Name: "Test Operator", Role: "admin"},
	}
}

// TenantManager creates and removes tenant rows for tests
type TenantManager struct {
	db      *sqlx.DB
	tenants []*TestTenant
	mu      sync.Mutex
}

// NewTenantManager creates a new tenant manager for tests
func NewTenantManager(db *sqlx.DB) *TenantManager {
	return &TenantManager{db: db}
}

// CreateTenant inserts a tenant with one notification recipient and one
// active warehouse.
func (m *TenantManager) CreateTenant(ctx context.Context, name string) (*TestTenant, error) {
	tt := &TestTenant{Name: name}

	err := m.db.QueryRowxContext(ctx,
		`INSERT INTO tenants (name, notification_emails) VALUES ($1, $2) RETURNING id`,
		name, pq.StringArray{fmt.Sprintf("owner+%s@example.com", name)},
	).Scan(&tt.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to insert tenant: %w", err)
	}

	tt.WarehouseID, err = m.AddWarehouse(ctx, tt, "Main")
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.tenants = append(m.tenants, tt)
	m.mu.Unlock()

	return tt, nil
}

// AddWarehouse inserts another active warehouse for the tenant
func (m *TenantManager) AddWarehouse(ctx context.Context, tt *TestTenant, name string) (int64, error) {
	var id int64
	err := m.db.QueryRowxContext(ctx,
		`INSERT INTO warehouses (tenant_id, name) VALUES ($1, $2) RETURNING id`,
		tt.ID, name,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert warehouse: %w", err)
	}
	return id, nil
}

// DropTenant deletes every row owned by the tenant, children first
func (m *TenantManager) DropTenant(ctx context.Context, tt *TestTenant) error {
	tables := []string{
		"alerts", "stock_opnames", "stock_transactions", "batches",
		"items", "categories", "warehouses",
	}
	for _, table := range tables {
		if _, err := m.db.ExecContext(ctx, "DELETE FROM "+table+" WHERE tenant_id = $1", tt.ID); err != nil {
			return fmt.Errorf("failed to clean %s: %w", table, err)
		}
	}
	if _, err := m.db.ExecContext(ctx, "DELETE FROM tenants WHERE id = $1", tt.ID); err != nil {
		return fmt.Errorf("failed to delete tenant: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for i, t := range m.tenants {
		if t.ID == tt.ID {
			m.tenants = append(m.tenants[:i], m.tenants[i+1:]...)
			break
		}
	}
	return nil
}

// Cleanup drops all tenants created through this manager
func (m *TenantManager) Cleanup(ctx context.Context) error {
	m.mu.Lock()
	remaining := append([]*TestTenant(nil), m.tenants...)
	m.mu.Unlock()

	for _, tt := range remaining {
		if err := m.DropTenant(ctx, tt); err != nil {
			return err
		}
	}
	return nil
}
