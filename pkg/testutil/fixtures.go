package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
)

// ItemFixture is an item row to insert
type ItemFixture struct {
	Name         string
	Unit         string
	MinThreshold *int64
	MaxThreshold *int64
	IsActive     bool
}

// BatchFixture is a batch row to insert
type BatchFixture struct {
	Quantity   int64
	Supplier   string
	ExpiryDate *time.Time
	// CreatedAt defaults to NOW() in the database when zero
	CreatedAt time.Time
}

// FixtureFactory inserts rows with sensible defaults straight through SQL,
// bypassing services, so tests can set up state the API would not allow.
type FixtureFactory struct {
	db       *sqlx.DB
	mu       sync.Mutex
	sequence int
}

// NewFixtureFactory creates a new fixture factory
func NewFixtureFactory(db *sqlx.DB) *FixtureFactory {
	return &FixtureFactory{db: db}
}

// nextSeq returns the next sequence number for unique values
func (f *FixtureFactory) nextSeq() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sequence++
	return f.sequence
}

// WithThresholds sets the item's min and max thresholds
func WithThresholds(min, max *int64) func(*ItemFixture) {
	return func(i *ItemFixture) {
		i.MinThreshold = min
		i.MaxThreshold = max
	}
}

// WithItemName sets the item name
func WithItemName(name string) func(*ItemFixture) {
	return func(i *ItemFixture) {
		i.Name = name
	}
}

// Inactive marks the item inactive
func Inactive() func(*ItemFixture) {
	return func(i *ItemFixture) {
		i.IsActive = false
	}
}

// Item inserts an item into the warehouse and returns its id
func (f *FixtureFactory) Item(t *testing.T, ctx context.Context, tt *TestTenant, warehouseID int64, opts ...func(*ItemFixture)) int64 {
	t.Helper()

	item := ItemFixture{
		Name:     fmt.Sprintf("Test Item %d", f.nextSeq()),
		Unit:     "pcs",
		IsActive: true,
	}
	for _, opt := range opts {
		opt(&item)
	}

	var id int64
	err := f.db.QueryRowxContext(ctx, `
		INSERT INTO items (tenant_id, warehouse_id, name, unit, min_threshold, max_threshold, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		tt.ID, warehouseID, item.Name, item.Unit, item.MinThreshold, item.MaxThreshold, item.IsActive,
	).Scan(&id)
	if err != nil {
		t.Fatalf("failed to insert item fixture: %v", err)
	}
	return id
}

// Batch inserts a batch of an item and returns its id
func (f *FixtureFactory) Batch(t *testing.T, ctx context.Context, tt *TestTenant, warehouseID, itemID int64, b BatchFixture) int64 {
	t.Helper()

	if b.Supplier == "" {
		b.Supplier = fmt.Sprintf("Supplier %d", f.nextSeq())
	}
	createdAt := b.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	var id int64
	err := f.db.QueryRowxContext(ctx, `
		INSERT INTO batches (tenant_id, warehouse_id, item_id, quantity, supplier, expiry_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		tt.ID, warehouseID, itemID, b.Quantity, b.Supplier, b.ExpiryDate, createdAt,
	).Scan(&id)
	if err != nil {
		t.Fatalf("failed to insert batch fixture: %v", err)
	}
	return id
}

// BatchQuantity reads a batch quantity directly
func (f *FixtureFactory) BatchQuantity(t *testing.T, ctx context.Context, batchID int64) int64 {
	t.Helper()
	var qty int64
	if err := f.db.GetContext(ctx, &qty, `SELECT quantity FROM batches WHERE id = $1`, batchID); err != nil {
		t.Fatalf("failed to read batch %d: %v", batchID, err)
	}
	return qty
}

// Count returns the number of rows the tenant owns in a table
func (f *FixtureFactory) Count(t *testing.T, ctx context.Context, table string, tenantID int64) int {
	t.Helper()
	var n int
	if err := f.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM "+table+" WHERE tenant_id = $1", tenantID); err != nil {
		t.Fatalf("failed to count %s: %v", table, err)
	}
	return n
}

// Int64 returns a pointer to v
func Int64(v int64) *int64 {
	return &v
}

// Date returns a pointer to a UTC calendar date
func Date(year int, month time.Month, day int) *time.Time {
	d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return &d
}

// DaysFrom returns a pointer to the calendar date n days after base
func DaysFrom(base time.Time, n int) *time.Time {
	y, m, d := base.Date()
	out := time.Date(y, m, d+n, 0, 0, 0, 0, time.UTC)
	return &out
}
