// Package domain holds the stock rules that do not touch storage: FEFO
// ordering and allocation, alert classification and the alert target type.
package domain

import (
	"time"
)

// Direction of a ledger entry
type Direction string

const (
	DirectionIn  Direction = "IN"
	DirectionOut Direction = "OUT"
)

// Tenant is a business owning warehouses
type Tenant struct {
	ID                 int64     `db:"id" json:"id"`
	Name               string    `db:"name" json:"name"`
	IsActive           bool      `db:"is_active" json:"is_active"`
	NotificationEmails []string  `db:"-" json:"notification_emails"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
}

// Warehouse belongs to one tenant. IsActive=false means frozen by the
// subscription collaborator.
type Warehouse struct {
	ID        int64      `db:"id" json:"id"`
	TenantID  int64      `db:"tenant_id" json:"tenant_id"`
	Name      string     `db:"name" json:"name"`
	IsActive  bool       `db:"is_active" json:"is_active"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	DeletedAt *time.Time `db:"deleted_at" json:"-"`
}

// Item is a trackable good held in one warehouse
type Item struct {
	ID           int64      `db:"id" json:"id"`
	TenantID     int64      `db:"tenant_id" json:"tenant_id"`
	WarehouseID  int64      `db:"warehouse_id" json:"warehouse_id"`
	CategoryID   *int64     `db:"category_id" json:"category_id,omitempty"`
	Name         string     `db:"name" json:"name"`
	Unit         string     `db:"unit" json:"unit"`
	MinThreshold *int64     `db:"min_threshold" json:"min_threshold,omitempty"`
	MaxThreshold *int64     `db:"max_threshold" json:"max_threshold,omitempty"`
	IsActive     bool       `db:"is_active" json:"is_active"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt    *time.Time `db:"deleted_at" json:"-"`
}

// ItemStock is an item with its summed batch quantity
type ItemStock struct {
	Item
	Total int64 `db:"total" json:"total"`
}

// Batch is a dated lot of one item
type Batch struct {
	ID          int64      `db:"id" json:"id"`
	TenantID    int64      `db:"tenant_id" json:"tenant_id"`
	WarehouseID int64      `db:"warehouse_id" json:"warehouse_id"`
	ItemID      int64      `db:"item_id" json:"item_id"`
	Quantity    int64      `db:"quantity" json:"quantity"`
	Supplier    string     `db:"supplier" json:"supplier"`
	ExpiryDate  *time.Time `db:"expiry_date" json:"expiry_date,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt   *time.Time `db:"deleted_at" json:"-"`
}

// ExpiringBatch is a batch joined with the item fields alert messages need
type ExpiringBatch struct {
	Batch
	ItemName string `db:"item_name"`
	ItemUnit string `db:"item_unit"`
}

// Transaction is one immutable ledger entry
type Transaction struct {
	ID                int64      `db:"id" json:"id"`
	TenantID          int64      `db:"tenant_id" json:"tenant_id"`
	WarehouseID       int64      `db:"warehouse_id" json:"warehouse_id"`
	ItemID            int64      `db:"item_id" json:"item_id"`
	BatchID           int64      `db:"batch_id" json:"batch_id"`
	Direction         Direction  `db:"direction" json:"direction"`
	Quantity          int64      `db:"quantity" json:"quantity"`
	Counterpart       string     `db:"counterpart" json:"counterpart"`
	ResponsiblePerson string     `db:"responsible_person" json:"responsible_person"`
	ActorID           string     `db:"actor_id" json:"actor_id"`
	Note              string     `db:"note" json:"note"`
	StockSnapshot     int64      `db:"stock_snapshot" json:"stock_snapshot"`
	TransactionDate   time.Time  `db:"transaction_date" json:"transaction_date"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt         *time.Time `db:"deleted_at" json:"-"`
}

// Opname is a stock count of one batch. Difference is stored once.
type Opname struct {
	ID               int64     `db:"id" json:"id"`
	TenantID         int64     `db:"tenant_id" json:"tenant_id"`
	WarehouseID      int64     `db:"warehouse_id" json:"warehouse_id"`
	ItemID           int64     `db:"item_id" json:"item_id"`
	BatchID          int64     `db:"batch_id" json:"batch_id"`
	SystemQuantity   int64     `db:"system_quantity" json:"system_quantity"`
	PhysicalQuantity int64     `db:"physical_quantity" json:"physical_quantity"`
	Difference       int64     `db:"difference" json:"difference"`
	Applied          bool      `db:"applied" json:"applied"`
	Note             string    `db:"note" json:"note"`
	CountDate        time.Time `db:"count_date" json:"count_date"`
	ActorID          string    `db:"actor_id" json:"actor_id"`
	ActorName        string    `db:"actor_name" json:"actor_name"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}

// NewOpname computes the difference at count time
func NewOpname(system, physical int64) Opname {
	return Opname{
		SystemQuantity:   system,
		PhysicalQuantity: physical,
		Difference:       physical - system,
	}
}

// OpnamePolicy decides what a stock count does to the batch
type OpnamePolicy string

const (
	// OpnameOverwrite sets the batch quantity to the physical count
	OpnameOverwrite OpnamePolicy = "overwrite"
	// OpnameRecordOnly stores the count and leaves the batch untouched
	OpnameRecordOnly OpnamePolicy = "record_only"
)

// ParseOpnamePolicy defaults to OpnameOverwrite for an empty value
func ParseOpnamePolicy(s string) (OpnamePolicy, bool) {
	switch OpnamePolicy(s) {
	case "", OpnameOverwrite:
		return OpnameOverwrite, true
	case OpnameRecordOnly:
		return OpnameRecordOnly, true
	}
	return "", false
}

// Category groups items of one tenant
type Category struct {
	ID        int64      `db:"id" json:"id"`
	TenantID  int64      `db:"tenant_id" json:"tenant_id"`
	Name      string     `db:"name" json:"name"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt *time.Time `db:"deleted_at" json:"-"`
}
