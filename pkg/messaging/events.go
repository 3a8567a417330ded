package messaging

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	// Stock events
	EventStockReceived   = "inventory.stock.received"
	EventStockIssued     = "inventory.stock.issued"
	EventStockReconciled = "inventory.stock.reconciled"

	// Alert events
	EventAlertsGenerated = "inventory.alerts.generated"

	// Mail hand-off
	EventDigestRequested = "notification.digest.requested"

	// Subscription collaborator events (consumed)
	EventWarehouseFrozen   = "subscription.warehouse.frozen"
	EventWarehouseUnfrozen = "subscription.warehouse.unfrozen"
	EventTenantDeactivated = "subscription.tenant.deactivated"
	EventTenantActivated   = "subscription.tenant.activated"
)

// Exchange names
const (
	ExchangeInventoryEvents    = "inventory.events"
	ExchangeNotificationEvents = "notification.events"
	ExchangeSubscriptionEvents = "subscription.events"
)

// Event is the base event structure
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates a new event with the given type and data
func NewEvent(eventType, source, correlationID string, data any) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            uuid.New().String(),
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Data:          dataBytes,
	}, nil
}

// UnmarshalData unmarshals the event data into the provided struct
func (e *Event) UnmarshalData(v any) error {
	return json.Unmarshal(e.Data, v)
}

// Stock Events

// StockReceivedEvent is published after a receipt commits
type StockReceivedEvent struct {
	TenantID      int64  `json:"tenant_id"`
	WarehouseID   int64  `json:"warehouse_id"`
	ItemID        int64  `json:"item_id"`
	BatchID       int64  `json:"batch_id"`
	TransactionID int64  `json:"transaction_id"`
	Quantity      int64  `json:"quantity"`
	StockSnapshot int64  `json:"stock_snapshot"`
	ActorID       string `json:"actor_id"`
}

// StockIssuedEvent is published after an issue commits
type StockIssuedEvent struct {
	TenantID       int64   `json:"tenant_id"`
	WarehouseID    int64   `json:"warehouse_id"`
	ItemID         int64   `json:"item_id"`
	TransactionIDs []int64 `json:"transaction_ids"`
	Quantity       int64   `json:"quantity"`
	StockSnapshot  int64   `json:"stock_snapshot"`
	ActorID        string  `json:"actor_id"`
}

// StockReconciledEvent is published after a stock count is recorded
type StockReconciledEvent struct {
	TenantID         int64  `json:"tenant_id"`
	WarehouseID      int64  `json:"warehouse_id"`
	ItemID           int64  `json:"item_id"`
	BatchID          int64  `json:"batch_id"`
	OpnameID         int64  `json:"opname_id"`
	SystemQuantity   int64  `json:"system_quantity"`
	PhysicalQuantity int64  `json:"physical_quantity"`
	Difference       int64  `json:"difference"`
	Applied          bool   `json:"applied"`
	ActorID          string `json:"actor_id"`
}

// AlertsGeneratedEvent is published when a generation run created alerts
type AlertsGeneratedEvent struct {
	TenantID int64          `json:"tenant_id"`
	AlertIDs []int64        `json:"alert_ids"`
	ByKind   map[string]int `json:"by_kind"`
}

// Mail Events

// DigestRequestedEvent hands a fully rendered digest to the mail collaborator
type DigestRequestedEvent struct {
	TenantID   int64    `json:"tenant_id"`
	Recipients []string `json:"recipients"`
	Subject    string   `json:"subject"`
	Body       string   `json:"body"`
	AlertIDs   []int64  `json:"alert_ids"`
}

// Subscription Events

// WarehouseStatusEvent carries a warehouse freeze or unfreeze
type WarehouseStatusEvent struct {
	TenantID    int64  `json:"tenant_id"`
	WarehouseID int64  `json:"warehouse_id"`
	Reason      string `json:"reason,omitempty"`
}

// TenantStatusEvent carries a tenant activation change
type TenantStatusEvent struct {
	TenantID int64  `json:"tenant_id"`
	Reason   string `json:"reason,omitempty"`
}
