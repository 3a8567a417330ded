package events

import (
	"context"

	"github.com/stoklog/stoklog-backend/internal/inventory/domain"
	"github.com/stoklog/stoklog-backend/pkg/logger"
	"github.com/stoklog/stoklog-backend/pkg/messaging"
)

// InventoryEventPublisher publishes inventory-related events after commit.
// Publishing is best effort: failures are logged and never undo a committed
// stock write. A nil publisher is valid and publishes nothing.
type InventoryEventPublisher struct {
	publisher messaging.EventPublisher
	logger    *logger.Logger
}

// NewInventoryEventPublisher creates a new inventory event publisher
func NewInventoryEventPublisher(rmq *messaging.RabbitMQ, log *logger.Logger) (*InventoryEventPublisher, error) {
	publisher, err := messaging.NewPublisher(rmq, messaging.ExchangeInventoryEvents, "inventory-service", log)
	if err != nil {
		return nil, err
	}
	return NewWithPublisher(publisher, log), nil
}

// NewWithPublisher wraps any EventPublisher (a recording fake in tests)
func NewWithPublisher(publisher messaging.EventPublisher, log *logger.Logger) *InventoryEventPublisher {
	return &InventoryEventPublisher{
		publisher: publisher,
		logger:    log,
	}
}

// PublishStockReceived publishes a stock received event
func (p *InventoryEventPublisher) PublishStockReceived(ctx context.Context, batch *domain.Batch, entry *domain.Transaction) {
	if p == nil {
		return
	}

	data := messaging.StockReceivedEvent{
		TenantID:      entry.TenantID,
		WarehouseID:   entry.WarehouseID,
		ItemID:        entry.ItemID,
		BatchID:       batch.ID,
		TransactionID: entry.ID,
		Quantity:      entry.Quantity,
		StockSnapshot: entry.StockSnapshot,
		ActorID:       entry.ActorID,
	}

	if err := p.publisher.Publish(ctx, messaging.EventStockReceived, data); err != nil {
		p.logger.Error().Err(err).Int64("item_id", entry.ItemID).Msg("failed to publish stock received event")
	}
}

// PublishStockIssued publishes one event for a whole issue, however many
// batches it touched
func (p *InventoryEventPublisher) PublishStockIssued(ctx context.Context, quantity int64, entries []*domain.Transaction) {
	if p == nil || len(entries) == 0 {
		return
	}

	last := entries[len(entries)-1]
	ids := make([]int64, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}

	data := messaging.StockIssuedEvent{
		TenantID:       last.TenantID,
		WarehouseID:    last.WarehouseID,
		ItemID:         last.ItemID,
		TransactionIDs: ids,
		Quantity:       quantity,
		StockSnapshot:  last.StockSnapshot,
		ActorID:        last.ActorID,
	}

	if err := p.publisher.Publish(ctx, messaging.EventStockIssued, data); err != nil {
		p.logger.Error().Err(err).Int64("item_id", last.ItemID).Msg("failed to publish stock issued event")
	}
}

// PublishStockReconciled publishes a stock count event
func (p *InventoryEventPublisher) PublishStockReconciled(ctx context.Context, o *domain.Opname) {
	if p == nil {
		return
	}

	data := messaging.StockReconciledEvent{
		TenantID:         o.TenantID,
		WarehouseID:      o.WarehouseID,
		ItemID:           o.ItemID,
		BatchID:          o.BatchID,
		OpnameID:         o.ID,
		SystemQuantity:   o.SystemQuantity,
		PhysicalQuantity: o.PhysicalQuantity,
		Difference:       o.Difference,
		Applied:          o.Applied,
		ActorID:          o.ActorID,
	}

	if err := p.publisher.Publish(ctx, messaging.EventStockReconciled, data); err != nil {
		p.logger.Error().Err(err).Int64("opname_id", o.ID).Msg("failed to publish stock reconciled event")
	}
}

// PublishAlertsGenerated publishes the alerts one generation run created
func (p *InventoryEventPublisher) PublishAlertsGenerated(ctx context.Context, tenantID int64, alerts []*domain.Alert) {
	if p == nil || len(alerts) == 0 {
		return
	}

	data := messaging.AlertsGeneratedEvent{
		TenantID: tenantID,
		AlertIDs: make([]int64, len(alerts)),
		ByKind:   make(map[string]int),
	}
	for i, a := range alerts {
		data.AlertIDs[i] = a.ID
		data.ByKind[string(a.Kind)]++
	}

	if err := p.publisher.Publish(ctx, messaging.EventAlertsGenerated, data); err != nil {
		p.logger.Error().Err(err).Int64("tenant_id", tenantID).Msg("failed to publish alerts generated event")
	}
}
