package consumers

import (
	"context"

	"github.com/stoklog/stoklog-backend/pkg/errors"
	"github.com/stoklog/stoklog-backend/pkg/logger"
	"github.com/stoklog/stoklog-backend/pkg/messaging"
)

// WarehouseStatusStore flips a warehouse's is_active flag
type WarehouseStatusStore interface {
	SetActive(ctx context.Context, tenantID, id int64, active bool) error
}

// TenantStatusStore flips a tenant's is_active flag
type TenantStatusStore interface {
	SetActive(ctx context.Context, id int64, active bool) error
}

// SubscriptionEventConsumer keeps the frozen/active flags the resource guard
// reads in step with the subscription collaborator.
type SubscriptionEventConsumer struct {
	consumer   *messaging.Consumer
	warehouses WarehouseStatusStore
	tenants    TenantStatusStore
	logger     *logger.Logger
}

// NewSubscriptionEventConsumer creates a consumer bound to subscription events
func NewSubscriptionEventConsumer(rmq *messaging.RabbitMQ, warehouses WarehouseStatusStore, tenants TenantStatusStore, log *logger.Logger) (*SubscriptionEventConsumer, error) {
	consumer, err := messaging.NewConsumer(rmq, "inventory-service.subscription-events", log)
	if err != nil {
		return nil, err
	}

	if err := consumer.Subscribe(messaging.ExchangeSubscriptionEvents, "subscription.#"); err != nil {
		return nil, err
	}

	c := NewSubscriptionHandlers(warehouses, tenants, log)
	c.consumer = consumer
	c.Register(consumer)

	return c, nil
}

// NewSubscriptionHandlers builds the handlers without a broker connection
func NewSubscriptionHandlers(warehouses WarehouseStatusStore, tenants TenantStatusStore, log *logger.Logger) *SubscriptionEventConsumer {
	return &SubscriptionEventConsumer{
		warehouses: warehouses,
		tenants:    tenants,
		logger:     log.WithComponent("subscription-consumer"),
	}
}

// Register installs the handlers on a consumer
func (c *SubscriptionEventConsumer) Register(consumer *messaging.Consumer) {
	consumer.RegisterHandler(messaging.EventWarehouseFrozen, c.warehouseStatus(false))
	consumer.RegisterHandler(messaging.EventWarehouseUnfrozen, c.warehouseStatus(true))
	consumer.RegisterHandler(messaging.EventTenantDeactivated, c.tenantStatus(false))
	consumer.RegisterHandler(messaging.EventTenantActivated, c.tenantStatus(true))
}

// Start starts consuming messages
func (c *SubscriptionEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Start(ctx)
}

// HandleWarehouseFrozen applies a warehouse freeze
func (c *SubscriptionEventConsumer) HandleWarehouseFrozen(ctx context.Context, event *messaging.Event) error {
	return c.warehouseStatus(false)(ctx, event)
}

// HandleWarehouseUnfrozen lifts a warehouse freeze
func (c *SubscriptionEventConsumer) HandleWarehouseUnfrozen(ctx context.Context, event *messaging.Event) error {
	return c.warehouseStatus(true)(ctx, event)
}

// HandleTenantDeactivated blocks stock writes on every warehouse of a tenant
func (c *SubscriptionEventConsumer) HandleTenantDeactivated(ctx context.Context, event *messaging.Event) error {
	return c.tenantStatus(false)(ctx, event)
}

// HandleTenantActivated reactivates a tenant
func (c *SubscriptionEventConsumer) HandleTenantActivated(ctx context.Context, event *messaging.Event) error {
	return c.tenantStatus(true)(ctx, event)
}

func (c *SubscriptionEventConsumer) warehouseStatus(active bool) messaging.MessageHandler {
	return func(ctx context.Context, event *messaging.Event) error {
		var data messaging.WarehouseStatusEvent
		if err := event.UnmarshalData(&data); err != nil {
			return err
		}
		if data.TenantID <= 0 || data.WarehouseID <= 0 {
			c.logger.Warn().Str("event_id", event.ID).Msg("warehouse status event without ids, dropping")
			return nil
		}

		err := c.warehouses.SetActive(ctx, data.TenantID, data.WarehouseID, active)
		if errors.Is(err, errors.ErrNotFound) {
			c.logger.Warn().
				Int64("tenant_id", data.TenantID).
				Int64("warehouse_id", data.WarehouseID).
				Msg("warehouse status event for unknown warehouse, dropping")
			return nil
		}
		if err != nil {
			return err
		}

		c.logger.Info().
			Int64("tenant_id", data.TenantID).
			Int64("warehouse_id", data.WarehouseID).
			Bool("active", active).
			Str("reason", data.Reason).
			Msg("warehouse status updated")
		return nil
	}
}

func (c *SubscriptionEventConsumer) tenantStatus(active bool) messaging.MessageHandler {
	return func(ctx context.Context, event *messaging.Event) error {
		var data messaging.TenantStatusEvent
		if err := event.UnmarshalData(&data); err != nil {
			return err
		}
		if data.TenantID <= 0 {
			c.logger.Warn().Str("event_id", event.ID).Msg("tenant status event without id, dropping")
			return nil
		}

		err := c.tenants.SetActive(ctx, data.TenantID, active)
		if errors.Is(err, errors.ErrNotFound) {
			c.logger.Warn().Int64("tenant_id", data.TenantID).Msg("tenant status event for unknown tenant, dropping")
			return nil
		}
		if err != nil {
			return err
		}

		c.logger.Info().
			Int64("tenant_id", data.TenantID).
			Bool("active", active).
			Str("reason", data.Reason).
			Msg("tenant status updated")
		return nil
	}
}
