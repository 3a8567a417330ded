package consumers_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stoklog/stoklog-backend/internal/inventory/consumers"
	apperrors "github.com/stoklog/stoklog-backend/pkg/errors"
	"github.com/stoklog/stoklog-backend/pkg/logger"
	"github.com/stoklog/stoklog-backend/pkg/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type statusCall struct {
	tenantID    int64
	warehouseID int64
	active      bool
}

type fakeWarehouses struct {
	calls []statusCall
	err   error
}

func (f *fakeWarehouses) SetActive(_ context.Context, tenantID, id int64, active bool) error {
	f.calls = append(f.calls, statusCall{tenantID, id, active})
	return f.err
}

type fakeTenants struct {
	calls []statusCall
	err   error
}

func (f *fakeTenants) SetActive(_ context.Context, id int64, active bool) error {
	f.calls = append(f.calls, statusCall{tenantID: id, active: active})
	return f.err
}

func event(t *testing.T, eventType string, data any) *messaging.Event {
	t.Helper()
	ev, err := messaging.NewEvent(eventType, "subscription-service", "corr-1", data)
	require.NoError(t, err)
	return ev
}

func TestSubscriptionEventConsumer_Warehouse(t *testing.T) {
	ctx := context.Background()

	t.Run("freeze and unfreeze flip the flag", func(t *testing.T) {
		wh := &fakeWarehouses{}
		c := consumers.NewSubscriptionHandlers(wh, &fakeTenants{}, logger.Nop())

		payload := messaging.WarehouseStatusEvent{TenantID: 7, WarehouseID: 3, Reason: "unpaid"}
		require.NoError(t, c.HandleWarehouseFrozen(ctx, event(t, messaging.EventWarehouseFrozen, payload)))
		require.NoError(t, c.HandleWarehouseUnfrozen(ctx, event(t, messaging.EventWarehouseUnfrozen, payload)))

		assert.Equal(t, []statusCall{{7, 3, false}, {7, 3, true}}, wh.calls)
	})

	t.Run("unknown warehouse is dropped", func(t *testing.T) {
		wh := &fakeWarehouses{err: apperrors.NotFound("warehouse")}
		c := consumers.NewSubscriptionHandlers(wh, &fakeTenants{}, logger.Nop())

		err := c.HandleWarehouseFrozen(ctx, event(t, messaging.EventWarehouseFrozen,
			messaging.WarehouseStatusEvent{TenantID: 7, WarehouseID: 99}))
		assert.NoError(t, err)
	})

	t.Run("missing ids never reach storage", func(t *testing.T) {
		wh := &fakeWarehouses{}
		c := consumers.NewSubscriptionHandlers(wh, &fakeTenants{}, logger.Nop())

		err := c.HandleWarehouseFrozen(ctx, event(t, messaging.EventWarehouseFrozen,
			messaging.WarehouseStatusEvent{TenantID: 7}))
		assert.NoError(t, err)
		assert.Empty(t, wh.calls)
	})

	t.Run("storage failure is returned for redelivery", func(t *testing.T) {
		wh := &fakeWarehouses{err: errors.New("connection reset")}
		c := consumers.NewSubscriptionHandlers(wh, &fakeTenants{}, logger.Nop())

		err := c.HandleWarehouseFrozen(ctx, event(t, messaging.EventWarehouseFrozen,
			messaging.WarehouseStatusEvent{TenantID: 7, WarehouseID: 3}))
		assert.Error(t, err)
	})
}

func TestSubscriptionEventConsumer_Tenant(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		handle    func(*consumers.SubscriptionEventConsumer) func(context.Context, *messaging.Event) error
		eventType string
		storeErr  error
		want      []statusCall
		wantErr   bool
	}{
		{
			name:      "deactivate",
			handle:    func(c *consumers.SubscriptionEventConsumer) func(context.Context, *messaging.Event) error { return c.HandleTenantDeactivated },
			eventType: messaging.EventTenantDeactivated,
			want:      []statusCall{{tenantID: 4, active: false}},
		},
		{
			name:      "activate",
			handle:    func(c *consumers.SubscriptionEventConsumer) func(context.Context, *messaging.Event) error { return c.HandleTenantActivated },
			eventType: messaging.EventTenantActivated,
			want:      []statusCall{{tenantID: 4, active: true}},
		},
		{
			name:      "unknown tenant is dropped",
			handle:    func(c *consumers.SubscriptionEventConsumer) func(context.Context, *messaging.Event) error { return c.HandleTenantActivated },
			eventType: messaging.EventTenantActivated,
			storeErr:  apperrors.NotFound("tenant"),
			want:      []statusCall{{tenantID: 4, active: true}},
		},
		{
			name:      "storage failure",
			handle:    func(c *consumers.SubscriptionEventConsumer) func(context.Context, *messaging.Event) error { return c.HandleTenantDeactivated },
			eventType: messaging.EventTenantDeactivated,
			storeErr:  errors.New("timeout"),
			want:      []statusCall{{tenantID: 4, active: false}},
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tenants := &fakeTenants{err: tt.storeErr}
			c := consumers.NewSubscriptionHandlers(&fakeWarehouses{}, tenants, logger.Nop())

			err := tt.handle(c)(ctx, event(t, tt.eventType, messaging.TenantStatusEvent{TenantID: 4}))
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, tenants.calls)
		})
	}
}

func TestSubscriptionEventConsumer_MalformedPayload(t *testing.T) {
	c := consumers.NewSubscriptionHandlers(&fakeWarehouses{}, &fakeTenants{}, logger.Nop())

	ev := event(t, messaging.EventWarehouseFrozen, nil)
	ev.Data = []byte(`{"tenant_id": "seven"}`)

	assert.Error(t, c.HandleWarehouseFrozen(context.Background(), ev))
}
