package events_test

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stoklog/stoklog-backend/internal/inventory/domain"
	"github.com/stoklog/stoklog-backend/internal/inventory/events"
	"github.com/stoklog/stoklog-backend/pkg/logger"
	"github.com/stoklog/stoklog-backend/pkg/messaging"
	"github.com/stoklog/stoklog-backend/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishStockIssued_OneEventPerIssue(t *testing.T) {
	mock := testutil.NewMockPublisher()
	p := events.NewWithPublisher(mock, logger.Nop())

	entries := []*domain.Transaction{
		{ID: 11, TenantID: 1, WarehouseID: 2, ItemID: 3, StockSnapshot: 10, ActorID: "u1"},
		{ID: 12, TenantID: 1, WarehouseID: 2, ItemID: 3, StockSnapshot: 7, ActorID: "u1"},
	}
	p.PublishStockIssued(context.Background(), 8, entries)

	published := mock.Events()
	require.Len(t, published, 1)
	assert.Equal(t, messaging.EventStockIssued, published[0].Type)

	data, ok := published[0].Payload.(messaging.StockIssuedEvent)
	require.True(t, ok)
	assert.Equal(t, []int64{11, 12}, data.TransactionIDs)
	assert.Equal(t, int64(7), data.StockSnapshot)
	assert.Equal(t, int64(8), data.Quantity)
}

func TestPublishAlertsGenerated_CountsKinds(t *testing.T) {
	mock := testutil.NewMockPublisher()
	p := events.NewWithPublisher(mock, logger.Nop())

	p.PublishAlertsGenerated(context.Background(), 5, nil)
	mock.AssertNoEventsPublished(t)

	p.PublishAlertsGenerated(context.Background(), 5, []*domain.Alert{
		{ID: 1, Kind: domain.KindExpired},
		{ID: 2, Kind: domain.KindExpired},
		{ID: 3, Kind: domain.KindLowStock},
	})

	published := mock.Events()
	require.Len(t, published, 1)
	data := published[0].Payload.(messaging.AlertsGeneratedEvent)
	assert.Equal(t, map[string]int{"expired": 2, "low_stock": 1}, data.ByKind)
}

func TestNilPublisherIsSafe(t *testing.T) {
	var p *events.InventoryEventPublisher
	assert.NotPanics(t, func() {
		p.PublishStockReceived(context.Background(), &domain.Batch{}, &domain.Transaction{})
		p.PublishStockReconciled(context.Background(), &domain.Opname{})
	})
}

func TestPublishFailureIsLoggedNotReturned(t *testing.T) {
	mock := testutil.NewMockPublisher()
	mock.Err = stderrors.New("channel closed")
	p := events.NewWithPublisher(mock, logger.Nop())

	assert.NotPanics(t, func() {
		p.PublishStockReconciled(context.Background(), &domain.Opname{ID: 9})
	})
	mock.AssertEventPublished(t, messaging.EventStockReconciled)
}

func TestDigestSender(t *testing.T) {
	t.Run("publishes the rendered digest", func(t *testing.T) {
		mock := testutil.NewMockPublisher()
		s := events.NewDigestSenderWithPublisher(mock, logger.Nop())

		err := s.Send(context.Background(), events.Digest{
			TenantID:   4,
			Recipients: []string{"ops@example.com"},
			Subject:    "subject",
			Body:       "body",
			AlertIDs:   []int64{1, 2},
		})
		require.NoError(t, err)

		published := mock.Events()
		require.Len(t, published, 1)
		assert.Equal(t, messaging.EventDigestRequested, published[0].Type)
		data := published[0].Payload.(messaging.DigestRequestedEvent)
		assert.Equal(t, []string{"ops@example.com"}, data.Recipients)
		assert.Equal(t, "body", data.Body)
	})

	t.Run("refuses a digest without recipients", func(t *testing.T) {
		mock := testutil.NewMockPublisher()
		s := events.NewDigestSenderWithPublisher(mock, logger.Nop())

		err := s.Send(context.Background(), events.Digest{TenantID: 4})
		require.Error(t, err)
		mock.AssertNoEventsPublished(t)
	})

	t.Run("returns publish failures", func(t *testing.T) {
		mock := testutil.NewMockPublisher()
		mock.Err = stderrors.New("connection reset")
		s := events.NewDigestSenderWithPublisher(mock, logger.Nop())

		err := s.Send(context.Background(), events.Digest{TenantID: 4, Recipients: []string{"a@example.com"}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection reset")
	})
}
