package service_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stoklog/stoklog-backend/internal/inventory/domain"
	"github.com/stoklog/stoklog-backend/internal/inventory/repository"
	"github.com/stoklog/stoklog-backend/internal/inventory/service"
	"github.com/stoklog/stoklog-backend/pkg/messaging"
	"github.com/stoklog/stoklog-backend/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kinds(alerts []*domain.Alert) []domain.AlertKind {
	out := make([]domain.AlertKind, len(alerts))
	for i, a := range alerts {
		out[i] = a.Kind
	}
	return out
}

func openAlerts(t *testing.T, svc *services, tt *testutil.TestTenant) []*domain.Alert {
	t.Helper()
	alerts, _, err := svc.generator.ListAlerts(context.Background(), tt.Scope(), repository.AlertFilter{Page: 1, PerPage: 100})
	require.NoError(t, err)
	return alerts
}

func TestAlertGenerator_Deduplication(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()
	tt := suite.SetupTenant(t, ctx, "gen-dedup")
	svc := newServices(domain.OpnameOverwrite, service.GeneratorOptions{})

	itemID := suite.Fixtures.Item(t, ctx, tt, tt.WarehouseID, testutil.WithThresholds(testutil.Int64(5), nil))
	batchID := suite.Fixtures.Batch(t, ctx, tt, tt.WarehouseID, itemID, testutil.BatchFixture{Quantity: 3})

	first, err := svc.generator.Generate(ctx, tt.ID)
	require.NoError(t, err)
	assert.Equal(t, []domain.AlertKind{domain.KindLowStock}, kinds(first))
	svc.events.AssertEventPublished(t, messaging.EventAlertsGenerated)

	second, err := svc.generator.Generate(ctx, tt.ID)
	require.NoError(t, err)
	assert.Empty(t, second, "unchanged data must not create alerts")

	// stock drops to zero: exactly one new out_of_stock, however often we run
	_, err = suite.RawDB.ExecContext(ctx, `UPDATE batches SET quantity = 0 WHERE id = $1`, batchID)
	require.NoError(t, err)

	third, err := svc.generator.Generate(ctx, tt.ID)
	require.NoError(t, err)
	assert.Equal(t, []domain.AlertKind{domain.KindOutOfStock}, kinds(third))

	fourth, err := svc.generator.Generate(ctx, tt.ID)
	require.NoError(t, err)
	assert.Empty(t, fourth)

	assert.Len(t, openAlerts(t, svc, tt), 2)
}

func TestAlertGenerator_ConcurrentRunsInsertOnce(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()
	tt := suite.SetupTenant(t, ctx, "gen-race")
	svc := newServices(domain.OpnameOverwrite, service.GeneratorOptions{})

	itemID := suite.Fixtures.Item(t, ctx, tt, tt.WarehouseID)
	suite.Fixtures.Batch(t, ctx, tt, tt.WarehouseID, itemID, testutil.BatchFixture{Quantity: 0})

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			alerts, err := svc.generator.Generate(ctx, tt.ID)
			if err != nil {
				t.Errorf("generate: %v", err)
				return
			}
			mu.Lock()
			defer mu.Unlock()
			for _, a := range alerts {
				if a.Kind == domain.KindOutOfStock {
					created++
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)

	counts, err := repository.NewAlertRepository(suite.DB).CountOpenByKind(ctx, tt.ID, tt.WarehouseID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[domain.KindOutOfStock])
}

func TestAlertGenerator_InactiveItemHasNoExpiryAlert(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()
	tt := suite.SetupTenant(t, ctx, "gen-inactive")
	svc := newServices(domain.OpnameOverwrite, service.GeneratorOptions{})

	retired := suite.Fixtures.Item(t, ctx, tt, tt.WarehouseID, testutil.Inactive())
	suite.Fixtures.Batch(t, ctx, tt, tt.WarehouseID, retired, testutil.BatchFixture{Quantity: 6, ExpiryDate: testutil.DaysFrom(today, -2)})
	suite.Fixtures.Batch(t, ctx, tt, tt.WarehouseID, retired, testutil.BatchFixture{Quantity: 6, ExpiryDate: testutil.DaysFrom(today, 3)})

	alerts, err := svc.generator.Generate(ctx, tt.ID)
	require.NoError(t, err)
	for _, a := range alerts {
		assert.False(t, a.Kind.IsExpiry(), "inactive item produced %s", a.Kind)
	}
}

func TestAlertGenerator_ZeroThenReplenish(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()
	tt := suite.SetupTenant(t, ctx, "gen-replenish")
	svc := newServices(domain.OpnameOverwrite, service.GeneratorOptions{})

	itemID := suite.Fixtures.Item(t, ctx, tt, tt.WarehouseID, testutil.WithThresholds(testutil.Int64(5), nil))

	created, err := svc.generator.Generate(ctx, tt.ID)
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, domain.KindOutOfStock, created[0].Kind)
	assert.Equal(t, domain.ItemTarget{ID: itemID}, created[0].Target)

	_, err = svc.stock.Receive(ctx, tt.Scope(), service.ReceiveInput{ItemID: itemID, Quantity: 20, Supplier: "Restock"})
	require.NoError(t, err)

	created, err = svc.generator.Generate(ctx, tt.ID)
	require.NoError(t, err)
	assert.Empty(t, created)

	// alerts are not auto-resolved when the condition clears
	open := openAlerts(t, svc, tt)
	require.Len(t, open, 1)
	assert.Equal(t, domain.KindOutOfStock, open[0].Kind)
	assert.True(t, open[0].Open())

	t.Run("dismissal is the only removal and a recurrence is new", func(t *testing.T) {
		require.NoError(t, svc.generator.DismissAlert(ctx, tt.Scope(), open[0].ID))
		assert.Empty(t, openAlerts(t, svc, tt))

		_, err := svc.stock.Issue(ctx, tt.Scope(), service.IssueInput{ItemID: itemID, Quantity: 20, Counterpart: "Clinic"})
		require.NoError(t, err)

		created, err := svc.generator.Generate(ctx, tt.ID)
		require.NoError(t, err)
		require.Len(t, created, 1)
		assert.NotEqual(t, open[0].ID, created[0].ID)
	})
}

func TestAlertGenerator_ExpiryBoundaries(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()
	tt := suite.SetupTenant(t, ctx, "gen-expiry")
	svc := newServices(domain.OpnameOverwrite, service.GeneratorOptions{ExpiryWindowDays: 30})

	itemID := suite.Fixtures.Item(t, ctx, tt, tt.WarehouseID)
	b := func(days, qty int64) int64 {
		return suite.Fixtures.Batch(t, ctx, tt, tt.WarehouseID, itemID, testutil.BatchFixture{
			Quantity: qty, ExpiryDate: testutil.DaysFrom(today, int(days)),
		})
	}
	yesterday := b(-1, 1)
	onDay := b(0, 1)
	tomorrow := b(1, 1)
	edge := b(30, 1)
	beyond := b(31, 1)
	emptyExpired := b(-5, 0)
	suite.Fixtures.Batch(t, ctx, tt, tt.WarehouseID, itemID, testutil.BatchFixture{Quantity: 1})

	created, err := svc.generator.Generate(ctx, tt.ID)
	require.NoError(t, err)

	byBatch := map[int64]domain.AlertKind{}
	for _, a := range created {
		if bt, ok := a.Target.(domain.BatchTarget); ok {
			byBatch[bt.ID] = a.Kind
		}
	}

	assert.Equal(t, domain.KindExpired, byBatch[yesterday])
	assert.Equal(t, domain.KindExpired, byBatch[onDay])
	assert.Equal(t, domain.KindExpiringSoon, byBatch[tomorrow])
	assert.Equal(t, domain.KindExpiringSoon, byBatch[edge])
	assert.NotContains(t, byBatch, beyond)
	assert.Equal(t, domain.KindExpired, byBatch[emptyExpired], "empty batches are evaluated by default")
	assert.Len(t, byBatch, 5)

	t.Run("messages carry the item and date", func(t *testing.T) {
		for _, a := range created {
			if a.Target == (domain.BatchTarget{ID: edge}) {
				assert.Contains(t, a.Message, "30 day(s)")
			}
		}
	})

	t.Run("skip empty batches option", func(t *testing.T) {
		tt := suite.SetupTenant(t, ctx, "gen-expiry-skip")
		svc := newServices(domain.OpnameOverwrite, service.GeneratorOptions{SkipEmptyBatches: true})

		itemID := suite.Fixtures.Item(t, ctx, tt, tt.WarehouseID)
		suite.Fixtures.Batch(t, ctx, tt, tt.WarehouseID, itemID, testutil.BatchFixture{Quantity: 0, ExpiryDate: testutil.DaysFrom(today, -2)})
		suite.Fixtures.Batch(t, ctx, tt, tt.WarehouseID, itemID, testutil.BatchFixture{Quantity: 4, ExpiryDate: testutil.DaysFrom(today, 2)})

		created, err := svc.generator.Generate(ctx, tt.ID)
		require.NoError(t, err)
		assert.Equal(t, []domain.AlertKind{domain.KindExpiringSoon}, kinds(created))
	})
}

func TestAlertGenerator_Thresholds(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()
	tt := suite.SetupTenant(t, ctx, "gen-thresholds")
	svc := newServices(domain.OpnameOverwrite, service.GeneratorOptions{})

	over := suite.Fixtures.Item(t, ctx, tt, tt.WarehouseID, testutil.WithThresholds(testutil.Int64(2), testutil.Int64(10)))
	suite.Fixtures.Batch(t, ctx, tt, tt.WarehouseID, over, testutil.BatchFixture{Quantity: 11})

	atMin := suite.Fixtures.Item(t, ctx, tt, tt.WarehouseID, testutil.WithThresholds(testutil.Int64(5), nil))
	suite.Fixtures.Batch(t, ctx, tt, tt.WarehouseID, atMin, testutil.BatchFixture{Quantity: 5})

	zeroMax := suite.Fixtures.Item(t, ctx, tt, tt.WarehouseID, testutil.WithThresholds(nil, testutil.Int64(0)))
	suite.Fixtures.Batch(t, ctx, tt, tt.WarehouseID, zeroMax, testutil.BatchFixture{Quantity: 50})

	// inactive items are not evaluated even when empty
	suite.Fixtures.Item(t, ctx, tt, tt.WarehouseID, testutil.Inactive())

	created, err := svc.generator.Generate(ctx, tt.ID)
	require.NoError(t, err)

	byItem := map[int64]domain.AlertKind{}
	for _, a := range created {
		byItem[a.Target.(domain.ItemTarget).ID] = a.Kind
	}
	assert.Equal(t, map[int64]domain.AlertKind{
		over:  domain.KindOverstock,
		atMin: domain.KindLowStock,
	}, byItem)
}

func TestAlertGenerator_WarehousesAndDismissals(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()
	tt := suite.SetupTenant(t, ctx, "gen-warehouses")
	svc := newServices(domain.OpnameOverwrite, service.GeneratorOptions{})

	second, err := suite.TenantManager.AddWarehouse(ctx, tt, "Annex")
	require.NoError(t, err)
	frozen, err := suite.TenantManager.AddWarehouse(ctx, tt, "Frozen")
	require.NoError(t, err)
	_, err = suite.RawDB.ExecContext(ctx, `UPDATE warehouses SET is_active = FALSE WHERE id = $1`, frozen)
	require.NoError(t, err)

	for _, wh := range []int64{tt.WarehouseID, second, frozen} {
		suite.Fixtures.Item(t, ctx, tt, wh)
		suite.Fixtures.Item(t, ctx, tt, wh)
	}

	created, err := svc.generator.Generate(ctx, tt.ID)
	require.NoError(t, err)
	require.Len(t, created, 4)
	for _, a := range created {
		assert.NotEqual(t, frozen, a.WarehouseID)
	}

	n, err := svc.generator.DismissAlertsByKind(ctx, tt.ScopeFor(second), domain.KindOutOfStock)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	mainOpen := openAlerts(t, svc, tt)
	require.Len(t, mainOpen, 2)
	n, err = svc.generator.DismissAlerts(ctx, tt.Scope(), []int64{mainOpen[0].ID, mainOpen[1].ID, 999999})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	all, total, err := svc.generator.ListAlerts(ctx, tt.Scope(), repository.AlertFilter{IncludeDismissed: true, Page: 1, PerPage: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	for _, a := range all {
		assert.False(t, a.Open())
		require.NotNil(t, a.DismissedBy)
		assert.Equal(t, "user-1", *a.DismissedBy)
	}
}
