package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/stoklog/stoklog-backend/internal/inventory/domain"
	"github.com/stoklog/stoklog-backend/internal/inventory/events"
	"github.com/stoklog/stoklog-backend/internal/inventory/repository"
	"github.com/stoklog/stoklog-backend/pkg/database"
	"github.com/stoklog/stoklog-backend/pkg/errors"
	"github.com/stoklog/stoklog-backend/pkg/i18n"
	"github.com/stoklog/stoklog-backend/pkg/logger"
	"github.com/stoklog/stoklog-backend/pkg/metrics"
	"github.com/stoklog/stoklog-backend/pkg/tenant"
)

// GeneratorOptions tune alert generation
type GeneratorOptions struct {
	// ExpiryWindowDays is the inclusive expiring_soon horizon
	ExpiryWindowDays int
	// Location decides which calendar day "today" is
	Location *time.Location
	// SkipEmptyBatches ignores batches with quantity 0 for expiry alerts
	SkipEmptyBatches bool
	// Locale of the stored alert messages
	Locale string
}

func (o GeneratorOptions) withDefaults() GeneratorOptions {
	if o.ExpiryWindowDays <= 0 {
		o.ExpiryWindowDays = domain.DefaultExpiryWindowDays
	}
	if o.Location == nil {
		o.Location = time.UTC
	}
	if o.Locale == "" {
		o.Locale = i18n.DefaultLocale
	}
	return o
}

// AlertGenerator derives stock and expiry alerts from current batches.
// An alert is created only when no open alert exists for the same target and
// kind; existing alerts are never updated or resolved here.
type AlertGenerator struct {
	db         *database.DB
	warehouses *repository.WarehouseRepository
	items      *repository.ItemRepository
	batches    *repository.BatchRepository
	alerts     *repository.AlertRepository
	publisher  *events.InventoryEventPublisher
	metrics    *metrics.Metrics
	logger     *logger.Logger
	opts       GeneratorOptions
	now        func() time.Time
}

// NewAlertGenerator creates a new alert generator
func NewAlertGenerator(
	db *database.DB,
	warehouses *repository.WarehouseRepository,
	items *repository.ItemRepository,
	batches *repository.BatchRepository,
	alerts *repository.AlertRepository,
	publisher *events.InventoryEventPublisher,
	m *metrics.Metrics,
	log *logger.Logger,
	opts GeneratorOptions,
) *AlertGenerator {
	return &AlertGenerator{
		db:         db,
		warehouses: warehouses,
		items:      items,
		batches:    batches,
		alerts:     alerts,
		publisher:  publisher,
		metrics:    m,
		logger:     log.WithComponent("alert-generator"),
		opts:       opts.withDefaults(),
		now:        time.Now,
	}
}

// SetClock replaces the clock that decides today's date
func (g *AlertGenerator) SetClock(now func() time.Time) {
	g.now = now
}

// Generate evaluates every active warehouse of the tenant and returns the
// alerts created by this run. A failing warehouse is logged and skipped; its
// error is joined into the returned error alongside the alerts of the others.
func (g *AlertGenerator) Generate(ctx context.Context, tenantID int64) ([]*domain.Alert, error) {
	if tenantID <= 0 {
		return nil, errors.BadRequest(fmt.Sprintf("tenant id must be positive, got %d", tenantID))
	}

	warehouses, err := g.warehouses.ListActive(ctx, tenantID)
	if err != nil {
		return nil, database.MapError(err)
	}

	today := domain.CivilDate(g.now().In(g.opts.Location))

	var created []*domain.Alert
	var errs []error
	for _, wh := range warehouses {
		alerts, err := g.generateWarehouse(ctx, tenantID, wh.ID, today)
		if err != nil {
			g.logger.Error().Err(err).
				Int64("tenant_id", tenantID).
				Int64("warehouse_id", wh.ID).
				Msg("alert generation failed for warehouse")
			errs = append(errs, fmt.Errorf("warehouse %d: %w", wh.ID, database.MapError(err)))
			continue
		}
		created = append(created, alerts...)
	}

	for _, a := range created {
		g.metrics.AlertCreated(string(a.Kind))
	}
	g.publisher.PublishAlertsGenerated(ctx, tenantID, created)

	g.logger.Info().
		Int64("tenant_id", tenantID).
		Int("warehouses", len(warehouses)).
		Int("created", len(created)).
		Time("today", today).
		Msg("alert generation completed")

	return created, errors.Join(errs...)
}

// generateWarehouse runs both scans for one warehouse in one transaction so
// they see a single snapshot of stock.
func (g *AlertGenerator) generateWarehouse(ctx context.Context, tenantID, warehouseID int64, today time.Time) ([]*domain.Alert, error) {
	var created []*domain.Alert

	err := g.db.WithTenant(ctx, tenantID, func(ctx context.Context) error {
		scans := []func(context.Context, int64, int64, time.Time) ([]*domain.Alert, error){
			g.scanStock,
			g.scanExpiry,
		}
		for _, scan := range scans {
			alerts, err := scan(ctx, tenantID, warehouseID, today)
			if err != nil {
				return err
			}
			created = append(created, alerts...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// scanStock checks item totals against thresholds
func (g *AlertGenerator) scanStock(ctx context.Context, tenantID, warehouseID int64, _ time.Time) ([]*domain.Alert, error) {
	items, err := g.items.ListActiveWithStock(ctx, tenantID, warehouseID)
	if err != nil {
		return nil, fmt.Errorf("scanStock: list items: %w", err)
	}

	var created []*domain.Alert
	for _, item := range items {
		for _, kind := range domain.StockConditions(item.Total, item.MinThreshold, item.MaxThreshold) {
			alert := &domain.Alert{
				TenantID:    tenantID,
				WarehouseID: warehouseID,
				Target:      domain.ItemTarget{ID: item.ID},
				Kind:        kind,
				Message:     g.stockMessage(kind, item),
			}
			ok, err := g.alerts.InsertIfAbsent(ctx, alert)
			if err != nil {
				return nil, fmt.Errorf("scanStock: item %d: %w", item.ID, err)
			}
			if ok {
				created = append(created, alert)
			}
		}
	}
	return created, nil
}

// scanExpiry checks batch expiry dates against today
func (g *AlertGenerator) scanExpiry(ctx context.Context, tenantID, warehouseID int64, today time.Time) ([]*domain.Alert, error) {
	batches, err := g.batches.ListWithExpiry(ctx, tenantID, warehouseID, g.opts.SkipEmptyBatches)
	if err != nil {
		return nil, fmt.Errorf("scanExpiry: list batches: %w", err)
	}

	var created []*domain.Alert
	for _, batch := range batches {
		kind, days, ok := domain.ExpiryCondition(*batch.ExpiryDate, today, g.opts.ExpiryWindowDays)
		if !ok {
			continue
		}

		alert := &domain.Alert{
			TenantID:    tenantID,
			WarehouseID: warehouseID,
			Target:      domain.BatchTarget{ID: batch.ID},
			Kind:        kind,
			Message:     g.expiryMessage(kind, batch, days),
		}
		ok, err := g.alerts.InsertIfAbsent(ctx, alert)
		if err != nil {
			return nil, fmt.Errorf("scanExpiry: batch %d: %w", batch.ID, err)
		}
		if ok {
			created = append(created, alert)
		}
	}
	return created, nil
}

func (g *AlertGenerator) stockMessage(kind domain.AlertKind, item *domain.ItemStock) string {
	params := map[string]string{
		"item":  item.Name,
		"unit":  item.Unit,
		"total": strconv.FormatInt(item.Total, 10),
	}
	if item.MinThreshold != nil {
		params["min"] = strconv.FormatInt(*item.MinThreshold, 10)
	}
	if item.MaxThreshold != nil {
		params["max"] = strconv.FormatInt(*item.MaxThreshold, 10)
	}
	return i18n.TWithLocale(g.opts.Locale, "alerts."+string(kind), params)
}

func (g *AlertGenerator) expiryMessage(kind domain.AlertKind, batch *domain.ExpiringBatch, days int) string {
	return i18n.TWithLocale(g.opts.Locale, "alerts."+string(kind), map[string]string{
		"item":     batch.ItemName,
		"supplier": batch.Supplier,
		"expiry":   batch.ExpiryDate.Format("2006-01-02"),
		"days":     strconv.Itoa(days),
	})
}

// Alert operations

// ListAlerts lists alerts of the scope's warehouse
func (g *AlertGenerator) ListAlerts(ctx context.Context, scope tenant.Scope, filter repository.AlertFilter) ([]*domain.Alert, int64, error) {
	alerts, total, err := g.alerts.List(ctx, scope.TenantID, scope.WarehouseID, filter)
	if err != nil {
		return nil, 0, database.MapError(err)
	}
	return alerts, total, nil
}

// GetAlert gets one alert
func (g *AlertGenerator) GetAlert(ctx context.Context, scope tenant.Scope, id int64) (*domain.Alert, error) {
	alert, err := g.alerts.GetByID(ctx, scope.TenantID, scope.WarehouseID, id)
	if err != nil {
		return nil, database.MapError(err)
	}
	return alert, nil
}

// DismissAlert closes one open alert. The next generation run may raise the
// same condition again as a new alert.
func (g *AlertGenerator) DismissAlert(ctx context.Context, scope tenant.Scope, id int64) error {
	if err := g.alerts.Dismiss(ctx, scope.TenantID, scope.WarehouseID, id, scope.Actor.ID); err != nil {
		return database.MapError(err)
	}
	return nil
}

// DismissAlerts closes the open alerts among ids and returns how many closed
func (g *AlertGenerator) DismissAlerts(ctx context.Context, scope tenant.Scope, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, errors.Validation(map[string]string{"ids": "must not be empty"})
	}
	n, err := g.alerts.DismissMany(ctx, scope.TenantID, scope.WarehouseID, ids, scope.Actor.ID)
	if err != nil {
		return 0, database.MapError(err)
	}
	return n, nil
}

// DismissAlertsByKind closes every open alert of kind in the warehouse
func (g *AlertGenerator) DismissAlertsByKind(ctx context.Context, scope tenant.Scope, kind domain.AlertKind) (int64, error) {
	if _, ok := domain.ParseAlertKind(string(kind)); !ok {
		return 0, errors.Validation(map[string]string{"kind": "is not a known alert kind"})
	}
	n, err := g.alerts.DismissByKind(ctx, scope.TenantID, scope.WarehouseID, kind, scope.Actor.ID)
	if err != nil {
		return 0, database.MapError(err)
	}
	return n, nil
}
