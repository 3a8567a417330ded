package service

import (
	"context"
	"strings"

	"github.com/stoklog/stoklog-backend/internal/inventory/domain"
	"github.com/stoklog/stoklog-backend/internal/inventory/repository"
	"github.com/stoklog/stoklog-backend/pkg/database"
	"github.com/stoklog/stoklog-backend/pkg/errors"
	"github.com/stoklog/stoklog-backend/pkg/logger"
	"github.com/stoklog/stoklog-backend/pkg/tenant"
)

// ItemService handles item and category catalog logic
type ItemService struct {
	itemRepo     *repository.ItemRepository
	batchRepo    *repository.BatchRepository
	categoryRepo *repository.CategoryRepository
	alertRepo    *repository.AlertRepository
	logger       *logger.Logger
}

// NewItemService creates a new item service
func NewItemService(
	itemRepo *repository.ItemRepository,
	batchRepo *repository.BatchRepository,
	categoryRepo *repository.CategoryRepository,
	alertRepo *repository.AlertRepository,
	log *logger.Logger,
) *ItemService {
	return &ItemService{
		itemRepo:     itemRepo,
		batchRepo:    batchRepo,
		categoryRepo: categoryRepo,
		alertRepo:    alertRepo,
		logger:       log,
	}
}

// ItemWithBatches represents an item with its batches in FEFO order
type ItemWithBatches struct {
	*domain.ItemStock
	Batches       []*domain.Batch `json:"batches"`
	NearestExpiry *domain.Batch   `json:"nearest_expiry,omitempty"`
}

// DashboardStats summarizes one warehouse
type DashboardStats struct {
	TotalItems int64                      `json:"total_items"`
	TotalUnits int64                      `json:"total_units"`
	OpenAlerts map[domain.AlertKind]int64 `json:"open_alerts"`
}

// ItemInput carries the writable item fields
type ItemInput struct {
	CategoryID   *int64
	Name         string
	Unit         string
	MinThreshold *int64
	MaxThreshold *int64
	IsActive     *bool
}

func (in ItemInput) validate() error {
	details := map[string]string{}
	if strings.TrimSpace(in.Name) == "" {
		details["name"] = "is required"
	}
	if strings.TrimSpace(in.Unit) == "" {
		details["unit"] = "is required"
	}
	if in.MinThreshold != nil && *in.MinThreshold < 0 {
		details["min_threshold"] = "must be 0 or greater"
	}
	if in.MaxThreshold != nil && *in.MaxThreshold < 0 {
		details["max_threshold"] = "must be 0 or greater"
	}
	if in.MinThreshold != nil && in.MaxThreshold != nil && *in.MaxThreshold < *in.MinThreshold {
		details["max_threshold"] = "must not be below min_threshold"
	}
	if len(details) > 0 {
		return errors.Validation(details)
	}
	return nil
}

// Item operations

// CreateItem creates a new item in the scope's warehouse
func (s *ItemService) CreateItem(ctx context.Context, scope tenant.Scope, in ItemInput) (*domain.Item, error) {
	if err := scope.Validate(); err != nil {
		return nil, errors.BadRequest(err.Error())
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	item := &domain.Item{
		TenantID:     scope.TenantID,
		WarehouseID:  scope.WarehouseID,
		CategoryID:   in.CategoryID,
		Name:         strings.TrimSpace(in.Name),
		Unit:         strings.TrimSpace(in.Unit),
		MinThreshold: in.MinThreshold,
		MaxThreshold: in.MaxThreshold,
		IsActive:     in.IsActive == nil || *in.IsActive,
	}
	if err := s.itemRepo.Create(ctx, item); err != nil {
		return nil, database.MapError(err)
	}

	s.logger.Info().
		Int64("tenant_id", scope.TenantID).
		Int64("item_id", item.ID).
		Str("actor", scope.Actor.String()).
		Msg("item created")
	return item, nil
}

// GetItem gets an item with its total and batches
func (s *ItemService) GetItem(ctx context.Context, scope tenant.Scope, id int64) (*ItemWithBatches, error) {
	item, err := s.itemRepo.GetWithStock(ctx, scope.TenantID, scope.WarehouseID, id)
	if err != nil {
		return nil, database.MapError(err)
	}

	batches, err := s.batchRepo.ListByItem(ctx, scope.TenantID, scope.WarehouseID, id)
	if err != nil {
		return nil, database.MapError(err)
	}

	result := &ItemWithBatches{ItemStock: item, Batches: batches}
	for _, b := range batches {
		if b.Quantity > 0 && b.ExpiryDate != nil {
			result.NearestExpiry = b
			break
		}
	}
	return result, nil
}

// ListItems lists items with their totals
func (s *ItemService) ListItems(ctx context.Context, scope tenant.Scope, filter repository.ItemFilter) ([]*domain.ItemStock, int64, error) {
	items, total, err := s.itemRepo.List(ctx, scope.TenantID, scope.WarehouseID, filter)
	if err != nil {
		return nil, 0, database.MapError(err)
	}
	return items, total, nil
}

// UpdateItem replaces the writable fields of an item
func (s *ItemService) UpdateItem(ctx context.Context, scope tenant.Scope, id int64, in ItemInput) (*domain.Item, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	item, err := s.itemRepo.GetByID(ctx, scope.TenantID, scope.WarehouseID, id)
	if err != nil {
		return nil, database.MapError(err)
	}

	item.CategoryID = in.CategoryID
	item.Name = strings.TrimSpace(in.Name)
	item.Unit = strings.TrimSpace(in.Unit)
	item.MinThreshold = in.MinThreshold
	item.MaxThreshold = in.MaxThreshold
	if in.IsActive != nil {
		item.IsActive = *in.IsActive
	}

	if err := s.itemRepo.Update(ctx, item); err != nil {
		return nil, database.MapError(err)
	}
	return item, nil
}

// DeleteItem soft deletes an item. Its batches and ledger stay for history.
func (s *ItemService) DeleteItem(ctx context.Context, scope tenant.Scope, id int64) error {
	if err := s.itemRepo.SoftDelete(ctx, scope.TenantID, scope.WarehouseID, id); err != nil {
		return database.MapError(err)
	}

	s.logger.Info().
		Int64("tenant_id", scope.TenantID).
		Int64("item_id", id).
		Str("actor", scope.Actor.String()).
		Msg("item deleted")
	return nil
}

// Category operations

// CreateCategory creates a tenant-wide category
func (s *ItemService) CreateCategory(ctx context.Context, scope tenant.Scope, name string) (*domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.Validation(map[string]string{"name": "is required"})
	}

	c := &domain.Category{TenantID: scope.TenantID, Name: name}
	if err := s.categoryRepo.Create(ctx, c); err != nil {
		return nil, database.MapError(err)
	}
	return c, nil
}

// ListCategories lists the tenant's categories
func (s *ItemService) ListCategories(ctx context.Context, scope tenant.Scope) ([]*domain.Category, error) {
	categories, err := s.categoryRepo.List(ctx, scope.TenantID)
	if err != nil {
		return nil, database.MapError(err)
	}
	return categories, nil
}

// Dashboard operations

// GetDashboardStats summarizes the scope's warehouse
func (s *ItemService) GetDashboardStats(ctx context.Context, scope tenant.Scope) (*DashboardStats, error) {
	items, err := s.itemRepo.ListActiveWithStock(ctx, scope.TenantID, scope.WarehouseID)
	if err != nil {
		return nil, database.MapError(err)
	}

	alerts, err := s.alertRepo.CountOpenByKind(ctx, scope.TenantID, scope.WarehouseID)
	if err != nil {
		return nil, database.MapError(err)
	}

	stats := &DashboardStats{
		TotalItems: int64(len(items)),
		OpenAlerts: alerts,
	}
	for _, item := range items {
		stats.TotalUnits += item.Total
	}
	return stats, nil
}
