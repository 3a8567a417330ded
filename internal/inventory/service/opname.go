package service

import (
	"context"
	"time"

	"github.com/stoklog/stoklog-backend/internal/inventory/domain"
	"github.com/stoklog/stoklog-backend/internal/inventory/events"
	"github.com/stoklog/stoklog-backend/internal/inventory/repository"
	"github.com/stoklog/stoklog-backend/pkg/database"
	"github.com/stoklog/stoklog-backend/pkg/errors"
	"github.com/stoklog/stoklog-backend/pkg/logger"
	"github.com/stoklog/stoklog-backend/pkg/metrics"
	"github.com/stoklog/stoklog-backend/pkg/tenant"
)

// OpnameService reconciles system stock against physical counts
type OpnameService struct {
	db        *database.DB
	items     *repository.ItemRepository
	batches   *repository.BatchRepository
	opnames   *repository.OpnameRepository
	guard     ResourceGuard
	policy    domain.OpnamePolicy
	publisher *events.InventoryEventPublisher
	metrics   *metrics.Metrics
	logger    *logger.Logger
	now       func() time.Time
}

// NewOpnameService creates a new opname service applying policy
func NewOpnameService(
	db *database.DB,
	items *repository.ItemRepository,
	batches *repository.BatchRepository,
	opnames *repository.OpnameRepository,
	guard ResourceGuard,
	policy domain.OpnamePolicy,
	publisher *events.InventoryEventPublisher,
	m *metrics.Metrics,
	log *logger.Logger,
) *OpnameService {
	if policy == "" {
		policy = domain.OpnameOverwrite
	}
	return &OpnameService{
		db:        db,
		items:     items,
		batches:   batches,
		opnames:   opnames,
		guard:     guard,
		policy:    policy,
		publisher: publisher,
		metrics:   m,
		logger:    log,
		now:       time.Now,
	}
}

// Policy returns the configured opname policy
func (s *OpnameService) Policy() domain.OpnamePolicy {
	return s.policy
}

// ReconcileInput is one physical count of a batch
type ReconcileInput struct {
	ItemID           int64
	BatchID          int64
	PhysicalQuantity int64
	Note             string
	// Date defaults to today
	Date *time.Time
}

// Reconcile records a stock count. The difference is computed once against
// the locked batch quantity. Under the overwrite policy the batch takes the
// physical quantity in the same transaction; no ledger entry is written.
func (s *OpnameService) Reconcile(ctx context.Context, scope tenant.Scope, in ReconcileInput) (*domain.Opname, error) {
	if err := scope.Validate(); err != nil {
		return nil, errors.BadRequest(err.Error())
	}
	details := map[string]string{}
	if in.ItemID <= 0 {
		details["item_id"] = "is required"
	}
	if in.BatchID <= 0 {
		details["batch_id"] = "is required"
	}
	if in.PhysicalQuantity < 0 {
		details["physical_quantity"] = "must be 0 or greater"
	}
	if len(details) > 0 {
		return nil, errors.Validation(details)
	}

	countDate := domain.CivilDate(s.now())
	if in.Date != nil {
		countDate = domain.CivilDate(*in.Date)
	}

	var opname *domain.Opname
	err := s.db.WithTenant(ctx, scope.TenantID, func(ctx context.Context) error {
		if err := s.guard.CheckWritable(ctx, scope.TenantID, scope.WarehouseID); err != nil {
			return err
		}
		if _, err := s.items.LockForUpdate(ctx, scope.TenantID, scope.WarehouseID, in.ItemID); err != nil {
			return err
		}

		batch, err := s.batches.LockByID(ctx, scope.TenantID, scope.WarehouseID, in.BatchID)
		if err != nil {
			return err
		}
		if batch.ItemID != in.ItemID {
			return errors.NotFound("batch")
		}

		o := domain.NewOpname(batch.Quantity, in.PhysicalQuantity)
		o.TenantID = scope.TenantID
		o.WarehouseID = scope.WarehouseID
		o.ItemID = in.ItemID
		o.BatchID = in.BatchID
		o.Note = in.Note
		o.CountDate = countDate
		o.ActorID = scope.Actor.ID
		o.ActorName = scope.Actor.DisplayName()
		o.Applied = s.policy == domain.OpnameOverwrite

		if o.Applied && o.Difference != 0 {
			if err := s.batches.SetQuantity(ctx, scope.TenantID, batch.ID, o.PhysicalQuantity); err != nil {
				return err
			}
		}
		if err := s.opnames.Create(ctx, &o); err != nil {
			return err
		}
		opname = &o
		return nil
	})
	if err != nil {
		return nil, failWrite(s.metrics, s.logger, err, "reconcile", scope, in.ItemID)
	}

	s.metrics.OpnameDifference(opname.Difference)
	s.publisher.PublishStockReconciled(ctx, opname)

	s.logger.Info().
		Int64("tenant_id", scope.TenantID).
		Int64("batch_id", opname.BatchID).
		Int64("system_quantity", opname.SystemQuantity).
		Int64("physical_quantity", opname.PhysicalQuantity).
		Int64("difference", opname.Difference).
		Bool("applied", opname.Applied).
		Str("actor", scope.Actor.String()).
		Msg("stock reconciled")

	return opname, nil
}

// ListOpnames lists stock counts of the scope's warehouse
func (s *OpnameService) ListOpnames(ctx context.Context, scope tenant.Scope, filter repository.OpnameFilter) ([]*domain.Opname, int64, error) {
	opnames, total, err := s.opnames.List(ctx, scope.TenantID, scope.WarehouseID, filter)
	if err != nil {
		return nil, 0, database.MapError(err)
	}
	return opnames, total, nil
}
