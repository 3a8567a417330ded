package service

import (
	"context"
	"strings"
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

// ResourceGuard is the subscription collaborator's veto on stock writes.
// *repository.ResourceGuard implements it.
type ResourceGuard interface {
	CheckWritable(ctx context.Context, tenantID, warehouseID int64) error
}

// StockService receives, issues and corrects stock. Every write runs as one
// tenant transaction: batches and ledger change together or not at all.
type StockService struct {
	db        *database.DB
	items     *repository.ItemRepository
	batches   *repository.BatchRepository
	ledger    *repository.TransactionRepository
	guard     ResourceGuard
	publisher *events.InventoryEventPublisher
	metrics   *metrics.Metrics
	logger    *logger.Logger
	now       func() time.Time
}

// NewStockService creates a new stock service
func NewStockService(
	db *database.DB,
	items *repository.ItemRepository,
	batches *repository.BatchRepository,
	ledger *repository.TransactionRepository,
	guard ResourceGuard,
	publisher *events.InventoryEventPublisher,
	m *metrics.Metrics,
	log *logger.Logger,
) *StockService {
	return &StockService{
		db:        db,
		items:     items,
		batches:   batches,
		ledger:    ledger,
		guard:     guard,
		publisher: publisher,
		metrics:   m,
		logger:    log,
		now:       time.Now,
	}
}

// SetClock replaces the clock used for default transaction dates
func (s *StockService) SetClock(now func() time.Time) {
	s.now = now
}

// ReceiveInput describes a stock-in
type ReceiveInput struct {
	ItemID     int64
	Quantity   int64
	Supplier   string
	ExpiryDate *time.Time
	Note       string
	// Date defaults to today
	Date *time.Time
}

// ReceiveResult identifies what a receipt wrote
type ReceiveResult struct {
	BatchID       int64 `json:"batch_id"`
	TransactionID int64 `json:"transaction_id"`
	StockSnapshot int64 `json:"stock_snapshot"`
}

// Receive creates a new batch and appends one IN entry whose snapshot is the
// item total after the addition.
func (s *StockService) Receive(ctx context.Context, scope tenant.Scope, in ReceiveInput) (*ReceiveResult, error) {
	if err := scope.Validate(); err != nil {
		return nil, errors.BadRequest(err.Error())
	}
	details := map[string]string{}
	if in.ItemID <= 0 {
		details["item_id"] = "is required"
	}
	if in.Quantity <= 0 {
		details["quantity"] = "must be greater than 0"
	}
	if strings.TrimSpace(in.Supplier) == "" {
		details["supplier"] = "is required"
	}
	if len(details) > 0 {
		return nil, errors.Validation(details)
	}

	batch := &domain.Batch{
		TenantID:    scope.TenantID,
		WarehouseID: scope.WarehouseID,
		ItemID:      in.ItemID,
		Quantity:    in.Quantity,
		Supplier:    strings.TrimSpace(in.Supplier),
		ExpiryDate:  dateOnly(in.ExpiryDate),
	}
	entry := &domain.Transaction{
		TenantID:          scope.TenantID,
		WarehouseID:       scope.WarehouseID,
		ItemID:            in.ItemID,
		Direction:         domain.DirectionIn,
		Quantity:          in.Quantity,
		Counterpart:       batch.Supplier,
		ResponsiblePerson: scope.Actor.DisplayName(),
		ActorID:           scope.Actor.ID,
		Note:              in.Note,
		TransactionDate:   s.dateOrToday(in.Date),
	}

	err := s.db.WithTenant(ctx, scope.TenantID, func(ctx context.Context) error {
		if err := s.guard.CheckWritable(ctx, scope.TenantID, scope.WarehouseID); err != nil {
			return err
		}
		item, err := s.items.LockForUpdate(ctx, scope.TenantID, scope.WarehouseID, in.ItemID)
		if err != nil {
			return err
		}
		// inactive items may still be drained and counted, never restocked
		if !item.IsActive {
			return errors.Validation(map[string]string{"item_id": "item is inactive"})
		}
		if err := s.batches.Create(ctx, batch); err != nil {
			return err
		}

		total, err := s.batches.TotalForItem(ctx, scope.TenantID, scope.WarehouseID, in.ItemID)
		if err != nil {
			return err
		}

		entry.BatchID = batch.ID
		entry.StockSnapshot = total
		return s.ledger.Append(ctx, entry)
	})
	if err != nil {
		return nil, s.fail(err, "receive", scope, in.ItemID)
	}

	s.metrics.LedgerEntry(string(domain.DirectionIn), in.Quantity)
	s.publisher.PublishStockReceived(ctx, batch, entry)

	s.logger.Info().
		Int64("tenant_id", scope.TenantID).
		Int64("item_id", in.ItemID).
		Int64("batch_id", batch.ID).
		Int64("quantity", in.Quantity).
		Int64("stock_snapshot", entry.StockSnapshot).
		Str("actor", scope.Actor.String()).
		Msg("stock received")

	return &ReceiveResult{
		BatchID:       batch.ID,
		TransactionID: entry.ID,
		StockSnapshot: entry.StockSnapshot,
	}, nil
}

// IssueInput describes a stock-out
type IssueInput struct {
	ItemID      int64
	Quantity    int64
	Counterpart string
	Note        string
	// Date defaults to today
	Date *time.Time
}

// Issue depletes the item's batches in FEFO order and appends one OUT entry
// per touched batch. It either fulfils the whole quantity or writes nothing.
func (s *StockService) Issue(ctx context.Context, scope tenant.Scope, in IssueInput) ([]*domain.Transaction, error) {
	if err := scope.Validate(); err != nil {
		return nil, errors.BadRequest(err.Error())
	}
	details := map[string]string{}
	if in.ItemID <= 0 {
		details["item_id"] = "is required"
	}
	if in.Quantity <= 0 {
		details["quantity"] = "must be greater than 0"
	}
	if strings.TrimSpace(in.Counterpart) == "" {
		details["counterpart"] = "is required"
	}
	if len(details) > 0 {
		return nil, errors.Validation(details)
	}

	date := s.dateOrToday(in.Date)
	var entries []*domain.Transaction

	err := s.db.WithTenant(ctx, scope.TenantID, func(ctx context.Context) error {
		if err := s.guard.CheckWritable(ctx, scope.TenantID, scope.WarehouseID); err != nil {
			return err
		}
		if _, err := s.items.LockForUpdate(ctx, scope.TenantID, scope.WarehouseID, in.ItemID); err != nil {
			return err
		}

		batches, err := s.batches.LockForDepletion(ctx, scope.TenantID, scope.WarehouseID, in.ItemID)
		if err != nil {
			return err
		}

		plan, err := domain.PlanDepletion(batches, in.Quantity)
		if err != nil {
			return err
		}

		entries = make([]*domain.Transaction, 0, len(plan.Allocations))
		for _, a := range plan.Allocations {
			if err := s.batches.Decrement(ctx, scope.TenantID, a.BatchID, a.Take); err != nil {
				return err
			}

			entry := &domain.Transaction{
				TenantID:          scope.TenantID,
				WarehouseID:       scope.WarehouseID,
				ItemID:            in.ItemID,
				BatchID:           a.BatchID,
				Direction:         domain.DirectionOut,
				Quantity:          a.Take,
				Counterpart:       strings.TrimSpace(in.Counterpart),
				ResponsiblePerson: scope.Actor.DisplayName(),
				ActorID:           scope.Actor.ID,
				Note:              in.Note,
				StockSnapshot:     a.Snapshot,
				TransactionDate:   date,
			}
			if err := s.ledger.Append(ctx, entry); err != nil {
				return err
			}
			entries = append(entries, entry)
		}
		return nil
	})
	if err != nil {
		return nil, s.fail(err, "issue", scope, in.ItemID)
	}

	for _, e := range entries {
		s.metrics.LedgerEntry(string(domain.DirectionOut), e.Quantity)
	}
	s.publisher.PublishStockIssued(ctx, in.Quantity, entries)

	s.logger.Info().
		Int64("tenant_id", scope.TenantID).
		Int64("item_id", in.ItemID).
		Int64("quantity", in.Quantity).
		Int("batches", len(entries)).
		Str("actor", scope.Actor.String()).
		Msg("stock issued")

	return entries, nil
}

// CorrectionInput carries the ledger metadata an operator may change.
// Nil fields are left as they are.
type CorrectionInput struct {
	Counterpart *string
	Note        *string
	Date        *time.Time
}

// CorrectTransaction edits counterpart, note or date of a ledger entry.
// Quantities are never replayed.
func (s *StockService) CorrectTransaction(ctx context.Context, scope tenant.Scope, id int64, in CorrectionInput) (*domain.Transaction, error) {
	if err := scope.Validate(); err != nil {
		return nil, errors.BadRequest(err.Error())
	}
	if in.Counterpart != nil && strings.TrimSpace(*in.Counterpart) == "" {
		return nil, errors.Validation(map[string]string{"counterpart": "must not be empty"})
	}

	var entry *domain.Transaction
	err := s.db.WithTenant(ctx, scope.TenantID, func(ctx context.Context) error {
		if err := s.guard.CheckWritable(ctx, scope.TenantID, scope.WarehouseID); err != nil {
			return err
		}

		var err error
		entry, err = s.ledger.GetByID(ctx, scope.TenantID, scope.WarehouseID, id)
		if err != nil {
			return err
		}

		if in.Counterpart != nil {
			entry.Counterpart = strings.TrimSpace(*in.Counterpart)
		}
		if in.Note != nil {
			entry.Note = *in.Note
		}
		if in.Date != nil {
			entry.TransactionDate = *dateOnly(in.Date)
		}
		return s.ledger.UpdateMetadata(ctx, entry)
	})
	if err != nil {
		return nil, s.fail(err, "correct_transaction", scope, 0)
	}
	return entry, nil
}

// ListTransactions lists ledger entries of the scope's warehouse
func (s *StockService) ListTransactions(ctx context.Context, scope tenant.Scope, filter repository.TransactionFilter) ([]*domain.Transaction, int64, error) {
	entries, total, err := s.ledger.List(ctx, scope.TenantID, scope.WarehouseID, filter)
	if err != nil {
		return nil, 0, database.MapError(err)
	}
	return entries, total, nil
}

// GetTransaction gets one ledger entry
func (s *StockService) GetTransaction(ctx context.Context, scope tenant.Scope, id int64) (*domain.Transaction, error) {
	entry, err := s.ledger.GetByID(ctx, scope.TenantID, scope.WarehouseID, id)
	if err != nil {
		return nil, database.MapError(err)
	}
	return entry, nil
}

// ListBatches lists an item's batches in FEFO order
func (s *StockService) ListBatches(ctx context.Context, scope tenant.Scope, itemID int64) ([]*domain.Batch, error) {
	if _, err := s.items.GetByID(ctx, scope.TenantID, scope.WarehouseID, itemID); err != nil {
		return nil, database.MapError(err)
	}
	batches, err := s.batches.ListByItem(ctx, scope.TenantID, scope.WarehouseID, itemID)
	if err != nil {
		return nil, database.MapError(err)
	}
	return batches, nil
}

// GetBatch gets one batch
func (s *StockService) GetBatch(ctx context.Context, scope tenant.Scope, id int64) (*domain.Batch, error) {
	batch, err := s.batches.GetByID(ctx, scope.TenantID, scope.WarehouseID, id)
	if err != nil {
		return nil, database.MapError(err)
	}
	return batch, nil
}

// DeleteBatch soft deletes a batch on an operator's request. The batch
// leaves item totals; its ledger history stays.
func (s *StockService) DeleteBatch(ctx context.Context, scope tenant.Scope, id int64) error {
	if err := scope.Validate(); err != nil {
		return errors.BadRequest(err.Error())
	}

	err := s.db.WithTenant(ctx, scope.TenantID, func(ctx context.Context) error {
		if err := s.guard.CheckWritable(ctx, scope.TenantID, scope.WarehouseID); err != nil {
			return err
		}
		batch, err := s.batches.GetByID(ctx, scope.TenantID, scope.WarehouseID, id)
		if err != nil {
			return err
		}
		if _, err := s.items.LockForUpdate(ctx, scope.TenantID, scope.WarehouseID, batch.ItemID); err != nil {
			return err
		}
		return s.batches.SoftDelete(ctx, scope.TenantID, scope.WarehouseID, id)
	})
	if err != nil {
		return s.fail(err, "delete_batch", scope, 0)
	}

	s.logger.Info().
		Int64("tenant_id", scope.TenantID).
		Int64("batch_id", id).
		Str("actor", scope.Actor.String()).
		Msg("batch deleted")
	return nil
}

// fail maps a write error, records its metric and logs unexpected failures
func (s *StockService) fail(err error, op string, scope tenant.Scope, itemID int64) error {
	return failWrite(s.metrics, s.logger, err, op, scope, itemID)
}

func (s *StockService) dateOrToday(d *time.Time) time.Time {
	if d != nil {
		return *dateOnly(d)
	}
	return domain.CivilDate(s.now())
}

// dateOnly keeps the calendar date of t
func dateOnly(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := domain.CivilDate(*t)
	return &d
}

func failWrite(m *metrics.Metrics, log *logger.Logger, err error, op string, scope tenant.Scope, itemID int64) error {
	err = database.MapError(err)

	switch {
	case errors.Is(err, errors.ErrInsufficientStock):
		m.InsufficientStock()
	case errors.Is(err, errors.ErrResourceFrozen):
		m.ResourceFrozen()
	case errors.Is(err, errors.ErrValidation), errors.Is(err, errors.ErrNotFound), errors.Is(err, errors.ErrBadRequest):
	default:
		log.Error().Err(err).
			Str("operation", op).
			Int64("tenant_id", scope.TenantID).
			Int64("warehouse_id", scope.WarehouseID).
			Int64("item_id", itemID).
			Msg("stock write failed")
	}
	return err
}
