package handler

import (
	"net/http"

	"github.com/stoklog/stoklog-backend/internal/inventory/domain"
	"github.com/stoklog/stoklog-backend/internal/inventory/repository"
	"github.com/stoklog/stoklog-backend/internal/inventory/service"
	"github.com/stoklog/stoklog-backend/pkg/errors"
	"github.com/stoklog/stoklog-backend/pkg/httputil"
	"github.com/stoklog/stoklog-backend/pkg/logger"
)

// StockHandler handles stock movements, the ledger and batches
type StockHandler struct {
	service *service.StockService
	logger  *logger.Logger
}

// NewStockHandler creates a new stock handler
func NewStockHandler(svc *service.StockService, log *logger.Logger) *StockHandler {
	return &StockHandler{
		service: svc,
		logger:  log,
	}
}

// ReceiveRequest is the body of POST /stock/in
type ReceiveRequest struct {
	ItemID     int64  `json:"item_id" validate:"required,gt=0"`
	Quantity   int64  `json:"quantity" validate:"required,gt=0"`
	Supplier   string `json:"supplier" validate:"required,max=200"`
	ExpiryDate *Date  `json:"expiry_date"`
	Note       string `json:"note" validate:"max=1000"`
	Date       *Date  `json:"transaction_date"`
}

// IssueRequest is the body of POST /stock/out
type IssueRequest struct {
	ItemID      int64  `json:"item_id" validate:"required,gt=0"`
	Quantity    int64  `json:"quantity" validate:"required,gt=0"`
	Counterpart string `json:"counterpart" validate:"required,max=200"`
	Note        string `json:"note" validate:"max=1000"`
	Date        *Date  `json:"transaction_date"`
}

// CorrectionRequest is the body of PATCH /transactions/{id}
type CorrectionRequest struct {
	Counterpart *string `json:"counterpart" validate:"omitempty,max=200"`
	Note        *string `json:"note" validate:"omitempty,max=1000"`
	Date        *Date   `json:"transaction_date"`
}

// Receive records a stock-in
func (h *StockHandler) Receive(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeOf(w, r)
	if !ok {
		return
	}

	var req ReceiveRequest
	if !decode(w, r, &req) {
		return
	}

	result, err := h.service.Receive(r.Context(), scope, service.ReceiveInput{
		ItemID:     req.ItemID,
		Quantity:   req.Quantity,
		Supplier:   req.Supplier,
		ExpiryDate: req.ExpiryDate.Ptr(),
		Note:       req.Note,
		Date:       req.Date.Ptr(),
	})
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	httputil.Created(w, result)
}

// Issue records a stock-out depleted in FEFO order
func (h *StockHandler) Issue(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeOf(w, r)
	if !ok {
		return
	}

	var req IssueRequest
	if !decode(w, r, &req) {
		return
	}

	entries, err := h.service.Issue(r.Context(), scope, service.IssueInput{
		ItemID:      req.ItemID,
		Quantity:    req.Quantity,
		Counterpart: req.Counterpart,
		Note:        req.Note,
		Date:        req.Date.Ptr(),
	})
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	httputil.Created(w, entries)
}

// ListTransactions lists ledger entries, newest first
func (h *StockHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeOf(w, r)
	if !ok {
		return
	}

	filter, err := transactionFilter(r)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	entries, total, err := h.service.ListTransactions(r.Context(), scope, filter)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, entries, httputil.NewMeta(filter.Page, filter.PerPage, total))
}

func transactionFilter(r *http.Request) (repository.TransactionFilter, error) {
	var filter repository.TransactionFilter
	var err error

	if filter.ItemID, err = queryInt64(r, "item_id"); err != nil {
		return filter, err
	}
	if filter.BatchID, err = queryInt64(r, "batch_id"); err != nil {
		return filter, err
	}
	if filter.From, err = queryDate(r, "from"); err != nil {
		return filter, err
	}
	if filter.To, err = queryDate(r, "to"); err != nil {
		return filter, err
	}

	switch d := domain.Direction(r.URL.Query().Get("direction")); d {
	case "", domain.DirectionIn, domain.DirectionOut:
		filter.Direction = d
	default:
		return filter, errors.Validation(map[string]string{"direction": "must be IN or OUT"})
	}

	filter.Page, filter.PerPage = httputil.Pagination(r)
	return filter, nil
}

// GetTransaction gets one ledger entry
func (h *StockHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeOf(w, r)
	if !ok {
		return
	}
	id, err := httputil.IDParam(r, "id")
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	entry, err := h.service.GetTransaction(r.Context(), scope, id)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, entry)
}

// CorrectTransaction edits ledger metadata
func (h *StockHandler) CorrectTransaction(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeOf(w, r)
	if !ok {
		return
	}
	id, err := httputil.IDParam(r, "id")
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	var req CorrectionRequest
	if !decode(w, r, &req) {
		return
	}

	entry, err := h.service.CorrectTransaction(r.Context(), scope, id, service.CorrectionInput{
		Counterpart: req.Counterpart,
		Note:        req.Note,
		Date:        req.Date.Ptr(),
	})
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, entry)
}

// ListBatches lists the batches of an item in FEFO order
func (h *StockHandler) ListBatches(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeOf(w, r)
	if !ok {
		return
	}
	itemID, err := httputil.IDParam(r, "id")
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	batches, err := h.service.ListBatches(r.Context(), scope, itemID)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, batches)
}

// GetBatch gets one batch
func (h *StockHandler) GetBatch(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeOf(w, r)
	if !ok {
		return
	}
	id, err := httputil.IDParam(r, "id")
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	batch, err := h.service.GetBatch(r.Context(), scope, id)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, batch)
}

// DeleteBatch soft-deletes a batch
func (h *StockHandler) DeleteBatch(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeOf(w, r)
	if !ok {
		return
	}
	id, err := httputil.IDParam(r, "id")
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	if err := h.service.DeleteBatch(r.Context(), scope, id); err != nil {
		httputil.Error(w, r, err)
		return
	}

	httputil.NoContent(w)
}
