package handler

import (
	"net/http"

	"github.com/stoklog/stoklog-backend/internal/inventory/repository"
	"github.com/stoklog/stoklog-backend/internal/inventory/service"
	"github.com/stoklog/stoklog-backend/pkg/httputil"
	"github.com/stoklog/stoklog-backend/pkg/logger"
)

// OpnameHandler handles stock counts
type OpnameHandler struct {
	service *service.OpnameService
	logger  *logger.Logger
}

// NewOpnameHandler creates a new opname handler
func NewOpnameHandler(svc *service.OpnameService, log *logger.Logger) *OpnameHandler {
	return &OpnameHandler{
		service: svc,
		logger:  log,
	}
}

// OpnameRequest is one physical count of a batch
type OpnameRequest struct {
	ItemID           int64  `json:"item_id" validate:"required,gt=0"`
	BatchID          int64  `json:"batch_id" validate:"required,gt=0"`
	PhysicalQuantity *int64 `json:"physical_quantity" validate:"required,gte=0"`
	Note             string `json:"note" validate:"max=1000"`
	Date             *Date  `json:"opname_date"`
}

// Create reconciles a batch against a physical count
func (h *OpnameHandler) Create(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeOf(w, r)
	if !ok {
		return
	}

	var req OpnameRequest
	if !decode(w, r, &req) {
		return
	}

	opname, err := h.service.Reconcile(r.Context(), scope, service.ReconcileInput{
		ItemID:           req.ItemID,
		BatchID:          req.BatchID,
		PhysicalQuantity: *req.PhysicalQuantity,
		Note:             req.Note,
		Date:             req.Date.Ptr(),
	})
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	httputil.Created(w, opname)
}

// List lists recorded counts, newest first
func (h *OpnameHandler) List(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeOf(w, r)
	if !ok {
		return
	}

	filter := repository.OpnameFilter{}
	var err error
	if filter.ItemID, err = queryInt64(r, "item_id"); err != nil {
		httputil.Error(w, r, err)
		return
	}
	if filter.BatchID, err = queryInt64(r, "batch_id"); err != nil {
		httputil.Error(w, r, err)
		return
	}
	filter.Page, filter.PerPage = httputil.Pagination(r)

	opnames, total, err := h.service.ListOpnames(r.Context(), scope, filter)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, opnames, httputil.NewMeta(filter.Page, filter.PerPage, total))
}
