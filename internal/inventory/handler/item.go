package handler

import (
	"net/http"
	"strings"

	"github.com/stoklog/stoklog-backend/internal/inventory/repository"
	"github.com/stoklog/stoklog-backend/internal/inventory/service"
	"github.com/stoklog/stoklog-backend/pkg/httputil"
	"github.com/stoklog/stoklog-backend/pkg/logger"
)

// ItemHandler handles item, category and dashboard endpoints
type ItemHandler struct {
	service *service.ItemService
	logger  *logger.Logger
}

// NewItemHandler creates a new item handler
func NewItemHandler(svc *service.ItemService, log *logger.Logger) *ItemHandler {
	return &ItemHandler{
		service: svc,
		logger:  log,
	}
}

// ItemRequest is the body of item create and update
type ItemRequest struct {
	CategoryID   *int64 `json:"category_id" validate:"omitempty,gt=0"`
	Name         string `json:"name" validate:"required,max=200"`
	Unit         string `json:"unit" validate:"required,max=32"`
	MinThreshold *int64 `json:"min_threshold" validate:"omitempty,gte=0"`
	MaxThreshold *int64 `json:"max_threshold" validate:"omitempty,gte=0"`
	IsActive     *bool  `json:"is_active"`
}

func (req ItemRequest) input() service.ItemInput {
	return service.ItemInput{
		CategoryID:   req.CategoryID,
		Name:         req.Name,
		Unit:         req.Unit,
		MinThreshold: req.MinThreshold,
		MaxThreshold: req.MaxThreshold,
		IsActive:     req.IsActive,
	}
}

// List lists items of the warehouse with their totals
func (h *ItemHandler) List(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeOf(w, r)
	if !ok {
		return
	}

	categoryID, err := queryInt64(r, "category_id")
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	page, perPage := httputil.Pagination(r)
	items, total, err := h.service.ListItems(r.Context(), scope, repository.ItemFilter{
		CategoryID: categoryID,
		Search:     strings.TrimSpace(r.URL.Query().Get("q")),
		Page:       page,
		PerPage:    perPage,
	})
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, items, httputil.NewMeta(page, perPage, total))
}

// Get gets an item with its batches
func (h *ItemHandler) Get(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeOf(w, r)
	if !ok {
		return
	}
	id, err := httputil.IDParam(r, "id")
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	item, err := h.service.GetItem(r.Context(), scope, id)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, item)
}

// Create creates a new item
func (h *ItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeOf(w, r)
	if !ok {
		return
	}

	var req ItemRequest
	if !decode(w, r, &req) {
		return
	}

	item, err := h.service.CreateItem(r.Context(), scope, req.input())
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	httputil.Created(w, item)
}

// Update updates an item
func (h *ItemHandler) Update(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeOf(w, r)
	if !ok {
		return
	}
	id, err := httputil.IDParam(r, "id")
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	var req ItemRequest
	if !decode(w, r, &req) {
		return
	}

	item, err := h.service.UpdateItem(r.Context(), scope, id, req.input())
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, item)
}

// Delete deletes an item
func (h *ItemHandler) Delete(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeOf(w, r)
	if !ok {
		return
	}
	id, err := httputil.IDParam(r, "id")
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	if err := h.service.DeleteItem(r.Context(), scope, id); err != nil {
		httputil.Error(w, r, err)
		return
	}

	httputil.NoContent(w)
}

// CategoryRequest is the body of category create
type CategoryRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

// ListCategories lists the tenant's categories
func (h *ItemHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeOf(w, r)
	if !ok {
		return
	}

	categories, err := h.service.ListCategories(r.Context(), scope)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, categories)
}

// CreateCategory creates a category
func (h *ItemHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeOf(w, r)
	if !ok {
		return
	}

	var req CategoryRequest
	if !decode(w, r, &req) {
		return
	}

	category, err := h.service.CreateCategory(r.Context(), scope, req.Name)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	httputil.Created(w, category)
}

// GetStats returns dashboard statistics
func (h *ItemHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeOf(w, r)
	if !ok {
		return
	}

	stats, err := h.service.GetDashboardStats(r.Context(), scope)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, stats)
}
