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

// AlertHandler handles alert endpoints
type AlertHandler struct {
	generator *service.AlertGenerator
	logger    *logger.Logger
}

// NewAlertHandler creates a new alert handler
func NewAlertHandler(generator *service.AlertGenerator, log *logger.Logger) *AlertHandler {
	return &AlertHandler{
		generator: generator,
		logger:    log,
	}
}

// DismissRequest dismisses either the listed alerts or every open alert of a kind
type DismissRequest struct {
	IDs  []int64 `json:"ids" validate:"required_without=Kind,dive,gt=0"`
	Kind string  `json:"kind" validate:"required_without=IDs"`
}

// GenerateResponse reports an on-demand generation run
type GenerateResponse struct {
	Created []*domain.Alert `json:"created"`
	Partial bool            `json:"partial"`
}

// List lists alerts, open ones only unless include_dismissed=true
func (h *AlertHandler) List(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeOf(w, r)
	if !ok {
		return
	}

	filter := repository.AlertFilter{
		IncludeDismissed: r.URL.Query().Get("include_dismissed") == "true",
	}
	if raw := r.URL.Query().Get("kind"); raw != "" {
		kind, ok := domain.ParseAlertKind(raw)
		if !ok {
			httputil.Error(w, r, errors.Validation(map[string]string{"kind": "unknown alert kind"}))
			return
		}
		filter.Kind = kind
	}
	filter.Page, filter.PerPage = httputil.Pagination(r)

	alerts, total, err := h.generator.ListAlerts(r.Context(), scope, filter)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, alerts, httputil.NewMeta(filter.Page, filter.PerPage, total))
}

// Get gets one alert
func (h *AlertHandler) Get(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeOf(w, r)
	if !ok {
		return
	}
	id, err := httputil.IDParam(r, "id")
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	alert, err := h.generator.GetAlert(r.Context(), scope, id)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, alert)
}

// Dismiss dismisses one alert
func (h *AlertHandler) Dismiss(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeOf(w, r)
	if !ok {
		return
	}
	id, err := httputil.IDParam(r, "id")
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	if err := h.generator.DismissAlert(r.Context(), scope, id); err != nil {
		httputil.Error(w, r, err)
		return
	}

	httputil.NoContent(w)
}

// DismissMany dismisses alerts by ids or by kind
func (h *AlertHandler) DismissMany(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeOf(w, r)
	if !ok {
		return
	}

	var req DismissRequest
	if !decode(w, r, &req) {
		return
	}

	var (
		n   int64
		err error
	)
	if len(req.IDs) > 0 {
		n, err = h.generator.DismissAlerts(r.Context(), scope, req.IDs)
	} else {
		n, err = h.generator.DismissAlertsByKind(r.Context(), scope, domain.AlertKind(req.Kind))
	}
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]int64{"dismissed": n})
}

// Generate runs alert generation for the caller's tenant on demand
func (h *AlertHandler) Generate(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeOf(w, r)
	if !ok {
		return
	}

	created, err := h.generator.Generate(r.Context(), scope.TenantID)
	if err != nil {
		if len(created) == 0 {
			httputil.Error(w, r, err)
			return
		}
		h.logger.Warn().Err(err).Int64("tenant_id", scope.TenantID).Int("created", len(created)).
			Msg("Alert generation finished with warehouse failures")
	}
	if created == nil {
		created = []*domain.Alert{}
	}

	httputil.JSON(w, http.StatusOK, GenerateResponse{Created: created, Partial: err != nil})
}
