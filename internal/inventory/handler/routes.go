package handler

import (
	"github.com/go-chi/chi/v5"
)

// Handlers groups the inventory HTTP handlers
type Handlers struct {
	Items  *ItemHandler
	Stock  *StockHandler
	Opname *OpnameHandler
	Alerts *AlertHandler
}

// Routes mounts the inventory API. Callers install TenantMiddleware on the
// returned router's parent.
func (h *Handlers) Routes(r chi.Router) {
	r.Get("/dashboard/stats", h.Items.GetStats)

	r.Route("/categories", func(r chi.Router) {
		r.Get("/", h.Items.ListCategories)
		r.Post("/", h.Items.CreateCategory)
	})

	r.Route("/items", func(r chi.Router) {
		r.Get("/", h.Items.List)
		r.Post("/", h.Items.Create)
		r.Get("/{id}", h.Items.Get)
		r.Put("/{id}", h.Items.Update)
		r.Delete("/{id}", h.Items.Delete)
		r.Get("/{id}/batches", h.Stock.ListBatches)
	})

	r.Route("/batches", func(r chi.Router) {
		r.Get("/{id}", h.Stock.GetBatch)
		r.Delete("/{id}", h.Stock.DeleteBatch)
	})

	r.Post("/stock/in", h.Stock.Receive)
	r.Post("/stock/out", h.Stock.Issue)

	r.Route("/transactions", func(r chi.Router) {
		r.Get("/", h.Stock.ListTransactions)
		r.Get("/{id}", h.Stock.GetTransaction)
		r.Patch("/{id}", h.Stock.CorrectTransaction)
	})

	r.Route("/opnames", func(r chi.Router) {
		r.Get("/", h.Opname.List)
		r.Post("/", h.Opname.Create)
	})

	r.Route("/alerts", func(r chi.Router) {
		r.Get("/", h.Alerts.List)
		r.Post("/generate", h.Alerts.Generate)
		r.Post("/dismiss", h.Alerts.DismissMany)
		r.Get("/{id}", h.Alerts.Get)
		r.Post("/{id}/dismiss", h.Alerts.Dismiss)
	})
}
