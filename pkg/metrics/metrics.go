// Package metrics exposes the Prometheus collectors for stock movements,
// alert generation and the scheduling driver.
//
// All methods are safe on a nil *Metrics so components can run unmetered
// in tests.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stoklog/stoklog-backend/pkg/httputil"
)

// Metrics holds every collector the services record to
type Metrics struct {
	registry prometheus.Gatherer

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	ledgerEntries     *prometheus.CounterVec
	ledgerQuantity    *prometheus.CounterVec
	insufficientStock prometheus.Counter
	frozenRejections  prometheus.Counter
	opnameDifference  prometheus.Histogram

	alertsCreated *prometheus.CounterVec

	cycleDuration    prometheus.Histogram
	tenantFailures   prometheus.Counter
	digestDispatches *prometheus.CounterVec
}

// New registers the collectors on a fresh registry under namespace
func New(namespace string) *Metrics {
	return NewWithRegistry(namespace, prometheus.NewRegistry())
}

// NewWithRegistry registers the collectors on reg
func NewWithRegistry(namespace string, reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		ledgerEntries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_entries_total",
			Help:      "Ledger entries written, by direction",
		}, []string{"direction"}),
		ledgerQuantity: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_quantity_total",
			Help:      "Units moved through the ledger, by direction",
		}, []string{"direction"}),
		insufficientStock: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "issue_insufficient_stock_total",
			Help:      "Issue requests rejected for insufficient stock",
		}),
		frozenRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resource_frozen_rejections_total",
			Help:      "Writes rejected because the tenant or warehouse is frozen",
		}),
		opnameDifference: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "opname_difference",
			Help:      "Signed difference between physical and system quantity per stock count",
			Buckets:   []float64{-100, -50, -10, -5, -1, 0, 1, 5, 10, 50, 100},
		}),
		alertsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_created_total",
			Help:      "Alerts created by the generator, by kind",
		}, []string{"kind"}),
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scheduler_cycle_duration_seconds",
			Help:      "Duration of one scheduler pass over all tenants",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		}),
		tenantFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduler_tenant_failures_total",
			Help:      "Tenants whose generation or digest failed during a cycle",
		}),
		digestDispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "digest_dispatches_total",
			Help:      "Digest hand-offs to the mail collaborator, by result",
		}, []string{"result"}),
	}

	reg.MustRegister(
		m.httpRequests, m.httpDuration,
		m.ledgerEntries, m.ledgerQuantity, m.insufficientStock, m.frozenRejections, m.opnameDifference,
		m.alertsCreated,
		m.cycleDuration, m.tenantFailures, m.digestDispatches,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware records request count and latency labelled by chi route pattern
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := httputil.WrapResponseWriter(w)

		next.ServeHTTP(rec, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		m.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(rec.Status())).Inc()
		m.httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// LedgerEntry records one ledger row of qty units in direction
func (m *Metrics) LedgerEntry(direction string, qty int64) {
	if m == nil {
		return
	}
	m.ledgerEntries.WithLabelValues(direction).Inc()
	m.ledgerQuantity.WithLabelValues(direction).Add(float64(qty))
}

// InsufficientStock counts a rejected issue
func (m *Metrics) InsufficientStock() {
	if m == nil {
		return
	}
	m.insufficientStock.Inc()
}

// ResourceFrozen counts a write refused by the resource guard
func (m *Metrics) ResourceFrozen() {
	if m == nil {
		return
	}
	m.frozenRejections.Inc()
}

// OpnameDifference observes a stock count discrepancy
func (m *Metrics) OpnameDifference(diff int64) {
	if m == nil {
		return
	}
	m.opnameDifference.Observe(float64(diff))
}

// AlertCreated counts one new alert of kind
func (m *Metrics) AlertCreated(kind string) {
	if m == nil {
		return
	}
	m.alertsCreated.WithLabelValues(kind).Inc()
}

// SchedulerCycle observes the duration of one pass
func (m *Metrics) SchedulerCycle(d time.Duration) {
	if m == nil {
		return
	}
	m.cycleDuration.Observe(d.Seconds())
}

// TenantFailure counts a tenant skipped because of an error
func (m *Metrics) TenantFailure() {
	if m == nil {
		return
	}
	m.tenantFailures.Inc()
}

// DigestDispatched counts a hand-off attempt; result is "sent", "failed" or "skipped"
func (m *Metrics) DigestDispatched(result string) {
	if m == nil {
		return
	}
	m.digestDispatches.WithLabelValues(result).Inc()
}
