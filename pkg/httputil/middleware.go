package httputil

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/stoklog/stoklog-backend/pkg/actor"
	"github.com/stoklog/stoklog-backend/pkg/errors"
	"github.com/stoklog/stoklog-backend/pkg/i18n"
	"github.com/stoklog/stoklog-backend/pkg/logger"
	"github.com/stoklog/stoklog-backend/pkg/tenant"
)

// Identity headers set by the upstream identity collaborator
const (
	HeaderTenantID    = "X-Tenant-ID"
	HeaderWarehouseID = "X-Warehouse-ID"
	HeaderUserID      = "X-User-ID"
	HeaderUserName    = "X-User-Name"
	HeaderUserRole    = "X-User-Role"
	HeaderRequestID   = "X-Request-ID"
)

type contextKey string

const RequestIDKey contextKey = "request_id"

// RequestID middleware adds a request ID to each request
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
		w.Header().Set(HeaderRequestID, requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Logger middleware logs HTTP requests
func Logger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := WrapResponseWriter(w)

			next.ServeHTTP(wrapped, r)

			log.WithRequestID(GetRequestID(r.Context())).
				WithUserID(r.Header.Get(HeaderUserID)).
				Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", wrapped.Status()).
				Dur("duration", time.Since(start)).
				Str("tenant_id", r.Header.Get(HeaderTenantID)).
				Str("remote_addr", r.RemoteAddr).
				Msg("HTTP request")
		})
	}
}

// Recoverer middleware recovers from panics
func Recoverer(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					log.Error().
						Interface("panic", rec).
						Str("path", r.URL.Path).
						Msg("panic recovered")

					Error(w, r, errors.Internal("panic recovered"))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// StatusRecorder captures the status code written by a handler
type StatusRecorder struct {
	http.ResponseWriter
	statusCode int
}

// WrapResponseWriter returns a recorder defaulting to 200
func WrapResponseWriter(w http.ResponseWriter) *StatusRecorder {
	return &StatusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *StatusRecorder) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Status returns the recorded status code
func (rw *StatusRecorder) Status() int {
	return rw.statusCode
}

// GetRequestID retrieves the request ID from context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

// TenantMiddleware turns the identity headers into an explicit tenant.Scope.
//
// Headers expected (set by the identity collaborator):
//   - X-Tenant-ID, X-Warehouse-ID: positive integers, both required
//   - X-User-ID, X-User-Name, X-User-Role: the acting user
//
// Missing or malformed tenant context returns 403 before any handler runs.
func TenantMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		scope, err := ScopeFromHeaders(r.Header)
		if err != nil {
			Error(w, r, &errors.AppError{
				Err:        err,
				Code:       "MISSING_SCOPE",
				Message:    i18n.T("errors.missing_scope"),
				MessageKey: "errors.missing_scope",
				StatusCode: http.StatusForbidden,
			})
			return
		}

		next.ServeHTTP(w, r.WithContext(tenant.WithScope(r.Context(), scope)))
	})
}

// ScopeFromHeaders parses the identity headers
func ScopeFromHeaders(h http.Header) (tenant.Scope, error) {
	tenantID, _ := strconv.ParseInt(h.Get(HeaderTenantID), 10, 64)
	warehouseID, _ := strconv.ParseInt(h.Get(HeaderWarehouseID), 10, 64)

	scope := tenant.Scope{
		TenantID:    tenantID,
		WarehouseID: warehouseID,
		Actor: actor.Actor{
			ID:   h.Get(HeaderUserID),
			Name: h.Get(HeaderUserName),
			Role: h.Get(HeaderUserRole),
		},
	}
	if err := scope.Validate(); err != nil {
		return tenant.Scope{}, err
	}
	return scope, nil
}
