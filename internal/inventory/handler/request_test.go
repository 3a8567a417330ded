package handler_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stoklog/stoklog-backend/pkg/actor"
	"github.com/stoklog/stoklog-backend/pkg/errors"
	"github.com/stoklog/stoklog-backend/pkg/tenant"
	"github.com/stoklog/stoklog-backend/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These cases are rejected before any storage access, so the services run
// without a database.

var operator = tenant.Scope{
	TenantID:    1,
	WarehouseID: 1,
	Actor:       actor.Actor{ID: "user-1", Name: "Operator"},
}

func TestRoutes_MissingScope(t *testing.T) {
	router := newRouter(newHandlers(nil))

	tests := []struct {
		name    string
		headers map[string]string
	}{
		{name: "no headers"},
		{name: "tenant only", headers: map[string]string{"X-Tenant-ID": "1"}},
		{name: "non-numeric warehouse", headers: map[string]string{"X-Tenant-ID": "1", "X-Warehouse-ID": "main"}},
		{name: "zero tenant", headers: map[string]string{"X-Tenant-ID": "0", "X-Warehouse-ID": "1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.NewHTTPRequest(http.MethodGet, "/items", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			rr := testutil.ExecuteRequest(router, req)

			testutil.AssertStatus(t, rr, http.StatusForbidden)
			testutil.AssertBodyContains(t, rr, "MISSING_SCOPE")
		})
	}
}

func TestRoutes_RejectsBadInput(t *testing.T) {
	router := newRouter(newHandlers(nil))

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		code   string
		field  string
	}{
		{
			name: "unknown field", method: http.MethodPost, path: "/stock/out",
			body: map[string]any{"item_id": 1, "quantity": 1, "qty": 2},
			code: errors.CodeBadRequest,
		},
		{
			name: "zero quantity", method: http.MethodPost, path: "/stock/out",
			body: map[string]any{"item_id": 1, "quantity": 0},
			code: errors.CodeValidation, field: "quantity",
		},
		{
			name: "negative receipt", method: http.MethodPost, path: "/stock/in",
			body: map[string]any{"item_id": 1, "quantity": -3},
			code: errors.CodeValidation, field: "quantity",
		},
		{
			name: "malformed expiry", method: http.MethodPost, path: "/stock/in",
			body: map[string]any{"item_id": 1, "quantity": 3, "expiry_date": "31/01/2027"},
			code: errors.CodeBadRequest,
		},
		{
			name: "missing physical quantity", method: http.MethodPost, path: "/opnames",
			body: map[string]any{"item_id": 1, "batch_id": 1},
			code: errors.CodeValidation, field: "physical_quantity",
		},
		{
			name: "negative physical quantity", method: http.MethodPost, path: "/opnames",
			body: map[string]any{"item_id": 1, "batch_id": 1, "physical_quantity": -1},
			code: errors.CodeValidation, field: "physical_quantity",
		},
		{
			name: "item without name", method: http.MethodPost, path: "/items",
			body: map[string]any{"unit": "pcs"},
			code: errors.CodeValidation, field: "name",
		},
		{
			name: "zero max below min", method: http.MethodPost, path: "/items",
			body: map[string]any{"name": "Gula", "unit": "kg", "min_threshold": 5, "max_threshold": 0},
			code: errors.CodeValidation, field: "max_threshold",
		},
		{
			name: "dismiss without target", method: http.MethodPost, path: "/alerts/dismiss",
			body: map[string]any{},
			code: errors.CodeValidation,
		},
		{
			name: "non-numeric id", method: http.MethodGet, path: "/transactions/abc",
			code: errors.CodeValidation, field: "id",
		},
		{
			name: "bad direction filter", method: http.MethodGet, path: "/transactions?direction=SIDEWAYS",
			code: errors.CodeValidation, field: "direction",
		},
		{
			name: "bad date filter", method: http.MethodGet, path: "/transactions?from=yesterday",
			code: errors.CodeValidation, field: "from",
		},
		{
			name: "unknown alert kind", method: http.MethodGet, path: "/alerts?kind=BROKEN",
			code: errors.CodeValidation, field: "kind",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr, env := call(t, router, operator, tt.method, tt.path, tt.body)

			testutil.AssertStatus(t, rr, http.StatusBadRequest)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.code, env.Error.Code)
			if tt.field != "" {
				assert.Contains(t, env.Error.Details, tt.field)
			}
		})
	}
}

func TestRoutes_MalformedJSON(t *testing.T) {
	router := newRouter(newHandlers(nil))

	req := httptest.NewRequest(http.MethodPost, "/stock/in", strings.NewReader(`{"item_id": 1, "quantity": `))
	req.Header.Set("Content-Type", "application/json")
	rr := testutil.ExecuteRequest(router, testutil.WithScopeHeaders(req, operator))

	testutil.AssertStatus(t, rr, http.StatusBadRequest)
	testutil.AssertBodyContains(t, rr, errors.CodeBadRequest)
}
