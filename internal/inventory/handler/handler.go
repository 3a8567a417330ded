// Package handler exposes the inventory core over REST for the presentation
// layer. Identity arrives as trusted headers, turned into a tenant.Scope by
// httputil.TenantMiddleware before any handler runs.
package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/stoklog/stoklog-backend/pkg/errors"
	"github.com/stoklog/stoklog-backend/pkg/httputil"
	"github.com/stoklog/stoklog-backend/pkg/tenant"
)

// scopeOf returns the request scope or writes the error response
func scopeOf(w http.ResponseWriter, r *http.Request) (tenant.Scope, bool) {
	scope, err := tenant.FromContext(r.Context())
	if err != nil {
		httputil.Error(w, r, errors.BadRequest(err.Error()))
		return tenant.Scope{}, false
	}
	return scope, true
}

// decode reads and validates a JSON body, writing the error response on failure
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := httputil.DecodeJSON(r, v); err != nil {
		httputil.Error(w, r, err)
		return false
	}
	if err := httputil.Validate(v); err != nil {
		httputil.Error(w, r, err)
		return false
	}
	return true
}

// queryInt64 parses an optional positive integer query parameter
func queryInt64(r *http.Request, name string) (*int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v <= 0 {
		return nil, errors.Validation(map[string]string{name: "must be a positive integer"})
	}
	return &v, nil
}

// queryDate parses an optional YYYY-MM-DD query parameter
func queryDate(r *http.Request, name string) (*time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	d, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, errors.Validation(map[string]string{name: "must be a date in YYYY-MM-DD format"})
	}
	return &d, nil
}

// Date is a calendar date carried as "YYYY-MM-DD" in JSON
type Date struct {
	time.Time
}

// UnmarshalJSON accepts "YYYY-MM-DD" and full RFC 3339 timestamps
func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		d.Time = t
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

// Ptr returns the date as *time.Time, nil for a nil Date
func (d *Date) Ptr() *time.Time {
	if d == nil {
		return nil
	}
	t := d.Time
	return &t
}
