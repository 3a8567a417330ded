// Package tenant carries the explicit operation scope handed to the core.
//
// Core operations take a Scope argument; the context helpers below exist only
// to move the Scope from HTTP middleware to the handler that calls the core.
package tenant

import (
	"context"
	"errors"
	"fmt"

	"github.com/stoklog/stoklog-backend/pkg/actor"
)

var (
	// ErrNoScopeInContext is returned when the identity middleware did not run
	ErrNoScopeInContext = errors.New("no scope in context")
)

// Scope identifies who is acting on which tenant and warehouse
type Scope struct {
	TenantID    int64       `json:"tenant_id"`
	WarehouseID int64       `json:"warehouse_id"`
	Actor       actor.Actor `json:"actor"`
}

// Validate checks that both identifiers are present
func (s Scope) Validate() error {
	if s.TenantID <= 0 {
		return fmt.Errorf("tenant id must be positive, got %d", s.TenantID)
	}
	if s.WarehouseID <= 0 {
		return fmt.Errorf("warehouse id must be positive, got %d", s.WarehouseID)
	}
	return nil
}

// System returns a scope for background work on one tenant's warehouse
func System(tenantID, warehouseID int64) Scope {
	return Scope{TenantID: tenantID, WarehouseID: warehouseID, Actor: actor.System()}
}

type scopeKey struct{}

// WithScope attaches the request scope to ctx
func WithScope(ctx context.Context, s Scope) context.Context {
	return context.WithValue(ctx, scopeKey{}, s)
}

// FromContext extracts the request scope.
// Returns ErrNoScopeInContext if the middleware did not set one.
func FromContext(ctx context.Context) (Scope, error) {
	s, ok := ctx.Value(scopeKey{}).(Scope)
	if !ok {
		return Scope{}, ErrNoScopeInContext
	}
	return s, nil
}
