package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// AlertKind is the condition an alert reports
type AlertKind string

const (
	KindOutOfStock   AlertKind = "out_of_stock"
	KindLowStock     AlertKind = "low_stock"
	KindOverstock    AlertKind = "overstock"
	KindExpiringSoon AlertKind = "expiring_soon"
	KindExpired      AlertKind = "expired"
)

// AllKinds lists every kind in display order
var AllKinds = []AlertKind{KindOutOfStock, KindLowStock, KindOverstock, KindExpiringSoon, KindExpired}

// ParseAlertKind validates a kind string
func ParseAlertKind(s string) (AlertKind, bool) {
	for _, k := range AllKinds {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

// IsExpiry reports whether the kind belongs in the expiry digest
func (k AlertKind) IsExpiry() bool {
	return k == KindExpiringSoon || k == KindExpired
}

// AlertTarget is the entity an alert points at: ItemTarget or BatchTarget.
// The interface is sealed; no other implementations exist.
type AlertTarget interface {
	targetRef() (string, int64)
}

// ItemTarget points an alert at an item
type ItemTarget struct{ ID int64 }

// BatchTarget points an alert at a batch
type BatchTarget struct{ ID int64 }

func (t ItemTarget) targetRef() (string, int64)  { return "item", t.ID }
func (t BatchTarget) targetRef() (string, int64) { return "batch", t.ID }

// TargetRef returns the persisted (target_type, target_id) pair
func TargetRef(t AlertTarget) (string, int64) {
	return t.targetRef()
}

// ParseTarget rebuilds a target from its persisted pair
func ParseTarget(targetType string, id int64) (AlertTarget, error) {
	switch targetType {
	case "item":
		return ItemTarget{ID: id}, nil
	case "batch":
		return BatchTarget{ID: id}, nil
	}
	return nil, fmt.Errorf("unknown alert target type %q", targetType)
}

// CheckTarget verifies that a kind is raised against the right entity:
// stock kinds against items, expiry kinds against batches.
func CheckTarget(kind AlertKind, target AlertTarget) error {
	switch target.(type) {
	case ItemTarget:
		switch kind {
		case KindOutOfStock, KindLowStock, KindOverstock:
			return nil
		}
	case BatchTarget:
		switch kind {
		case KindExpiringSoon, KindExpired:
			return nil
		}
	}
	return fmt.Errorf("alert kind %s cannot target %T", kind, target)
}

// Alert is a derived, deduplicated fact about an item or batch
type Alert struct {
	ID          int64
	TenantID    int64
	WarehouseID int64
	Target      AlertTarget
	Kind        AlertKind
	Message     string
	CreatedAt   time.Time
	DismissedAt *time.Time
	DismissedBy *string
}

// Open reports whether the alert has not been dismissed
func (a *Alert) Open() bool {
	return a.DismissedAt == nil
}

// MarshalJSON flattens the target into target_type and target_id
func (a *Alert) MarshalJSON() ([]byte, error) {
	targetType, targetID := TargetRef(a.Target)
	return json.Marshal(struct {
		ID          int64      `json:"id"`
		TenantID    int64      `json:"tenant_id"`
		WarehouseID int64      `json:"warehouse_id"`
		TargetType  string     `json:"target_type"`
		TargetID    int64      `json:"target_id"`
		Kind        AlertKind  `json:"kind"`
		Message     string     `json:"message"`
		CreatedAt   time.Time  `json:"created_at"`
		DismissedAt *time.Time `json:"dismissed_at,omitempty"`
		DismissedBy *string    `json:"dismissed_by,omitempty"`
	}{a.ID, a.TenantID, a.WarehouseID, targetType, targetID, a.Kind, a.Message, a.CreatedAt, a.DismissedAt, a.DismissedBy})
}
