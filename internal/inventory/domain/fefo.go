package domain

import (
	"sort"

	"github.com/stoklog/stoklog-backend/pkg/errors"
)

// SortFEFO orders batches first-expired-first-out: expiry ascending with
// undated batches last, then creation time, then id.
func SortFEFO(batches []Batch) {
	sort.SliceStable(batches, func(i, j int) bool {
		return fefoLess(batches[i], batches[j])
	})
}

func fefoLess(a, b Batch) bool {
	switch {
	case a.ExpiryDate == nil && b.ExpiryDate != nil:
		return false
	case a.ExpiryDate != nil && b.ExpiryDate == nil:
		return true
	case a.ExpiryDate != nil && b.ExpiryDate != nil && !a.ExpiryDate.Equal(*b.ExpiryDate):
		return a.ExpiryDate.Before(*b.ExpiryDate)
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

// Allocation is the share of one issue taken from one batch
type Allocation struct {
	BatchID int64
	Take    int64
	// Left is the batch quantity after the decrement
	Left int64
	// Snapshot is the item total after this decrement
	Snapshot int64
}

// DepletionPlan is the full FEFO walk for one issue
type DepletionPlan struct {
	Requested   int64
	Available   int64
	Allocations []Allocation
}

// PlanDepletion walks batches in FEFO order taking min(remaining, quantity)
// from each non-empty batch. It fails with INSUFFICIENT_STOCK, and plans
// nothing, when the batches hold less than requested.
func PlanDepletion(batches []Batch, requested int64) (*DepletionPlan, error) {
	if requested <= 0 {
		return nil, errors.Validation(map[string]string{"quantity": "must be greater than 0"})
	}

	ordered := make([]Batch, len(batches))
	copy(ordered, batches)
	SortFEFO(ordered)

	var available int64
	for _, b := range ordered {
		available += b.Quantity
	}
	if available < requested {
		return nil, errors.InsufficientStock(requested, available)
	}

	plan := &DepletionPlan{Requested: requested, Available: available}
	remaining, total := requested, available
	for _, b := range ordered {
		if remaining == 0 {
			break
		}
		if b.Quantity <= 0 {
			continue
		}
		take := min(remaining, b.Quantity)
		remaining -= take
		total -= take
		plan.Allocations = append(plan.Allocations, Allocation{
			BatchID:  b.ID,
			Take:     take,
			Left:     b.Quantity - take,
			Snapshot: total,
		})
	}
	return plan, nil
}
