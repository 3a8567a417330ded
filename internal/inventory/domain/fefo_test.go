package domain_test

import (
	"testing"
	"time"

	"github.com/stoklog/stoklog-backend/internal/inventory/domain"
	"github.com/stoklog/stoklog-backend/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

var base = time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)

func TestSortFEFO(t *testing.T) {
	batches := []domain.Batch{
		{ID: 1, ExpiryDate: nil, CreatedAt: base},
		{ID: 2, ExpiryDate: date(2026, 6, 1), CreatedAt: base.Add(2 * time.Hour)},
		{ID: 3, ExpiryDate: date(2026, 3, 1), CreatedAt: base},
		{ID: 4, ExpiryDate: date(2026, 6, 1), CreatedAt: base.Add(time.Hour)},
		{ID: 6, ExpiryDate: nil, CreatedAt: base.Add(-time.Hour)},
		{ID: 5, ExpiryDate: date(2026, 6, 1), CreatedAt: base.Add(time.Hour)},
	}

	domain.SortFEFO(batches)

	ids := make([]int64, len(batches))
	for i, b := range batches {
		ids[i] = b.ID
	}
	// expiry asc, then creation, then id; undated last
	assert.Equal(t, []int64{3, 4, 5, 2, 6, 1}, ids)
}

func abcBatches() []domain.Batch {
	day := time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)
	a := day.AddDate(0, 0, 10)
	b := day.AddDate(0, 0, 5)
	return []domain.Batch{
		{ID: 1, Quantity: 5, ExpiryDate: &a, CreatedAt: base},
		{ID: 2, Quantity: 5, ExpiryDate: &b, CreatedAt: base},
		{ID: 3, Quantity: 5, CreatedAt: base},
	}
}

func TestPlanDepletion_ExampleABC(t *testing.T) {
	t.Run("issue 8 drains B then part of A", func(t *testing.T) {
		plan, err := domain.PlanDepletion(abcBatches(), 8)
		require.NoError(t, err)

		assert.Equal(t, int64(15), plan.Available)
		assert.Equal(t, []domain.Allocation{
			{BatchID: 2, Take: 5, Left: 0, Snapshot: 10},
			{BatchID: 1, Take: 3, Left: 2, Snapshot: 7},
		}, plan.Allocations)
	})

	t.Run("issue 15 drains B, A, then C", func(t *testing.T) {
		plan, err := domain.PlanDepletion(abcBatches(), 15)
		require.NoError(t, err)

		assert.Equal(t, []domain.Allocation{
			{BatchID: 2, Take: 5, Left: 0, Snapshot: 10},
			{BatchID: 1, Take: 5, Left: 0, Snapshot: 5},
			{BatchID: 3, Take: 5, Left: 0, Snapshot: 0},
		}, plan.Allocations)
	})

	t.Run("input slice keeps caller order", func(t *testing.T) {
		batches := abcBatches()
		_, err := domain.PlanDepletion(batches, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(1), batches[0].ID)
	})
}

func TestPlanDepletion_SnapshotsNonIncreasing(t *testing.T) {
	batches := []domain.Batch{
		{ID: 1, Quantity: 3, ExpiryDate: date(2026, 2, 1), CreatedAt: base},
		{ID: 2, Quantity: 0, ExpiryDate: date(2026, 2, 2), CreatedAt: base},
		{ID: 3, Quantity: 4, ExpiryDate: date(2026, 2, 3), CreatedAt: base},
		{ID: 4, Quantity: 6, CreatedAt: base},
	}

	plan, err := domain.PlanDepletion(batches, 13)
	require.NoError(t, err)
	require.Len(t, plan.Allocations, 3, "empty batches are skipped")

	var taken int64
	prev := plan.Available
	for _, a := range plan.Allocations {
		assert.LessOrEqual(t, a.Snapshot, prev)
		assert.GreaterOrEqual(t, a.Left, int64(0))
		prev = a.Snapshot
		taken += a.Take
	}
	assert.Equal(t, int64(13), taken)
	assert.Equal(t, int64(0), plan.Allocations[2].Snapshot)
}

func TestPlanDepletion_Insufficient(t *testing.T) {
	batches := []domain.Batch{
		{ID: 1, Quantity: 4, CreatedAt: base},
		{ID: 2, Quantity: 3, CreatedAt: base},
	}

	plan, err := domain.PlanDepletion(batches, 8)
	require.Error(t, err)
	assert.Nil(t, plan)
	assert.True(t, errors.Is(err, errors.ErrInsufficientStock))

	var appErr *errors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "8", appErr.Details["requested"])
	assert.Equal(t, "7", appErr.Details["available"])
	assert.Equal(t, "1", appErr.Details["short"])
}

func TestPlanDepletion_InvalidQuantity(t *testing.T) {
	for _, qty := range []int64{0, -3} {
		_, err := domain.PlanDepletion(nil, qty)
		assert.True(t, errors.Is(err, errors.ErrValidation), "quantity %d", qty)
	}
}

func TestPlanDepletion_ExactTotal(t *testing.T) {
	batches := []domain.Batch{{ID: 1, Quantity: 5, CreatedAt: base}}

	plan, err := domain.PlanDepletion(batches, 5)
	require.NoError(t, err)
	require.Len(t, plan.Allocations, 1)
	assert.Equal(t, int64(0), plan.Allocations[0].Left)
	assert.Equal(t, int64(0), plan.Allocations[0].Snapshot)
}
