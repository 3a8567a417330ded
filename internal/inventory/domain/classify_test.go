package domain_test

import (
	"testing"
	"time"

	"github.com/stoklog/stoklog-backend/internal/inventory/domain"
	"github.com/stretchr/testify/assert"
)

func i64(v int64) *int64 { return &v }

func TestStockConditions(t *testing.T) {
	tests := []struct {
		name  string
		total int64
		min   *int64
		max   *int64
		want  []domain.AlertKind
	}{
		{"zero without thresholds", 0, nil, nil, []domain.AlertKind{domain.KindOutOfStock}},
		{"zero is not also low", 0, i64(5), nil, []domain.AlertKind{domain.KindOutOfStock}},
		{"at min is low", 5, i64(5), nil, []domain.AlertKind{domain.KindLowStock}},
		{"above min is fine", 6, i64(5), nil, nil},
		{"above max is overstock", 11, i64(2), i64(10), []domain.AlertKind{domain.KindOverstock}},
		{"at max is fine", 10, i64(2), i64(10), nil},
		{"zero max disables overstock", 50, nil, i64(0), nil},
		{"no thresholds", 7, nil, nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, domain.StockConditions(tt.total, tt.min, tt.max))
		})
	}
}

func TestExpiryCondition_Boundaries(t *testing.T) {
	today := time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		offset   int
		wantKind domain.AlertKind
		wantOK   bool
	}{
		{"expired yesterday", -1, domain.KindExpired, true},
		{"expires today", 0, domain.KindExpired, true},
		{"tomorrow", 1, domain.KindExpiringSoon, true},
		{"exactly 30 days", 30, domain.KindExpiringSoon, true},
		{"31 days", 31, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expiry := today.AddDate(0, 0, tt.offset)
			kind, days, ok := domain.ExpiryCondition(expiry, today, domain.DefaultExpiryWindowDays)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantKind, kind)
			assert.Equal(t, tt.offset, days)
		})
	}
}

func TestDaysUntil_IgnoresClock(t *testing.T) {
	jakarta := time.FixedZone("WIB", 7*60*60)
	// 23:30 local on Oct 15 is still Oct 15 for the operator
	now := time.Date(2026, 10, 15, 23, 30, 0, 0, jakarta)
	expiry := time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 1, domain.DaysUntil(expiry, now))
}

func TestNewOpname_Difference(t *testing.T) {
	assert.Equal(t, int64(-3), domain.NewOpname(10, 7).Difference)
	assert.Equal(t, int64(4), domain.NewOpname(0, 4).Difference)
	assert.Equal(t, int64(0), domain.NewOpname(9, 9).Difference)
}

func TestParseOpnamePolicy(t *testing.T) {
	p, ok := domain.ParseOpnamePolicy("")
	assert.True(t, ok)
	assert.Equal(t, domain.OpnameOverwrite, p)

	p, ok = domain.ParseOpnamePolicy("record_only")
	assert.True(t, ok)
	assert.Equal(t, domain.OpnameRecordOnly, p)

	_, ok = domain.ParseOpnamePolicy("merge")
	assert.False(t, ok)
}
