package domain

import (
	"time"
)

// DefaultExpiryWindowDays is the inclusive expiring-soon horizon
const DefaultExpiryWindowDays = 30

// StockConditions classifies an item total against its thresholds.
//
//	total == 0                      out_of_stock
//	min set and 0 < total <= min    low_stock
//	max set, max > 0, total > max   overstock
func StockConditions(total int64, minThreshold, maxThreshold *int64) []AlertKind {
	var kinds []AlertKind
	if total == 0 {
		kinds = append(kinds, KindOutOfStock)
	}
	if minThreshold != nil && total > 0 && total <= *minThreshold {
		kinds = append(kinds, KindLowStock)
	}
	if maxThreshold != nil && *maxThreshold > 0 && total > *maxThreshold {
		kinds = append(kinds, KindOverstock)
	}
	return kinds
}

// CivilDate drops the clock and zone from t, keeping its calendar date
// as seen in t's own location.
func CivilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysUntil counts calendar days from today to expiry. Both are reduced to
// calendar dates first so the result does not depend on the hour.
func DaysUntil(expiry, today time.Time) int {
	return int(CivilDate(expiry).Sub(CivilDate(today)).Hours() / 24)
}

// ExpiryCondition classifies a batch expiry date. days <= 0 is expired and
// 1..window is expiring_soon; the two never overlap.
func ExpiryCondition(expiry, today time.Time, window int) (AlertKind, int, bool) {
	days := DaysUntil(expiry, today)
	switch {
	case days <= 0:
		return KindExpired, days, true
	case days <= window:
		return KindExpiringSoon, days, true
	}
	return "", days, false
}
