package service

import "time"

// NextRun exposes the cadence calculation to tests
func (s *Scheduler) NextRun(now time.Time) time.Time {
	return s.nextRun(now)
}
