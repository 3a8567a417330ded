package service

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/stoklog/stoklog-backend/internal/inventory/domain"
	"github.com/stoklog/stoklog-backend/internal/inventory/events"
	"github.com/stoklog/stoklog-backend/pkg/errors"
	"github.com/stoklog/stoklog-backend/pkg/lock"
	"github.com/stoklog/stoklog-backend/pkg/logger"
	"github.com/stoklog/stoklog-backend/pkg/metrics"
)

// TenantLister lists the tenants a cycle visits.
// *repository.TenantRepository implements it.
type TenantLister interface {
	ListActive(ctx context.Context) ([]*domain.Tenant, error)
}

// WarehouseLister names the warehouses in a digest.
// *repository.WarehouseRepository implements it.
type WarehouseLister interface {
	ListActive(ctx context.Context, tenantID int64) ([]*domain.Warehouse, error)
}

// Generator creates the alerts of one tenant. *AlertGenerator implements it.
type Generator interface {
	Generate(ctx context.Context, tenantID int64) ([]*domain.Alert, error)
}

// DigestSender hands a digest to the mail collaborator.
// *events.DigestSender implements it.
type DigestSender interface {
	Send(ctx context.Context, d events.Digest) error
}

// SchedulerConfig sets the cadence of the driver
type SchedulerConfig struct {
	// Interval between cycles; ignored when DailyAt is set
	Interval time.Duration
	// DailyAt is a wall-clock "HH:MM" in Location
	DailyAt  string
	Location *time.Location
	// LockTTL bounds how long one replica owns a tenant
	LockTTL    time.Duration
	RunOnStart bool
	Locale     string
}

// CycleReport summarizes one pass over all tenants
type CycleReport struct {
	Tenants       int
	AlertsCreated int
	DigestsSent   int
	Skipped       int
	Failed        int
}

// Scheduler runs alert generation periodically across all active tenants
// and sends each tenant at most one expiry digest per cycle.
type Scheduler struct {
	tenants    TenantLister
	warehouses WarehouseLister
	generator  Generator
	sender     DigestSender
	locker     lock.Locker
	metrics    *metrics.Metrics
	logger     *logger.Logger
	cfg        SchedulerConfig
	now        func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewScheduler creates a new scheduler. A nil locker disables locking.
func NewScheduler(
	tenants TenantLister,
	warehouses WarehouseLister,
	generator Generator,
	sender DigestSender,
	locker lock.Locker,
	m *metrics.Metrics,
	log *logger.Logger,
	cfg SchedulerConfig,
) (*Scheduler, error) {
	if cfg.DailyAt != "" {
		if _, err := time.Parse("15:04", cfg.DailyAt); err != nil {
			return nil, fmt.Errorf("invalid daily_at %q: %w", cfg.DailyAt, err)
		}
	} else if cfg.Interval <= 0 {
		return nil, fmt.Errorf("interval must be positive, got %s", cfg.Interval)
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 10 * time.Minute
	}
	if locker == nil {
		locker = lock.Noop{}
	}

	return &Scheduler{
		tenants:    tenants,
		warehouses: warehouses,
		generator:  generator,
		sender:     sender,
		locker:     locker,
		metrics:    m,
		logger:     log.WithComponent("scheduler"),
		cfg:        cfg,
		now:        time.Now,
	}, nil
}

// SetClock replaces the clock used to compute the next run
func (s *Scheduler) SetClock(now func() time.Time) {
	s.now = now
}

// Start starts the scheduler in a background goroutine
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		s.logger.Info().
			Dur("interval", s.cfg.Interval).
			Str("daily_at", s.cfg.DailyAt).
			Str("timezone", s.cfg.Location.String()).
			Msg("alert scheduler started")

		if s.cfg.RunOnStart {
			s.RunOnce(ctx)
		}

		for {
			next := s.nextRun(s.now())
			timer := time.NewTimer(next.Sub(s.now()))

			select {
			case <-ctx.Done():
				timer.Stop()
				s.logger.Info().Msg("alert scheduler stopped")
				return
			case <-timer.C:
				s.RunOnce(ctx)
			}
		}
	}()
}

// Stop stops the scheduler goroutine and waits for an in-flight cycle
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// nextRun returns when the cycle after now should start
func (s *Scheduler) nextRun(now time.Time) time.Time {
	if s.cfg.DailyAt == "" {
		return now.Add(s.cfg.Interval)
	}

	at, _ := time.Parse("15:04", s.cfg.DailyAt)
	local := now.In(s.cfg.Location)
	next := time.Date(local.Year(), local.Month(), local.Day(), at.Hour(), at.Minute(), 0, 0, s.cfg.Location)
	if !next.After(local) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, at.Hour(), at.Minute(), 0, 0, s.cfg.Location)
	}
	return next
}

// RunOnce runs one cycle over all active tenants. A failing tenant is
// logged and counted; the remaining tenants still run.
func (s *Scheduler) RunOnce(ctx context.Context) CycleReport {
	start := time.Now()
	var report CycleReport
	s.logger.Info().Msg("starting alert generation cycle")

	tenants, err := s.tenants.ListActive(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to query active tenants")
		s.metrics.SchedulerCycle(time.Since(start))
		return report
	}
	report.Tenants = len(tenants)

	for _, t := range tenants {
		if ctx.Err() != nil {
			break
		}

		created, sent, err := s.runTenant(ctx, t)
		report.AlertsCreated += created
		switch {
		case errors.Is(err, lock.ErrNotAcquired):
			report.Skipped++
			s.logger.WithTenant(t.ID).Debug().Msg("tenant locked by another replica")
		case err != nil:
			report.Failed++
			s.metrics.TenantFailure()
			s.logger.WithTenant(t.ID).Error().Err(err).Msg("alert cycle failed for tenant")
		}
		if sent {
			report.DigestsSent++
		}
	}

	s.metrics.SchedulerCycle(time.Since(start))
	s.logger.Info().
		Dur("duration", time.Since(start)).
		Int("tenant_count", report.Tenants).
		Int("alerts_created", report.AlertsCreated).
		Int("digests_sent", report.DigestsSent).
		Int("failed", report.Failed).
		Msg("alert generation cycle completed")

	return report
}

// runTenant generates and dispatches for one tenant. Alerts created before a
// partial generation failure are still sent; the failure is returned after.
func (s *Scheduler) runTenant(ctx context.Context, t *domain.Tenant) (created int, sent bool, err error) {
	log := s.logger.WithTenant(t.ID)
	release, err := s.locker.Acquire(ctx, "alerts:"+strconv.FormatInt(t.ID, 10), s.cfg.LockTTL)
	if err != nil {
		return 0, false, err
	}
	defer func() {
		if rerr := release(context.WithoutCancel(ctx)); rerr != nil {
			log.Warn().Err(rerr).Msg("failed to release tenant lock")
		}
	}()

	alerts, genErr := s.generator.Generate(ctx, t.ID)
	created = len(alerts)

	expiry := ExpiryAlerts(alerts)
	if len(expiry) == 0 {
		s.metrics.DigestDispatched("skipped")
		return created, false, genErr
	}

	if err := s.dispatch(ctx, t, expiry); err != nil {
		s.metrics.DigestDispatched("failed")
		return created, false, errors.Join(genErr, err)
	}
	s.metrics.DigestDispatched("sent")
	return created, true, genErr
}

func (s *Scheduler) dispatch(ctx context.Context, t *domain.Tenant, alerts []*domain.Alert) error {
	names := make(map[int64]string)
	if s.warehouses != nil {
		warehouses, err := s.warehouses.ListActive(ctx, t.ID)
		if err != nil {
			s.logger.WithTenant(t.ID).Warn().Err(err).Msg("failed to load warehouse names for digest")
		}
		for _, w := range warehouses {
			names[w.ID] = w.Name
		}
	}

	digest, err := RenderDigest(s.cfg.Locale, t, names, alerts)
	if err != nil {
		return err
	}
	return s.sender.Send(ctx, digest)
}
