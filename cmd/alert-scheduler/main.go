package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stoklog/stoklog-backend/internal/inventory/events"
	"github.com/stoklog/stoklog-backend/internal/inventory/repository"
	"github.com/stoklog/stoklog-backend/internal/inventory/service"
	"github.com/stoklog/stoklog-backend/pkg/config"
	"github.com/stoklog/stoklog-backend/pkg/database"
	"github.com/stoklog/stoklog-backend/pkg/httputil"
	"github.com/stoklog/stoklog-backend/pkg/lock"
	"github.com/stoklog/stoklog-backend/pkg/logger"
	"github.com/stoklog/stoklog-backend/pkg/messaging"
	"github.com/stoklog/stoklog-backend/pkg/metrics"
)

func main() {
	cfg, err := config.LoadWithValidation("alert-scheduler")
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	log := logger.New("alert-scheduler", cfg.Server.Environment)
	log.Info().Msg("starting Alert Scheduler")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	rmq, err := messaging.New(ctx, &cfg.RabbitMQ, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
	}
	defer rmq.Close()

	publisher, err := events.NewInventoryEventPublisher(rmq, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create event publisher")
	}
	digests, err := events.NewDigestSender(rmq, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create digest sender")
	}

	// Without Redis a single scheduler replica is assumed
	var locker lock.Locker = lock.Noop{}
	var rdb *redis.Client
	if cfg.Redis.Enabled() {
		rdb, err = lock.NewRedisClient(ctx, &cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to Redis")
		}
		defer rdb.Close()
		locker = lock.NewRedisLocker(rdb, "lock:")
	} else {
		log.Warn().Msg("redis not configured, tenant locks disabled")
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(cfg.Metrics.Namespace)
	}

	tenantRepo := repository.NewTenantRepository(db)
	warehouseRepo := repository.NewWarehouseRepository(db)
	itemRepo := repository.NewItemRepository(db)
	batchRepo := repository.NewBatchRepository(db)
	alertRepo := repository.NewAlertRepository(db)

	generator := service.NewAlertGenerator(db, warehouseRepo, itemRepo, batchRepo, alertRepo, publisher, m, log,
		service.GeneratorOptions{
			ExpiryWindowDays: cfg.Scheduler.ExpiryWindowDays,
			Location:         cfg.Scheduler.Location(),
		})

	scheduler, err := service.NewScheduler(tenantRepo, warehouseRepo, generator, digests, locker, m, log,
		service.SchedulerConfig{
			Interval:   cfg.Scheduler.Interval,
			DailyAt:    cfg.Scheduler.DailyAt,
			Location:   cfg.Scheduler.Location(),
			LockTTL:    cfg.Scheduler.LockTTL,
			RunOnStart: cfg.Scheduler.RunOnStart,
		})
	if err != nil {
		log.Fatal().Err(err).Msg("invalid scheduler configuration")
	}
	scheduler.Start(ctx)

	r := chi.NewRouter()
	r.Use(httputil.RequestID)
	r.Use(httputil.Recoverer(log))
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		status := map[string]any{
			"status":   "healthy",
			"service":  "alert-scheduler",
			"database": db.Health(r.Context()),
			"rabbitmq": rmq.Health(),
		}
		if rdb != nil {
			redisStatus := "healthy"
			if err := rdb.Ping(r.Context()).Err(); err != nil {
				redisStatus = "unhealthy"
			}
			status["redis"] = redisStatus
		}
		httputil.JSON(w, http.StatusOK, status)
	})
	if cfg.Metrics.Enabled {
		r.Handle(cfg.Metrics.Path, m.Handler())
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("health endpoint listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down scheduler")

	// Stop cancels the running cycle and waits for it
	scheduler.Stop()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("scheduler stopped")
}
