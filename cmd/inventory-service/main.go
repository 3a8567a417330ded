package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/stoklog/stoklog-backend/internal/inventory/consumers"
	"github.com/stoklog/stoklog-backend/internal/inventory/domain"
	"github.com/stoklog/stoklog-backend/internal/inventory/events"
	"github.com/stoklog/stoklog-backend/internal/inventory/handler"
	"github.com/stoklog/stoklog-backend/internal/inventory/repository"
	"github.com/stoklog/stoklog-backend/internal/inventory/service"
	"github.com/stoklog/stoklog-backend/migrations"
	"github.com/stoklog/stoklog-backend/pkg/config"
	"github.com/stoklog/stoklog-backend/pkg/database"
	"github.com/stoklog/stoklog-backend/pkg/httputil"
	"github.com/stoklog/stoklog-backend/pkg/i18n"
	"github.com/stoklog/stoklog-backend/pkg/logger"
	"github.com/stoklog/stoklog-backend/pkg/messaging"
	"github.com/stoklog/stoklog-backend/pkg/metrics"
)

func main() {
	migrate := flag.Bool("migrate", false, "apply embedded migrations before serving")
	flag.Parse()

	// Load configuration with validation (fails fast in production if required config is missing)
	cfg, err := config.LoadWithValidation("inventory-service")
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	log := logger.New("inventory-service", cfg.Server.Environment)
	log.Info().Msg("starting Inventory Service")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	if *migrate {
		applied, err := migrations.Apply(ctx, db.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to apply migrations")
		}
		log.Info().Strs("applied", applied).Msg("migrations applied")
	}

	rmq, err := messaging.New(ctx, &cfg.RabbitMQ, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
	}
	defer rmq.Close()

	publisher, err := events.NewInventoryEventPublisher(rmq, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create event publisher")
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(cfg.Metrics.Namespace)
	}

	policy, _ := domain.ParseOpnamePolicy(cfg.Inventory.OpnamePolicy)

	// Repositories
	tenantRepo := repository.NewTenantRepository(db)
	warehouseRepo := repository.NewWarehouseRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	itemRepo := repository.NewItemRepository(db)
	batchRepo := repository.NewBatchRepository(db)
	ledgerRepo := repository.NewTransactionRepository(db)
	opnameRepo := repository.NewOpnameRepository(db)
	alertRepo := repository.NewAlertRepository(db)
	guard := repository.NewResourceGuard(db)

	// Services
	stockService := service.NewStockService(db, itemRepo, batchRepo, ledgerRepo, guard, publisher, m, log)
	itemService := service.NewItemService(itemRepo, batchRepo, categoryRepo, alertRepo, log)
	opnameService := service.NewOpnameService(db, itemRepo, batchRepo, opnameRepo, guard, policy, publisher, m, log)
	generator := service.NewAlertGenerator(db, warehouseRepo, itemRepo, batchRepo, alertRepo, publisher, m, log,
		service.GeneratorOptions{
			ExpiryWindowDays: cfg.Scheduler.ExpiryWindowDays,
			Location:         cfg.Scheduler.Location(),
		})

	handlers := &handler.Handlers{
		Items:  handler.NewItemHandler(itemService, log),
		Stock:  handler.NewStockHandler(stockService, log),
		Opname: handler.NewOpnameHandler(opnameService, log),
		Alerts: handler.NewAlertHandler(generator, log),
	}

	subscriptionConsumer, err := consumers.NewSubscriptionEventConsumer(rmq, warehouseRepo, tenantRepo, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create subscription event consumer")
	}
	if err := subscriptionConsumer.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start subscription event consumer")
	}

	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(httputil.RequestID)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))
	r.Use(m.Middleware)
	r.Use(i18n.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept", "Accept-Language", "Content-Type",
			httputil.HeaderRequestID, httputil.HeaderTenantID, httputil.HeaderWarehouseID,
			httputil.HeaderUserID, httputil.HeaderUserName, httputil.HeaderUserRole,
		},
		ExposedHeaders: []string{httputil.HeaderRequestID, "Content-Language"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]any{
			"status":        "healthy",
			"service":       "inventory-service",
			"database":      db.Health(r.Context()),
			"rabbitmq":      rmq.Health(),
			"opname_policy": opnameService.Policy(),
		})
	})
	if cfg.Metrics.Enabled {
		r.Handle(cfg.Metrics.Path, m.Handler())
	}

	r.Route("/api/v1/inventory", func(r chi.Router) {
		r.Use(httputil.TenantMiddleware)
		handlers.Routes(r)
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Str("addr", addr).Str("opname_policy", string(policy)).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Stop consumers before draining HTTP
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
