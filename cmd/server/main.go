package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	appcollection "github.com/debtdesk/backend/internal/application/collection"
	"github.com/debtdesk/backend/internal/domain/collection"
	"github.com/debtdesk/backend/internal/infrastructure/auth"
	"github.com/debtdesk/backend/internal/infrastructure/cache"
	"github.com/debtdesk/backend/internal/infrastructure/config"
	"github.com/debtdesk/backend/internal/infrastructure/logger"
	"github.com/debtdesk/backend/internal/infrastructure/persistence"
	"github.com/debtdesk/backend/internal/infrastructure/scheduler"
	"github.com/debtdesk/backend/internal/infrastructure/telemetry"
	"github.com/debtdesk/backend/internal/interfaces/http/handler"
	"github.com/debtdesk/backend/internal/interfaces/http/middleware"
	"github.com/debtdesk/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting debt collection ledger",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	ctx := context.Background()

	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}

	// Create GORM logger backed by zap
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Database.LogLevel),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh),
		logger.WithExpectedErrors(persistence.IsHandledError))

	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()

	dbTracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		DBSystem:        "postgresql",
	}, log)
	if err := dbTracing.Register(db.DB); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}
	log.Info("Database connected successfully")

	// The ingest guard is optional; without Redis it runs in memory for this process only
	storeFactory := cache.NewIdempotencyStoreFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(true),
	)
	ingestGuard, err := storeFactory.CreateStore(ctx)
	if err != nil {
		log.Fatal("Failed to create ingest guard store", zap.Error(err))
	}
	defer func() {
		if err := ingestGuard.Close(); err != nil {
			log.Error("Error closing ingest guard store", zap.Error(err))
		}
	}()

	ledgerMetrics, err := telemetry.NewLedgerMetrics(meterProvider.Meter("debtdesk/ledger"), log)
	if err != nil {
		log.Fatal("Failed to create ledger metrics", zap.Error(err))
	}

	// Initialize repositories
	customerRepo := persistence.NewGormCustomerRepository(db.DB)
	debtRepo := persistence.NewGormDebtRepository(db.DB)
	installmentRepo := persistence.NewGormInstallmentRepository(db.DB)
	paymentRepo := persistence.NewGormPaymentRepository(db.DB)
	allocationRepo := persistence.NewGormAllocationRepository(db.DB)
	txScope := persistence.NewGormTransactionScope(db.DB)

	serviceOpts := []appcollection.Option{
		appcollection.WithLogger(log),
		appcollection.WithRetryConfig(appcollection.RetryConfig{
			MaxRetries:      cfg.Ledger.MaxRetries,
			InitialInterval: cfg.Ledger.RetryInitialInterval,
			MaxInterval:     cfg.Ledger.RetryMaxInterval,
		}),
		appcollection.WithTxTimeout(cfg.Ledger.TxTimeout),
		appcollection.WithReversalPolicy(collection.ReversalStatusPolicy(cfg.Ledger.ReversalStatusPolicy)),
		appcollection.WithMetrics(ledgerMetrics),
	}

	// Initialize application services
	customerService := appcollection.NewCustomerService(customerRepo, debtRepo, installmentRepo, paymentRepo, serviceOpts...)
	debtService := appcollection.NewDebtService(customerRepo, debtRepo, installmentRepo, txScope, serviceOpts...).
		WithOverdueBatchSize(cfg.Scheduler.OverdueSweepBatch)
	paymentService := appcollection.NewPaymentService(customerRepo, debtRepo, paymentRepo, allocationRepo, txScope,
		append(serviceOpts, appcollection.WithIngestGuard(ingestGuard, cfg.Ledger.IngestGuardTTL))...)

	// Background overdue sweep
	sweeperCfg := scheduler.DefaultOverdueSweeperConfig()
	sweeperCfg.Enabled = cfg.Scheduler.OverdueSweepEnabled
	sweeperCfg.Interval = cfg.Scheduler.OverdueSweepInterval
	sweeper, err := scheduler.NewOverdueSweeper(debtService, sweeperCfg, log)
	if err != nil {
		log.Fatal("Failed to create overdue sweeper", zap.Error(err))
	}
	sweepCtx, stopSweeps := context.WithCancel(ctx)
	defer stopSweeps()
	if err := sweeper.Start(sweepCtx); err != nil {
		log.Fatal("Failed to start overdue sweeper", zap.Error(err))
	}

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine, err := router.NewEngine(router.EngineConfig{
		Logger:         log,
		MaxBodySize:    cfg.HTTP.MaxBodySize,
		TrustedProxies: cfg.HTTP.TrustedProxies,
		Tracing: middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     cfg.Telemetry.Enabled,
		},
		MeterProvider: meterProvider,
	})
	if err != nil {
		log.Fatal("Failed to build HTTP engine", zap.Error(err))
	}

	checks := map[string]handler.Pinger{"database": db}
	if p, ok := ingestGuard.(handler.Pinger); ok {
		checks["redis"] = p
	}
	handlers := router.Handlers{
		Customer: handler.NewCustomerHandler(customerService),
		Debt:     handler.NewDebtHandler(debtService),
		Payment:  handler.NewPaymentHandler(paymentService),
		Health:   handler.NewHealthHandler(checks),
	}
	if cfg.Auth.Enabled {
		handlers.Auth = middleware.BearerAuth(auth.NewJWTService(cfg.Auth))
	} else {
		log.Warn("API authentication disabled; every /api route is public")
	}
	router.RegisterCollectionRoutes(router.NewRouter(engine, router.WithAPIVersion("v1")), handlers)

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	stopSweeps()
	if err := sweeper.Stop(shutdownCtx); err != nil {
		log.Warn("Overdue sweeper did not stop cleanly", zap.Error(err))
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Warn("Meter provider shutdown failed", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Warn("Tracer provider shutdown failed", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
