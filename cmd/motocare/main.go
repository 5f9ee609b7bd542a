package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/Nhan-Lam-SmartCare/MotocarePro-demo-sub000/internal/analytics"
	"github.com/Nhan-Lam-SmartCare/MotocarePro-demo-sub000/internal/app"
	"github.com/Nhan-Lam-SmartCare/MotocarePro-demo-sub000/internal/debts"
	"github.com/Nhan-Lam-SmartCare/MotocarePro-demo-sub000/internal/importer"
	"github.com/Nhan-Lam-SmartCare/MotocarePro-demo-sub000/internal/inventory"
	"github.com/Nhan-Lam-SmartCare/MotocarePro-demo-sub000/internal/masterdata"
	"github.com/Nhan-Lam-SmartCare/MotocarePro-demo-sub000/internal/observability"
	"github.com/Nhan-Lam-SmartCare/MotocarePro-demo-sub000/internal/platform/cache"
	"github.com/Nhan-Lam-SmartCare/MotocarePro-demo-sub000/internal/platform/db"
	"github.com/Nhan-Lam-SmartCare/MotocarePro-demo-sub000/internal/receipts"
	"github.com/Nhan-Lam-SmartCare/MotocarePro-demo-sub000/internal/sales"
	"github.com/Nhan-Lam-SmartCare/MotocarePro-demo-sub000/internal/shared"
	"github.com/Nhan-Lam-SmartCare/MotocarePro-demo-sub000/internal/workorders"
	"github.com/Nhan-Lam-SmartCare/MotocarePro-demo-sub000/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN, 0)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr, "", 0)
	if err != nil {
		logger.Warn("redis unavailable, analytics cache disabled", slog.Any("error", err))
		redisClient = nil
	}
	defer func() {
		if redisClient == nil {
			return
		}
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	auditLogger := shared.NewAuditLogger(dbpool)
	idempotencyStore := shared.NewIdempotencyStore(dbpool)
	ledger := inventory.NewLedger(metrics)

	masterdataRepo := masterdata.NewRepository(dbpool)
	masterdataService := masterdata.NewService(masterdataRepo, auditLogger)
	masterdataHandler := masterdata.NewHandler(masterdataService)

	inventoryRepo := inventory.NewRepository(dbpool)
	inventoryService := inventory.NewService(inventoryRepo, ledger, auditLogger)
	inventoryHandler := inventory.NewHandler(logger, inventoryService)

	debtsRepo := debts.NewRepository(dbpool)
	debtsService := debts.NewService(debtsRepo, auditLogger)
	debtsHandler := debts.NewHandler(debtsService)

	receiptsRepo := receipts.NewRepository(dbpool)
	receiptsService := receipts.NewService(receiptsRepo, ledger, auditLogger, debtsService, logger)

	importService := importer.NewService(masterdataService, inventoryRepo, ledger, logger)

	salesRepo := sales.NewRepository(dbpool)
	salesService := sales.NewService(salesRepo, ledger, auditLogger)
	salesHandler := sales.NewHandler(salesService)

	orderRepo := workorders.NewRepository(dbpool)
	orderService := workorders.NewService(orderRepo, ledger, auditLogger)
	orderHandler := workorders.NewHandler(orderService)

	analyticsRepo := analytics.NewRepository(dbpool)
	analyticsCache := analytics.NewCache(redisClient, cfg.AnalyticsCacheTTL)
	analyticsService := analytics.NewService(analyticsRepo, analyticsCache)
	analyticsHandler := analytics.NewHandler(analyticsService)

	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	receiptsHandler := receipts.NewHandler(receiptsService, jobClient, idempotencyStore)
	importHandler := importer.NewHandler(importService, jobClient)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		MasterDataHandler: masterdataHandler,
		InventoryHandler:  inventoryHandler,
		ReceiptsHandler:   receiptsHandler,
		DebtsHandler:      debtsHandler,
		ImportHandler:     importHandler,
		SalesHandler:      salesHandler,
		WorkOrderHandler:  orderHandler,
		AnalyticsHandler:  analyticsHandler,
		JobHandler:        jobHandler,
		Analytics:         analyticsService,
		Metrics:           metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
