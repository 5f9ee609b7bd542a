package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Nhan-Lam-SmartCare/MotocarePro-demo-sub000/internal/app"
	"github.com/Nhan-Lam-SmartCare/MotocarePro-demo-sub000/internal/debts"
	"github.com/Nhan-Lam-SmartCare/MotocarePro-demo-sub000/internal/importer"
	"github.com/Nhan-Lam-SmartCare/MotocarePro-demo-sub000/internal/inventory"
	jobmetrics "github.com/Nhan-Lam-SmartCare/MotocarePro-demo-sub000/internal/jobs"
	"github.com/Nhan-Lam-SmartCare/MotocarePro-demo-sub000/internal/masterdata"
	"github.com/Nhan-Lam-SmartCare/MotocarePro-demo-sub000/internal/observability"
	"github.com/Nhan-Lam-SmartCare/MotocarePro-demo-sub000/internal/platform/db"
	"github.com/Nhan-Lam-SmartCare/MotocarePro-demo-sub000/internal/receipts"
	"github.com/Nhan-Lam-SmartCare/MotocarePro-demo-sub000/internal/shared"
	"github.com/Nhan-Lam-SmartCare/MotocarePro-demo-sub000/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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

	pool, err := db.New(ctx, cfg.PGDSN, 0)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	metrics := observability.NewMetrics()
	auditLogger := shared.NewAuditLogger(pool)
	ledger := inventory.NewLedger(metrics)

	masterdataRepo := masterdata.NewRepository(pool)
	masterdataService := masterdata.NewService(masterdataRepo, auditLogger)

	inventoryRepo := inventory.NewRepository(pool)

	debtsRepo := debts.NewRepository(pool)
	debtsService := debts.NewService(debtsRepo, auditLogger)

	receiptsRepo := receipts.NewRepository(pool)
	receiptsService := receipts.NewService(receiptsRepo, ledger, auditLogger, debtsService, logger)

	importService := importer.NewService(masterdataService, inventoryRepo, ledger, logger)

	lowStockTask, err := jobs.NewLowStockTask(jobs.LowStockPayload{Threshold: cfg.LowStockThreshold})
	if err != nil {
		logger.Error("build low stock task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: &jobs.Handlers{
			Importer: importService,
			Receipts: receiptsService,
			Stock:    inventoryRepo,
			Metrics:  jobmetrics.NewMetrics(prometheus.DefaultRegisterer),
			Logger:   logger,
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.LowStockCronSpec, Task: lowStockTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
