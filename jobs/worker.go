package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"

	"github.com/Nhan-Lam-SmartCare/MotocarePro-demo-sub000/internal/importer"
	jobmetrics "github.com/Nhan-Lam-SmartCare/MotocarePro-demo-sub000/internal/jobs"
	"github.com/Nhan-Lam-SmartCare/MotocarePro-demo-sub000/internal/inventory"
	"github.com/Nhan-Lam-SmartCare/MotocarePro-demo-sub000/internal/receipts"
)

// defaultLowStockThreshold applies when the scan payload carries none.
const defaultLowStockThreshold = 5

// Handlers bundles the services the task handlers call into.
type Handlers struct {
	Importer *importer.Service
	Receipts *receipts.Service
	Stock    LowStockLister
	Metrics  *jobmetrics.Metrics
	Logger   *slog.Logger
}

// LowStockLister reports branch stocks at or under a threshold.
type LowStockLister interface {
	ListLowStock(ctx context.Context, threshold int64) ([]inventory.LowStock, error)
}

// HandleImport processes TaskImportProcess tasks.
func (h *Handlers) HandleImport(ctx context.Context, t *asynq.Task) error {
	tracker := h.Metrics.Track(TaskImportProcess)
	var payload ImportPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return tracker.End(asynq.SkipRetry)
	}
	result, err := h.Importer.ImportFile(ctx, bytes.NewReader(payload.Data), payload.BranchID, payload.ActorID)
	if err != nil {
		h.Logger.Error("import task failed", slog.Any("error", err))
		return tracker.End(err)
	}
	h.Logger.Info("import task done",
		slog.Int("created", result.Created),
		slog.Int("updated", result.Updated),
		slog.Int("skipped", result.Skipped),
		slog.Int("failed", result.Failed))
	return tracker.End(nil)
}

// HandleBulkDelete processes TaskReceiptsBulkDelete tasks. Per-receipt
// failures are reported, not retried: the batch already ran to the end.
func (h *Handlers) HandleBulkDelete(ctx context.Context, t *asynq.Task) error {
	tracker := h.Metrics.Track(TaskReceiptsBulkDelete)
	var payload BulkDeletePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return tracker.End(asynq.SkipRetry)
	}
	results := h.Receipts.DeleteGroup(ctx, payload.IDs, payload.ActorID)
	deleted, failed := 0, 0
	for _, res := range results {
		if res.Deleted {
			deleted++
		} else {
			failed++
			h.Logger.Warn("receipt deletion failed",
				slog.Int64("receipt_id", res.ReceiptID), slog.String("error", res.Error))
		}
	}
	h.Logger.Info("bulk delete done", slog.Int("deleted", deleted), slog.Int("failed", failed))
	return tracker.End(nil)
}

// HandleLowStockScan processes TaskLowStockScan tasks.
func (h *Handlers) HandleLowStockScan(ctx context.Context, t *asynq.Task) error {
	tracker := h.Metrics.Track(TaskLowStockScan)
	var payload LowStockPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return tracker.End(asynq.SkipRetry)
	}
	threshold := payload.Threshold
	if threshold <= 0 {
		threshold = defaultLowStockThreshold
	}
	rows, err := h.Stock.ListLowStock(ctx, threshold)
	if err != nil {
		return tracker.End(err)
	}
	for _, row := range rows {
		h.Logger.Warn("low stock",
			slog.Int64("branch_id", row.BranchID),
			slog.Int64("part_id", row.PartID),
			slog.String("part", row.PartName),
			slog.Int64("qty", row.Qty))
	}
	h.Logger.Info("low stock scan done", slog.Int("parts", len(rows)), slog.Int64("threshold", threshold))
	return tracker.End(nil)
}

// Worker wraps the Asynq server and optional scheduler.
type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	scheduler *asynq.Scheduler
	logger    *slog.Logger
}

// CronRegistration wires a cron expression to a prepared task.
type CronRegistration struct {
	Spec    string
	Task    *asynq.Task
	Options []asynq.Option
}

// WorkerConfig collects dependencies required to bootstrap the worker.
type WorkerConfig struct {
	RedisOpts asynq.RedisClientOpt
	Logger    *slog.Logger
	Handlers  *Handlers
	Cron      []CronRegistration
}

// NewWorker constructs a Worker instance.
func NewWorker(cfg WorkerConfig) (*Worker, error) {
	srv := asynq.NewServer(cfg.RedisOpts, asynq.Config{
		Concurrency: 5,
		Queues: map[string]int{
			QueueDefault: 1,
		},
	})
	mux := asynq.NewServeMux()
	if cfg.Handlers != nil {
		mux.HandleFunc(TaskImportProcess, cfg.Handlers.HandleImport)
		mux.HandleFunc(TaskReceiptsBulkDelete, cfg.Handlers.HandleBulkDelete)
		mux.HandleFunc(TaskLowStockScan, cfg.Handlers.HandleLowStockScan)
	}

	var scheduler *asynq.Scheduler
	if len(cfg.Cron) > 0 {
		scheduler = asynq.NewScheduler(cfg.RedisOpts, &asynq.SchedulerOpts{Location: time.UTC})
		for _, entry := range cfg.Cron {
			if entry.Spec == "" || entry.Task == nil {
				continue
			}
			if _, err := scheduler.Register(entry.Spec, entry.Task, entry.Options...); err != nil {
				return nil, err
			}
		}
	}

	return &Worker{server: srv, mux: mux, scheduler: scheduler, logger: cfg.Logger}, nil
}

// Run starts processing jobs until context cancellation.
func (w *Worker) Run(ctx context.Context) error {
	if w == nil {
		return errors.New("worker: not configured")
	}
	if w.scheduler != nil {
		if err := w.scheduler.Start(); err != nil {
			return err
		}
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- w.server.Run(w.mux)
	}()
	select {
	case <-ctx.Done():
		if w.scheduler != nil {
			w.scheduler.Shutdown()
		}
		w.server.Shutdown()
		return ctx.Err()
	case err := <-errCh:
		if w.scheduler != nil {
			w.scheduler.Shutdown()
		}
		return err
	}
}

// Handler exposes HTTP endpoints for job observability.
type Handler struct {
	inspector *asynq.Inspector
	logger    *slog.Logger
}

// NewHandler constructs an HTTP handler for jobs endpoints.
func NewHandler(inspector *asynq.Inspector, logger *slog.Logger) *Handler {
	return &Handler{inspector: inspector, logger: logger}
}

// MountRoutes attaches job routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/health", h.health)
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if h.inspector == nil {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"queue":"default","pending":0}`))
		return
	}
	info, err := h.inspector.GetQueueInfo(QueueDefault)
	if err != nil {
		h.logger.Warn("jobs health", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	pending := 0
	queueName := QueueDefault
	if info != nil {
		pending = int(info.Pending)
		queueName = info.Queue
	}
	_, _ = w.Write([]byte(`{"queue":"` + queueName + `","pending":` + strconv.Itoa(pending) + `}`))
}
