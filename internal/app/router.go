package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/Nhan-Lam-SmartCare/MotocarePro-demo-sub000/internal/analytics"
	"github.com/Nhan-Lam-SmartCare/MotocarePro-demo-sub000/internal/debts"
	"github.com/Nhan-Lam-SmartCare/MotocarePro-demo-sub000/internal/importer"
	"github.com/Nhan-Lam-SmartCare/MotocarePro-demo-sub000/internal/inventory"
	"github.com/Nhan-Lam-SmartCare/MotocarePro-demo-sub000/internal/masterdata"
	"github.com/Nhan-Lam-SmartCare/MotocarePro-demo-sub000/internal/observability"
	"github.com/Nhan-Lam-SmartCare/MotocarePro-demo-sub000/internal/receipts"
	"github.com/Nhan-Lam-SmartCare/MotocarePro-demo-sub000/internal/sales"
	"github.com/Nhan-Lam-SmartCare/MotocarePro-demo-sub000/internal/workorders"
	"github.com/Nhan-Lam-SmartCare/MotocarePro-demo-sub000/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	MasterDataHandler *masterdata.Handler
	InventoryHandler  *inventory.Handler
	ReceiptsHandler   *receipts.Handler
	DebtsHandler      *debts.Handler
	ImportHandler     *importer.Handler
	SalesHandler      *sales.Handler
	WorkOrderHandler  *workorders.Handler
	AnalyticsHandler  *analytics.Handler
	JobHandler        *jobs.Handler
	Analytics         *analytics.Service
	Metrics           *observability.Metrics
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {
		if params.Analytics != nil {
			r.Use(cacheBumpMiddleware(params.Analytics, params.Logger))
		}
		if params.MasterDataHandler != nil {
			params.MasterDataHandler.Routes(r)
		}
		if params.InventoryHandler != nil {
			r.Route("/inventory", params.InventoryHandler.Routes)
		}
		if params.ReceiptsHandler != nil {
			params.ReceiptsHandler.Routes(r)
		}
		if params.DebtsHandler != nil {
			params.DebtsHandler.Routes(r)
		}
		if params.ImportHandler != nil {
			params.ImportHandler.Routes(r)
		}
		if params.SalesHandler != nil {
			params.SalesHandler.Routes(r)
		}
		if params.WorkOrderHandler != nil {
			params.WorkOrderHandler.Routes(r)
		}
		if params.AnalyticsHandler != nil {
			params.AnalyticsHandler.Routes(r)
		}
		if params.JobHandler != nil {
			r.Route("/jobs", params.JobHandler.MountRoutes)
		}
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}

// cacheBumpMiddleware bumps the analytics cache version after any successful
// mutating request. Every write path under /api/v1 can move stock, prices or
// debts, so the dashboards reload on the next read instead of tracking
// per-module invalidation rules.
func cacheBumpMiddleware(svc *analytics.Service, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			if ww.Status() < http.StatusBadRequest {
				go func() {
					ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
					defer cancel()
					if err := svc.InvalidateCache(ctx); err != nil && logger != nil {
						logger.Warn("analytics cache bump failed", slog.Any("error", err))
					}
				}()
			}
		})
	}
}
