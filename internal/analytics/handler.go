package analytics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Nhan-Lam-SmartCare/MotocarePro-demo-sub000/internal/platform/httpx"
)

// Handler exposes the dashboard endpoints.
type Handler struct {
	svc *Service
}

// NewHandler builds Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Routes mounts analytics routes.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/analytics", func(r chi.Router) {
		r.Get("/summary", h.summary)
		r.Get("/revenue", h.revenue)
		r.Get("/valuation", h.valuation)
		r.Get("/top-parts", h.topParts)
	})
}

// rangeParams parses from/to dates, defaulting to the last 30 days.
func rangeParams(r *http.Request) (time.Time, time.Time) {
	now := time.Now().UTC()
	from := now.AddDate(0, 0, -30)
	to := now.AddDate(0, 0, 1)
	q := r.URL.Query()
	if v := q.Get("from"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			from = t
		}
	}
	if v := q.Get("to"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			to = t.AddDate(0, 0, 1) // inclusive end date
		}
	}
	return from, to
}

func branchParam(r *http.Request) int64 {
	id, _ := strconv.ParseInt(r.URL.Query().Get("branch_id"), 10, 64)
	return id
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	from, to := rangeParams(r)
	sum, err := h.svc.Summarize(r.Context(), branchParam(r), from, to)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sum)
}

func (h *Handler) revenue(w http.ResponseWriter, r *http.Request) {
	from, to := rangeParams(r)
	report, err := h.svc.Revenue(r.Context(), branchParam(r), from, to)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) valuation(w http.ResponseWriter, r *http.Request) {
	rows, err := h.svc.Valuation(r.Context(), branchParam(r))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": rows})
}

func (h *Handler) topParts(w http.ResponseWriter, r *http.Request) {
	from, to := rangeParams(r)
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	parts, err := h.svc.TopParts(r.Context(), branchParam(r), from, to, limit)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": parts})
}
