package debts

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Nhan-Lam-SmartCare/MotocarePro-demo-sub000/internal/platform/httpx"
)

// Handler exposes supplier debt endpoints.
type Handler struct {
	svc *Service
}

// NewHandler builds Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Routes mounts debt routes.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/debts", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Get("/aging", h.aging)
		r.Get("/{id}", h.get)
		r.Post("/{id}/payments", h.settle)
	})
}

func respondDebtError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrAlreadySettled):
		httpx.Problem(w, http.StatusConflict, "Đã thanh toán đủ", err.Error())
	default:
		httpx.RespondError(w, err)
	}
}

type createRequest struct {
	SupplierID  int64      `json:"supplier_id"`
	ReceiptID   *int64     `json:"receipt_id"`
	Amount      float64    `json:"amount"`
	Description string     `json:"description"`
	DueAt       *time.Time `json:"due_at"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	d, err := h.svc.Create(r.Context(), CreateInput{
		SupplierID:  req.SupplierID,
		ReceiptID:   req.ReceiptID,
		Amount:      req.Amount,
		Description: req.Description,
		DueAt:       req.DueAt,
		ActorID:     actorID(r),
	})
	if err != nil {
		respondDebtError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, d)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid debt id")
		return
	}
	d, err := h.svc.Get(r.Context(), id)
	if err != nil {
		respondDebtError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, d)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	supplierID, _ := strconv.ParseInt(q.Get("supplier_id"), 10, 64)
	debts, total, err := h.svc.List(r.Context(), ListFilter{
		SupplierID: supplierID,
		Status:     Status(q.Get("status")),
		Page:       page,
		Limit:      limit,
	})
	if err != nil {
		respondDebtError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": debts, "total": total})
}

type settleRequest struct {
	Amount float64 `json:"amount"`
	Note   string  `json:"note"`
}

func (h *Handler) settle(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid debt id")
		return
	}
	var req settleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	d, err := h.svc.Settle(r.Context(), id, SettleInput{Amount: req.Amount, Note: req.Note, ActorID: actorID(r)})
	if err != nil {
		respondDebtError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, d)
}

func (h *Handler) aging(w http.ResponseWriter, r *http.Request) {
	asOf := time.Now().UTC()
	if v := r.URL.Query().Get("as_of"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			asOf = t
		}
	}
	report, err := h.svc.Aging(r.Context(), asOf)
	if err != nil {
		respondDebtError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func actorID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(r.Header.Get("X-User-ID"), 10, 64)
	return id
}
