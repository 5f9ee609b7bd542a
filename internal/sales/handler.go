package sales

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Nhan-Lam-SmartCare/MotocarePro-demo-sub000/internal/inventory"
	"github.com/Nhan-Lam-SmartCare/MotocarePro-demo-sub000/internal/platform/httpx"
)

// Handler exposes sales endpoints.
type Handler struct {
	svc *Service
}

// NewHandler builds Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Routes mounts sales routes.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/invoices", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Get("/{id}", h.get)
		r.Post("/{id}/void", h.void)
	})
}

func respondSalesError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, inventory.ErrNegativeStock):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Không đủ tồn kho", err.Error())
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrAlreadyVoid):
		httpx.Problem(w, http.StatusConflict, "Hóa đơn đã hủy", err.Error())
	case errors.Is(err, ErrEmptyLines), errors.Is(err, ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		httpx.RespondError(w, err)
	}
}

type createRequest struct {
	BranchID      int64       `json:"branch_id"`
	CustomerName  string      `json:"customer_name"`
	CustomerPhone string      `json:"customer_phone"`
	Note          string      `json:"note"`
	SoldAt        *time.Time  `json:"sold_at"`
	Lines         []LineInput `json:"lines"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	input := CreateInput{
		BranchID:      req.BranchID,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		Note:          req.Note,
		Lines:         req.Lines,
		ActorID:       actorID(r),
	}
	if req.SoldAt != nil {
		input.SoldAt = *req.SoldAt
	}
	inv, err := h.svc.Create(r.Context(), input)
	if err != nil {
		respondSalesError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, inv)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid invoice id")
		return
	}
	inv, err := h.svc.Get(r.Context(), id)
	if err != nil {
		respondSalesError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	branchID, _ := strconv.ParseInt(q.Get("branch_id"), 10, 64)
	filter := ListFilter{
		BranchID: branchID,
		Status:   Status(q.Get("status")),
		Page:     page,
		Limit:    limit,
	}
	if v := q.Get("from"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filter.From = t
		}
	}
	if v := q.Get("to"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filter.To = t
		}
	}
	invoices, total, err := h.svc.List(r.Context(), filter)
	if err != nil {
		respondSalesError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": invoices, "total": total})
}

func (h *Handler) void(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid invoice id")
		return
	}
	inv, err := h.svc.Void(r.Context(), id, actorID(r))
	if err != nil {
		respondSalesError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func actorID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(r.Header.Get("X-User-ID"), 10, 64)
	return id
}
