package inventory

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Nhan-Lam-SmartCare/MotocarePro-demo-sub000/internal/platform/httpx"
)

// Handler wires HTTP endpoints for the inventory ledger.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the inventory handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// Routes registers inventory routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/transactions", h.handleHistory)
	r.Get("/stock", h.handleStock)
	r.Post("/adjustments", h.handleAdjustment)
}

type adjustmentRequest struct {
	BranchID int64  `json:"branch_id" validate:"required"`
	PartID   int64  `json:"part_id" validate:"required"`
	PartName string `json:"part_name"`
	Qty      int64  `json:"qty" validate:"required"`
	Note     string `json:"note"`
}

func (h *Handler) handleAdjustment(w http.ResponseWriter, r *http.Request) {
	var req adjustmentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := httpx.Validate(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	change, err := h.service.Adjust(r.Context(), AdjustmentInput{
		BranchID: req.BranchID,
		PartID:   req.PartID,
		PartName: req.PartName,
		Qty:      req.Qty,
		Note:     req.Note,
		ActorID:  actorID(r),
	})
	if err != nil {
		h.logger.Error("post adjustment failed", slog.Any("error", err))
		respondLedgerError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, change)
}

func (h *Handler) handleStock(w http.ResponseWriter, r *http.Request) {
	branchID, _ := strconv.ParseInt(r.URL.Query().Get("branch_id"), 10, 64)
	partID, _ := strconv.ParseInt(r.URL.Query().Get("part_id"), 10, 64)
	qty, err := h.service.GetStock(r.Context(), branchID, partID)
	if err != nil {
		h.logger.Error("get stock failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"branch_id": branchID, "part_id": partID, "qty": qty})
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := TransactionFilter{Type: TransactionType(q.Get("type"))}
	filter.BranchID, _ = strconv.ParseInt(q.Get("branch_id"), 10, 64)
	filter.PartID, _ = strconv.ParseInt(q.Get("part_id"), 10, 64)
	filter.ReceiptID, _ = strconv.ParseInt(q.Get("receipt_id"), 10, 64)
	if from := q.Get("from"); from != "" {
		if t, err := time.Parse("2006-01-02", from); err == nil {
			filter.From = t
		}
	}
	if to := q.Get("to"); to != "" {
		if t, err := time.Parse("2006-01-02", to); err == nil {
			// end of day
			filter.To = t.Add(24*time.Hour - time.Nanosecond)
		}
	}
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))
	txs, err := h.service.History(r.Context(), filter)
	if err != nil {
		h.logger.Error("list transactions failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"transactions": txs})
}

// respondLedgerError maps ledger failures, surfacing negative-stock
// rejections as 422 with the part named in the detail.
func respondLedgerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNegativeStock):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Không đủ tồn kho", err.Error())
	case errors.Is(err, ErrInvalidQuantity):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		httpx.RespondError(w, err)
	}
}

// actorID reads the acting user from the X-User-ID header set by the
// gateway; zero when absent.
func actorID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(r.Header.Get("X-User-ID"), 10, 64)
	return id
}
