package receipts

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Nhan-Lam-SmartCare/MotocarePro-demo-sub000/internal/inventory"
	"github.com/Nhan-Lam-SmartCare/MotocarePro-demo-sub000/internal/platform/httpx"
	"github.com/Nhan-Lam-SmartCare/MotocarePro-demo-sub000/internal/shared"
)

// inlineDeleteLimit is the largest batch handled synchronously; bigger
// batches go through the job queue.
const inlineDeleteLimit = 20

// BulkDeleteEnqueuer queues a bulk receipt deletion task.
type BulkDeleteEnqueuer interface {
	EnqueueBulkDelete(ctx context.Context, ids []int64, actorID int64) (string, error)
}

// IdempotencyPort guards retried create requests. A replayed key must not
// post stock a second time.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
}

// Handler exposes goods receipt endpoints.
type Handler struct {
	svc  *Service
	jobs BulkDeleteEnqueuer
	idem IdempotencyPort
}

// NewHandler builds Handler. jobs may be nil; bulk requests then run inline.
// idem may be nil; creates then skip the idempotency check.
func NewHandler(svc *Service, jobs BulkDeleteEnqueuer, idem IdempotencyPort) *Handler {
	return &Handler{svc: svc, jobs: jobs, idem: idem}
}

// Routes mounts receipt routes.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/receipts", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Get("/{id}", h.get)
		r.Put("/{id}", h.edit)
		r.Delete("/{id}", h.deleteOne)
		r.Post("/bulk-delete", h.bulkDelete)
	})
}

func respondReceiptError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, inventory.ErrNegativeStock):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Không đủ tồn kho", err.Error())
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrEmptyLines), errors.Is(err, ErrValidation), errors.Is(err, ErrLineMismatch):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		httpx.RespondError(w, err)
	}
}

type createRequest struct {
	SupplierID int64       `json:"supplier_id"`
	BranchID   int64       `json:"branch_id"`
	ReceivedAt *time.Time  `json:"received_at"`
	Note       string      `json:"note"`
	Lines      []LineInput `json:"lines"`
	PaidAmount float64     `json:"paid_amount"`
	RecordDebt bool        `json:"record_debt"`
	DebtDueAt  *time.Time  `json:"debt_due_at"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if key := r.Header.Get("X-Idempotency-Key"); key != "" && h.idem != nil {
		if err := h.idem.CheckAndInsert(r.Context(), key, "receipts"); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				httpx.Problem(w, http.StatusConflict, "Duplicate Request", "phiếu nhập đã được xử lý")
				return
			}
			httpx.RespondError(w, err)
			return
		}
	}
	input := CreateInput{
		SupplierID: req.SupplierID,
		BranchID:   req.BranchID,
		Note:       req.Note,
		Lines:      req.Lines,
		PaidAmount: req.PaidAmount,
		RecordDebt: req.RecordDebt,
		ActorID:    actorID(r),
	}
	if req.ReceivedAt != nil {
		input.ReceivedAt = *req.ReceivedAt
	}
	if req.DebtDueAt != nil {
		input.DebtDueAt = *req.DebtDueAt
	}
	rc, err := h.svc.Create(r.Context(), input)
	if err != nil {
		respondReceiptError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, rc)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid receipt id")
		return
	}
	rc, err := h.svc.Get(r.Context(), id)
	if err != nil {
		respondReceiptError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rc)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	branchID, _ := strconv.ParseInt(q.Get("branch_id"), 10, 64)
	supplierID, _ := strconv.ParseInt(q.Get("supplier_id"), 10, 64)
	filter := ListFilter{
		BranchID:   branchID,
		SupplierID: supplierID,
		Search:     q.Get("search"),
		Page:       page,
		Limit:      limit,
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
	receipts, total, err := h.svc.List(r.Context(), filter)
	if err != nil {
		respondReceiptError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": receipts, "total": total})
}

type editRequest struct {
	Note  string      `json:"note"`
	Lines []LineInput `json:"lines"`
}

func (h *Handler) edit(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid receipt id")
		return
	}
	var req editRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	rc, err := h.svc.Edit(r.Context(), id, EditInput{Lines: req.Lines, Note: req.Note, ActorID: actorID(r)})
	if err != nil {
		respondReceiptError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rc)
}

func (h *Handler) deleteOne(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid receipt id")
		return
	}
	results := h.svc.DeleteGroup(r.Context(), []int64{id}, actorID(r))
	res := results[0]
	if res.Error != "" {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Delete Failed", res.Error)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

type bulkDeleteRequest struct {
	IDs []int64 `json:"ids"`
}

func (h *Handler) bulkDelete(w http.ResponseWriter, r *http.Request) {
	var req bulkDeleteRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if len(req.IDs) == 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "ids required")
		return
	}
	if h.jobs != nil && len(req.IDs) > inlineDeleteLimit {
		taskID, err := h.jobs.EnqueueBulkDelete(r.Context(), req.IDs, actorID(r))
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		httpx.JSON(w, http.StatusAccepted, map[string]any{"task_id": taskID, "queued": len(req.IDs)})
		return
	}
	results := h.svc.DeleteGroup(r.Context(), req.IDs, actorID(r))
	httpx.JSON(w, http.StatusOK, map[string]any{"results": results})
}

func idParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func actorID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(r.Header.Get("X-User-ID"), 10, 64)
	return id
}
