package masterdata

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Nhan-Lam-SmartCare/MotocarePro-demo-sub000/internal/platform/httpx"
)

// Handler exposes master data endpoints.
type Handler struct {
	svc *Service
}

// NewHandler builds Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Routes mounts master data routes.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/branches", func(r chi.Router) {
		r.Get("/", h.listBranches)
		r.Post("/", h.createBranch)
		r.Get("/{id}", h.getBranch)
	})
	r.Route("/suppliers", func(r chi.Router) {
		r.Get("/", h.listSuppliers)
		r.Post("/", h.createSupplier)
		r.Get("/{id}", h.getSupplier)
		r.Put("/{id}", h.updateSupplier)
	})
	r.Route("/parts", func(r chi.Router) {
		r.Get("/", h.listParts)
		r.Post("/", h.createPart)
		r.Get("/{id}", h.getPart)
		r.Put("/{id}", h.updatePart)
		r.Put("/{id}/prices", h.updatePrices)
	})
}

func respondMasterdataError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrDuplicateSKU):
		httpx.Problem(w, http.StatusConflict, "Duplicate SKU", err.Error())
	case errors.Is(err, ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		httpx.RespondError(w, err)
	}
}

func idParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func parseListFilters(r *http.Request) ListFilters {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	branchID, _ := strconv.ParseInt(q.Get("branch_id"), 10, 64)
	f := ListFilters{
		Page:     page,
		Limit:    limit,
		Search:   q.Get("search"),
		Category: q.Get("category"),
		BranchID: branchID,
	}
	if v := q.Get("is_active"); v != "" {
		active := v == "true" || v == "1"
		f.IsActive = &active
	}
	return f
}

func (h *Handler) listBranches(w http.ResponseWriter, r *http.Request) {
	branches, err := h.svc.ListBranches(r.Context())
	if err != nil {
		respondMasterdataError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": branches})
}

func (h *Handler) getBranch(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid branch id")
		return
	}
	branch, err := h.svc.GetBranch(r.Context(), id)
	if err != nil {
		respondMasterdataError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, branch)
}

func (h *Handler) createBranch(w http.ResponseWriter, r *http.Request) {
	var b Branch
	if err := httpx.DecodeJSON(r, &b); err != nil {
		httpx.RespondError(w, err)
		return
	}
	created, err := h.svc.CreateBranch(r.Context(), b)
	if err != nil {
		respondMasterdataError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) listSuppliers(w http.ResponseWriter, r *http.Request) {
	filters := parseListFilters(r)
	suppliers, total, err := h.svc.ListSuppliers(r.Context(), filters)
	if err != nil {
		respondMasterdataError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": suppliers, "total": total})
}

func (h *Handler) getSupplier(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid supplier id")
		return
	}
	supplier, err := h.svc.GetSupplier(r.Context(), id)
	if err != nil {
		respondMasterdataError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, supplier)
}

func (h *Handler) createSupplier(w http.ResponseWriter, r *http.Request) {
	var s Supplier
	if err := httpx.DecodeJSON(r, &s); err != nil {
		httpx.RespondError(w, err)
		return
	}
	created, err := h.svc.CreateSupplier(r.Context(), s)
	if err != nil {
		respondMasterdataError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) updateSupplier(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid supplier id")
		return
	}
	var s Supplier
	if err := httpx.DecodeJSON(r, &s); err != nil {
		httpx.RespondError(w, err)
		return
	}
	updated, err := h.svc.UpdateSupplier(r.Context(), id, s)
	if err != nil {
		respondMasterdataError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *Handler) listParts(w http.ResponseWriter, r *http.Request) {
	filters := parseListFilters(r)
	parts, total, err := h.svc.ListParts(r.Context(), filters)
	if err != nil {
		respondMasterdataError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": parts, "total": total})
}

func (h *Handler) getPart(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid part id")
		return
	}
	part, err := h.svc.GetPartWithStock(r.Context(), id)
	if err != nil {
		respondMasterdataError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, part)
}

func (h *Handler) createPart(w http.ResponseWriter, r *http.Request) {
	var p Part
	if err := httpx.DecodeJSON(r, &p); err != nil {
		httpx.RespondError(w, err)
		return
	}
	created, err := h.svc.CreatePart(r.Context(), p, actorID(r))
	if err != nil {
		respondMasterdataError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) updatePart(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid part id")
		return
	}
	var p Part
	if err := httpx.DecodeJSON(r, &p); err != nil {
		httpx.RespondError(w, err)
		return
	}
	updated, err := h.svc.UpdatePart(r.Context(), id, p)
	if err != nil {
		respondMasterdataError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

type priceUpdateRequest struct {
	BranchID       int64    `json:"branch_id"`
	CostPrice      *float64 `json:"cost_price"`
	RetailPrice    *float64 `json:"retail_price"`
	WholesalePrice *float64 `json:"wholesale_price"`
}

func (h *Handler) updatePrices(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid part id")
		return
	}
	var req priceUpdateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	upd := PriceUpdate{
		BranchID:       req.BranchID,
		PartID:         id,
		CostPrice:      req.CostPrice,
		RetailPrice:    req.RetailPrice,
		WholesalePrice: req.WholesalePrice,
	}
	if err := h.svc.UpdatePrices(r.Context(), upd, actorID(r)); err != nil {
		respondMasterdataError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// actorID reads the acting user from the X-User-ID header. Authentication is
// delegated to the gateway in front of this service.
func actorID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(r.Header.Get("X-User-ID"), 10, 64)
	return id
}
