package importer

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Nhan-Lam-SmartCare/MotocarePro-demo-sub000/internal/platform/httpx"
)

// maxUploadBytes bounds spreadsheet uploads.
const maxUploadBytes = 10 << 20

// asyncThresholdBytes routes large files to the job queue.
const asyncThresholdBytes = 1 << 20

// ImportEnqueuer queues an import for background processing.
type ImportEnqueuer interface {
	EnqueueImport(ctx context.Context, payload []byte, branchID, actorID int64) (string, error)
}

// Handler exposes import endpoints.
type Handler struct {
	svc  *Service
	jobs ImportEnqueuer
}

// NewHandler builds Handler. jobs may be nil; everything then runs inline.
func NewHandler(svc *Service, jobs ImportEnqueuer) *Handler {
	return &Handler{svc: svc, jobs: jobs}
}

// Routes mounts import routes.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/imports", h.upload)
}

func (h *Handler) upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "cannot parse upload")
		return
	}
	branchID, _ := strconv.ParseInt(r.FormValue("branch_id"), 10, 64)
	if branchID == 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "branch_id required")
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "file required")
		return
	}
	defer file.Close()

	payload, err := io.ReadAll(file)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	if h.jobs != nil && len(payload) > asyncThresholdBytes {
		taskID, err := h.jobs.EnqueueImport(r.Context(), payload, branchID, actorID(r))
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		httpx.JSON(w, http.StatusAccepted, map[string]any{"task_id": taskID})
		return
	}

	result, err := h.svc.ImportFile(r.Context(), bytes.NewReader(payload), branchID, actorID(r))
	if err != nil {
		switch {
		case errors.Is(err, ErrNoRows), errors.Is(err, ErrBadWorkbook):
			httpx.Problem(w, http.StatusBadRequest, "File không hợp lệ", err.Error())
		default:
			httpx.RespondError(w, err)
		}
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func actorID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(r.Header.Get("X-User-ID"), 10, 64)
	return id
}
