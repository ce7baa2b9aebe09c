package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/redmaple/streamsync/internal/apperr"
	"github.com/redmaple/streamsync/internal/content"
	"github.com/redmaple/streamsync/internal/feed"
	"github.com/redmaple/streamsync/internal/importer"
	"github.com/redmaple/streamsync/internal/staging"
)

// RunnerFunc triggers one import cycle; the coordinator's RunCycle satisfies it.
type RunnerFunc func(ctx context.Context, deleteAfterDownload bool) (*importer.Outcome, error)

// Stager is the staging-store slice the API reads.
type Stager interface {
	ListUnimported() ([]staging.Doc, error)
}

// Handler holds API route handlers.
type Handler struct {
	runner  RunnerFunc
	queue   feed.Queue
	stager  Stager
	records content.Store

	mu   sync.Mutex
	last *importer.Outcome
}

// ImportRequest is the POST /import body. delete_after_download defaults to
// false for manual triggers; scheduled imports use the configured flag.
type ImportRequest struct {
	DeleteAfterDownload bool `json:"delete_after_download"`
}

// NewHandler creates a new Handler.
func NewHandler(runner RunnerFunc, queue feed.Queue, stager Stager, records content.Store) *Handler {
	return &Handler{runner: runner, queue: queue, stager: stager, records: records}
}

// TriggerImport handles POST /import: runs a full cycle synchronously and
// returns its outcome. 409 when a cycle is already active (the trigger is
// dropped, matching the run-lock contract).
func (h *Handler) TriggerImport(w http.ResponseWriter, r *http.Request) {
	var req ImportRequest
	if body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20)); err == nil && len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("invalid request body"))
			return
		}
	}

	out, err := h.runner(r.Context(), req.DeleteAfterDownload)
	if err != nil {
		if errors.Is(err, apperr.ErrCycleActive) {
			writeJSON(w, http.StatusConflict, errorBody("an import cycle is already running"))
			return
		}
		slog.Error("trigger import failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}

	h.mu.Lock()
	h.last = out
	h.mu.Unlock()

	writeJSON(w, http.StatusOK, out)
}

// LastOutcome handles GET /import/last.
func (h *Handler) LastOutcome(w http.ResponseWriter, _ *http.Request) {
	h.mu.Lock()
	last := h.last
	h.mu.Unlock()
	if last == nil {
		writeJSON(w, http.StatusNotFound, errorBody("no import has run yet"))
		return
	}
	writeJSON(w, http.StatusOK, last)
}

// QueueStatus handles GET /queue: a preview of the remote queue head.
func (h *Handler) QueueStatus(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	items, total, err := h.queue.List(r.Context(), limit, 0)
	if err != nil {
		if errors.Is(err, apperr.ErrAuth) {
			writeJSON(w, http.StatusBadGateway, errorBody("remote rejected credentials"))
			return
		}
		slog.Error("queue status failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadGateway, errorBody("remote queue unavailable"))
		return
	}
	if items == nil {
		items = []feed.QueueItemRef{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items":          items,
		"total_in_queue": total,
	})
}

// ListStaged handles GET /staging: documents awaiting import.
func (h *Handler) ListStaged(w http.ResponseWriter, _ *http.Request) {
	docs, err := h.stager.ListUnimported()
	if err != nil {
		slog.Error("list staged failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if docs == nil {
		docs = []staging.Doc{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"documents": docs,
		"total":     len(docs),
	})
}

// ListRecords handles GET /records.
func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	items, total, err := h.records.List(limit, offset)
	if err != nil {
		slog.Error("list records failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if items == nil {
		items = []content.Record{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"records": items,
		"total":   total,
	})
}

// GetRecord handles GET /records/{id}.
func (h *Handler) GetRecord(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid record id"))
		return
	}
	rec, err := h.records.Get(id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
			return
		}
		slog.Error("get record failed", slog.Int64("id", id), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, rec)
}
