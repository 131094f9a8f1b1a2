package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"mediadl/internal/domain/errs"
	"mediadl/internal/formats"
	"mediadl/internal/models"
	"mediadl/internal/utils/logging"

	"github.com/go-chi/chi/v5"
)

const (
	defaultHistoryLimit = 50
	maxBodyBytes        = 8 << 20
)

// handleListJobs lists every tracked job.
func (a *api) handleListJobs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.queue.List())
}

// handleSubmitJob queues a download.
func (a *api) handleSubmitJob(w http.ResponseWriter, r *http.Request) {
	var req models.Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return
	}

	sub, err := a.queue.Submit(req)
	if err != nil {
		writeError(w, err)
		return
	}
	defer sub.Close()

	snap, err := a.queue.Snapshot(req.ID)
	if err != nil {
		snap = <-sub.C
	}
	w.Header().Set("Location", "/api/v1/jobs/"+req.ID)
	writeJSON(w, http.StatusAccepted, snap)
}

// handleGetJob returns a job's latest snapshot.
func (a *api) handleGetJob(w http.ResponseWriter, r *http.Request) {
	snap, err := a.queue.Snapshot(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// handleControl wraps an idempotent job control.
func (a *api) handleControl(op func(id string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := op(chi.URLParam(r, "id")); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// handleJobEvents streams a job's snapshots as server-sent events until the
// job terminates or the client goes away.
func (a *api) handleJobEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	sub, err := a.queue.Subscribe(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case p, ok := <-sub.C:
			if !ok {
				return
			}
			data, err := json.Marshal(p)
			if err != nil {
				logging.E("Failed to encode progress for job %q: %v", p.ID, err)
				return
			}
			if _, err := fmt.Fprintf(w, "event: progress\ndata: %s\n\n", data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// handleHistory returns the most recent journal rows.
func (a *api) handleHistory(w http.ResponseWriter, r *http.Request) {
	if a.ds == nil {
		http.Error(w, "job journal is disabled", http.StatusServiceUnavailable)
		return
	}

	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	entries, err := a.ds.GetRecentDownloads(r.Context(), limit)
	if err != nil {
		logging.E("Failed to read download history: %v", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []models.JournalEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// handleFormats runs the format selector over a posted catalog.
func handleFormats(w http.ResponseWriter, r *http.Request) {
	var catalog []models.Format
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&catalog); err != nil {
		http.Error(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, formats.Filter(catalog))
}

// writeError maps domain errors onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errs.ErrUnknownJob):
		status = http.StatusNotFound
	case errors.Is(err, errs.ErrDuplicateJob):
		status = http.StatusConflict
	case errors.Is(err, errs.ErrInvalidJob):
		status = http.StatusBadRequest
	}
	http.Error(w, err.Error(), status)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.E("Failed to encode JSON response: %v", err)
	}
}
