package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/sandwich-alignment/alignment/internal/models"
	"github.com/sandwich-alignment/alignment/internal/storage"
)

type submissionsResponse struct {
	Count       int                 `json:"count"`
	Submissions []models.Submission `json:"submissions"`
}

type clearResponse struct {
	DeletedCount int64 `json:"deletedCount"`
}

// listOptions reads ?source= and ?min= from the query. Missing parameters
// fall back to the consensus filter; ?source=all lists every source.
func (h *Handler) listOptions(r *http.Request) (storage.ListOptions, error) {
	opts := h.batchFilter
	q := r.URL.Query()

	if q.Has("source") {
		opts.Source = q.Get("source")
		if opts.Source == "all" {
			opts.Source = ""
		}
	}
	if q.Has("min") {
		n, err := strconv.Atoi(q.Get("min"))
		if err != nil || n < 0 {
			return storage.ListOptions{}, fmt.Errorf("invalid min %q", q.Get("min"))
		}
		opts.MinPlacements = n
	}
	return opts, nil
}

func (h *Handler) HandleListSubmissions(w http.ResponseWriter, r *http.Request) {
	opts, err := h.listOptions(r)
	if err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	subs, err := h.submissions.List(r.Context(), opts)
	if err != nil {
		h.writeDomainError(w, fmt.Errorf("failed to list submissions: %w", err))
		return
	}
	if subs == nil {
		subs = []models.Submission{}
	}
	h.writeJSON(w, http.StatusOK, submissionsResponse{Count: len(subs), Submissions: subs})
}

// HandleCreateSubmission stores a finished board posted as a submission.
// The server assigns the id and timestamp.
func (h *Handler) HandleCreateSubmission(w http.ResponseWriter, r *http.Request) {
	var sub models.Submission
	if !h.decodeJSON(w, r, &sub) {
		return
	}

	sub.ID = ""
	sub.SubmittedAt = time.Now().UTC()
	sub.AxisLabels = sub.AxisLabels.WithDefaults()
	if sub.Source == "" {
		sub.Source = models.SourceUserSubmitted
	}
	if sub.Placements == nil {
		sub.Placements = []models.SubmittedPlacement{}
	}

	id, err := h.submissions.Insert(r.Context(), sub)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	sub.ID = id

	slog.Info("Submission stored", "submission", id, "source", sub.Source, "placements", len(sub.Placements))
	h.writeJSON(w, http.StatusCreated, submitResponse{ID: id, Submission: sub})
}

// HandleClearSubmissions deletes every stored submission. Admin only.
func (h *Handler) HandleClearSubmissions(w http.ResponseWriter, r *http.Request) {
	n, err := h.submissions.Clear(r.Context())
	if err != nil {
		h.writeDomainError(w, fmt.Errorf("failed to clear submissions: %w", err))
		return
	}

	slog.Warn("Submissions cleared", "deleted", n, "remote", r.RemoteAddr)
	h.writeJSON(w, http.StatusOK, clearResponse{DeletedCount: n})
}
