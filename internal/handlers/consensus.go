package handlers

import (
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/sandwich-alignment/alignment/internal/consensus"
	"github.com/sandwich-alignment/alignment/internal/models"
)

type consensusResponse struct {
	SubmissionCount int              `json:"submissionCount"`
	Threshold       float64          `json:"threshold"`
	Stats           []consensus.Stat `json:"stats"`
}

type extremesResponse struct {
	SubmissionCount int `json:"submissionCount"`
	consensus.Extremes
}

type agreementResponse struct {
	SubmissionCount int              `json:"submissionCount"`
	MostAgreement   []consensus.Stat `json:"mostAgreement"`
	LeastAgreement  []consensus.Stat `json:"leastAgreement"`
}

// batchStats loads the consensus batch from the store and computes its stats
func (h *Handler) batchStats(r *http.Request) (int, []consensus.Stat, error) {
	batch, err := h.submissions.List(r.Context(), h.batchFilter)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to load submissions: %w", err)
	}
	return len(batch), h.engine.Compute(batch), nil
}

func floatParam(r *http.Request, name string, def float64) (float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return v, nil
}

func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return v, nil
}

// HandleConsensus returns per-item stats, optionally limited to items whose
// average sits at least ?threshold= away from the center
func (h *Handler) HandleConsensus(w http.ResponseWriter, r *http.Request) {
	threshold, err := floatParam(r, "threshold", 0)
	if err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	count, stats, err := h.batchStats(r)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	filtered := consensus.FilterByDistance(stats, threshold)
	if filtered == nil {
		filtered = []consensus.Stat{}
	}
	h.writeJSON(w, http.StatusOK, consensusResponse{
		SubmissionCount: count,
		Threshold:       threshold,
		Stats:           filtered,
	})
}

func (h *Handler) HandleExtremes(w http.ResponseWriter, r *http.Request) {
	count, stats, err := h.batchStats(r)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	ex, err := consensus.FindExtremes(stats)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, extremesResponse{SubmissionCount: count, Extremes: ex})
}

// HandleAgreement returns the ?n= items with the most and least agreement
func (h *Handler) HandleAgreement(w http.ResponseWriter, r *http.Request) {
	n, err := intParam(r, "n", consensus.DefaultRankingSize)
	if err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	count, stats, err := h.batchStats(r)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	most, err := consensus.MostAgreement(stats, n)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	least, err := consensus.LeastAgreement(stats, n)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	if most == nil {
		most = []consensus.Stat{}
	}
	if least == nil {
		least = []consensus.Stat{}
	}
	h.writeJSON(w, http.StatusOK, agreementResponse{
		SubmissionCount: count,
		MostAgreement:   most,
		LeastAgreement:  least,
	})
}

// HandleCatalog lists the catalog items
func (h *Handler) HandleCatalog(w http.ResponseWriter, r *http.Request) {
	items := h.catalog.Items()
	if items == nil {
		items = []models.Item{}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"sandwiches": items})
}
