package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/sandwich-alignment/alignment/internal/auth"
	"github.com/sandwich-alignment/alignment/internal/board"
	"github.com/sandwich-alignment/alignment/internal/generator"
	"github.com/sandwich-alignment/alignment/internal/models"
)

type authRequest struct {
	Password string `json:"password"`
}

type authResponse struct {
	Authenticated bool `json:"authenticated"`
}

type generateResponse struct {
	BoardID      string            `json:"boardId"`
	Board        BoardResponse     `json:"board"`
	Submission   models.Submission `json:"submission"`
	SubmissionID string            `json:"submissionId,omitempty"`
}

// HandleAuth checks a password typed into the admin prompt
func (h *Handler) HandleAuth(w http.ResponseWriter, r *http.Request) {
	var req authRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	err := h.admin.Check(req.Password)
	if err != nil && !errors.Is(err, auth.ErrInvalidPassword) && !errors.Is(err, auth.ErrAdminDisabled) {
		h.writeDomainError(w, err)
		return
	}
	if err != nil {
		slog.Warn("Admin authentication failed", "remote", r.RemoteAddr, "reason", err)
		h.writeJSON(w, http.StatusUnauthorized, authResponse{Authenticated: false})
		return
	}
	h.writeJSON(w, http.StatusOK, authResponse{Authenticated: true})
}

// HandleGenerate asks the layout generator for a board and opens it as a new
// session. ?store=true also records it as a submission. Admin only.
func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	if h.generator == nil {
		h.writeError(w, "Board generation is not configured", http.StatusServiceUnavailable)
		return
	}

	b, sub, err := h.generator.GenerateBoard(r.Context())
	if err != nil {
		h.writeError(w, err.Error(), generateStatus(err))
		return
	}

	resp := generateResponse{Submission: sub}
	if r.URL.Query().Get("store") == "true" {
		id, err := h.submissions.Insert(r.Context(), sub)
		if err != nil {
			h.writeDomainError(w, fmt.Errorf("failed to store generated board: %w", err))
			return
		}
		resp.SubmissionID = id
		resp.Submission.ID = id
	}

	resp.BoardID = h.sessionStore.Create(board.ResumeSession(h.catalog, b))
	_ = h.sessionStore.View(resp.BoardID, func(s *board.Session) error {
		resp.Board = boardView(resp.BoardID, s)
		return nil
	})

	slog.Info("Generated board session", "board", resp.BoardID, "placements", b.Size(), "stored", resp.SubmissionID != "")
	h.writeJSON(w, http.StatusCreated, resp)
}

func generateStatus(err error) int {
	switch {
	case errors.Is(err, generator.ErrPromptTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, generator.ErrEmptyCatalog):
		return http.StatusConflict
	default:
		// provider failures and unusable replies
		return http.StatusBadGateway
	}
}
