package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/sandwich-alignment/alignment/internal/board"
	"github.com/sandwich-alignment/alignment/internal/models"
)

// BoardResponse is the JSON view of a board session
type BoardResponse struct {
	ID         string             `json:"id"`
	AxisLabels models.AxisLabels  `json:"axisLabels"`
	Placements []models.Placement `json:"sandwichesOnBoard"`
	Selected   *SelectionResponse `json:"selectedSandwich,omitempty"`
	Available  []models.Item      `json:"available"`
	Complete   bool               `json:"complete"`
}

// SelectionResponse is the inspector panel: the selected item and, when it
// was placed, a readable description of each coordinate
type SelectionResponse struct {
	board.SelectedItem
	XText string `json:"xText,omitempty"`
	YText string `json:"yText,omitempty"`
}

type dropRequest struct {
	ItemID   string         `json:"itemId"`
	Viewport board.Viewport `json:"viewport"`
	PointerX float64        `json:"pointerX"`
	PointerY float64        `json:"pointerY"`
}

type dropResponse struct {
	Result string        `json:"result"`
	Board  BoardResponse `json:"board"`
}

type selectRequest struct {
	// ItemID empty deselects
	ItemID string `json:"itemId"`
}

type submitRequest struct {
	Note string `json:"note"`
}

type submitResponse struct {
	ID         string            `json:"id"`
	Submission models.Submission `json:"submission"`
}

func boardView(id string, s *board.Session) BoardResponse {
	b := s.Board()
	resp := BoardResponse{
		ID:         id,
		AxisLabels: b.AxisLabels(),
		Placements: b.Placements(),
		Available:  s.Available(),
		Complete:   s.IsComplete(),
	}
	if resp.Placements == nil {
		resp.Placements = []models.Placement{}
	}
	if resp.Available == nil {
		resp.Available = []models.Item{}
	}

	if current, ok := s.Selection().Current(); ok {
		sel := &SelectionResponse{SelectedItem: current}
		if current.Placed() {
			sel.XText = board.DescribeX(*current.X, resp.AxisLabels)
			sel.YText = board.DescribeY(*current.Y, resp.AxisLabels)
		}
		resp.Selected = sel
	}
	return resp
}

// HandleCreateBoard starts a session. An optional snapshot body resumes a
// previously saved board.
func (h *Handler) HandleCreateBoard(w http.ResponseWriter, r *http.Request) {
	b := board.New()

	var snap board.Snapshot
	present, ok := h.decodeOptionalJSON(w, r, &snap)
	if !ok {
		return
	}
	if present {
		for _, p := range snap.Placements {
			if _, known := h.catalog.Get(p.ItemID); !known {
				h.writeDomainError(w, fmt.Errorf("%w: %s", board.ErrUnknownItem, p.ItemID))
				return
			}
		}
		snap.AxisLabels = snap.AxisLabels.WithDefaults()
		var err error
		if b, err = board.Restore(snap); err != nil {
			h.writeDomainError(w, err)
			return
		}
	}

	session := board.ResumeSession(h.catalog, b)
	id := h.sessionStore.Create(session)
	slog.Info("Created board session", "board", id, "placements", b.Size())

	var resp BoardResponse
	_ = h.sessionStore.View(id, func(s *board.Session) error {
		resp = boardView(id, s)
		return nil
	})
	h.writeJSON(w, http.StatusCreated, resp)
}

func (h *Handler) HandleGetBoard(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var resp BoardResponse
	err := h.sessionStore.View(id, func(s *board.Session) error {
		resp = boardView(id, s)
		return nil
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// HandleDrop applies a drag-and-drop onto the board viewport
func (h *Handler) HandleDrop(w http.ResponseWriter, r *http.Request) {
	var req dropRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	if req.ItemID == "" {
		h.writeError(w, "itemId is required", http.StatusBadRequest)
		return
	}

	id := r.PathValue("id")
	var resp dropResponse
	err := h.sessionStore.Update(id, func(s *board.Session) error {
		result, err := s.Drop(req.ItemID, req.Viewport, req.PointerX, req.PointerY)
		if err != nil {
			return err
		}
		resp = dropResponse{Result: result.String(), Board: boardView(id, s)}
		return nil
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	slog.Debug("Drop", "board", id, "item", req.ItemID, "result", resp.Result)
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) HandleSelect(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	h.updateBoard(w, r, func(s *board.Session) error {
		if req.ItemID == "" {
			s.Deselect()
			return nil
		}
		_, err := s.Select(req.ItemID)
		return err
	})
}

func (h *Handler) HandleRemoveSelected(w http.ResponseWriter, r *http.Request) {
	h.updateBoard(w, r, func(s *board.Session) error {
		return s.RemoveSelected()
	})
}

func (h *Handler) HandleClearBoard(w http.ResponseWriter, r *http.Request) {
	h.updateBoard(w, r, func(s *board.Session) error {
		s.ClearAll()
		return nil
	})
}

// HandleLabels replaces the axis labels; empty fields fall back to the defaults
func (h *Handler) HandleLabels(w http.ResponseWriter, r *http.Request) {
	var labels models.AxisLabels
	if !h.decodeJSON(w, r, &labels) {
		return
	}

	h.updateBoard(w, r, func(s *board.Session) error {
		s.Board().SetAxisLabels(labels.WithDefaults())
		return nil
	})
}

// HandleSubmitBoard records the board as a submission. The session is kept.
func (h *Handler) HandleSubmitBoard(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if _, ok := h.decodeOptionalJSON(w, r, &req); !ok {
		return
	}

	id := r.PathValue("id")
	var sub models.Submission
	err := h.sessionStore.View(id, func(s *board.Session) error {
		var err error
		sub, err = s.Submit(req.Note)
		return err
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	sub.SubmittedAt = time.Now().UTC()
	subID, err := h.submissions.Insert(r.Context(), sub)
	if err != nil {
		h.writeDomainError(w, fmt.Errorf("failed to store submission: %w", err))
		return
	}
	sub.ID = subID

	slog.Info("Board submitted", "board", id, "submission", subID, "placements", len(sub.Placements))
	h.writeJSON(w, http.StatusCreated, submitResponse{ID: subID, Submission: sub})
}

// updateBoard runs fn under the session lock and responds with the board
func (h *Handler) updateBoard(w http.ResponseWriter, r *http.Request, fn func(*board.Session) error) {
	id := r.PathValue("id")
	var resp BoardResponse
	err := h.sessionStore.Update(id, func(s *board.Session) error {
		if err := fn(s); err != nil {
			return err
		}
		resp = boardView(id, s)
		return nil
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}
