package board

import (
	"errors"
	"fmt"

	"github.com/sandwich-alignment/alignment/internal/models"
)

var ErrUnknownItem = errors.New("item not in catalog")

// Catalog is the read-only item lookup a session needs
type Catalog interface {
	Get(id string) (models.Item, bool)
	Items() []models.Item
	Len() int
}

// Session composes a board and a selection the way the game screen does:
// selection is re-taken after a move, and removal deselects.
type Session struct {
	catalog   Catalog
	board     *Board
	selection *Selection
}

// NewSession starts an empty session over the catalog
func NewSession(catalog Catalog) *Session {
	return ResumeSession(catalog, New())
}

// ResumeSession wraps an existing board, e.g. one loaded from a snapshot
func ResumeSession(catalog Catalog, b *Board) *Session {
	return &Session{
		catalog:   catalog,
		board:     b,
		selection: NewSelection(),
	}
}

func (s *Session) Board() *Board {
	return s.board
}

func (s *Session) Selection() *Selection {
	return s.selection
}

// Select selects a catalog item, carrying its coordinates if it is placed
func (s *Session) Select(itemID string) (SelectedItem, error) {
	item, ok := s.catalog.Get(itemID)
	if !ok {
		return SelectedItem{}, fmt.Errorf("%w: %s", ErrUnknownItem, itemID)
	}

	snap := Unplaced(item)
	if p, placed := s.board.Get(itemID); placed {
		snap = PlacedAt(item, p.X, p.Y)
	}
	s.selection.Select(snap)
	return snap, nil
}

// Deselect clears the selection, e.g. after a click outside any item
func (s *Session) Deselect() {
	s.selection.Clear()
}

// Drop applies a drag-and-drop and refreshes the selection when the
// dropped item is selected or was moved.
func (s *Session) Drop(itemID string, v Viewport, pointerX, pointerY float64) (DropResult, error) {
	item, ok := s.catalog.Get(itemID)
	if !ok {
		return DropIgnored, fmt.Errorf("%w: %s", ErrUnknownItem, itemID)
	}

	result, p, err := s.board.Drop(itemID, v, pointerX, pointerY)
	if err != nil {
		return DropIgnored, err
	}

	switch result {
	case DropMoved:
		s.selection.Select(PlacedAt(item, p.X, p.Y))
	case DropAdded:
		if s.selection.Is(itemID) {
			s.selection.Select(PlacedAt(item, p.X, p.Y))
		}
	}
	return result, nil
}

// Remove takes an item off the board and deselects it if it was selected
func (s *Session) Remove(itemID string) error {
	if err := s.board.Remove(itemID); err != nil {
		return err
	}
	if s.selection.Is(itemID) {
		s.selection.Clear()
	}
	return nil
}

// RemoveSelected removes the selected item from the board and deselects it
func (s *Session) RemoveSelected() error {
	current, ok := s.selection.Current()
	if !ok {
		return fmt.Errorf("%w: nothing selected", ErrItemNotFound)
	}
	if err := s.board.Remove(current.Item.ID); err != nil {
		return err
	}
	s.selection.Clear()
	return nil
}

// ClearAll empties the board and the selection
func (s *Session) ClearAll() {
	s.board.Clear()
	s.selection.Clear()
}

// Available returns the catalog items not yet placed, in catalog order
func (s *Session) Available() []models.Item {
	var out []models.Item
	for _, item := range s.catalog.Items() {
		if !s.board.Has(item.ID) {
			out = append(out, item)
		}
	}
	return out
}

// IsComplete reports whether the whole catalog is on the board
func (s *Session) IsComplete() bool {
	return s.board.IsComplete(s.catalog.Len())
}

// Submit turns the board into a user submission
func (s *Session) Submit(note string) (models.Submission, error) {
	sub := s.board.Submission(note, models.SourceUserSubmitted)
	if err := sub.Validate(); err != nil {
		return models.Submission{}, err
	}
	return sub, nil
}
