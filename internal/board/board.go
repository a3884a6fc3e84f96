package board

import (
	"errors"
	"fmt"

	"github.com/sandwich-alignment/alignment/internal/models"
)

var (
	ErrDuplicateItem = errors.New("item already on board")
	ErrItemNotFound  = errors.New("item not on board")
)

// Board holds the placements of one player's session.
// It is not safe for concurrent use; a board has a single writer.
type Board struct {
	placements []models.Placement
	index      map[string]int
	labels     models.AxisLabels
}

// New returns an empty board with the default axis labels
func New() *Board {
	return &Board{
		index:  make(map[string]int),
		labels: models.DefaultAxisLabels(),
	}
}

// Add places an item that is not yet on the board
func (b *Board) Add(itemID string, x, y float64) error {
	if _, exists := b.index[itemID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateItem, itemID)
	}
	b.index[itemID] = len(b.placements)
	b.placements = append(b.placements, models.Placement{ItemID: itemID, X: x, Y: y})
	return nil
}

// Move overwrites the coordinates of a placed item
func (b *Board) Move(itemID string, x, y float64) error {
	i, exists := b.index[itemID]
	if !exists {
		return fmt.Errorf("%w: %s", ErrItemNotFound, itemID)
	}
	b.placements[i].X = x
	b.placements[i].Y = y
	return nil
}

// Remove deletes a placement. Any selection of the item is left for the caller to clear.
func (b *Board) Remove(itemID string) error {
	i, exists := b.index[itemID]
	if !exists {
		return fmt.Errorf("%w: %s", ErrItemNotFound, itemID)
	}
	b.placements = append(b.placements[:i], b.placements[i+1:]...)
	delete(b.index, itemID)
	for j := i; j < len(b.placements); j++ {
		b.index[b.placements[j].ItemID] = j
	}
	return nil
}

// Clear empties the board. Axis labels are kept.
func (b *Board) Clear() {
	b.placements = nil
	b.index = make(map[string]int)
}

func (b *Board) Size() int {
	return len(b.placements)
}

func (b *Board) Has(itemID string) bool {
	_, exists := b.index[itemID]
	return exists
}

// Get returns the placement of an item if it is on the board
func (b *Board) Get(itemID string) (models.Placement, bool) {
	i, exists := b.index[itemID]
	if !exists {
		return models.Placement{}, false
	}
	return b.placements[i], true
}

// Placements returns a copy of the placements in insertion order
func (b *Board) Placements() []models.Placement {
	out := make([]models.Placement, len(b.placements))
	copy(out, b.placements)
	return out
}

// IsComplete reports whether every catalog item has been placed
func (b *Board) IsComplete(catalogSize int) bool {
	return catalogSize > 0 && b.Size() == catalogSize
}

func (b *Board) AxisLabels() models.AxisLabels {
	return b.labels
}

// SetAxisLabels replaces the labels; empty fields fall back to the defaults
func (b *Board) SetAxisLabels(labels models.AxisLabels) {
	b.labels = labels.WithDefaults()
}

func (b *Board) ResetAxisLabels() {
	b.labels = models.DefaultAxisLabels()
}

// DropResult says what a drop did to the board
type DropResult int

const (
	DropIgnored DropResult = iota
	DropAdded
	DropMoved
)

func (r DropResult) String() string {
	switch r {
	case DropAdded:
		return "added"
	case DropMoved:
		return "moved"
	default:
		return "ignored"
	}
}

// Drop resolves a drag-and-drop of itemID at a pointer position.
// A drop outside the viewport is a no-op, an unplaced item is added,
// and a placed item is moved.
func (b *Board) Drop(itemID string, v Viewport, pointerX, pointerY float64) (DropResult, models.Placement, error) {
	if err := v.Validate(); err != nil {
		return DropIgnored, models.Placement{}, err
	}
	if !v.Contains(pointerX, pointerY) {
		return DropIgnored, models.Placement{}, nil
	}

	x, y, err := MapPointer(v, pointerX, pointerY)
	if err != nil {
		return DropIgnored, models.Placement{}, err
	}

	p := models.Placement{ItemID: itemID, X: x, Y: y}
	if b.Has(itemID) {
		if err := b.Move(itemID, x, y); err != nil {
			return DropIgnored, models.Placement{}, err
		}
		return DropMoved, p, nil
	}
	if err := b.Add(itemID, x, y); err != nil {
		return DropIgnored, models.Placement{}, err
	}
	return DropAdded, p, nil
}

// Submission builds an immutable submission from the current board
func (b *Board) Submission(note, source string) models.Submission {
	placements := make([]models.SubmittedPlacement, len(b.placements))
	for i, p := range b.placements {
		placements[i] = models.NewSubmittedPlacement(p.ItemID, p.X, p.Y)
	}
	return models.Submission{
		Placements: placements,
		AxisLabels: b.labels,
		Note:       note,
		Source:     source,
	}
}
