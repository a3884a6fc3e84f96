package board

import "github.com/sandwich-alignment/alignment/internal/models"

// SelectedItem is a copy of an item and, if it was placed at the time of
// selection, its coordinates. It is not updated when the board changes.
type SelectedItem struct {
	Item models.Item `json:"item"`
	X    *float64    `json:"x,omitempty"`
	Y    *float64    `json:"y,omitempty"`
}

// Placed reports whether the snapshot carries coordinates
func (s SelectedItem) Placed() bool {
	return s.X != nil && s.Y != nil
}

// Unplaced returns a snapshot for an item that is not on the board
func Unplaced(item models.Item) SelectedItem {
	return SelectedItem{Item: item}
}

// PlacedAt returns a snapshot for an item at the given coordinates
func PlacedAt(item models.Item, x, y float64) SelectedItem {
	return SelectedItem{Item: item, X: &x, Y: &y}
}

// Selection holds at most one selected item
type Selection struct {
	current *SelectedItem
}

func NewSelection() *Selection {
	return &Selection{}
}

// Select stores a copy of item. Selecting the same snapshot twice is a no-op.
func (s *Selection) Select(item SelectedItem) {
	cp := item
	if item.X != nil {
		x := *item.X
		cp.X = &x
	}
	if item.Y != nil {
		y := *item.Y
		cp.Y = &y
	}
	s.current = &cp
}

// Clear deselects
func (s *Selection) Clear() {
	s.current = nil
}

// Current returns the selected snapshot, if any
func (s *Selection) Current() (SelectedItem, bool) {
	if s.current == nil {
		return SelectedItem{}, false
	}
	return *s.current, true
}

// Is reports whether itemID is the selected item
func (s *Selection) Is(itemID string) bool {
	return s.current != nil && s.current.Item.ID == itemID
}
