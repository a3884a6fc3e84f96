package board

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sandwich-alignment/alignment/internal/models"
)

var (
	ErrMissingCoordinate    = errors.New("placement missing coordinate")
	ErrCoordinateOutOfRange = models.ErrCoordinateOutOfRange
)

// Snapshot is the persisted form of a board
type Snapshot struct {
	AxisLabels models.AxisLabels  `json:"axisLabels"`
	Placements []models.Placement `json:"sandwichesOnBoard"`
}

// Snapshot captures the board's current state
func (b *Board) Snapshot() Snapshot {
	return Snapshot{
		AxisLabels: b.labels,
		Placements: b.Placements(),
	}
}

// Restore rebuilds a board from a snapshot, rejecting duplicate items and
// coordinates outside [-1, 1]
func Restore(s Snapshot) (*Board, error) {
	b := New()
	b.SetAxisLabels(s.AxisLabels)
	for _, p := range s.Placements {
		if !models.InRange(p.X, p.Y) {
			return nil, fmt.Errorf("%w: %s at (%g, %g)", ErrCoordinateOutOfRange, p.ItemID, p.X, p.Y)
		}
		if err := b.Add(p.ItemID, p.X, p.Y); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// Import builds a board from a submission-shaped payload such as a generated
// layout. Each placement needs an id, both coordinates, and coordinates in [-1, 1].
func Import(s models.Submission) (*Board, error) {
	b := New()
	b.SetAxisLabels(s.AxisLabels)
	for i, p := range s.Placements {
		if p.ItemID == "" {
			return nil, fmt.Errorf("%w: placement %d has no id", ErrMissingCoordinate, i)
		}
		x, y, ok := p.Position()
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingCoordinate, p.ItemID)
		}
		if !models.InRange(x, y) {
			return nil, fmt.Errorf("%w: %s at (%g, %g)", ErrCoordinateOutOfRange, p.ItemID, x, y)
		}
		if err := b.Add(p.ItemID, x, y); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// LoadFile reads a snapshot from path. A missing file yields an empty board.
func LoadFile(path string) (*Board, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read board state: %w", err)
	}

	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to decode board state: %w", err)
	}
	return Restore(s)
}

// SaveFile writes the board's snapshot to path
func (b *Board) SaveFile(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create state directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(b.Snapshot(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode board state: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write board state: %w", err)
	}
	return nil
}
