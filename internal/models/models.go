package models

import (
	"errors"
	"fmt"
	"math"
	"time"
	"unicode/utf8"
)

// Submission sources
const (
	SourceUserSubmitted = "user-submitted-on-site"
	SourceAIGenerated   = "ai-generated"
)

// MaxNoteLength is the longest free-text note a submission may carry, in characters.
const MaxNoteLength = 200

var (
	ErrNoteTooLong          = errors.New("note too long")
	ErrCoordinateOutOfRange = errors.New("placement coordinate out of range")
)

// Item is a catalog entry that can be placed on the board
type Item struct {
	ID        string `json:"id" yaml:"id"`
	Name      string `json:"name" yaml:"name"`
	ImagePath string `json:"imagePath" yaml:"imagepath"`
}

// Placement is an item's position on the board, x and y in [-1, 1]
type Placement struct {
	ItemID string  `json:"id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

// AxisLabels names the four extremes of the board.
// Top is -Y, Bottom is +Y, Left is -X, Right is +X.
type AxisLabels struct {
	Top    string `json:"top" yaml:"top"`
	Bottom string `json:"bottom" yaml:"bottom"`
	Left   string `json:"left" yaml:"left"`
	Right  string `json:"right" yaml:"right"`
}

// DefaultAxisLabels returns the good/evil, lawful/chaotic labels
func DefaultAxisLabels() AxisLabels {
	return AxisLabels{
		Top:    "Good",
		Bottom: "Evil",
		Left:   "Lawful",
		Right:  "Chaotic",
	}
}

// WithDefaults fills any empty label from DefaultAxisLabels
func (l AxisLabels) WithDefaults() AxisLabels {
	def := DefaultAxisLabels()
	if l.Top == "" {
		l.Top = def.Top
	}
	if l.Bottom == "" {
		l.Bottom = def.Bottom
	}
	if l.Left == "" {
		l.Left = def.Left
	}
	if l.Right == "" {
		l.Right = def.Right
	}
	return l
}

// SubmittedPlacement is a placement as recorded in a submission.
// X and Y are optional so a record with a missing coordinate stays
// distinguishable from one placed at zero.
type SubmittedPlacement struct {
	ItemID string   `json:"id"`
	X      *float64 `json:"x,omitempty"`
	Y      *float64 `json:"y,omitempty"`
}

// Position returns the coordinates and whether both are present and finite
func (p SubmittedPlacement) Position() (x, y float64, ok bool) {
	if p.X == nil || p.Y == nil {
		return 0, 0, false
	}
	x, y = *p.X, *p.Y
	if math.IsNaN(x) || math.IsNaN(y) || math.IsInf(x, 0) || math.IsInf(y, 0) {
		return 0, 0, false
	}
	return x, y, true
}

// NewSubmittedPlacement builds a SubmittedPlacement with both coordinates set
func NewSubmittedPlacement(itemID string, x, y float64) SubmittedPlacement {
	return SubmittedPlacement{ItemID: itemID, X: &x, Y: &y}
}

// Submission is one recorded board snapshot. Immutable once created.
type Submission struct {
	ID          string               `json:"id,omitempty"`
	Placements  []SubmittedPlacement `json:"sandwichesOnBoard"`
	AxisLabels  AxisLabels           `json:"axisLabels"`
	Note        string               `json:"note,omitempty"`
	Source      string               `json:"source,omitempty"`
	SubmittedAt time.Time            `json:"createdAt"`
}

// Validate checks the parts of a submission the store enforces. Absent
// coordinates are allowed; present ones must be finite and in [-1, 1].
func (s Submission) Validate() error {
	if n := utf8.RuneCountInString(s.Note); n > MaxNoteLength {
		return fmt.Errorf("%w: %d characters (max %d)", ErrNoteTooLong, n, MaxNoteLength)
	}
	for _, p := range s.Placements {
		if !onBoard(p.X) || !onBoard(p.Y) {
			return fmt.Errorf("%w: %s", ErrCoordinateOutOfRange, p.ItemID)
		}
	}
	return nil
}

func onBoard(v *float64) bool {
	if v == nil {
		return true
	}
	return !math.IsNaN(*v) && *v >= -1 && *v <= 1
}

// InRange reports whether x and y are both in [-1, 1]
func InRange(x, y float64) bool {
	return x >= -1 && x <= 1 && y >= -1 && y <= 1
}

// Clone returns a deep copy so callers cannot mutate shared coordinate pointers
func (s Submission) Clone() Submission {
	out := s
	out.Placements = make([]SubmittedPlacement, len(s.Placements))
	for i, p := range s.Placements {
		cp := SubmittedPlacement{ItemID: p.ItemID}
		if p.X != nil {
			x := *p.X
			cp.X = &x
		}
		if p.Y != nil {
			y := *p.Y
			cp.Y = &y
		}
		out.Placements[i] = cp
	}
	return out
}

// ErrorResponse is the JSON body of every failed API call
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
