package board

import (
	"errors"
	"fmt"
	"math"
)

var ErrInvalidViewport = errors.New("invalid viewport")

// Viewport is the board's bounding rectangle in pointer coordinates
type Viewport struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Validate rejects viewports with no area
func (v Viewport) Validate() error {
	if !(v.Width > 0) || !(v.Height > 0) {
		return fmt.Errorf("%w: %gx%g", ErrInvalidViewport, v.Width, v.Height)
	}
	return nil
}

// Contains reports whether a pointer position falls inside the viewport, edges included
func (v Viewport) Contains(pointerX, pointerY float64) bool {
	return pointerX >= v.Left && pointerX <= v.Left+v.Width &&
		pointerY >= v.Top && pointerY <= v.Top+v.Height
}

// MapPointer converts a pointer position into normalized board coordinates.
// The result is not clamped: a pointer outside the viewport maps outside [-1, 1].
func MapPointer(v Viewport, pointerX, pointerY float64) (x, y float64, err error) {
	if err := v.Validate(); err != nil {
		return 0, 0, err
	}
	x = ((pointerX-v.Left)/v.Width)*2 - 1
	y = ((pointerY-v.Top)/v.Height)*2 - 1
	return x, y, nil
}

// Clamp limits a coordinate to [-1, 1]. MapPointer never calls it; callers opt in.
func Clamp(c float64) float64 {
	return math.Max(-1, math.Min(1, c))
}
