package geom

import (
	"fmt"
	"math"

	"github.com/chewxy/math32"
)

// Axis selects one of the two image axes.
type Axis int

const (
	AxisX Axis = iota // horizontal (left-right in the frame)
	AxisY             // vertical (top-bottom in the frame)
)

func (a Axis) String() string {
	if a == AxisY {
		return "y"
	}
	return "x"
}

// Point is a position in normalized frame coordinates, where 0..1 spans the frame.
type Point struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
}

func (p Point) Distance(b Point) float32 {
	return math32.Sqrt((p.X-b.X)*(p.X-b.X) + (p.Y-b.Y)*(p.Y-b.Y))
}

// Rect is an axis-aligned box in normalized frame coordinates.
type Rect struct {
	X1 float32 `json:"x1"`
	Y1 float32 `json:"y1"`
	X2 float32 `json:"x2"`
	Y2 float32 `json:"y2"`
}

// EmptyRect returns an inverted rectangle, which becomes valid after the first call to Expand.
func EmptyRect() Rect {
	return Rect{
		X1: math.MaxFloat32,
		Y1: math.MaxFloat32,
		X2: -math.MaxFloat32,
		Y2: -math.MaxFloat32,
	}
}

func (r Rect) Width() float32 {
	return r.X2 - r.X1
}

func (r Rect) Height() float32 {
	return r.Y2 - r.Y1
}

// Expand grows r to include p
func (r *Rect) Expand(p Point) {
	r.X1 = min(r.X1, p.X)
	r.Y1 = min(r.Y1, p.Y)
	r.X2 = max(r.X2, p.X)
	r.Y2 = max(r.Y2, p.Y)
}

// Buffered returns r grown by d on every side
func (r Rect) Buffered(d float32) Rect {
	return Rect{
		X1: r.X1 - d,
		Y1: r.Y1 - d,
		X2: r.X2 + d,
		Y2: r.Y2 + d,
	}
}

// Span returns the extent of r along the given axis
func (r Rect) Span(axis Axis) float32 {
	if axis == AxisY {
		return r.Height()
	}
	return r.Width()
}

func (a Axis) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Axis) UnmarshalText(b []byte) error {
	switch string(b) {
	case "x", "X", "":
		*a = AxisX
	case "y", "Y":
		*a = AxisY
	default:
		return fmt.Errorf("Invalid axis '%v'. Valid values are 'x' and 'y'", string(b))
	}
	return nil
}
