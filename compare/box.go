package compare

import (
	"fmt"
	"math"
)

// ChangeType tells whether a region gained or lost ink between the two
// revisions.
type ChangeType int

const (
	// Added marks content present in the new revision only.
	Added ChangeType = iota
	// Removed marks content present in the old revision only.
	Removed
)

func (c ChangeType) String() string {
	switch c {
	case Added:
		return "added"
	case Removed:
		return "removed"
	default:
		return fmt.Sprintf("ChangeType(%d)", int(c))
	}
}

// Box is an axis-aligned rectangle in raster pixel space tagged with a
// ChangeType. Valid boxes satisfy X1 > X0 and Y1 > Y0.
type Box struct {
	X0, Y0, X1, Y1 float64
	Type           ChangeType
}

// Valid reports whether the box has finite, non-inverted coordinates
// and positive area.
func (b Box) Valid() bool {
	for _, v := range []float64{b.X0, b.Y0, b.X1, b.Y1} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return b.X1 > b.X0 && b.Y1 > b.Y0
}

// Width returns the box width.
func (b Box) Width() float64 { return b.X1 - b.X0 }

// Height returns the box height.
func (b Box) Height() float64 { return b.Y1 - b.Y0 }

// Area returns the box area.
func (b Box) Area() float64 { return b.Width() * b.Height() }

// Center returns the box center point.
func (b Box) Center() (float64, float64) {
	return (b.X0 + b.X1) / 2, (b.Y0 + b.Y1) / 2
}

// Union returns the bounding rectangle of b and other. The ChangeType
// of the receiver is kept.
func (b Box) Union(other Box) Box {
	return Box{
		X0:   math.Min(b.X0, other.X0),
		Y0:   math.Min(b.Y0, other.Y0),
		X1:   math.Max(b.X1, other.X1),
		Y1:   math.Max(b.Y1, other.Y1),
		Type: b.Type,
	}
}

// IoU returns the intersection-over-union ratio of two boxes:
// 1.0 for identical rectangles, 0.0 for disjoint ones.
func (b Box) IoU(other Box) float64 {
	ix0 := math.Max(b.X0, other.X0)
	iy0 := math.Max(b.Y0, other.Y0)
	ix1 := math.Min(b.X1, other.X1)
	iy1 := math.Min(b.Y1, other.Y1)
	iw := ix1 - ix0
	ih := iy1 - iy0
	if iw <= 0 || ih <= 0 {
		return 0
	}
	inter := iw * ih
	union := b.Area() + other.Area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// Contains reports whether b, expanded by pad, fully contains other
// within eps tolerance.
func (b Box) Contains(other Box, pad, eps float64) bool {
	return other.X0 >= b.X0-pad-eps &&
		other.Y0 >= b.Y0-pad-eps &&
		other.X1 <= b.X1+pad+eps &&
		other.Y1 <= b.Y1+pad+eps
}

// Gap returns the minimum edge-to-edge distance between two boxes.
// Overlapping or touching boxes have a gap of zero.
func (b Box) Gap(other Box) float64 {
	dx := math.Max(math.Max(other.X0-b.X1, b.X0-other.X1), 0)
	dy := math.Max(math.Max(other.Y0-b.Y1, b.Y0-other.Y1), 0)
	return math.Hypot(dx, dy)
}

// Intersects reports whether the two boxes overlap (touching edges do
// not count as overlap).
func (b Box) Intersects(other Box) bool {
	return b.X0 < other.X1 && other.X0 < b.X1 && b.Y0 < other.Y1 && other.Y0 < b.Y1
}
