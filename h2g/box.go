// box.go
package h2g

import "math"

// Box2D is an inclusive axis-aligned rectangle. The empty box carries the
// sentinel lower-left (+max, +max) and upper-right (-max, -max) so that
// Merge is plain per-axis min/max.
type Box2D struct {
	Min, Max Point
}

// EmptyBox returns the empty sentinel.
func EmptyBox() Box2D {
	return Box2D{
		Min: Pt(math.MaxInt32, math.MaxInt32),
		Max: Pt(math.MinInt32, math.MinInt32),
	}
}

// Empty reports whether the box contains no point.
func (b Box2D) Empty() bool { return b.Min.X > b.Max.X || b.Min.Y > b.Max.Y }

// AddPoint grows the box to include p.
func (b Box2D) AddPoint(p Point) Box2D {
	return Box2D{
		Min: Pt(minS(b.Min.X, p.X), minS(b.Min.Y, p.Y)),
		Max: Pt(maxS(b.Max.X, p.X), maxS(b.Max.Y, p.Y)),
	}
}

// Merge is per-axis min/max.
func (b Box2D) Merge(o Box2D) Box2D {
	return Box2D{
		Min: Pt(minS(b.Min.X, o.Min.X), minS(b.Min.Y, o.Min.Y)),
		Max: Pt(maxS(b.Max.X, o.Max.X), maxS(b.Max.Y, o.Max.Y)),
	}
}

// Contains reports inclusive containment of p.
func (b Box2D) Contains(p Point) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X && p.Y >= b.Min.Y && p.Y <= b.Max.Y
}

// Intersects reports inclusive overlap with o.
func (b Box2D) Intersects(o Box2D) bool {
	return b.Min.X <= o.Max.X && o.Min.X <= b.Max.X &&
		b.Min.Y <= o.Max.Y && o.Min.Y <= b.Max.Y
}

func minS(a, b Scalar) Scalar {
	if a < b {
		return a
	}
	return b
}

func maxS(a, b Scalar) Scalar {
	if a > b {
		return a
	}
	return b
}
