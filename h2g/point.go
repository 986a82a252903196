// point.go
package h2g

import "math"

// Point is an exact integer position or vector.
type Point struct {
	X, Y Scalar
}

// Pt is shorthand for Point{x, y}.
func Pt(x, y Scalar) Point { return Point{X: x, Y: y} }

func (p Point) Add(q Point) Point { return Point{p.X + q.X, p.Y + q.Y} }
func (p Point) Sub(q Point) Point { return Point{p.X - q.X, p.Y - q.Y} }
func (p Point) Neg() Point        { return Point{-p.X, -p.Y} }
func (p Point) IsZero() bool      { return p.X == 0 && p.Y == 0 }

// Dot is the exact inner product in the Wide extension.
func Dot(a, b Point) Wide { return Wide(a.X)*Wide(b.X) + Wide(a.Y)*Wide(b.Y) }

// Cross is the exact 2-D cross product in the Wide extension.
func Cross(a, b Point) Wide { return Wide(a.X)*Wide(b.Y) - Wide(a.Y)*Wide(b.X) }

// Norm2 is the exact squared norm.
func Norm2(p Point) Wide { return Dot(p, p) }

// SquaredDistance between two integer points, exact.
func SquaredDistance(a, b Point) Wide { return Norm2(a.Sub(b)) }

// Pointf is a floating-point position used for nearest-point results.
type Pointf struct {
	X, Y float64
}

func (p Point) F() Pointf { return Pointf{float64(p.X), float64(p.Y)} }

func fpt(x, y float64) Pointf { return Pointf{x, y} }

func (p Pointf) Sub(q Pointf) Pointf     { return Pointf{p.X - q.X, p.Y - q.Y} }
func (p Pointf) Add(q Pointf) Pointf     { return Pointf{p.X + q.X, p.Y + q.Y} }
func (p Pointf) Scale(s float64) Pointf  { return Pointf{p.X * s, p.Y * s} }
func (p Pointf) Norm() float64           { return math.Hypot(p.X, p.Y) }

func distF(a, b Pointf) float64 { return math.Hypot(a.X-b.X, a.Y-b.Y) }

// lerp interpolates between two integer points at parameter t.
func lerp(a, b Point, t float64) Pointf {
	return Pointf{
		X: float64(a.X) + t*float64(b.X-a.X),
		Y: float64(a.Y) + t*float64(b.Y-a.Y),
	}
}
