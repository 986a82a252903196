// shape.go
//
// The shape sum type: one tagged variant with in-place storage and explicit
// construction per kind. Deep equality is variant-wise.
package h2g

import "math"

// ShapeKind tags the active variant of a Shape.
type ShapeKind int

const (
	KindPoint ShapeKind = iota + 1
	KindSegment
	KindArc
	KindCircle
	KindPolygon
	KindComplexPolygon
)

var shapeKindNames = map[ShapeKind]string{
	KindPoint:          "Point",
	KindSegment:        "Segment",
	KindArc:            "ArcSegment",
	KindCircle:         "Circle",
	KindPolygon:        "Polygon",
	KindComplexPolygon: "ComplexPolygon",
}

func (k ShapeKind) String() string {
	if s, ok := shapeKindNames[k]; ok {
		return s
	}
	return "Invalid"
}

// Segment is the closed line segment between A and B.
type Segment struct {
	A, B Point
}

// ArcSegment is the circular arc around Center with the given radius, from
// the From point to the To point along Range. Range is derived from the
// endpoint directions at construction.
type ArcSegment struct {
	Center Point
	From   Point
	To     Point
	Radius Scalar
	Range  DAngleRange
}

// NewArc derives the angular range from the endpoint directions.
func NewArc(center, from, to Point, radius Scalar, cclockwise bool) ArcSegment {
	return ArcSegment{
		Center: center,
		From:   from,
		To:     to,
		Radius: radius,
		Range:  NewDAngleRange(AngleOf(from.Sub(center)), AngleOf(to.Sub(center)), cclockwise),
	}
}

// Circle is the circle of the given radius around Center.
type Circle struct {
	Center Point
	Radius Scalar
}

// Polygon is a closed point loop with straight edges.
type Polygon struct {
	Points []Point
}

// PolyNode is one corner of a ComplexPolygon. An arc corner bulges the edge
// leaving it: that edge runs from this node's point to the next point as an
// arc of the stored radius, the winding flag choosing which of the two
// candidate centers is used (counter-clockwise puts the center left of the
// chord).
type PolyNode struct {
	P          Point
	Arc        bool
	Radius     Scalar
	CClockwise bool
}

// ComplexPolygon is a closed node loop with straight and arc edges.
type ComplexPolygon struct {
	Nodes []PolyNode
}

// Shape is the tagged sum of all geometry variants.
type Shape struct {
	kind    ShapeKind
	point   Point
	segment Segment
	arc     ArcSegment
	circle  Circle
	polygon Polygon
	complex ComplexPolygon
}

func PointShape(p Point) Shape        { return Shape{kind: KindPoint, point: p} }
func SegmentShape(s Segment) Shape    { return Shape{kind: KindSegment, segment: s} }
func ArcShape(a ArcSegment) Shape     { return Shape{kind: KindArc, arc: a} }
func CircleShape(c Circle) Shape      { return Shape{kind: KindCircle, circle: c} }
func PolygonShape(p Polygon) Shape    { return Shape{kind: KindPolygon, polygon: p} }
func ComplexShape(c ComplexPolygon) Shape {
	return Shape{kind: KindComplexPolygon, complex: c}
}

func (s Shape) Kind() ShapeKind          { return s.kind }
func (s Shape) Point() Point             { return s.point }
func (s Shape) Segment() Segment         { return s.segment }
func (s Shape) Arc() ArcSegment          { return s.arc }
func (s Shape) Circle() Circle           { return s.circle }
func (s Shape) Polygon() Polygon         { return s.polygon }
func (s Shape) Complex() ComplexPolygon  { return s.complex }

// Equal is variant-wise deep equality: polygons compare point sequences,
// complex polygons compare node sequences (arc nodes on point, radius and
// winding).
func (s Shape) Equal(o Shape) bool {
	if s.kind != o.kind {
		return false
	}
	switch s.kind {
	case KindPoint:
		return s.point == o.point
	case KindSegment:
		return s.segment == o.segment
	case KindArc:
		return s.arc.Center == o.arc.Center && s.arc.From == o.arc.From &&
			s.arc.To == o.arc.To && s.arc.Radius == o.arc.Radius &&
			s.arc.Range.CClockwise == o.arc.Range.CClockwise
	case KindCircle:
		return s.circle == o.circle
	case KindPolygon:
		if len(s.polygon.Points) != len(o.polygon.Points) {
			return false
		}
		for i := range s.polygon.Points {
			if s.polygon.Points[i] != o.polygon.Points[i] {
				return false
			}
		}
		return true
	case KindComplexPolygon:
		if len(s.complex.Nodes) != len(o.complex.Nodes) {
			return false
		}
		for i := range s.complex.Nodes {
			a, b := s.complex.Nodes[i], o.complex.Nodes[i]
			if a.P != b.P || a.Arc != b.Arc {
				return false
			}
			if a.Arc && (a.Radius != b.Radius || a.CClockwise != b.CClockwise) {
				return false
			}
		}
		return true
	}
	return false
}

// AnchorPoint is a point guaranteed to lie on the shape, used by the
// polygon distance short-circuit.
func (s Shape) AnchorPoint() Point {
	switch s.kind {
	case KindPoint:
		return s.point
	case KindSegment:
		return s.segment.A
	case KindArc:
		return s.arc.From
	case KindCircle:
		return s.circle.Center.Add(Pt(s.circle.Radius, 0))
	case KindPolygon:
		return s.polygon.Points[0]
	case KindComplexPolygon:
		return s.complex.Nodes[0].P
	}
	panic("h2g: anchor of invalid shape")
}

// BoundingBox of the shape; arcs include the cardinal extremes their range
// covers.
func (s Shape) BoundingBox() Box2D {
	switch s.kind {
	case KindPoint:
		return EmptyBox().AddPoint(s.point)
	case KindSegment:
		return EmptyBox().AddPoint(s.segment.A).AddPoint(s.segment.B)
	case KindArc:
		return s.arc.boundingBox()
	case KindCircle:
		c := s.circle
		return EmptyBox().
			AddPoint(c.Center.Sub(Pt(c.Radius, c.Radius))).
			AddPoint(c.Center.Add(Pt(c.Radius, c.Radius)))
	case KindPolygon:
		b := EmptyBox()
		for _, p := range s.polygon.Points {
			b = b.AddPoint(p)
		}
		return b
	case KindComplexPolygon:
		b := EmptyBox()
		for _, e := range s.complex.edges() {
			if e.isArc {
				b = b.Merge(e.arc.boundingBox())
			} else {
				b = b.AddPoint(e.seg.A).AddPoint(e.seg.B)
			}
		}
		return b
	}
	panic("h2g: bounding box of invalid shape")
}

func (a ArcSegment) boundingBox() Box2D {
	b := EmptyBox().AddPoint(a.From).AddPoint(a.To)
	for _, dir := range [4]Point{Pt(1, 0), Pt(0, 1), Pt(-1, 0), Pt(0, -1)} {
		if a.Range.Contains(AngleOf(dir)) {
			b = b.AddPoint(a.Center.Add(Pt(dir.X*a.Radius, dir.Y*a.Radius)))
		}
	}
	return b
}

// ---- edge decomposition ----------------------------------------------------

type edge struct {
	isArc bool
	seg   Segment
	arc   ArcSegment
}

func (e edge) shape() Shape {
	if e.isArc {
		return ArcShape(e.arc)
	}
	return SegmentShape(e.seg)
}

func (p Polygon) edges() []edge {
	n := len(p.Points)
	out := make([]edge, 0, n)
	for i := 0; i < n; i++ {
		a, b := p.Points[i], p.Points[(i+1)%n]
		if a == b {
			continue
		}
		out = append(out, edge{seg: Segment{A: a, B: b}})
	}
	return out
}

func (cp ComplexPolygon) edges() []edge {
	n := len(cp.Nodes)
	out := make([]edge, 0, n)
	for i := 0; i < n; i++ {
		node := cp.Nodes[i]
		next := cp.Nodes[(i+1)%n].P
		if node.P == next {
			continue
		}
		if node.Arc {
			out = append(out, edge{isArc: true, arc: arcFromChord(node.P, next, node.Radius, node.CClockwise)})
		} else {
			out = append(out, edge{seg: Segment{A: node.P, B: next}})
		}
	}
	return out
}

// arcFromChord places the arc from a to b with the given radius. The
// winding flag selects the center side: counter-clockwise puts it left of
// the chord. A radius below half the chord is clamped to the semicircle.
// The center is rounded to the integer grid, so the chord endpoints can sit
// off the swept circle by a unit; ray casting compensates at the vertices.
func arcFromChord(a, b Point, radius Scalar, cclockwise bool) ArcSegment {
	ax, ay := float64(a.X), float64(a.Y)
	dx, dy := float64(b.X-a.X), float64(b.Y-a.Y)
	chord := math.Hypot(dx, dy)
	r := float64(radius)
	if r < chord/2 {
		r = chord / 2
	}
	off := math.Sqrt(r*r - (chord/2)*(chord/2))
	mx, my := ax+dx/2, ay+dy/2
	// Unit left normal of a->b.
	nx, ny := -dy/chord, dx/chord
	if !cclockwise {
		nx, ny = -nx, -ny
	}
	cx := Scalar(math.Round(mx + off*nx))
	cy := Scalar(math.Round(my + off*ny))
	return NewArc(Pt(cx, cy), a, b, Scalar(math.Round(r)), cclockwise)
}
