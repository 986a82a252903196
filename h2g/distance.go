// distance.go
//
// Pairwise nearest-point queries. Distance returns the Euclidean scalar and
// the nearest pair (P on the first shape, Q on the second). The dispatcher
// is symmetric: a pair without a direct implementation runs through the
// swapped pair and flips the points. Tie-breaks between equal distances are
// unspecified.
package h2g

import (
	"fmt"
	"math"
)

// Nearest is a distance query result: the scalar distance and the nearest
// point pair.
type Nearest struct {
	D    float64
	P, Q Pointf
}

func (n Nearest) flip() Nearest { return Nearest{D: n.D, P: n.Q, Q: n.P} }

// closerThan orders results strictly on distance; equality is left
// undefined for callers.
func closerThan(a, b Nearest) bool { return a.D < b.D }

func closest(cands ...Nearest) Nearest {
	best := Nearest{D: math.Inf(1)}
	for _, c := range cands {
		if closerThan(c, best) {
			best = c
		}
	}
	return best
}

// Distance computes the nearest pair between two shapes.
func Distance(a, b Shape) Nearest {
	if n, ok := distancePair(a, b); ok {
		return n
	}
	if n, ok := distancePair(b, a); ok {
		return n.flip()
	}
	panic(fmt.Sprintf("h2g: unhandled shape pair (%s, %s)", a.kind, b.kind))
}

func distancePair(a, b Shape) (Nearest, bool) {
	switch a.kind {
	case KindPoint:
		if b.kind == KindPoint {
			return pointPoint(a.point, b.point), true
		}
	case KindSegment:
		switch b.kind {
		case KindPoint:
			return segmentPoint(a.segment, b.point), true
		case KindSegment:
			return segmentSegment(a.segment, b.segment), true
		}
	case KindCircle:
		switch b.kind {
		case KindPoint:
			return circlePoint(a.circle, b.point), true
		case KindSegment:
			return circleSegment(a.circle, b.segment), true
		case KindCircle:
			return circleCircle(a.circle, b.circle), true
		}
	case KindArc:
		switch b.kind {
		case KindPoint:
			return arcPoint(a.arc, b.point), true
		case KindSegment:
			return arcSegment(a.arc, b.segment), true
		case KindArc:
			return arcArc(a.arc, b.arc), true
		case KindCircle:
			return arcCircle(a.arc, b.circle), true
		}
	case KindPolygon:
		return loopAny(a.polygon.edges(), polygonContains(a, b), b), true
	case KindComplexPolygon:
		return loopAny(a.complex.edges(), polygonContains(a, b), b), true
	}
	return Nearest{}, false
}

// polygonContains tests the anchor-inside short-circuit for the closed
// shape a against the other shape's anchor point.
func polygonContains(a, b Shape) *Point {
	anchor := b.AnchorPoint()
	var inside bool
	switch a.kind {
	case KindPolygon:
		inside = a.polygon.Contains(anchor)
	case KindComplexPolygon:
		inside = a.complex.Contains(anchor)
	}
	if inside {
		return &anchor
	}
	return nil
}

// loopAny is the closed-shape case: distance 0 when the other shape's
// anchor is inside, otherwise the minimum over the loop's edges.
func loopAny(edges []edge, anchorInside *Point, other Shape) Nearest {
	if anchorInside != nil {
		p := anchorInside.F()
		return Nearest{D: 0, P: p, Q: p}
	}
	best := Nearest{D: math.Inf(1)}
	for _, e := range edges {
		n := Distance(e.shape(), other)
		if closerThan(n, best) {
			best = n
		}
	}
	return best
}

// ---- primitive cases -------------------------------------------------------

func pointPoint(a, b Point) Nearest {
	return Nearest{
		D: math.Sqrt(float64(SquaredDistance(a, b))),
		P: a.F(),
		Q: b.F(),
	}
}

// segmentPoint projects p onto the segment, clamping the parameter to
// [0, 1]. P lies on the segment, Q is p.
func segmentPoint(s Segment, p Point) Nearest {
	ab := s.B.Sub(s.A)
	den := Norm2(ab)
	if den == 0 {
		return pointPoint(s.A, p)
	}
	t := float64(Dot(p.Sub(s.A), ab)) / float64(den)
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	q := lerp(s.A, s.B, t)
	return Nearest{D: distF(q, p.F()), P: q, Q: p.F()}
}

// segmentsIntersect decides intersection exactly in the integer
// line-equation form and reports one intersection point.
func segmentsIntersect(s1, s2 Segment) (bool, Pointf) {
	p, r := s1.A, s1.B.Sub(s1.A)
	q, s := s2.A, s2.B.Sub(s2.A)
	qp := q.Sub(p)
	denom := Cross(r, s)
	if denom == 0 {
		if Cross(qp, r) != 0 {
			return false, Pointf{}
		}
		rr := Norm2(r)
		if rr == 0 {
			// s1 degenerate: point-on-segment test against s2.
			n := segmentPoint(s2, s1.A)
			return n.D == 0, s1.A.F()
		}
		t0 := Dot(qp, r)
		t1 := t0 + Dot(s, r)
		lo, hi := t0, t1
		if lo > hi {
			lo, hi = hi, lo
		}
		if hi < 0 || lo > rr {
			return false, Pointf{}
		}
		t := lo
		if t < 0 {
			t = 0
		}
		return true, lerp(s1.A, s1.B, float64(t)/float64(rr))
	}
	tN, uN := Cross(qp, s), Cross(qp, r)
	if denom < 0 {
		tN, uN, denom = -tN, -uN, -denom
	}
	if tN < 0 || tN > denom || uN < 0 || uN > denom {
		return false, Pointf{}
	}
	return true, lerp(s1.A, s1.B, float64(tN)/float64(denom))
}

func segmentSegment(s1, s2 Segment) Nearest {
	if hit, pt := segmentsIntersect(s1, s2); hit {
		return Nearest{D: 0, P: pt, Q: pt}
	}
	return closest(
		segmentPoint(s1, s2.A),
		segmentPoint(s1, s2.B),
		segmentPoint(s2, s1.A).flip(),
		segmentPoint(s2, s1.B).flip(),
	)
}

// circlePoint: |c-p| - r, clamped at 0 when p is inside.
func circlePoint(c Circle, p Point) Nearest {
	d2 := SquaredDistance(c.Center, p)
	r2 := Wide(c.Radius) * Wide(c.Radius)
	if d2 <= r2 {
		return Nearest{D: 0, P: p.F(), Q: p.F()}
	}
	dd := math.Sqrt(float64(d2))
	q := c.Center.F().Add(p.Sub(c.Center).F().Scale(float64(c.Radius) / dd))
	return Nearest{D: dd - float64(c.Radius), P: q, Q: p.F()}
}

// circleCurvePoint measures to the circle as a curve: |(|c-p|) - r|. P lies
// on the circle, Q is p.
func circleCurvePoint(center Point, radius Scalar, p Point) Nearest {
	d2 := SquaredDistance(center, p)
	r := float64(radius)
	if d2 == 0 {
		q := center.Add(Pt(radius, 0))
		return Nearest{D: r, P: q.F(), Q: p.F()}
	}
	dd := math.Sqrt(float64(d2))
	q := center.F().Add(p.Sub(center).F().Scale(r / dd))
	return Nearest{D: math.Abs(dd - r), P: q, Q: p.F()}
}

type circleRelation int

const (
	relAway circleRelation = iota
	relAInB
	relBInA
	relIntersected
)

func classifyCircles(a, b Circle) circleRelation {
	d2 := SquaredDistance(a.Center, b.Center)
	sum := Wide(a.Radius) + Wide(b.Radius)
	diff := Wide(a.Radius) - Wide(b.Radius)
	if d2 > sum*sum {
		return relAway
	}
	if d2 < diff*diff {
		if a.Radius < b.Radius {
			return relAInB
		}
		return relBInA
	}
	return relIntersected
}

func centerDirection(from, to Point) Pointf {
	d := to.Sub(from)
	if d.IsZero() {
		return Pointf{X: 1, Y: 0}
	}
	dd := math.Sqrt(float64(Norm2(d)))
	return d.F().Scale(1 / dd)
}

func circleCircle(a, b Circle) Nearest {
	ra, rb := float64(a.Radius), float64(b.Radius)
	dd := math.Sqrt(float64(SquaredDistance(a.Center, b.Center)))
	switch classifyCircles(a, b) {
	case relAway:
		u := centerDirection(a.Center, b.Center)
		return Nearest{
			D: dd - ra - rb,
			P: a.Center.F().Add(u.Scale(ra)),
			Q: b.Center.F().Sub(u.Scale(rb)),
		}
	case relAInB:
		u := centerDirection(b.Center, a.Center)
		return Nearest{
			D: rb - dd - ra,
			P: a.Center.F().Add(u.Scale(ra)),
			Q: b.Center.F().Add(u.Scale(rb)),
		}
	case relBInA:
		u := centerDirection(a.Center, b.Center)
		return Nearest{
			D: ra - dd - rb,
			P: a.Center.F().Add(u.Scale(ra)),
			Q: b.Center.F().Add(u.Scale(rb)),
		}
	}
	pts := circleCircleIntersection(a.Center, a.Radius, b.Center, b.Radius)
	if len(pts) == 0 {
		// Touching within float tolerance: take the point on the center line.
		u := centerDirection(a.Center, b.Center)
		pt := a.Center.F().Add(u.Scale(ra))
		return Nearest{D: 0, P: pt, Q: pt}
	}
	return Nearest{D: 0, P: pts[0], Q: pts[0]}
}

// footOnLine drops the perpendicular from center onto the carrier line of
// s, returning the foot, its segment parameter, and the center-line
// distance.
func footOnLine(center Point, s Segment) (foot Pointf, t, projLen float64) {
	ab := s.B.Sub(s.A)
	den := float64(Norm2(ab))
	t = float64(Dot(center.Sub(s.A), ab)) / den
	foot = lerp(s.A, s.B, t)
	projLen = distF(foot, center.F())
	return foot, t, projLen
}

// circleSegment follows the chord logic: a chord endpoint on the segment
// means contact; otherwise the radial candidate through the projection, or
// the circle against the segment endpoints.
func circleSegment(c Circle, s Segment) Nearest {
	if Norm2(s.B.Sub(s.A)) == 0 {
		return circleCurvePoint(c.Center, c.Radius, s.A)
	}
	r := float64(c.Radius)
	foot, t, projLen := footOnLine(c.Center, s)
	if projLen <= r {
		half := math.Sqrt(r*r - projLen*projLen)
		ablen := math.Sqrt(float64(Norm2(s.B.Sub(s.A))))
		for _, sign := range [2]float64{1, -1} {
			tc := t + sign*half/ablen
			if tc >= 0 && tc <= 1 {
				pt := lerp(s.A, s.B, tc)
				return Nearest{D: 0, P: pt, Q: pt}
			}
		}
	}
	if t >= 0 && t <= 1 {
		if projLen == 0 {
			// Center on the segment; pick the left normal radial.
			ab := s.B.Sub(s.A)
			ablen := math.Sqrt(float64(Norm2(ab)))
			n := fpt(-float64(ab.Y)/ablen, float64(ab.X)/ablen)
			return Nearest{D: r, P: c.Center.F().Add(n.Scale(r)), Q: foot}
		}
		q := c.Center.F().Add(foot.Sub(c.Center.F()).Scale(r / projLen))
		return Nearest{D: math.Abs(projLen - r), P: q, Q: foot}
	}
	return closest(
		circleCurvePoint(c.Center, c.Radius, s.A),
		circleCurvePoint(c.Center, c.Radius, s.B),
	)
}

// arcPoint reduces to the full circle and accepts the radial nearest point
// only when it lies in the arc's angular range; otherwise the arc
// endpoints compete.
func arcPoint(a ArcSegment, p Point) Nearest {
	d := p.Sub(a.Center)
	if !d.IsZero() && a.Range.Contains(AngleOf(d)) {
		return circleCurvePoint(a.Center, a.Radius, p)
	}
	return closest(pointPoint(a.From, p), pointPoint(a.To, p))
}

// arcSegment checks the circle-chord intersections first, accepting only
// those interior to the segment and inside the arc's range; otherwise the
// arc endpoints against the segment plus the radial candidate through the
// projection.
func arcSegment(a ArcSegment, s Segment) Nearest {
	if Norm2(s.B.Sub(s.A)) == 0 {
		return arcPoint(a, s.A)
	}
	r := float64(a.Radius)
	foot, t, projLen := footOnLine(a.Center, s)
	ablen := math.Sqrt(float64(Norm2(s.B.Sub(s.A))))
	if projLen <= r {
		half := math.Sqrt(r*r - projLen*projLen)
		for _, sign := range [2]float64{1, -1} {
			tc := t + sign*half/ablen
			if tc > 0 && tc < 1 {
				pt := lerp(s.A, s.B, tc)
				if a.Range.ContainsF(pt.X-float64(a.Center.X), pt.Y-float64(a.Center.Y)) {
					return Nearest{D: 0, P: pt, Q: pt}
				}
			}
		}
	}
	cands := []Nearest{
		segmentPoint(s, a.From).flip(),
		segmentPoint(s, a.To).flip(),
	}
	if t >= 0 && t <= 1 && projLen > 0 &&
		a.Range.ContainsF(foot.X-float64(a.Center.X), foot.Y-float64(a.Center.Y)) {
		q := a.Center.F().Add(foot.Sub(a.Center.F()).Scale(r / projLen))
		cands = append(cands, Nearest{D: math.Abs(projLen - r), P: q, Q: foot})
	}
	return closest(cands...)
}

// arcArc accepts circle-circle intersections lying on both ranges, else
// falls back to endpoint combinations.
func arcArc(a, b ArcSegment) Nearest {
	for _, pt := range circleCircleIntersection(a.Center, a.Radius, b.Center, b.Radius) {
		if a.Range.ContainsF(pt.X-float64(a.Center.X), pt.Y-float64(a.Center.Y)) &&
			b.Range.ContainsF(pt.X-float64(b.Center.X), pt.Y-float64(b.Center.Y)) {
			return Nearest{D: 0, P: pt, Q: pt}
		}
	}
	return closest(
		arcPoint(b, a.From).flip(),
		arcPoint(b, a.To).flip(),
		arcPoint(a, b.From),
		arcPoint(a, b.To),
	)
}

// arcCircle accepts intersections on the arc's range, else the arc
// endpoints against the circle plus the radial candidate toward the circle
// center.
func arcCircle(a ArcSegment, c Circle) Nearest {
	for _, pt := range circleCircleIntersection(a.Center, a.Radius, c.Center, c.Radius) {
		if a.Range.ContainsF(pt.X-float64(a.Center.X), pt.Y-float64(a.Center.Y)) {
			return Nearest{D: 0, P: pt, Q: pt}
		}
	}
	cands := []Nearest{
		circleCurvePoint(c.Center, c.Radius, a.From).flip(),
		circleCurvePoint(c.Center, c.Radius, a.To).flip(),
	}
	d := c.Center.Sub(a.Center)
	if !d.IsZero() && a.Range.Contains(AngleOf(d)) {
		ra := float64(a.Radius)
		dd := math.Sqrt(float64(Norm2(d)))
		ap := a.Center.F().Add(d.F().Scale(ra / dd))
		gap := distF(ap, c.Center.F())
		if gap > 0 {
			q := c.Center.F().Add(ap.Sub(c.Center.F()).Scale(float64(c.Radius) / gap))
			cands = append(cands, Nearest{D: math.Abs(gap - float64(c.Radius)), P: ap, Q: q})
		}
	}
	return closest(cands...)
}

// circleCircleIntersection returns the 0, 1 or 2 intersection points of two
// circles in floats.
func circleCircleIntersection(c1 Point, r1 Scalar, c2 Point, r2 Scalar) []Pointf {
	d2 := SquaredDistance(c1, c2)
	if d2 == 0 {
		return nil
	}
	sum := Wide(r1) + Wide(r2)
	diff := Wide(r1) - Wide(r2)
	if d2 > sum*sum || d2 < diff*diff {
		return nil
	}
	d := math.Sqrt(float64(d2))
	fr1, fr2 := float64(r1), float64(r2)
	a := (float64(d2) + fr1*fr1 - fr2*fr2) / (2 * d)
	h2 := fr1*fr1 - a*a
	if h2 < 0 {
		h2 = 0
	}
	h := math.Sqrt(h2)
	u := c2.Sub(c1).F().Scale(1 / d)
	base := c1.F().Add(u.Scale(a))
	perp := fpt(-u.Y, u.X)
	if h == 0 {
		return []Pointf{base}
	}
	return []Pointf{base.Add(perp.Scale(h)), base.Sub(perp.Scale(h))}
}
