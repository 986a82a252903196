// raycast.go
//
// Even-odd point-in-polygon over mixed line and arc edges. A horizontal ray
// from the query point toward +x is crossed with every edge; odd total
// crossing count means inside. Every comparison is exact: crossing offsets
// and directions are handled through their squares in the Wide extension,
// never through a square root.
//
// Line edges are half-open: the endpoint with the smaller y is included,
// the one with the larger y excluded, and horizontal edges contribute
// nothing, so a vertex shared by two edges is never double-counted. Arc
// edges mirror the same asymmetry through winding-directed endpoint
// acceptance. Arc corners whose stored vertex sits off the swept circle
// (the rounded-center case) get a tangent-line correction joining the
// vertex to the true circle point.
package h2g

// Contains reports even-odd containment of q.
func (p Polygon) Contains(q Point) bool {
	count := 0
	for _, e := range p.edges() {
		count += rayCrossesSegment(q, e.seg.A, e.seg.B)
	}
	return count%2 == 1
}

// Contains reports even-odd containment of q over line and arc edges. An
// arc vertex off its swept circle contributes the join-segment correction
// for that end.
func (cp ComplexPolygon) Contains(q Point) bool {
	count := 0
	for _, e := range cp.edges() {
		if !e.isArc {
			count += rayCrossesSegment(q, e.seg.A, e.seg.B)
			continue
		}
		arc := e.arc
		count += rayCrossesArc(q, arc)
		r2 := Wide(arc.Radius) * Wide(arc.Radius)
		if Norm2(arc.From.Sub(arc.Center)) != r2 {
			count += rayCrossesArcJoin(q, arc.From, arc.Radius, arc.Center, arc.Range.From)
		}
		if Norm2(arc.To.Sub(arc.Center)) != r2 {
			count += rayCrossesArcJoin(q, arc.To, arc.Radius, arc.Center, arc.Range.To)
		}
	}
	return count%2 == 1
}

// rayCrossesSegment counts the half-open crossing of the +x ray from q with
// the edge a-b, exactly: the crossing must be strictly right of q, the
// lower-y endpoint is included, the upper excluded.
func rayCrossesSegment(q, a, b Point) int {
	if a.Y == b.Y {
		return 0
	}
	lo, hi := a, b
	if lo.Y > hi.Y {
		lo, hi = hi, lo
	}
	if q.Y < lo.Y || q.Y >= hi.Y {
		return 0
	}
	// Intersection strictly right of q iff q is strictly left of the upward
	// edge lo->hi.
	if Cross(hi.Sub(lo), q.Sub(lo)) > 0 {
		return 1
	}
	return 0
}

// rayCrossesArc counts crossings of the +x ray from q with the arc. The row
// through the circle's top is excluded and the one through its bottom
// handled apart, mirroring the upper-exclusion of line edges. Generic rows
// yield up to two candidate offsets ±sqrt(r²-dy²); each is compared against
// the query and the angular range entirely in squared space.
func rayCrossesArc(q Point, arc ArcSegment) int {
	r := Wide(arc.Radius)
	dy := Wide(q.Y) - Wide(arc.Center.Y)
	if dy >= r || -dy > r {
		return 0
	}
	if dy == -r {
		// Tangent row through the circle bottom: the arc leaves the row
		// upward on both sides of the touch point, or on one side when it
		// terminates there.
		bottom := AngleOf(Pt(0, -1))
		if !arc.Range.Contains(bottom) {
			return 0
		}
		if arc.Range.From.Eq(bottom) || arc.Range.To.Eq(bottom) {
			return 1
		}
		return 2
	}

	ady2 := dy * dy
	diffx2 := r*r - ady2
	diffy2 := ady2
	if dy < 0 {
		diffy2 = -ady2
	}
	t := Wide(q.X) - Wide(arc.Center.X)
	ext := arc.Range.ext()

	count := 0
	// Right crossing at x-offset +sqrt(diffx2).
	if t < 0 || diffx2 > t*t {
		count += ext.crossingCount(extAngle{X: diffx2, Y: diffy2}, ext.CClockwise)
	}
	// Left crossing at x-offset -sqrt(diffx2).
	if t < 0 && t*t > diffx2 {
		count += ext.crossingCount(extAngle{X: -diffx2, Y: diffy2}, !ext.CClockwise)
	}
	return count
}

// crossingCount applies the winding-directed endpoint rule: an interior
// direction always counts; a crossing exactly at the range's from endpoint
// counts iff the sweep prefers it on this side, at the to endpoint iff it
// does not. The right crossing of a counter-clockwise sweep prefers from;
// the left crossing mirrors it.
func (r extAngleRange) crossingCount(d extAngle, fromPreferred bool) int {
	if !r.contains(d) {
		return 0
	}
	eqFrom, eqTo := d.eq(r.From), d.eq(r.To)
	switch {
	case eqFrom && eqTo:
		return 1
	case eqFrom:
		if fromPreferred {
			return 1
		}
		return 0
	case eqTo:
		if fromPreferred {
			return 0
		}
		return 1
	}
	return 1
}

// circlePtLess reports v1 < xc + r*xd/|(xd,yd)| exactly: the coordinate v1
// against the circle point at direction (xd, yd), compared through squares
// with the signs decided first.
func circlePtLess(v1, xc, r, xd, yd Wide) bool {
	a := (v1 - xc) * (v1 - xc)
	b := r * r
	c := xd * xd
	d := yd*yd + c
	s1 := signW(v1 - xc)
	s2 := signW(xd)
	if s1 != s2 {
		return s1 < s2
	}
	if s1 < 0 {
		return CompareRatios(c, d, a, b) < 0
	}
	if s1 == 0 {
		return false
	}
	return CompareRatios(a, b, c, d) < 0
}

func circlePtGreater(v1, xc, r, xd, yd Wide) bool {
	a := (v1 - xc) * (v1 - xc)
	b := r * r
	c := xd * xd
	d := yd*yd + c
	s1 := signW(v1 - xc)
	s2 := signW(xd)
	if s1 != s2 {
		return s1 > s2
	}
	if s1 < 0 {
		return CompareRatios(a, b, c, d) < 0
	}
	if s1 == 0 {
		return false
	}
	return CompareRatios(c, d, a, b) < 0
}

// rayCrossesArcJoin counts the half-open crossing of the +x ray with the
// join segment from an off-circle arc vertex to the true circle point at
// the vertex's angle. The circle end of the segment is irrational, so the
// endpoint ordering, the row bounds and the crossing side all reduce to
// circlePtLess/circlePtGreater and ratio comparisons on squared
// quantities; no square root is taken.
func rayCrossesArcJoin(q, vertex Point, radius Scalar, center Point, angle DAngle) int {
	r := Wide(radius)
	ax, ay := Wide(angle.X), Wide(angle.Y)
	px, py := Wide(q.X), Wide(q.Y)
	vx, vy := Wide(vertex.X), Wide(vertex.Y)
	cx, cy := Wide(center.X), Wide(center.Y)

	// Decided when the query is strictly left of both segment ends, or
	// strictly right of both.
	inLeft := func() (bool, bool) {
		if circlePtLess(px, cx, r, ax, ay) && px < vx {
			return true, true
		}
		if circlePtGreater(px, cx, r, ax, ay) && px > vx {
			return false, true
		}
		return false, false
	}

	ptx, pty := px-vx, py-vy
	cenx, ceny := cx-vx, cy-vy
	vala := cenx*pty - ptx*ceny
	valb := ptx*ay - ax*pty
	s1 := signW(vala)
	s2 := signW(valb)
	vala2 := vala * vala
	valb2 := valb * valb
	r2 := r * r
	d2 := ax*ax + ay*ay

	switch {
	case circlePtLess(vy, cy, r, ay, ax):
		// The circle end lies above the vertex: lower end included.
		if py < vy || !circlePtLess(py, cy, r, ay, ax) {
			return 0
		}
		if left, ok := inLeft(); ok {
			if left {
				return 1
			}
			return 0
		}
		if s1 != s2 {
			if s1 > s2 {
				return 1
			}
			return 0
		}
		switch {
		case s1 < 0:
			if CompareRatios(vala2, r2, valb2, d2) < 0 {
				return 1
			}
		case s1 == 0:
			return 0
		default:
			if CompareRatios(valb2, d2, vala2, r2) < 0 {
				return 1
			}
		}
		return 0

	case circlePtGreater(vy, cy, r, ay, ax):
		// The circle end lies below the vertex.
		if py >= vy || circlePtLess(py, cy, r, ay, ax) {
			return 0
		}
		if left, ok := inLeft(); ok {
			if left {
				return 1
			}
			return 0
		}
		switch {
		case s1 < 0:
			if CompareRatios(valb2, d2, vala2, r2) < 0 {
				return 1
			}
		case s1 == 0:
			return 0
		default:
			if CompareRatios(vala2, r2, valb2, d2) < 0 {
				return 1
			}
		}
		return 0
	}
	// Horizontal join: no crossing.
	return 0
}
