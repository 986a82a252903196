// angle.go
//
// Directionless rational angles. A DAngle is the direction of a 2-D vector;
// two vectors are equal iff their cross product is 0 and their dot product
// is positive. The total order starts at the positive-x axis and sweeps
// counter-clockwise. Comparisons go through CompareRatios so no product can
// overflow the Wide extension.
package h2g

// DAngle is the direction of the vector (X, Y). The zero vector carries no
// direction and is rejected by AngleOf.
type DAngle struct {
	X, Y Scalar
}

// AngleOf returns the direction of v.
func AngleOf(v Point) DAngle {
	if v.IsZero() {
		panic("h2g: zero vector has no direction")
	}
	return DAngle{X: v.X, Y: v.Y}
}

func (a DAngle) vec() Point { return Point{a.X, a.Y} }

// Eq reports same-direction equality.
func (a DAngle) Eq(b DAngle) bool {
	return Cross(a.vec(), b.vec()) == 0 && Dot(a.vec(), b.vec()) > 0
}

// sector partitions the circle: 0 is the positive-x axis, 1 the open upper
// half-plane, 2 the negative-x axis, 3 the open lower half-plane.
func (a DAngle) sector() int {
	switch {
	case a.Y == 0 && a.X > 0:
		return 0
	case a.Y > 0:
		return 1
	case a.Y == 0:
		return 2
	}
	return 3
}

// Cmp orders angles counter-clockwise from the positive-x axis: -1 when a
// sweeps earlier than b, 0 on equality, +1 when later. Within an open
// half-plane the later angle is the one with the smaller x/y cotangent.
func (a DAngle) Cmp(b DAngle) int {
	if a.Eq(b) {
		return 0
	}
	sa, sb := a.sector(), b.sector()
	if sa != sb {
		if sa < sb {
			return -1
		}
		return 1
	}
	return CompareRatios(Wide(b.X), Wide(b.Y), Wide(a.X), Wide(a.Y))
}

// Less reports a strictly earlier counter-clockwise position than b.
func (a DAngle) Less(b DAngle) bool { return a.Cmp(b) < 0 }

// DAngleRange is the angular interval swept from From to To in the stated
// direction. From == To denotes the full circle.
type DAngleRange struct {
	From, To    DAngle
	CClockwise  bool
}

// NewDAngleRange builds the sweep from from to to.
func NewDAngleRange(from, to DAngle, cclockwise bool) DAngleRange {
	return DAngleRange{From: from, To: to, CClockwise: cclockwise}
}

// Full reports whether the range covers the whole circle.
func (r DAngleRange) Full() bool { return r.From.Eq(r.To) }

// Contains reports whether a lies on the sweep. An angle equal to From or
// To is always contained; the interior check is strict so ray casting never
// double-counts a boundary angle.
func (r DAngleRange) Contains(a DAngle) bool {
	if r.Full() {
		return true
	}
	if a.Eq(r.From) || a.Eq(r.To) {
		return true
	}
	from, to := r.From, r.To
	if !r.CClockwise {
		from, to = to, from
	}
	if from.Less(to) {
		return from.Less(a) && a.Less(to)
	}
	return from.Less(a) || a.Less(to)
}

// ---- extended (squared) variant ----------------------------------------------
//
// A ray crossing of a circle row has the direction (±sqrt(r²-dy²), dy) from
// the center: the x-component is only known by its square. Replacing each
// component with its sign-carrying square preserves the angular order (the
// sector is decided by the signs, and within an open half-plane x/y and
// sign(x)x²/y² are ordered alike), so such directions compare exactly
// against squared range endpoints through CompareRatios.

// extAngle is a direction with Wide components in squared space.
type extAngle struct {
	X, Y Wide
}

func sqExt(v Wide) Wide {
	if v < 0 {
		return -(v * v)
	}
	return v * v
}

func (a DAngle) ext() extAngle {
	return extAngle{X: sqExt(Wide(a.X)), Y: sqExt(Wide(a.Y))}
}

func (a extAngle) sector() int {
	switch {
	case a.Y == 0 && a.X > 0:
		return 0
	case a.Y > 0:
		return 1
	case a.Y == 0:
		return 2
	}
	return 3
}

func (a extAngle) cmp(b extAngle) int {
	sa, sb := a.sector(), b.sector()
	if sa != sb {
		if sa < sb {
			return -1
		}
		return 1
	}
	if sa == 0 || sa == 2 {
		return 0
	}
	return CompareRatios(b.X, b.Y, a.X, a.Y)
}

func (a extAngle) eq(b extAngle) bool   { return a.cmp(b) == 0 }
func (a extAngle) less(b extAngle) bool { return a.cmp(b) < 0 }

// extAngleRange is a DAngleRange with squared endpoints.
type extAngleRange struct {
	From, To   extAngle
	CClockwise bool
}

func (r DAngleRange) ext() extAngleRange {
	return extAngleRange{From: r.From.ext(), To: r.To.ext(), CClockwise: r.CClockwise}
}

func (r extAngleRange) full() bool { return r.From.eq(r.To) }

func (r extAngleRange) contains(a extAngle) bool {
	if r.full() {
		return true
	}
	if a.eq(r.From) || a.eq(r.To) {
		return true
	}
	from, to := r.From, r.To
	if !r.CClockwise {
		from, to = to, from
	}
	if from.less(to) {
		return from.less(a) && a.less(to)
	}
	return from.less(a) || a.less(to)
}

// ---- floating-direction variant --------------------------------------------
//
// Distance queries produce candidate points whose direction from a circle
// center is irrational. Containment for those goes through the same sector
// and cotangent logic in float64.

func sectorF(x, y float64) int {
	switch {
	case y == 0 && x > 0:
		return 0
	case y > 0:
		return 1
	case y == 0:
		return 2
	}
	return 3
}

// cmpDirF orders the float direction (ax, ay) against (bx, by).
func cmpDirF(ax, ay, bx, by float64) int {
	cross := ax*by - ay*bx
	dot := ax*bx + ay*by
	if cross == 0 && dot > 0 {
		return 0
	}
	sa, sb := sectorF(ax, ay), sectorF(bx, by)
	if sa != sb {
		if sa < sb {
			return -1
		}
		return 1
	}
	// Same open half-plane: a earlier than b iff ax/ay > bx/by; ay*by > 0
	// in either half, so the cross-multiplied form keeps its direction.
	v := ax*by - bx*ay
	switch {
	case v > 0:
		return -1
	case v < 0:
		return 1
	}
	return 0
}

// ContainsF is Contains for a direction given in floats.
func (r DAngleRange) ContainsF(x, y float64) bool {
	if r.Full() {
		return true
	}
	fx, fy := float64(r.From.X), float64(r.From.Y)
	tx, ty := float64(r.To.X), float64(r.To.Y)
	if cmpDirF(x, y, fx, fy) == 0 || cmpDirF(x, y, tx, ty) == 0 {
		return true
	}
	if !r.CClockwise {
		fx, fy, tx, ty = tx, ty, fx, fy
	}
	if cmpDirF(fx, fy, tx, ty) < 0 {
		return cmpDirF(fx, fy, x, y) < 0 && cmpDirF(x, y, tx, ty) < 0
	}
	return cmpDirF(fx, fy, x, y) < 0 || cmpDirF(x, y, tx, ty) < 0
}
