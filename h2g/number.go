// number.go
//
// Package h2g is the 2-D geometry kernel: exact-arithmetic shape algebra
// over an integer base type, pairwise nearest-point and distance queries,
// and even-odd point-in-polygon tests. All operations are pure functions of
// their inputs; the kernel holds no global state and is re-entrant.
//
// Coordinates use Scalar (int32); every product (dot, cross, squared norm,
// rational comparison) is carried in the Wide (int64) extension so
// predicates stay exact. Square roots fall back to floating point.
package h2g

// Scalar is the base coordinate type.
type Scalar = int32

// Wide is the extension type used for products of Scalars.
type Wide = int64

// CompareRatios decides a/b <=> c/d exactly over integers with b, d != 0,
// returning -1, 0 or +1. Sign patterns are compared first; on agreement the
// fractions descend continued-fraction style through division and
// remainder, so no multiplication that could overflow is required.
func CompareRatios(a, b, c, d Wide) int {
	if b == 0 || d == 0 {
		panic("h2g: zero denominator in ratio comparison")
	}
	if b < 0 {
		a, b = -a, -b
	}
	if d < 0 {
		c, d = -c, -d
	}
	sa, sc := signW(a), signW(c)
	if sa != sc {
		if sa < sc {
			return -1
		}
		return 1
	}
	if sa == 0 {
		return 0
	}
	if sa < 0 {
		// Both negative: compare magnitudes reversed.
		a, b, c, d = -c, d, -a, b
	}
	flip := 1
	for {
		q1, r1 := a/b, a%b
		q2, r2 := c/d, c%d
		if q1 != q2 {
			if q1 < q2 {
				return -flip
			}
			return flip
		}
		switch {
		case r1 == 0 && r2 == 0:
			return 0
		case r1 == 0:
			return -flip
		case r2 == 0:
			return flip
		}
		// a/b < c/d  iff  b/r1 > d/r2 ; remainders strictly decrease.
		a, b, c, d = b, r1, d, r2
		flip = -flip
	}
}

func signW(v Wide) int {
	switch {
	case v < 0:
		return -1
	case v > 0:
		return 1
	}
	return 0
}
