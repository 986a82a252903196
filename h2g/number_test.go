package h2g

import (
	"math/big"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompareRatiosTable(t *testing.T) {
	cases := []struct {
		a, b, c, d Wide
		want       int
	}{
		{1, 2, 1, 2, 0},
		{1, 2, 2, 4, 0},
		{1, 2, 2, 3, -1},
		{2, 3, 1, 2, 1},
		{-1, 2, 1, 2, -1},
		{1, -2, 1, 2, -1},
		{-1, -2, 1, 2, 0},
		{0, 5, 0, -7, 0},
		{0, 5, 1, 100000, -1},
		{-3, 7, -2, 7, -1},
		{7, 1, 6, 1, 1},
		{1, 3, 333333333, 1000000000, 1},
	}
	for _, tc := range cases {
		got := CompareRatios(tc.a, tc.b, tc.c, tc.d)
		assert.Equal(t, tc.want, got, "compare %d/%d vs %d/%d", tc.a, tc.b, tc.c, tc.d)
	}
}

func TestCompareRatiosNoOverflow(t *testing.T) {
	// Cross-multiplying these would overflow int64; the descent must not.
	big1 := Wide(1) << 62
	assert.Equal(t, 1, CompareRatios(big1, 3, big1-1, 3))
	assert.Equal(t, -1, CompareRatios(big1-1, big1, big1, big1-1))
	assert.Equal(t, 0, CompareRatios(big1, big1, big1-1, big1-1))
}

func TestCompareRatiosAgainstBigRat(t *testing.T) {
	rng := rand.New(rand.NewSource(41))
	nonZero := func(limit int64) Wide {
		for {
			v := rng.Int63n(2*limit) - limit
			if v != 0 {
				return v
			}
		}
	}
	for i := 0; i < 2000; i++ {
		a := rng.Int63n(2_000_001) - 1_000_000
		c := rng.Int63n(2_000_001) - 1_000_000
		b := nonZero(1_000_000)
		d := nonZero(1_000_000)
		want := new(big.Rat).SetFrac64(a, b).Cmp(new(big.Rat).SetFrac64(c, d))
		got := CompareRatios(a, b, c, d)
		require.Equal(t, want, got, "%d/%d vs %d/%d", a, b, c, d)
	}
}

func TestSqExtPreservesAngularOrder(t *testing.T) {
	// The squared image of a direction must sort exactly like the
	// direction itself; the ray caster relies on this to compare
	// irrational crossing offsets through their squares.
	for deg1 := 0; deg1 < 360; deg1 += 5 {
		for deg2 := 0; deg2 < 360; deg2 += 5 {
			a, b := AngleOf(degVec(deg1)), AngleOf(degVec(deg2))
			require.Equal(t, a.Cmp(b), a.ext().cmp(b.ext()),
				"degrees %d vs %d", deg1, deg2)
		}
	}
}
