package stats

import (
	"math/big"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMedian(t *testing.T) {
	t.Run("empty slice is zero", func(t *testing.T) {
		assert.Equal(t, uint64(0), Median(nil))
	})

	t.Run("odd length returns middle element", func(t *testing.T) {
		assert.Equal(t, uint64(3), Median([]uint64{5, 1, 3}))
	})

	t.Run("even length returns mean of middle pair", func(t *testing.T) {
		assert.Equal(t, uint64(25), Median([]uint64{40, 10, 20, 30}))
		assert.Equal(t, uint64(2), Median([]uint64{2, 3}))
	})

	t.Run("does not overflow on large values", func(t *testing.T) {
		max := ^uint64(0)
		assert.Equal(t, max-1, Median([]uint64{max - 2, max}))
	})

	t.Run("is independent of input order", func(t *testing.T) {
		xs := []uint64{9, 4, 7, 1, 8, 2}
		reversed := slices.Clone(xs)
		slices.Reverse(reversed)
		assert.Equal(t, Median(xs), Median(reversed))
	})

	t.Run("appending the median moves it at most one step", func(t *testing.T) {
		xs := []uint64{10, 20, 30, 40}
		m := Median(xs)
		m2 := Median(append(slices.Clone(xs), m))
		assert.Equal(t, m, m2)
	})
}

func TestMedianInSet(t *testing.T) {
	t.Run("returns element closest to the median", func(t *testing.T) {
		// median is 25, 20 and 30 are equally close
		assert.Equal(t, uint64(20), MedianInSet([]uint64{10, 30, 20, 40}))
	})

	t.Run("odd length returns the median itself", func(t *testing.T) {
		assert.Equal(t, uint64(7), MedianInSet([]uint64{7, 100, 1}))
	})

	t.Run("empty slice is zero", func(t *testing.T) {
		assert.Equal(t, uint64(0), MedianInSet([]uint64{}))
	})
}

func TestStandardDeviation(t *testing.T) {
	t.Run("fewer than two values is zero", func(t *testing.T) {
		assert.Equal(t, uint64(0), StandardDeviation(nil))
		assert.Equal(t, uint64(0), StandardDeviation([]uint64{42}))
	})

	t.Run("identical values have zero deviation", func(t *testing.T) {
		assert.Equal(t, uint64(0), StandardDeviation([]uint64{5, 5, 5, 5}))
	})

	t.Run("sample deviation uses n-1", func(t *testing.T) {
		// mean 5, squared deviations 9+1+1+1+0+0+4+16 = 32, 32/7 = 4, sqrt 2
		assert.Equal(t, uint64(2), StandardDeviation([]uint64{2, 4, 4, 4, 5, 5, 7, 9}))
	})

	t.Run("symmetric triple around a centre recovers the spread", func(t *testing.T) {
		assert.Equal(t, uint64(1_000), StandardDeviation([]uint64{9_000, 10_000, 11_000}))
	})

	t.Run("large scaled values do not overflow", func(t *testing.T) {
		xs := []uint64{42_000_000_000_000, 43_000_000_000_000}
		// mean 42.5e12, squared deviations 2 * (5e11)^2 = 5e23, / 1 -> sqrt ~ 7.07e11
		sd := StandardDeviation(xs)
		assert.InDelta(t, 707_106_781_186, float64(sd), 1)
	})
}

func TestISqrt(t *testing.T) {
	cases := map[int64]int64{
		0:  0,
		1:  1,
		2:  1,
		3:  1,
		4:  2,
		15: 3,
		16: 4,
		17: 4,
		99: 9,
	}
	for in, want := range cases {
		assert.Equal(t, want, ISqrt(big.NewInt(in)).Int64(), "isqrt(%d)", in)
	}

	big10e24, _ := new(big.Int).SetString("1000000000000000000000000", 10)
	assert.Equal(t, "1000000000000", ISqrt(big10e24).String())
}

func TestWithinPercent(t *testing.T) {
	assert.True(t, WithinPercent(120, 100, 20))
	assert.True(t, WithinPercent(80, 100, 20))
	assert.False(t, WithinPercent(121, 100, 20))
	assert.False(t, WithinPercent(79, 100, 20))
	assert.True(t, WithinPercent(100, 100, 0))
}
