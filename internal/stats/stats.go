// Package stats holds the integer statistics used to fuse scaled rates.
package stats

import (
	"math/big"
	"slices"
)

// Sorted returns an ascending copy of xs.
func Sorted(xs []uint64) []uint64 {
	out := slices.Clone(xs)
	slices.Sort(out)
	return out
}

// Median returns the middle element of xs after sorting, or the mean of the
// two middle elements (rounded down) when len(xs) is even. It returns 0 for
// an empty slice.
func Median(xs []uint64) uint64 {
	if len(xs) == 0 {
		return 0
	}
	sorted := Sorted(xs)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	lo, hi := sorted[mid-1], sorted[mid]
	return lo + (hi-lo)/2
}

// MedianInSet returns the element of xs closest to Median(xs). Ties go to
// the smaller element.
func MedianInSet(xs []uint64) uint64 {
	if len(xs) == 0 {
		return 0
	}
	m := Median(xs)
	sorted := Sorted(xs)
	best := sorted[0]
	bestDiff := absDiff(best, m)
	for _, x := range sorted[1:] {
		if d := absDiff(x, m); d < bestDiff {
			best, bestDiff = x, d
		}
	}
	return best
}

// StandardDeviation returns the sample standard deviation (n-1 denominator)
// of xs, truncated to an integer. It is 0 when len(xs) < 2.
func StandardDeviation(xs []uint64) uint64 {
	n := len(xs)
	if n < 2 {
		return 0
	}
	sum := new(big.Int)
	for _, x := range xs {
		sum.Add(sum, new(big.Int).SetUint64(x))
	}
	mean := new(big.Int).Quo(sum, big.NewInt(int64(n)))

	acc := new(big.Int)
	diff := new(big.Int)
	for _, x := range xs {
		diff.SetUint64(x)
		diff.Sub(diff, mean)
		acc.Add(acc, new(big.Int).Mul(diff, diff))
	}
	acc.Quo(acc, big.NewInt(int64(n-1)))
	return ISqrt(acc).Uint64()
}

// ISqrt computes floor(sqrt(n)) for n >= 0 with the bit-by-bit method.
func ISqrt(n *big.Int) *big.Int {
	res := new(big.Int)
	if n.Sign() <= 0 {
		return res
	}
	num := new(big.Int).Set(n)
	// highest power of four <= n
	bit := new(big.Int).Lsh(big.NewInt(1), uint((n.BitLen()-1)&^1))
	t := new(big.Int)
	for bit.Sign() > 0 {
		t.Add(res, bit)
		if num.Cmp(t) >= 0 {
			num.Sub(num, t)
			res.Rsh(res, 1)
			res.Add(res, bit)
		} else {
			res.Rsh(res, 1)
		}
		bit.Rsh(bit, 2)
	}
	return res
}

// WithinPercent reports whether x deviates from reference by at most
// percent% of reference.
func WithinPercent(x, reference, percent uint64) bool {
	lhs := new(big.Int).Mul(new(big.Int).SetUint64(absDiff(x, reference)), big.NewInt(100))
	rhs := new(big.Int).Mul(new(big.Int).SetUint64(reference), new(big.Int).SetUint64(percent))
	return lhs.Cmp(rhs) <= 0
}

func absDiff(a, b uint64) uint64 {
	if a > b {
		return a - b
	}
	return b - a
}
