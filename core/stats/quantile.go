// Package stats holds the small set of order statistics the preprocessing
// stages share. Moments come from gonum's stat package; quantiles are computed
// here because the outlier and robust-scaling rules are defined with linear
// interpolation between order statistics, which gonum's CumulantKind and
// LinInterp estimators do not reproduce.
package stats

import (
	"math"
	"sort"
)

// Quantile returns the p-quantile of x with linear interpolation between the
// closest ranks: h = (n-1)·p. NaN values are ignored; an empty input gives NaN.
func Quantile(p float64, x []float64) float64 {
	sorted := SortedFinite(x)
	return QuantileSorted(p, sorted)
}

// QuantileSorted is Quantile for an already sorted slice without NaN.
func QuantileSorted(p float64, sorted []float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if n == 1 {
		return sorted[0]
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}
	h := float64(n-1) * p
	lo := math.Floor(h)
	i := int(lo)
	if i+1 >= n {
		return sorted[n-1]
	}
	return sorted[i] + (h-lo)*(sorted[i+1]-sorted[i])
}

// Median returns the 0.5 quantile of x.
func Median(x []float64) float64 {
	return Quantile(0.5, x)
}

// SortedFinite returns a sorted copy of x without NaN values.
func SortedFinite(x []float64) []float64 {
	out := make([]float64, 0, len(x))
	for _, v := range x {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	sort.Float64s(out)
	return out
}

// NonMissing returns x without NaN values, preserving order.
func NonMissing(x []float64) []float64 {
	out := make([]float64, 0, len(x))
	for _, v := range x {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}
