package stats

import (
	"math"
	"slices"
)

// Quantile returns the p-th quantile (0 ≤ p ≤ 1) using linear interpolation
// between order statistics (Hyndman–Fan type 7, the R and NumPy default):
//
//	h = (n−1)·p,  Q = x[⌊h⌋] + (h−⌊h⌋)·(x[⌊h⌋+1] − x[⌊h⌋])
//
// The input is not modified. An empty slice yields NaN.
func Quantile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	return quantileSorted(sorted, p)
}

// quantileSorted is Quantile on an already sorted slice.
func quantileSorted(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	p = math.Min(math.Max(p, 0), 1)
	h := float64(n-1) * p
	lo := int(math.Floor(h))
	if lo >= n-1 {
		return sorted[n-1]
	}
	return sorted[lo] + (h-float64(lo))*(sorted[lo+1]-sorted[lo])
}

// Percentiles holds the median and the 90% interval of a sample.
type Percentiles struct {
	Median float64
	P5     float64
	P95    float64
}

// Describe computes median, p5 and p95 with a single sort.
func Describe(values []float64) Percentiles {
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	return Percentiles{
		Median: quantileSorted(sorted, 0.50),
		P5:     quantileSorted(sorted, 0.05),
		P95:    quantileSorted(sorted, 0.95),
	}
}
