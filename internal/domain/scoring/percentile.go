// Package scoring computes cohort-relative Crew Scores from raw activity counters.
package scoring

import "sort"

// Percentiles returns the mid-rank percentile of every sample within the sample set,
// in input order. Tied values share the midpoint of their block:
//
//	p(v) = (count(< v) + (count(== v) - 1) / 2) / (N - 1)
//
// A cohort of zero or one member maps every sample to 1.0.
func Percentiles(samples []float64) []float64 {
	n := len(samples)
	out := make([]float64, n)
	if n <= 1 {
		for i := range out {
			out[i] = 1.0
		}
		return out
	}

	sorted := make([]float64, n)
	copy(sorted, samples)
	sort.Float64s(sorted)

	denom := float64(n - 1)
	for i, v := range samples {
		below := sort.SearchFloat64s(sorted, v)
		// first index strictly greater than v
		above := sort.Search(n, func(j int) bool { return sorted[j] > v })
		equal := above - below
		out[i] = (float64(below) + float64(equal-1)/2) / denom
	}
	return out
}
