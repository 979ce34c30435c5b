package services

import (
	"math"
	"slices"
	"sort"

	apperrors "retail-rfm/internal/errors"
)

const quintiles = 5

// quintileBins assigns each value a bin in 0..4 using equal-population
// quantile edges. Edges are linearly interpolated at 0, .2, .4, .6, .8 and 1;
// the first bin is closed on both sides, the others are (lo, hi].
//
// Binning fails when there are fewer than five distinct values or when two
// edges coincide.
func quintileBins(metric string, values []float64) ([]int, error) {
	sorted := slices.Clone(values)
	slices.Sort(sorted)

	distinct := distinctCount(sorted)
	if distinct < quintiles {
		return nil, apperrors.InsufficientVariance(metric, distinct)
	}

	edges := make([]float64, quintiles+1)
	for i := range edges {
		edges[i] = quantile(sorted, float64(i)/quintiles)
	}
	for i := 1; i < len(edges); i++ {
		if edges[i] <= edges[i-1] {
			return nil, apperrors.InsufficientVariance(metric, distinct)
		}
	}

	bins := make([]int, len(values))
	for i, v := range values {
		// Index of the first edge >= v; v == edges[0] falls into bin 0.
		idx := sort.SearchFloat64s(edges, v)
		bins[i] = max(idx-1, 0)
	}
	return bins, nil
}

func distinctCount(values []float64) int {
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	return len(slices.Compact(sorted))
}

func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// rankFirst ranks values ascending, 1..n, breaking ties by position.
func rankFirst(values []float64) []float64 {
	order := make([]int, len(values))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return values[order[a]] < values[order[b]]
	})

	ranks := make([]float64, len(values))
	for rank, idx := range order {
		ranks[idx] = float64(rank + 1)
	}
	return ranks
}
