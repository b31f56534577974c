package stats

import (
	"math"
	"sort"
)

// Percentiles calculates multiple percentiles (0-100) at once using linear
// interpolation between closest ranks.
func Percentiles(values []float64, ps []float64) []float64 {
	if len(values) == 0 {
		return make([]float64, len(ps))
	}

	// Sort once for efficiency
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	results := make([]float64, len(ps))
	for i, p := range ps {
		p = math.Max(0, math.Min(100, p))

		index := p / 100.0 * float64(len(sorted)-1)
		lower := int(math.Floor(index))
		upper := int(math.Ceil(index))

		if lower == upper {
			results[i] = sorted[lower]
		} else {
			weight := index - float64(lower)
			results[i] = sorted[lower]*(1-weight) + sorted[upper]*weight
		}
	}

	return results
}

// NearestRank returns sorted(values)[floor(n*q)] when at least minN values
// are present, and the maximum otherwise.
func NearestRank(values []float64, q float64, minN int) float64 {
	if len(values) == 0 {
		return 0
	}
	if len(values) < minN {
		return Max(values)
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	idx := int(math.Floor(float64(len(sorted)) * q))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
