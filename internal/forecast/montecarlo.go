package forecast

import (
	"math"
	"math/rand"
	"sort"
)

// simulateQuantiles draws sims normal samples around the baseline at each
// horizon step and reads the empirical 10th, 50th, and 90th percentiles
// from that one shared sample set. Samples are floored at zero since all
// forecast quantities are non-negative.
func simulateQuantiles(rng *rand.Rand, baseline []float64, vol float64, sims int) (p10, p50, p90 []float64) {
	horizon := len(baseline)
	p10 = make([]float64, horizon)
	p50 = make([]float64, horizon)
	p90 = make([]float64, horizon)

	draws := make([]float64, sims)
	for step := 0; step < horizon; step++ {
		for i := range draws {
			draws[i] = math.Max(rng.NormFloat64()*vol+baseline[step], 0)
		}
		sort.Float64s(draws)
		p10[step] = percentile(draws, 0.10)
		p50[step] = percentile(draws, 0.50)
		p90[step] = percentile(draws, 0.90)
	}
	return p10, p50, p90
}

// percentile reads q from an already-sorted sample using linear
// interpolation between closest ranks.
func percentile(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}

	rank := q * float64(n-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
