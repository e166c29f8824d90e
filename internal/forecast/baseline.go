package forecast

import "math"

// baselineForecast produces the deterministic point estimate per horizon
// step: a blend of the recent level (trailing-window mean over the last 12
// buckets) and a least-squares linear trend projection, floored at zero. A
// single-observation series degrades to a flat projection of that value.
func baselineForecast(values []float64, horizon int) []float64 {
	n := len(values)

	window := values
	if n > 12 {
		window = values[n-12:]
	}
	recentLevel := mean(window)

	var slope, intercept float64
	if n >= 2 {
		slope, intercept = linearFit(values)
	} else {
		slope, intercept = 0, values[n-1]
	}

	out := make([]float64, horizon)
	for step := 1; step <= horizon; step++ {
		trend := intercept + slope*float64(n-1+step)
		projected := 0.65*recentLevel + 0.35*trend
		out[step-1] = math.Max(projected, 0)
	}
	return out
}

// volatility estimates the noise scale of a series as the population
// standard deviation of its first differences; a single observation has no
// measurable volatility.
func volatility(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	diffs := make([]float64, len(values)-1)
	for i := 1; i < len(values); i++ {
		diffs[i-1] = values[i] - values[i-1]
	}
	return stddev(diffs)
}

// linearFit returns the least-squares slope and intercept of values over
// x = 0..n-1.
func linearFit(values []float64) (slope, intercept float64) {
	n := float64(len(values))
	var sumX, sumY, sumXY, sumXX float64
	for i, y := range values {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0, sumY / n
	}
	slope = (n*sumXY - sumX*sumY) / denom
	intercept = (sumY - slope*sumX) / n
	return slope, intercept
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func stddev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := mean(values)
	var sum float64
	for _, v := range values {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)))
}
