// Package forecast implements the forecast computation engine: a
// statistical baseline per horizon step plus a Monte Carlo quantile band.
// The engine is a pure function of historical observations and owns no
// persisted state.
package forecast

import (
	"crypto/sha256"
	"encoding/binary"
	"math/rand"
	"sort"
	"time"

	"forecastd/internal/domain"
)

// Bucket frequencies per forecast domain: lead-time series are daily,
// sales series are monthly.
type Frequency string

const (
	FreqDaily   Frequency = "daily"
	FreqMonthly Frequency = "monthly"
)

// ModelVersion tags every run produced by this engine implementation.
const ModelVersion = "baseline+mc-v1"

// Observation is one bucketed historical value.
type Observation struct {
	Bucket time.Time
	Value  float64
}

// Config controls the simulation. Zero values fall back to the documented
// defaults.
type Config struct {
	// Simulations is the number of Monte Carlo sample paths (default 1000,
	// floor 100).
	Simulations int
	// Seed makes the simulation reproducible. The per-series seed is
	// derived from it, so distinct series still get distinct draws.
	Seed int64
	// MinObservations is the minimum history length for a series to be
	// forecast (default 3).
	MinObservations int
}

func (c Config) simulations() int {
	if c.Simulations <= 0 {
		return 1000
	}
	if c.Simulations < 100 {
		return 100
	}
	return c.Simulations
}

// MinObs returns the effective minimum observation count.
func (c Config) MinObs() int {
	if c.MinObservations <= 0 {
		return 3
	}
	return c.MinObservations
}

// Engine computes forecast points from historical observations.
type Engine struct {
	cfg Config
}

// NewEngine creates an Engine with the given configuration.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// MinObservations returns the minimum history length the engine's caller
// should require before scheduling a per-product series.
func (e *Engine) MinObservations() int {
	return e.cfg.MinObs()
}

// Compute produces the ordered forecast point sequence for one series over
// the given horizon. Observations are sorted by bucket internally. An
// empty series is a hard InsufficientHistory error — quantiles are never
// fabricated from zero data.
//
// The quantile band at each step is read from one shared sample set, so
// P10 <= P50 <= P90 holds by construction of order statistics. A
// zero-variance series yields P10 = P50 = P90 = baseline with no spread.
func (e *Engine) Compute(seriesKey string, obs []Observation, horizon int, freq Frequency) ([]domain.ForecastPoint, error) {
	if len(obs) == 0 {
		return nil, domain.ErrInsufficientHistory("series %q has no usable history", seriesKey)
	}
	if horizon <= 0 {
		return nil, domain.ErrValidation("horizon must be positive, got %d", horizon)
	}

	sorted := make([]Observation, len(obs))
	copy(sorted, obs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Bucket.Before(sorted[j].Bucket) })

	values := make([]float64, len(sorted))
	for i, o := range sorted {
		values[i] = o.Value
	}

	baseline := baselineForecast(values, horizon)
	vol := volatility(values)

	points := make([]domain.ForecastPoint, horizon)
	lastBucket := sorted[len(sorted)-1].Bucket

	if vol <= 0 {
		// Degenerate input: single observation or zero variance.
		for step := 0; step < horizon; step++ {
			v := baseline[step]
			points[step] = domain.ForecastPoint{
				Timestamp: nextBucket(lastBucket, step+1, freq),
				Value:     v,
				P10:       v,
				P50:       v,
				P90:       v,
			}
		}
		return points, nil
	}

	rng := rand.New(rand.NewSource(e.cfg.Seed + seriesSeed(seriesKey)))
	p10, p50, p90 := simulateQuantiles(rng, baseline, vol, e.cfg.simulations())

	for step := 0; step < horizon; step++ {
		points[step] = domain.ForecastPoint{
			Timestamp: nextBucket(lastBucket, step+1, freq),
			Value:     baseline[step],
			P10:       p10[step],
			P50:       p50[step],
			P90:       p90[step],
		}
	}
	return points, nil
}

// seriesSeed derives a stable per-series seed offset from the series key.
func seriesSeed(seriesKey string) int64 {
	digest := sha256.Sum256([]byte(seriesKey))
	return int64(binary.BigEndian.Uint32(digest[:4]))
}

// nextBucket returns the bucket timestamp steps ahead of the last
// historical bucket. Monthly buckets snap to the first of the month.
func nextBucket(last time.Time, steps int, freq Frequency) time.Time {
	switch freq {
	case FreqMonthly:
		return time.Date(last.Year(), last.Month()+time.Month(steps), 1, 0, 0, 0, 0, time.UTC)
	default:
		return time.Date(last.Year(), last.Month(), last.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, steps)
	}
}
