package forecast

import (
	"sort"
	"strconv"
	"time"

	"forecastd/internal/domain"
)

// unknownPart buckets rows whose part number is missing.
const unknownPart = "__UNKNOWN__"

// BuildLeadTimeSeries groups lead-time extract rows into daily series per
// part: the mean lead time (days) of orders entered on each day. The
// aggregate series is built from the historical rows across all parts
// before any fitting happens, never from per-part forecasts.
func BuildLeadTimeSeries(rows []domain.Row) map[string][]Observation {
	perPart := make(map[string]map[time.Time][]float64)
	global := make(map[time.Time][]float64)

	for _, row := range rows {
		entered, ok := asTime(row["date_entered"])
		if !ok {
			continue
		}
		leadDays, ok := asFloat(row["lead_time_days"])
		if !ok || leadDays < 0 {
			continue
		}
		part := asString(row["part_no"], unknownPart)
		bucket := dayOf(entered)

		if perPart[part] == nil {
			perPart[part] = make(map[time.Time][]float64)
		}
		perPart[part][bucket] = append(perPart[part][bucket], leadDays)
		global[bucket] = append(global[bucket], leadDays)
	}

	series := make(map[string][]Observation, len(perPart)+1)
	for part, buckets := range perPart {
		series[part] = meansToObservations(buckets)
	}
	series[domain.SeriesKeyAll] = meansToObservations(global)
	return series
}

// BuildSalesSeries groups monthly sales history rows into series per part:
// total quantity per month. The aggregate series sums quantities across
// all parts per month.
func BuildSalesSeries(rows []domain.Row) map[string][]Observation {
	perPart := make(map[string]map[time.Time]float64)
	global := make(map[time.Time]float64)

	for _, row := range rows {
		monthStart, ok := asTime(row["month_start"])
		if !ok {
			continue
		}
		quantity, ok := asFloat(row["quantity"])
		if !ok {
			continue
		}
		part := asString(row["part_no"], unknownPart)
		bucket := time.Date(monthStart.Year(), monthStart.Month(), 1, 0, 0, 0, 0, time.UTC)

		if perPart[part] == nil {
			perPart[part] = make(map[time.Time]float64)
		}
		perPart[part][bucket] += quantity
		global[bucket] += quantity
	}

	series := make(map[string][]Observation, len(perPart)+1)
	for part, buckets := range perPart {
		series[part] = sumsToObservations(buckets)
	}
	series[domain.SeriesKeyAll] = sumsToObservations(global)
	return series
}

func meansToObservations(buckets map[time.Time][]float64) []Observation {
	obs := make([]Observation, 0, len(buckets))
	for bucket, values := range buckets {
		obs = append(obs, Observation{Bucket: bucket, Value: mean(values)})
	}
	sortObservations(obs)
	return obs
}

func sumsToObservations(buckets map[time.Time]float64) []Observation {
	obs := make([]Observation, 0, len(buckets))
	for bucket, value := range buckets {
		obs = append(obs, Observation{Bucket: bucket, Value: value})
	}
	sortObservations(obs)
	return obs
}

func sortObservations(obs []Observation) {
	sort.Slice(obs, func(i, j int) bool { return obs[i].Bucket.Before(obs[j].Bucket) })
}

func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// timeLayouts covers the formats the two drivers hand back for date and
// datetime columns.
var timeLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02",
}

func asTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		for _, layout := range timeLayouts {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed, true
			}
		}
	}
	return time.Time{}, false
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case int:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}

func asString(v any, fallback string) string {
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return fallback
}
