// Package sector computes cross-entity aggregate statistics over the
// latest per-entity ratio vectors. Aggregation is per-ratio independent: an
// entity missing one ratio is excluded from that ratio's statistics only.
package sector

import (
	"sort"

	"finstat/pkg/core/ratios"
)

// Stats summarizes one ratio across the entities holding a value for it.
// All four statistics are absent when no entity contributed; Count is the
// number of contributors.
type Stats struct {
	Avg    *float64 `json:"avg"`
	Median *float64 `json:"median"`
	Min    *float64 `json:"min"`
	Max    *float64 `json:"max"`
	Count  int      `json:"count"`
}

// Summary maps ratio name → aggregate statistics.
type Summary map[string]Stats

// Aggregate folds many entities' ratio sets into per-ratio statistics.
// Every ratio name appearing in any entity's set gets an entry; an empty
// input yields an empty summary.
func Aggregate(latest map[string]ratios.Set) Summary {
	summary := make(Summary)
	if len(latest) == 0 {
		return summary
	}

	names := make(map[string]struct{})
	for _, set := range latest {
		for name := range set {
			names[name] = struct{}{}
		}
	}

	for name := range names {
		var values []float64
		for _, set := range latest {
			if v, ok := set.Get(name); ok {
				values = append(values, v)
			}
		}
		summary[name] = describe(values)
	}
	return summary
}

func describe(values []float64) Stats {
	if len(values) == 0 {
		return Stats{}
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	sum := 0.0
	for _, v := range sorted {
		sum += v
	}

	avg := sum / float64(len(sorted))
	med := median(sorted)
	min := sorted[0]
	max := sorted[len(sorted)-1]

	return Stats{
		Avg:    &avg,
		Median: &med,
		Min:    &min,
		Max:    &max,
		Count:  len(sorted),
	}
}

// median expects its input sorted.
func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
