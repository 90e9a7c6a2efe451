package domain

import "sort"

// ForwardFillDaily resamples a coarser-than-daily series onto a daily
// calendar spanning [first, last] observation. Each day takes the most
// recently observed value at or before it; days before the first
// observation are not emitted, so a leading gap stays the caller's
// problem. Duplicate dates keep the last occurrence. Empty in, empty out.
func ForwardFillDaily(obs []Observation) []Observation {
	if len(obs) == 0 {
		return nil
	}

	sorted := make([]Observation, len(obs))
	copy(sorted, obs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	byDay := make(map[int64]float64, len(sorted))
	for _, o := range sorted {
		byDay[FloorToDay(o.Date).Unix()] = o.Value
	}

	first := FloorToDay(sorted[0].Date)
	last := FloorToDay(sorted[len(sorted)-1].Date)

	var out []Observation
	current := sorted[0].Value
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		if v, ok := byDay[d.Unix()]; ok {
			current = v
		}
		out = append(out, Observation{Date: d, Value: current})
	}
	return out
}
