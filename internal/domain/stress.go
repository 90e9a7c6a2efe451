package domain

import (
	"sort"
	"time"
)

// noticeWindow is a notice's validity interval floored to whole days.
type noticeWindow struct {
	id       string
	start    time.Time
	end      time.Time
	critical bool
}

// BuildStressSignal expands notices into a per-day operational-stress
// signal. Each notice ticks every calendar day in its inclusive
// [effective, end] window; a notice with no end collapses to a single day.
// Notices with no usable timestamp at all are skipped. The result has one
// row per ticked day, sorted ascending, and is empty for an empty input.
func BuildStressSignal(notices []Notice) []StressDay {
	type dayAgg struct {
		ids      map[string]struct{}
		critical bool
	}
	days := make(map[time.Time]*dayAgg)

	for _, n := range notices {
		w, ok := noticeValidityWindow(n)
		if !ok {
			continue
		}
		for d := w.start; !d.After(w.end); d = d.AddDate(0, 0, 1) {
			agg, exists := days[d]
			if !exists {
				agg = &dayAgg{ids: make(map[string]struct{})}
				days[d] = agg
			}
			agg.ids[w.id] = struct{}{}
			if w.critical {
				agg.critical = true
			}
		}
	}

	out := make([]StressDay, 0, len(days))
	for d, agg := range days {
		sd := StressDay{
			Date:              d,
			ActiveNoticeCount: len(agg.ids),
			CriticalActive:    agg.critical,
		}
		if sd.CriticalActive {
			sd.StressEvent = 1
		}
		out = append(out, sd)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// noticeValidityWindow resolves a notice's daily validity window.
// Missing effective falls back to posted; missing end collapses to the
// effective day rather than assuming the notice is still in force.
// Returns ok=false when no timestamp survives coercion.
func noticeValidityWindow(n Notice) (noticeWindow, bool) {
	effective := n.EffectiveAt
	if effective.IsZero() {
		effective = n.PostedAt
	}
	if effective.IsZero() {
		return noticeWindow{}, false
	}

	end := n.EndAt
	if end.IsZero() {
		end = effective
	}

	start := FloorToDay(effective)
	stop := FloorToDay(end)
	if stop.Before(start) {
		stop = start
	}
	return noticeWindow{id: n.ID, start: start, end: stop, critical: n.Critical}, true
}

// FloorToDay truncates an instant to midnight UTC of its calendar day.
func FloorToDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
