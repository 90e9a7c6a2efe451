// Package panel builds the merged daily feature panel and derives the
// leakage-safe training matrices and forecast inputs from it.
package panel

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/gasebb/gas-forecast-etl/internal/domain"
)

// CalendarSource names a series that can establish the panel's base
// calendar.
type CalendarSource string

const (
	CalendarWeather CalendarSource = "weather"
	CalendarPrice   CalendarSource = "price"
	CalendarStress  CalendarSource = "stress"
)

// DefaultCalendarOrder prefers weather (the most complete source), then
// price, then the stress signal.
var DefaultCalendarOrder = []CalendarSource{CalendarWeather, CalendarPrice, CalendarStress}

// Config controls panel assembly.
type Config struct {
	// CalendarOrder is the fallback order for choosing the base-calendar
	// source; the first source with any rows wins. Empty means
	// DefaultCalendarOrder.
	CalendarOrder []CalendarSource
}

// Sources carries the independently loaded input frames. Any of them may
// be empty; an empty source contributes only nulls through the join.
type Sources struct {
	Weather       []domain.WeatherDay
	Price         []domain.PriceDay
	StorageWeekly []domain.Observation
	Stress        []domain.StressDay
	Capacity      []domain.CapacitySnapshot
}

// Build merges all sources onto one daily calendar and derives the
// secondary price features. The result is sorted ascending by date with
// exactly one row per date; stress and capacity columns are zero-filled
// where the join found nothing, and the weekly storage level carries
// forward across calendar days past its last observation. A panel with no
// base-calendar rows is returned empty, not as an error.
func Build(cfg Config, src Sources) []domain.PanelRow {
	weather := dedupeWeather(src.Weather)
	price := dedupePrices(src.Price)
	stress := dedupeStress(src.Stress)
	storage := domain.ForwardFillDaily(src.StorageWeekly)
	capacity := aggregateCapacity(src.Capacity)

	calendar := baseCalendar(cfg.CalendarOrder, weather, price, stress)
	if len(calendar) == 0 {
		return nil
	}

	weatherByDay := make(map[int64]domain.WeatherDay, len(weather))
	for _, w := range weather {
		weatherByDay[domain.FloorToDay(w.Date).Unix()] = w
	}
	priceByDay := priceFeaturesByDay(price)
	storageByDay := make(map[int64]float64, len(storage))
	for _, o := range storage {
		storageByDay[o.Date.Unix()] = o.Value
	}
	stressByDay := make(map[int64]domain.StressDay, len(stress))
	for _, s := range stress {
		stressByDay[s.Date.Unix()] = s
	}

	rows := make([]domain.PanelRow, 0, len(calendar))
	var lastStorage *float64
	for _, d := range calendar {
		key := d.Unix()
		row := domain.PanelRow{Date: d}

		if w, ok := weatherByDay[key]; ok {
			row.HDDMean = domain.Float(w.HDDMean)
			row.HDDMedian = domain.Float(w.HDDMedian)
		}
		if f, ok := priceByDay[key]; ok {
			row.Price = domain.Float(f.price)
			row.PriceLog = f.log
			row.PriceReturn = f.ret
		}

		if v, ok := storageByDay[key]; ok {
			row.StorageBcf = domain.Float(v)
			lastStorage = row.StorageBcf
		} else if lastStorage != nil {
			row.StorageBcf = domain.Float(*lastStorage)
		}
		if s, ok := stressByDay[key]; ok {
			row.ActiveNoticeCount = s.ActiveNoticeCount
			row.CriticalActive = s.CriticalActive
			row.StressEvent = s.StressEvent
		}
		if m, ok := capacity[key]; ok {
			row.CapacityAvailMedian = m
		}

		rows = append(rows, row)
	}
	return rows
}

// priceFeatures carries the price columns joined onto a calendar day.
type priceFeatures struct {
	price float64
	log   *float64
	ret   *float64
}

// priceFeaturesByDay derives the log price and its first difference over
// consecutive price observations before the calendar join, so a return
// spans calendar days with no print in between. An observation whose log
// is undefined yields no return and breaks the chain for the next one.
func priceFeaturesByDay(price []domain.PriceDay) map[int64]priceFeatures {
	out := make(map[int64]priceFeatures, len(price))
	var prevLog *float64
	for _, p := range price {
		f := priceFeatures{price: p.USDPerMMBtu}
		if p.USDPerMMBtu > 0 {
			f.log = domain.Float(math.Log(p.USDPerMMBtu))
		}
		if f.log != nil && prevLog != nil {
			f.ret = domain.Float(*f.log - *prevLog)
		}
		prevLog = f.log
		out[domain.FloorToDay(p.Date).Unix()] = f
	}
	return out
}

// baseCalendar picks the first non-empty calendar source and returns its
// unique dates ascending.
func baseCalendar(order []CalendarSource, weather []domain.WeatherDay, price []domain.PriceDay, stress []domain.StressDay) []time.Time {
	if len(order) == 0 {
		order = DefaultCalendarOrder
	}
	for _, src := range order {
		switch src {
		case CalendarWeather:
			if len(weather) > 0 {
				dates := make([]time.Time, len(weather))
				for i, w := range weather {
					dates[i] = domain.FloorToDay(w.Date)
				}
				return dates
			}
		case CalendarPrice:
			if len(price) > 0 {
				dates := make([]time.Time, len(price))
				for i, p := range price {
					dates[i] = domain.FloorToDay(p.Date)
				}
				return dates
			}
		case CalendarStress:
			if len(stress) > 0 {
				dates := make([]time.Time, len(stress))
				for i, s := range stress {
					dates[i] = s.Date
				}
				return dates
			}
		}
	}
	return nil
}

// aggregateCapacity reduces intraday capacity snapshots to one number per
// day: the median available quantity across that day's postings. Rows
// whose quantity failed numeric coercion upstream are excluded.
func aggregateCapacity(snapshots []domain.CapacitySnapshot) map[int64]float64 {
	byDay := make(map[int64][]float64)
	for _, s := range snapshots {
		if s.PostedAt.IsZero() {
			continue
		}
		if !s.QtyParsedOK {
			continue
		}
		key := domain.FloorToDay(s.PostedAt).Unix()
		byDay[key] = append(byDay[key], s.AvailableQty)
	}

	out := make(map[int64]float64, len(byDay))
	for key, values := range byDay {
		out[key] = median(values)
	}
	return out
}

// median with the midpoint convention for even counts: the mean of the
// middle one or two order statistics.
func median(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	n := len(sorted)
	return stat.Mean(sorted[(n-1)/2:n/2+1], nil)
}

// dedupeWeather sorts ascending by day and keeps the last record per day.
func dedupeWeather(in []domain.WeatherDay) []domain.WeatherDay {
	if len(in) == 0 {
		return nil
	}
	sorted := make([]domain.WeatherDay, len(in))
	copy(sorted, in)
	sort.SliceStable(sorted, func(i, j int) bool {
		return domain.FloorToDay(sorted[i].Date).Before(domain.FloorToDay(sorted[j].Date))
	})
	out := sorted[:0]
	for _, w := range sorted {
		day := domain.FloorToDay(w.Date)
		if len(out) > 0 && domain.FloorToDay(out[len(out)-1].Date).Equal(day) {
			out[len(out)-1] = w
			continue
		}
		out = append(out, w)
	}
	return out
}

func dedupePrices(in []domain.PriceDay) []domain.PriceDay {
	if len(in) == 0 {
		return nil
	}
	sorted := make([]domain.PriceDay, len(in))
	copy(sorted, in)
	sort.SliceStable(sorted, func(i, j int) bool {
		return domain.FloorToDay(sorted[i].Date).Before(domain.FloorToDay(sorted[j].Date))
	})
	out := sorted[:0]
	for _, p := range sorted {
		day := domain.FloorToDay(p.Date)
		if len(out) > 0 && domain.FloorToDay(out[len(out)-1].Date).Equal(day) {
			out[len(out)-1] = p
			continue
		}
		out = append(out, p)
	}
	return out
}

func dedupeStress(in []domain.StressDay) []domain.StressDay {
	if len(in) == 0 {
		return nil
	}
	sorted := make([]domain.StressDay, len(in))
	copy(sorted, in)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})
	out := sorted[:0]
	for _, s := range sorted {
		if len(out) > 0 && out[len(out)-1].Date.Equal(s.Date) {
			out[len(out)-1] = s
			continue
		}
		out = append(out, s)
	}
	return out
}
