package panel

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/gasebb/gas-forecast-etl/internal/domain"
	"github.com/gasebb/gas-forecast-etl/internal/forecast"
)

// forecastWindow is the short rolling window behind the vol-risk inputs;
// storageBaselineDays bounds the long-run storage mean (~3 calendar years).
const (
	forecastWindow      = 3
	storageBaselineDays = 365 * 3
)

// DeriveStressInputs extracts the raw inputs for the stress-event model
// from the newest panel row. Serving uses today's observed values to
// predict tomorrow, which keeps the fitted model's one-day lag intact.
// Keys match the model's coefficient names.
func DeriveStressInputs(rows []domain.PanelRow) (map[string]float64, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: empty panel", forecast.ErrNotEnoughData)
	}
	last := rows[len(rows)-1]

	x := map[string]float64{
		FeatCapacityLag: last.CapacityAvailMedian,
		FeatNoticesLag:  float64(last.ActiveNoticeCount),
	}
	if last.HDDMedian != nil {
		x[FeatHDDLag] = *last.HDDMedian
	}
	if last.StorageBcf != nil {
		x[FeatStorageLag] = *last.StorageBcf
	}
	return x, nil
}

// DeriveVolInputs derives the volatility model's inputs from the panel's
// trailing rows: the 3-day mean stress flag, the mean absolute price
// return over the window days that have one (non-trading days carry no
// return), the latest HDD, and the latest storage level's deviation from
// its long-run mean. A panel shorter than the rolling window is a named
// not-enough-data failure rather than a silently fabricated input.
func DeriveVolInputs(rows []domain.PanelRow) (map[string]float64, error) {
	if len(rows) < forecastWindow {
		return nil, fmt.Errorf("%w: %d panel rows, need %d for rolling inputs", forecast.ErrNotEnoughData, len(rows), forecastWindow)
	}

	tail := rows[len(rows)-forecastWindow:]
	last := rows[len(rows)-1]

	ops := make([]float64, 0, forecastWindow)
	rets := make([]float64, 0, forecastWindow)
	for _, r := range tail {
		ops = append(ops, float64(r.StressEvent))
		if r.PriceReturn != nil {
			rets = append(rets, math.Abs(*r.PriceReturn))
		}
	}
	if len(rets) == 0 {
		return nil, fmt.Errorf("%w: hh_ret in the last %d days", forecast.ErrMissingColumn, forecastWindow)
	}

	if last.HDDMedian == nil {
		return nil, fmt.Errorf("%w: hdd_median on the latest day", forecast.ErrMissingColumn)
	}
	if last.StorageBcf == nil {
		return nil, fmt.Errorf("%w: working_gas_bcf on the latest day", forecast.ErrMissingColumn)
	}

	baseline, ok := storageBaseline(rows)
	if !ok {
		return nil, fmt.Errorf("%w: working_gas_bcf history for the storage baseline", forecast.ErrMissingColumn)
	}

	return map[string]float64{
		FeatOpStress: stat.Mean(ops, nil),
		FeatPersist:  stat.Mean(rets, nil),
		FeatHDD5d:    *last.HDDMedian,
		FeatStorageZ: *last.StorageBcf - baseline,
	}, nil
}

// storageBaseline averages the storage column over the trailing baseline
// window, using whatever portion of it the panel covers.
func storageBaseline(rows []domain.PanelRow) (float64, bool) {
	lo := len(rows) - storageBaselineDays
	if lo < 0 {
		lo = 0
	}
	levels := make([]float64, 0, len(rows)-lo)
	for _, r := range rows[lo:] {
		if r.StorageBcf != nil {
			levels = append(levels, *r.StorageBcf)
		}
	}
	if len(levels) == 0 {
		return 0, false
	}
	return stat.Mean(levels, nil), true
}
