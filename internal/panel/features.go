package panel

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/gasebb/gas-forecast-etl/internal/domain"
	"github.com/gasebb/gas-forecast-etl/internal/forecast"
)

// Feature names shared with the fitted models' coefficient naming.
const (
	FeatHDDLag      = "hdd_lag1"
	FeatStorageLag  = "storage_lag1"
	FeatCapacityLag = "cap_avail_lag1"
	FeatNoticesLag  = "notices_lag1"

	FeatOpStress = "op"
	FeatPersist  = "persist"
	FeatHDD5d    = "hdd"
	FeatStorageZ = "storage"
)

// stressDays7dWindow and hdd5dWindow are the rolling windows feeding the
// volatility model's persistence features.
const (
	stressDays7dWindow = 7
	hdd5dWindow        = 5
)

// StressTrainingMatrix assembles the logistic stress-event model's design
// matrix. Every predictor is the previous day's value: same-day
// information never predicts a same-day outcome. Continuous predictors are
// standardized after row filtering; the scalers are returned for serving.
//
// HDD and storage columns are included when their source loaded any data;
// the zero-filled notice-count and capacity columns are always included.
func StressTrainingMatrix(rows []domain.PanelRow) (forecast.TrainingMatrix, error) {
	if len(rows) < 2 {
		return forecast.TrainingMatrix{}, fmt.Errorf("%w: %d panel rows, need at least 2", forecast.ErrNotEnoughData, len(rows))
	}

	raw := map[string][]float64{}
	if anyHDD(rows) {
		raw[FeatHDDLag] = lag1(columnHDDMedian(rows))
	}
	if anyStorage(rows) {
		raw[FeatStorageLag] = lag1(columnStorage(rows))
	}
	raw[FeatCapacityLag] = lag1(columnCapacity(rows))
	raw[FeatNoticesLag] = lag1(columnNotices(rows))

	target := make([]float64, len(rows))
	for i, r := range rows {
		target[i] = float64(r.StressEvent)
	}

	names := orderedNames(raw, []string{FeatHDDLag, FeatStorageLag, FeatCapacityLag, FeatNoticesLag})
	kept := completeRows(target, raw, names)
	if len(kept) == 0 {
		return forecast.TrainingMatrix{}, fmt.Errorf("%w: no complete rows after lagging", forecast.ErrNotEnoughData)
	}

	matrix := forecast.TrainingMatrix{
		FeatureNames: names,
		Columns:      map[string][]float64{},
		Target:       take(target, kept),
		Scalers:      map[string]forecast.Scaler{},
	}
	for _, name := range names {
		col := take(raw[name], kept)
		s := forecast.FitScaler(col)
		matrix.Scalers[name] = s
		matrix.Columns[name] = s.Apply(col)
	}
	return matrix, nil
}

// VolTrainingMatrix assembles the heavy-tailed volatility model's design
// matrix. The target is the day's absolute log price return; predictors
// are the previous day's stress flag (binary, unscaled), 7-day stress-day
// count, 5-day HDD mean, and full-sample storage z-score, the latter three
// standardized.
func VolTrainingMatrix(rows []domain.PanelRow) (forecast.TrainingMatrix, error) {
	if len(rows) < 2 {
		return forecast.TrainingMatrix{}, fmt.Errorf("%w: %d panel rows, need at least 2", forecast.ErrNotEnoughData, len(rows))
	}
	if !anyPriceReturn(rows) {
		return forecast.TrainingMatrix{}, fmt.Errorf("%w: hh_ret", forecast.ErrMissingColumn)
	}
	if !anyHDD(rows) {
		return forecast.TrainingMatrix{}, fmt.Errorf("%w: hdd_median", forecast.ErrMissingColumn)
	}
	if !anyStorage(rows) {
		return forecast.TrainingMatrix{}, fmt.Errorf("%w: working_gas_bcf", forecast.ErrMissingColumn)
	}

	op := columnStressEvent(rows)
	storageCol := columnStorage(rows)
	storageZ := forecast.FitScaler(storageCol).Apply(storageCol)

	raw := map[string][]float64{
		FeatOpStress: lag1(op),
		FeatPersist:  lag1(rollingSum(op, stressDays7dWindow, 1)),
		FeatHDD5d:    lag1(rollingMean(columnHDDMedian(rows), hdd5dWindow, 1)),
		FeatStorageZ: lag1(storageZ),
	}

	target := make([]float64, len(rows))
	for i, r := range rows {
		if r.PriceReturn == nil {
			target[i] = math.NaN()
			continue
		}
		target[i] = math.Abs(*r.PriceReturn)
	}

	names := []string{FeatOpStress, FeatPersist, FeatHDD5d, FeatStorageZ}
	kept := completeRows(target, raw, names)
	if len(kept) == 0 {
		return forecast.TrainingMatrix{}, fmt.Errorf("%w: no complete rows after lagging", forecast.ErrNotEnoughData)
	}

	matrix := forecast.TrainingMatrix{
		FeatureNames: names,
		Columns:      map[string][]float64{FeatOpStress: take(raw[FeatOpStress], kept)},
		Target:       take(target, kept),
		Scalers:      map[string]forecast.Scaler{},
	}
	// The stress flag is a 0/1 indicator and passes through unscaled.
	for _, name := range []string{FeatPersist, FeatHDD5d, FeatStorageZ} {
		col := take(raw[name], kept)
		s := forecast.FitScaler(col)
		matrix.Scalers[name] = s
		matrix.Columns[name] = s.Apply(col)
	}
	return matrix, nil
}

// --- column extraction (NaN marks null) ---

func columnHDDMedian(rows []domain.PanelRow) []float64 { return nullable(rows, func(r domain.PanelRow) *float64 { return r.HDDMedian }) }
func columnStorage(rows []domain.PanelRow) []float64 {
	return nullable(rows, func(r domain.PanelRow) *float64 { return r.StorageBcf })
}

func columnCapacity(rows []domain.PanelRow) []float64 {
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = r.CapacityAvailMedian
	}
	return out
}

func columnNotices(rows []domain.PanelRow) []float64 {
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = float64(r.ActiveNoticeCount)
	}
	return out
}

func columnStressEvent(rows []domain.PanelRow) []float64 {
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = float64(r.StressEvent)
	}
	return out
}

func nullable(rows []domain.PanelRow, get func(domain.PanelRow) *float64) []float64 {
	out := make([]float64, len(rows))
	for i, r := range rows {
		if v := get(r); v != nil {
			out[i] = *v
		} else {
			out[i] = math.NaN()
		}
	}
	return out
}

func anyHDD(rows []domain.PanelRow) bool {
	for _, r := range rows {
		if r.HDDMedian != nil {
			return true
		}
	}
	return false
}

func anyStorage(rows []domain.PanelRow) bool {
	for _, r := range rows {
		if r.StorageBcf != nil {
			return true
		}
	}
	return false
}

func anyPriceReturn(rows []domain.PanelRow) bool {
	for _, r := range rows {
		if r.PriceReturn != nil {
			return true
		}
	}
	return false
}

// --- lag / rolling / filtering helpers ---

// lag1 shifts a column down by one row; row 0 becomes NaN.
func lag1(vals []float64) []float64 {
	out := make([]float64, len(vals))
	if len(vals) == 0 {
		return out
	}
	out[0] = math.NaN()
	copy(out[1:], vals[:len(vals)-1])
	return out
}

// rollingMean computes a trailing-window mean, skipping NaN entries.
// Positions with fewer than minPeriods usable values are NaN.
func rollingMean(vals []float64, window, minPeriods int) []float64 {
	return rolling(vals, window, minPeriods, func(w []float64) float64 {
		return stat.Mean(w, nil)
	})
}

// rollingSum computes a trailing-window sum with the same NaN handling.
func rollingSum(vals []float64, window, minPeriods int) []float64 {
	return rolling(vals, window, minPeriods, floats.Sum)
}

func rolling(vals []float64, window, minPeriods int, finish func(window []float64) float64) []float64 {
	out := make([]float64, len(vals))
	scratch := make([]float64, 0, window)
	for i := range vals {
		lo := i - window + 1
		if lo < 0 {
			lo = 0
		}
		scratch = scratch[:0]
		for j := lo; j <= i; j++ {
			if math.IsNaN(vals[j]) {
				continue
			}
			scratch = append(scratch, vals[j])
		}
		if len(scratch) < minPeriods {
			out[i] = math.NaN()
			continue
		}
		out[i] = finish(scratch)
	}
	return out
}

// completeRows returns the indexes where the target and every named
// column are non-NaN.
func completeRows(target []float64, cols map[string][]float64, names []string) []int {
	var kept []int
	for i := range target {
		if math.IsNaN(target[i]) {
			continue
		}
		ok := true
		for _, name := range names {
			if math.IsNaN(cols[name][i]) {
				ok = false
				break
			}
		}
		if ok {
			kept = append(kept, i)
		}
	}
	return kept
}

func take(vals []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for i, j := range idx {
		out[i] = vals[j]
	}
	return out
}

func orderedNames(cols map[string][]float64, order []string) []string {
	var names []string
	for _, name := range order {
		if _, ok := cols[name]; ok {
			names = append(names, name)
		}
	}
	return names
}
