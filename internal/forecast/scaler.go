package forecast

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// epsStd is the floor below which a standard deviation is considered
// degenerate. Constant training columns legitimately produce std 0.
const epsStd = 1e-8

// Scaler holds a feature's standardization parameters, computed once at
// fit time and reused verbatim at inference. It is never refit on serving
// data.
type Scaler struct {
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
}

// FitScaler computes mean and population standard deviation over the
// non-NaN entries of values. A degenerate std is floored to 1.0 so that
// standardizing a constant column yields zeros instead of blowing up.
func FitScaler(values []float64) Scaler {
	clean := values[:0:0]
	for _, v := range values {
		if !math.IsNaN(v) {
			clean = append(clean, v)
		}
	}
	if len(clean) == 0 {
		return Scaler{Mean: 0, Std: 1}
	}

	mean := stat.Mean(clean, nil)
	std := math.Sqrt(stat.MomentAbout(2, clean, mean, nil))
	if math.IsNaN(std) || std <= epsStd {
		std = 1.0
	}
	return Scaler{Mean: mean, Std: std}
}

// Z standardizes x. A zero or undefined std contributes a neutral z of 0
// rather than an error; constant data is not corruption.
func (s Scaler) Z(x float64) float64 {
	if math.IsNaN(s.Std) || s.Std == 0 {
		return 0
	}
	return (x - s.Mean) / s.Std
}

// Apply standardizes a whole column in place-order, returning a new slice.
func (s Scaler) Apply(values []float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = s.Z(v)
	}
	return out
}
