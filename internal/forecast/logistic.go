package forecast

import (
	"math"
	"sort"
)

// StressForecast is the posterior-predictive output of the logistic
// stress-event model for one input point.
type StressForecast struct {
	// PSamples holds one event probability per posterior draw.
	PSamples []float64
	// ProbAlert is the fraction of posterior draws whose event
	// probability exceeds the alert threshold. It is a probability about
	// a probability, distinct from the model's own p output.
	ProbAlert float64
}

// ForecastStressEvent evaluates the logistic model's linear predictor
// across all posterior draws for one raw input point, transforms through
// the sigmoid, and derives the alert probability at the given threshold.
//
// Features in x without a matching coefficient in the draws are skipped:
// models fit on a subset of the available predictors stay servable.
// Features without a scaler enter unstandardized.
func ForecastStressEvent(draws Draws, x map[string]float64, scalers map[string]Scaler, threshold float64) (StressForecast, error) {
	eta, err := linearPredictor(draws, x, scalers)
	if err != nil {
		return StressForecast{}, err
	}

	p := make([]float64, len(eta))
	exceed := 0
	for i, e := range eta {
		p[i] = sigmoid(e)
		if p[i] > threshold {
			exceed++
		}
	}

	prob := 0.0
	if len(p) > 0 {
		prob = float64(exceed) / float64(len(p))
	}
	return StressForecast{PSamples: p, ProbAlert: prob}, nil
}

// linearPredictor computes eta_d = a_d + sum_f b_{f,d} * z(x_f) for every
// posterior draw d. Validates draw vector lengths and the intercept's
// presence before touching coefficients.
func linearPredictor(draws Draws, x map[string]float64, scalers map[string]Scaler) ([]float64, error) {
	if _, err := draws.Len(); err != nil {
		return nil, err
	}
	intercept, err := draws.require(InterceptParam)
	if err != nil {
		return nil, err
	}

	eta := make([]float64, len(intercept))
	copy(eta, intercept)

	// Stable feature order keeps float summation deterministic.
	names := make([]string, 0, len(x))
	for name := range x {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		coef, ok := draws.Coef(name)
		if !ok {
			continue
		}
		val := x[name]
		if s, ok := scalers[name]; ok {
			val = s.Z(val)
		}
		for i := range eta {
			eta[i] += coef[i] * val
		}
	}
	return eta, nil
}

func sigmoid(v float64) float64 {
	return 1.0 / (1.0 + math.Exp(-v))
}
