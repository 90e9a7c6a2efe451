package forecast

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// minNu keeps the predictive Student-t's variance finite; the sampler's
// prior already pushes nu above 2 but individual draws can dip below.
const minNu = 2.1

// VolForecast is the posterior-predictive output of the heavy-tailed
// volatility-risk model for one input point.
type VolForecast struct {
	// Samples holds one predictive draw of next-day absolute return per
	// posterior draw.
	Samples []float64
	// ProbExceed is the Monte Carlo fraction of predictive samples above
	// the exceedance threshold.
	ProbExceed float64
}

// ForecastVolRisk draws one Student-t predictive sample per posterior
// draw, centered at that draw's linear predictor with that draw's scale,
// and estimates P(y > threshold). Pass a seeded src for reproducible
// sampling; nil uses the global source.
func ForecastVolRisk(draws Draws, x map[string]float64, scalers map[string]Scaler, threshold float64, src rand.Source) (VolForecast, error) {
	mu, err := linearPredictor(draws, x, scalers)
	if err != nil {
		return VolForecast{}, err
	}
	sigma, err := draws.require(SigmaParam)
	if err != nil {
		return VolForecast{}, err
	}
	nu, err := draws.require(NuParam)
	if err != nil {
		return VolForecast{}, err
	}

	samples := make([]float64, len(mu))
	exceed := 0
	for i := range mu {
		df := nu[i]
		if math.IsNaN(df) || df < minNu {
			df = minNu
		}
		scale := sigma[i]
		if math.IsNaN(scale) || scale < 0 {
			scale = 0
		}

		t := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df, Src: src}
		samples[i] = mu[i] + scale*t.Rand()
		if samples[i] > threshold {
			exceed++
		}
	}

	prob := 0.0
	if len(samples) > 0 {
		prob = float64(exceed) / float64(len(samples))
	}
	return VolForecast{Samples: samples, ProbExceed: prob}, nil
}
