// Command genfixtures generates synthetic source data and model artifacts
// for local development and the test suites. It uses the actual panel and
// forecast packages so the fixtures match real pipeline behavior.
//
// The posterior draws come from a prior sampler, not a fitted chain, so
// the artifacts are shaped like production artifacts without claiming any
// predictive skill.
//
// Usage:
//
//	go run ./cmd/genfixtures \
//	  -models-dir models \
//	  -sources-out data/mock/sources.json \
//	  -days 540 -draws 500 -seed 1
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/gasebb/gas-forecast-etl/internal/domain"
	"github.com/gasebb/gas-forecast-etl/internal/forecast"
	"github.com/gasebb/gas-forecast-etl/internal/panel"
)

var baseDate = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	modelsDir := flag.String("models-dir", "models", "output directory for model artifacts")
	sourcesOut := flag.String("sources-out", "data/mock/sources.json", "output path for the synthetic sources fixture")
	days := flag.Int("days", 540, "number of calendar days to synthesize")
	draws := flag.Int("draws", 500, "posterior draws per parameter")
	seed := flag.Uint64("seed", 1, "random seed")
	flag.Parse()

	// Fix the clock so FittedAt is reproducible across runs.
	domain.SetClock(clockwork.NewFakeClockAt(baseDate.AddDate(0, 0, *days)))
	defer domain.SetClock(nil)

	rng := rand.New(rand.NewSource(*seed))

	sources, notices := synthesizeSources(rng, *days)
	rows := panel.Build(panel.Config{}, sources)
	if len(rows) == 0 {
		return fmt.Errorf("synthesized sources produced an empty panel")
	}

	stressMatrix, err := panel.StressTrainingMatrix(rows)
	if err != nil {
		return fmt.Errorf("stress training matrix: %w", err)
	}
	volMatrix, err := panel.VolTrainingMatrix(rows)
	if err != nil {
		return fmt.Errorf("vol training matrix: %w", err)
	}

	sampler := &priorSampler{rng: rng, draws: *draws}

	stressModel, err := forecast.Fit(context.Background(), forecast.StressEventModel, stressMatrix, sampler, 0.30)
	if err != nil {
		return fmt.Errorf("fit stress model: %w", err)
	}
	volModel, err := forecast.Fit(context.Background(), forecast.VolRiskModel, volMatrix, sampler, 0.02)
	if err != nil {
		return fmt.Errorf("fit vol model: %w", err)
	}

	if err := os.MkdirAll(*modelsDir, 0o755); err != nil {
		return err
	}
	stressPath := filepath.Join(*modelsDir, "stress_event.json")
	if err := forecast.SaveModel(stressPath, stressModel); err != nil {
		return fmt.Errorf("save stress model: %w", err)
	}
	volPath := filepath.Join(*modelsDir, "vol_risk.json")
	if err := forecast.SaveModel(volPath, volModel); err != nil {
		return fmt.Errorf("save vol model: %w", err)
	}

	if err := writeSources(*sourcesOut, sources, notices); err != nil {
		return err
	}

	fmt.Printf("Wrote %d panel rows of sources to %s\n", len(rows), *sourcesOut)
	fmt.Printf("Wrote model artifacts to %s and %s\n", stressPath, volPath)
	return nil
}

// synthesizeSources builds a plausible winter-heavy year-and-a-half of
// source data: seasonal HDD, a mean-reverting price walk, weekly storage
// following the injection/withdrawal cycle, and occasional notices.
func synthesizeSources(rng *rand.Rand, days int) (panel.Sources, []domain.Notice) {
	noise := distuv.Normal{Mu: 0, Sigma: 1, Src: rng}

	var src panel.Sources
	var notices []domain.Notice
	price := 2.8
	noticeSeq := 0

	for i := 0; i < days; i++ {
		day := baseDate.AddDate(0, 0, i)
		season := math.Cos(2 * math.Pi * float64(day.YearDay()) / 365)

		hdd := math.Max(0, 12+14*season+3*noise.Rand())
		src.Weather = append(src.Weather, domain.WeatherDay{
			Date:         day,
			Pipeline:     "algonquin",
			RegionID:     "new_england",
			HDDMean:      hdd,
			HDDMedian:    math.Max(0, hdd+noise.Rand()),
			StationsUsed: 12,
			Source:       "synthetic",
		})

		price = math.Max(0.5, price+0.1*(2.8-price)+0.15*noise.Rand())
		src.Price = append(src.Price, domain.PriceDay{Date: day, USDPerMMBtu: price})

		// Weekly storage level every Friday.
		if day.Weekday() == time.Friday {
			level := 2500 - 900*season + 40*noise.Rand()
			src.StorageWeekly = append(src.StorageWeekly, domain.Observation{Date: day, Value: level})
		}

		// Cold days occasionally trigger notices, some critical.
		if hdd > 20 && rng.Float64() < 0.15 {
			noticeSeq++
			notices = append(notices, domain.Notice{
				ID:          fmt.Sprintf("N-%04d", noticeSeq),
				PostedAt:    day.Add(14 * time.Hour),
				EffectiveAt: day,
				EndAt:       day.AddDate(0, 0, 1+rng.Intn(3)),
				Critical:    rng.Float64() < 0.4,
			})
		}

		// A handful of capacity postings per day.
		for loc := 0; loc < 3; loc++ {
			src.Capacity = append(src.Capacity, domain.CapacitySnapshot{
				PostedAt:     day,
				LocationName: fmt.Sprintf("compressor-%d", loc+1),
				AvailableQty: math.Max(0, 900000-30000*season*hdd/12+20000*noise.Rand()),
				QtyParsedOK:  true,
			})
		}
	}

	src.Stress = domain.BuildStressSignal(notices)
	return src, notices
}

// sourcesFixture is the on-disk fixture shape: the joined sources plus the
// raw notices so loaders can re-derive the stress signal.
type sourcesFixture struct {
	Weather       []domain.WeatherDay        `json:"weather"`
	Price         []domain.PriceDay          `json:"price"`
	StorageWeekly []domain.Observation       `json:"storage_weekly"`
	Notices       []domain.Notice            `json:"notices"`
	Capacity      []domain.CapacitySnapshot  `json:"capacity"`
}

func writeSources(path string, src panel.Sources, notices []domain.Notice) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(sourcesFixture{
		Weather:       src.Weather,
		Price:         src.Price,
		StorageWeekly: src.StorageWeekly,
		Notices:       notices,
		Capacity:      src.Capacity,
	}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// priorSampler draws every coefficient from a weakly informative prior.
type priorSampler struct {
	rng   *rand.Rand
	draws int
}

func (s *priorSampler) Sample(_ context.Context, features map[string][]float64, _ []float64) (forecast.Draws, error) {
	normal := func(mu, sigma float64) []float64 {
		d := distuv.Normal{Mu: mu, Sigma: sigma, Src: s.rng}
		out := make([]float64, s.draws)
		for i := range out {
			out[i] = d.Rand()
		}
		return out
	}

	draws := forecast.Draws{
		forecast.InterceptParam: normal(-2, 0.5),
		forecast.SigmaParam:     normal(0.08, 0.01),
	}
	for name := range features {
		draws[forecast.CoefPrefix+name] = normal(0.3, 0.2)
	}

	nu := make([]float64, s.draws)
	for i := range nu {
		nu[i] = 2.1 + s.rng.Float64()*8
	}
	draws[forecast.NuParam] = nu

	return draws, nil
}
