// Command validate performs integrity checks across the serving inputs: the
// fitted model artifacts, the synthetic sources fixture, and the panel the
// pipeline would assemble from it. It verifies artifact completeness,
// panel invariants, and that both models produce a usable probability.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -models-dir models \
//	  -sources data/mock/sources.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/exp/rand"

	"github.com/gasebb/gas-forecast-etl/internal/domain"
	"github.com/gasebb/gas-forecast-etl/internal/forecast"
	"github.com/gasebb/gas-forecast-etl/internal/panel"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	modelsDir := flag.String("models-dir", "models", "directory containing model artifacts")
	sourcesPath := flag.String("sources", "data/mock/sources.json", "path to the sources fixture JSON")
	flag.Parse()

	if code := run(*modelsDir, *sourcesPath); code != 0 {
		os.Exit(code)
	}
}

func run(modelsDir, sourcesPath string) int {
	fmt.Println("=== Forecast Serving Integrity Validation ===")
	fmt.Println()

	stressModel, err := forecast.LoadModel(filepath.Join(modelsDir, "stress_event.json"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load stress artifact: %v\n", err)
		return 1
	}
	volModel, err := forecast.LoadModel(filepath.Join(modelsDir, "vol_risk.json"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load vol artifact: %v\n", err)
		return 1
	}

	fixture, err := loadFixture(sourcesPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load sources fixture: %v\n", err)
		return 1
	}

	sources := panel.Sources{
		Weather:       fixture.Weather,
		Price:         fixture.Price,
		StorageWeekly: fixture.StorageWeekly,
		Stress:        domain.BuildStressSignal(fixture.Notices),
		Capacity:      fixture.Capacity,
	}
	rows := panel.Build(panel.Config{}, sources)

	phases := []*phase{
		validateArtifact("stress artifact completeness", stressModel, forecast.StressEventModel),
		validateArtifact("vol artifact completeness", volModel, forecast.VolRiskModel),
		validatePanel(rows),
		validateServing(rows, stressModel, volModel),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Rows: %d weather, %d price, %d storage, %d notices, %d capacity, %d panel\n",
		len(fixture.Weather), len(fixture.Price), len(fixture.StorageWeekly),
		len(fixture.Notices), len(fixture.Capacity), len(rows))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// sourcesFixture mirrors the shape written by genfixtures.
type sourcesFixture struct {
	Weather       []domain.WeatherDay       `json:"weather"`
	Price         []domain.PriceDay         `json:"price"`
	StorageWeekly []domain.Observation      `json:"storage_weekly"`
	Notices       []domain.Notice           `json:"notices"`
	Capacity      []domain.CapacitySnapshot `json:"capacity"`
}

func loadFixture(path string) (sourcesFixture, error) {
	var f sourcesFixture
	data, err := os.ReadFile(path)
	if err != nil {
		return f, err
	}
	if err := json.Unmarshal(data, &f); err != nil {
		return f, err
	}
	return f, nil
}

// ── Validation phases ──

func validateArtifact(name string, m forecast.Model, wantKind forecast.ModelKind) *phase {
	p := &phase{name: name}

	if m.Kind != wantKind {
		p.errorf("kind is %q, want %q", m.Kind, wantKind)
	}
	if len(m.FeatureNames) == 0 {
		p.errorf("no feature names")
	}
	if m.FittedAt.IsZero() {
		p.errorf("missing fitted_at timestamp")
	}

	for _, feat := range m.FeatureNames {
		if _, ok := m.Draws[forecast.CoefPrefix+feat]; !ok {
			p.errorf("feature %q has no coefficient draws", feat)
		}
		// The binary stress flag is served unscaled.
		if feat == panel.FeatOpStress {
			continue
		}
		if _, ok := m.Scalers[feat]; !ok {
			p.errorf("feature %q has no scaler", feat)
		}
	}
	for drawName := range m.Draws {
		if drawName == forecast.InterceptParam || drawName == forecast.SigmaParam || drawName == forecast.NuParam {
			continue
		}
		if !strings.HasPrefix(drawName, forecast.CoefPrefix) {
			p.errorf("unrecognized draw name %q", drawName)
		}
	}
	for feat, s := range m.Scalers {
		if s.Std <= 0 {
			p.errorf("scaler for %q has non-positive std %v", feat, s.Std)
		}
	}
	return p
}

func validatePanel(rows []domain.PanelRow) *phase {
	p := &phase{name: "panel invariants"}

	if len(rows) == 0 {
		p.errorf("panel is empty")
		return p
	}

	for i, r := range rows {
		if !r.Date.Equal(domain.FloorToDay(r.Date)) {
			p.errorf("row %d date %s is not floored to midnight UTC", i, r.Date)
		}
		if i > 0 && !rows[i-1].Date.Before(r.Date) {
			p.errorf("row %d date %s does not strictly follow %s", i, r.Date, rows[i-1].Date)
		}
		if r.ActiveNoticeCount < 0 {
			p.errorf("row %d has negative notice count", i)
		}
		if r.StressEvent != 0 && r.StressEvent != 1 {
			p.errorf("row %d stress event is %d, want 0 or 1", i, r.StressEvent)
		}

		if r.Price != nil && *r.Price > 0 {
			if r.PriceLog == nil {
				p.errorf("row %d has a positive price but no log price", i)
			} else if math.Abs(*r.PriceLog-math.Log(*r.Price)) > 1e-12 {
				p.errorf("row %d log price %v does not match ln(%v)", i, *r.PriceLog, *r.Price)
			}
		}
		if r.PriceReturn != nil {
			prevLog := priorLogPrice(rows, i)
			if prevLog == nil || r.PriceLog == nil {
				p.errorf("row %d has a return without a prior log price", i)
			} else if math.Abs(*r.PriceReturn-(*r.PriceLog-*prevLog)) > 1e-12 {
				p.errorf("row %d return %v does not match log-price difference", i, *r.PriceReturn)
			}
		}
	}
	return p
}

// priorLogPrice finds the closest earlier row with a defined log price.
// A return is the difference against the previous price observation, which
// may sit several calendar rows back.
func priorLogPrice(rows []domain.PanelRow, i int) *float64 {
	for j := i - 1; j >= 0; j-- {
		if rows[j].PriceLog != nil {
			return rows[j].PriceLog
		}
	}
	return nil
}

func validateServing(rows []domain.PanelRow, stressModel, volModel forecast.Model) *phase {
	p := &phase{name: "serving smoke test"}

	stressInputs, err := panel.DeriveStressInputs(rows)
	if err != nil {
		p.errorf("derive stress inputs: %v", err)
	} else {
		res, err := forecast.ForecastStressEvent(stressModel.Draws, stressInputs, stressModel.Scalers, stressModel.Threshold)
		if err != nil {
			p.errorf("stress forecast: %v", err)
		} else if res.ProbAlert < 0 || res.ProbAlert > 1 {
			p.errorf("stress alert probability %v outside [0,1]", res.ProbAlert)
		}
	}

	volInputs, err := panel.DeriveVolInputs(rows)
	if err != nil {
		p.errorf("derive vol inputs: %v", err)
	} else {
		res, err := forecast.ForecastVolRisk(volModel.Draws, volInputs, volModel.Scalers, volModel.Threshold, rand.NewSource(1))
		if err != nil {
			p.errorf("vol forecast: %v", err)
		} else if res.ProbExceed < 0 || res.ProbExceed > 1 {
			p.errorf("vol exceedance probability %v outside [0,1]", res.ProbExceed)
		}
	}
	return p
}
