package forecast

import (
	"context"
	"fmt"

	"github.com/gasebb/gas-forecast-etl/internal/domain"
)

// TrainingMatrix is a leakage-safe design matrix: every column is already
// lagged one day relative to the target, rows with missing values are
// dropped, and continuous columns are standardized. Scalers records the
// parameters used so serving can reproduce identical scaling.
type TrainingMatrix struct {
	FeatureNames []string
	Columns      map[string][]float64
	Target       []float64
	Scalers      map[string]Scaler
}

// Fit hands the design matrix to the external sampler and bundles its
// posterior draws with the matrix's scalers into a serving artifact.
func Fit(ctx context.Context, kind ModelKind, m TrainingMatrix, sampler Sampler, threshold float64) (Model, error) {
	if len(m.Target) == 0 {
		return Model{}, fmt.Errorf("%w: empty training matrix", ErrNotEnoughData)
	}
	for _, name := range m.FeatureNames {
		col, ok := m.Columns[name]
		if !ok {
			return Model{}, fmt.Errorf("%w: %q", ErrMissingColumn, name)
		}
		if len(col) != len(m.Target) {
			return Model{}, fmt.Errorf("column %q has %d rows, target has %d", name, len(col), len(m.Target))
		}
	}

	draws, err := sampler.Sample(ctx, m.Columns, m.Target)
	if err != nil {
		return Model{}, fmt.Errorf("sample posterior: %w", err)
	}

	model := Model{
		Kind:         kind,
		Threshold:    threshold,
		FeatureNames: m.FeatureNames,
		Draws:        draws,
		Scalers:      m.Scalers,
		FittedAt:     domain.Clock().Now().UTC(),
	}
	if err := model.Validate(); err != nil {
		return Model{}, fmt.Errorf("sampler output: %w", err)
	}
	return model, nil
}
