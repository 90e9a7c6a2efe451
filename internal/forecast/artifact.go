package forecast

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// ModelKind identifies which forecast variant an artifact serves.
type ModelKind string

const (
	StressEventModel ModelKind = "stress_event"
	VolRiskModel     ModelKind = "vol_risk"
)

// Model is a fitted model's serving artifact: the posterior draws captured
// at fit time, the scalers that reproduce training-time standardization,
// and the decision threshold. Draws and scalers are immutable after fit.
type Model struct {
	Kind         ModelKind         `json:"kind"`
	Threshold    float64           `json:"threshold"`
	FeatureNames []string          `json:"feature_names"`
	Draws        Draws             `json:"draws"`
	Scalers      map[string]Scaler `json:"scalers"`
	FittedAt     time.Time         `json:"fitted_at"`
}

// Validate checks the artifact is servable: consistent draw lengths, an
// intercept, and the scale/tail parameters the heavy-tailed variant needs.
func (m Model) Validate() error {
	n, err := m.Draws.Len()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: artifact has no posterior draws", ErrMissingParameter)
	}
	if _, err := m.Draws.require(InterceptParam); err != nil {
		return err
	}
	if m.Kind == VolRiskModel {
		if _, err := m.Draws.require(SigmaParam); err != nil {
			return err
		}
		if _, err := m.Draws.require(NuParam); err != nil {
			return err
		}
	}
	return nil
}

// SaveModel writes the artifact as JSON.
func SaveModel(path string, m Model) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal model artifact: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write model artifact: %w", err)
	}
	return nil
}

// LoadModel reads and validates a model artifact.
func LoadModel(path string) (Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Model{}, fmt.Errorf("read model artifact: %w", err)
	}
	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return Model{}, fmt.Errorf("parse model artifact %s: %w", path, err)
	}
	if err := m.Validate(); err != nil {
		return Model{}, fmt.Errorf("model artifact %s: %w", path, err)
	}
	return m, nil
}
