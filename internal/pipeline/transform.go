package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/exp/rand"

	"github.com/gasebb/gas-forecast-etl/internal/domain"
	"github.com/gasebb/gas-forecast-etl/internal/forecast"
	"github.com/gasebb/gas-forecast-etl/internal/observability"
	"github.com/gasebb/gas-forecast-etl/internal/panel"
)

// ForecastTransformer implements PanelTransformer: it assembles the daily
// panel, derives serving inputs, and evaluates both fitted models. The two
// models are evaluated independently; one failing does not suppress the
// other's alert.
type ForecastTransformer struct {
	panelCfg    panel.Config
	stressModel forecast.Model
	volModel    forecast.Model
	src         rand.Source
	metrics     *observability.Metrics
	logger      *slog.Logger
}

// NewTransformer creates a ForecastTransformer serving the two loaded
// artifacts. Pass a seeded src for reproducible predictive sampling; nil
// uses the global source.
func NewTransformer(panelCfg panel.Config, stressModel, volModel forecast.Model, src rand.Source, metrics *observability.Metrics, logger *slog.Logger) *ForecastTransformer {
	return &ForecastTransformer{
		panelCfg:    panelCfg,
		stressModel: stressModel,
		volModel:    volModel,
		src:         src,
		metrics:     metrics,
		logger:      logger,
	}
}

func (t *ForecastTransformer) Transform(_ context.Context, sources panel.Sources) ([]domain.ForecastAlert, error) {
	rows := panel.Build(t.panelCfg, sources)
	if len(rows) == 0 {
		return nil, fmt.Errorf("panel build: %w", forecast.ErrNotEnoughData)
	}
	t.metrics.PanelsBuilt.Inc()
	t.metrics.PanelRows.Observe(float64(len(rows)))

	now := domain.Clock().Now().UTC()
	endDate := rows[len(rows)-1].Date

	var alerts []domain.ForecastAlert
	var errs []error

	if alert, err := t.forecastStress(rows, now, endDate); err != nil {
		errs = append(errs, err)
	} else {
		alerts = append(alerts, alert)
	}

	if alert, err := t.forecastVol(rows, now, endDate); err != nil {
		errs = append(errs, err)
	} else {
		alerts = append(alerts, alert)
	}

	if len(alerts) == 0 {
		return nil, errors.Join(errs...)
	}
	return alerts, nil
}

func (t *ForecastTransformer) forecastStress(rows []domain.PanelRow, now, endDate time.Time) (domain.ForecastAlert, error) {
	inputs, err := panel.DeriveStressInputs(rows)
	if err != nil {
		t.metrics.ForecastRuns.WithLabelValues(string(forecast.StressEventModel), "error").Inc()
		t.logger.Warn("stress inputs unavailable", "error", err)
		return domain.ForecastAlert{}, err
	}

	res, err := forecast.ForecastStressEvent(t.stressModel.Draws, inputs, t.stressModel.Scalers, t.stressModel.Threshold)
	if err != nil {
		t.metrics.ForecastRuns.WithLabelValues(string(forecast.StressEventModel), "error").Inc()
		t.logger.Error("stress forecast failed", "error", err)
		return domain.ForecastAlert{}, err
	}
	t.metrics.ForecastRuns.WithLabelValues(string(forecast.StressEventModel), "success").Inc()

	return domain.ForecastAlert{
		Model:        string(forecast.StressEventModel),
		GeneratedAt:  now,
		PanelEndDate: endDate,
		Threshold:    t.stressModel.Threshold,
		Probability:  res.ProbAlert,
		Inputs:       inputs,
	}, nil
}

func (t *ForecastTransformer) forecastVol(rows []domain.PanelRow, now, endDate time.Time) (domain.ForecastAlert, error) {
	inputs, err := panel.DeriveVolInputs(rows)
	if err != nil {
		t.metrics.ForecastRuns.WithLabelValues(string(forecast.VolRiskModel), "error").Inc()
		t.logger.Warn("volatility inputs unavailable", "error", err)
		return domain.ForecastAlert{}, err
	}

	res, err := forecast.ForecastVolRisk(t.volModel.Draws, inputs, t.volModel.Scalers, t.volModel.Threshold, t.src)
	if err != nil {
		t.metrics.ForecastRuns.WithLabelValues(string(forecast.VolRiskModel), "error").Inc()
		t.logger.Error("volatility forecast failed", "error", err)
		return domain.ForecastAlert{}, err
	}
	t.metrics.ForecastRuns.WithLabelValues(string(forecast.VolRiskModel), "success").Inc()

	return domain.ForecastAlert{
		Model:        string(forecast.VolRiskModel),
		GeneratedAt:  now,
		PanelEndDate: endDate,
		Threshold:    t.volModel.Threshold,
		Probability:  res.ProbExceed,
		Inputs:       inputs,
	}, nil
}
