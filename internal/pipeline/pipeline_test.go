package pipeline_test

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"

	"github.com/gasebb/gas-forecast-etl/internal/domain"
	"github.com/gasebb/gas-forecast-etl/internal/forecast"
	"github.com/gasebb/gas-forecast-etl/internal/observability"
	"github.com/gasebb/gas-forecast-etl/internal/panel"
	"github.com/gasebb/gas-forecast-etl/internal/pipeline"
)

// --- mocks ---

type mockExtractor struct {
	sources panel.Sources
	err     error
	calls   atomic.Int64
}

func (m *mockExtractor) Extract(_ context.Context) (panel.Sources, error) {
	m.calls.Add(1)
	if m.err != nil {
		return panel.Sources{}, m.err
	}
	return m.sources, nil
}

type mockTransformer struct {
	alerts []domain.ForecastAlert
	err    error
}

func (m *mockTransformer) Transform(_ context.Context, _ panel.Sources) ([]domain.ForecastAlert, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.alerts, nil
}

type mockLoader struct {
	loaded []domain.ForecastAlert
	err    error
}

func (m *mockLoader) LoadBatch(_ context.Context, alerts []domain.ForecastAlert) error {
	if m.err != nil {
		return m.err
	}
	m.loaded = append(m.loaded, alerts...)
	return nil
}

func newTestMetrics() *observability.Metrics {
	// Use a fresh registry to avoid "already registered" panics in tests.
	return observability.NewMetricsForTesting()
}

// --- pipeline tests ---

func TestPipeline_Run_HappyPath(t *testing.T) {
	alerts := []domain.ForecastAlert{
		{Model: "stress_event", Probability: 0.42, Threshold: 0.3},
		{Model: "vol_risk", Probability: 0.07, Threshold: 0.02},
	}

	ext := &mockExtractor{}
	tfm := &mockTransformer{alerts: alerts}
	ldr := &mockLoader{}

	p := pipeline.New(ext, tfm, ldr, slog.Default(), newTestMetrics(), time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	err := p.Run(ctx)
	require.NoError(t, err)

	require.Len(t, ldr.loaded, 2)
	if diff := cmp.Diff(alerts, p.Latest()); diff != "" {
		t.Fatalf("latest snapshot mismatch (-want +got):\n%s", diff)
	}
	assert.NoError(t, p.CheckReadiness(context.Background()))
	assert.EqualValues(t, 1, ext.calls.Load(), "interval should gate the second cycle")
}

func TestPipeline_Run_ContextCancellation(t *testing.T) {
	ext := &mockExtractor{}
	tfm := &mockTransformer{}
	ldr := &mockLoader{}

	p := pipeline.New(ext, tfm, ldr, slog.Default(), newTestMetrics(), time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // cancel immediately

	err := p.Run(ctx)
	require.NoError(t, err)
	assert.Empty(t, ldr.loaded)
	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_ExtractErrorRetries(t *testing.T) {
	ext := &mockExtractor{err: errors.New("mongo down")}
	tfm := &mockTransformer{}
	ldr := &mockLoader{}

	p := pipeline.New(ext, tfm, ldr, slog.Default(), newTestMetrics(), time.Hour)

	// 200ms initial backoff: a 700ms budget fits the first try plus at
	// least one retry.
	ctx, cancel := context.WithTimeout(context.Background(), 700*time.Millisecond)
	defer cancel()

	err := p.Run(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, ext.calls.Load(), int64(2))
	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_TransformError(t *testing.T) {
	ext := &mockExtractor{}
	tfm := &mockTransformer{err: errors.New("panel too short")}
	ldr := &mockLoader{}

	p := pipeline.New(ext, tfm, ldr, slog.Default(), newTestMetrics(), time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	err := p.Run(ctx)
	require.NoError(t, err)
	assert.Empty(t, ldr.loaded)
	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_LoaderError(t *testing.T) {
	ext := &mockExtractor{}
	tfm := &mockTransformer{alerts: []domain.ForecastAlert{{Model: "stress_event"}}}
	ldr := &mockLoader{err: errors.New("kafka unavailable")}

	p := pipeline.New(ext, tfm, ldr, slog.Default(), newTestMetrics(), time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	err := p.Run(ctx)
	require.NoError(t, err)
	assert.Error(t, p.CheckReadiness(context.Background()), "a cycle that failed to publish is not a completed cycle")
	assert.Empty(t, p.Latest())
}

func TestPipeline_Latest_ReturnsCopy(t *testing.T) {
	ext := &mockExtractor{}
	tfm := &mockTransformer{alerts: []domain.ForecastAlert{{Model: "stress_event", Probability: 0.5}}}
	ldr := &mockLoader{}

	p := pipeline.New(ext, tfm, ldr, slog.Default(), newTestMetrics(), time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	require.NoError(t, p.Run(ctx))

	got := p.Latest()
	require.Len(t, got, 1)
	got[0].Probability = 0.99

	assert.Equal(t, 0.5, p.Latest()[0].Probability)
}

// --- transformer tests ---

func TestForecastTransformer_Transform(t *testing.T) {
	frozen := time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)
	domain.SetClock(clockwork.NewFakeClockAt(frozen))
	t.Cleanup(func() {
		domain.SetClock(nil)
	})

	tfm := pipeline.NewTransformer(
		panel.Config{},
		testStressModel(),
		testVolModel(),
		rand.NewSource(7),
		newTestMetrics(),
		slog.Default(),
	)

	alerts, err := tfm.Transform(context.Background(), testSources(10))
	require.NoError(t, err)
	require.Len(t, alerts, 2)

	byModel := map[string]domain.ForecastAlert{}
	for _, a := range alerts {
		byModel[a.Model] = a
	}

	stress, ok := byModel["stress_event"]
	require.True(t, ok)
	assert.Equal(t, frozen, stress.GeneratedAt)
	assert.Equal(t, time.Date(2024, time.January, 10, 0, 0, 0, 0, time.UTC), stress.PanelEndDate)
	assert.Equal(t, 0.3, stress.Threshold)
	// Zero coefficients give p = 0.5 for every draw, all above 0.3.
	assert.Equal(t, 1.0, stress.Probability)
	assert.Contains(t, stress.Inputs, panel.FeatHDDLag)
	assert.Contains(t, stress.Inputs, panel.FeatStorageLag)

	vol, ok := byModel["vol_risk"]
	require.True(t, ok)
	assert.Equal(t, frozen, vol.GeneratedAt)
	assert.GreaterOrEqual(t, vol.Probability, 0.0)
	assert.LessOrEqual(t, vol.Probability, 1.0)
	assert.Contains(t, vol.Inputs, panel.FeatOpStress)
	assert.Contains(t, vol.Inputs, panel.FeatStorageZ)
}

func TestForecastTransformer_EmptySources(t *testing.T) {
	tfm := pipeline.NewTransformer(
		panel.Config{},
		testStressModel(),
		testVolModel(),
		nil,
		newTestMetrics(),
		slog.Default(),
	)

	_, err := tfm.Transform(context.Background(), panel.Sources{})
	require.Error(t, err)
	assert.ErrorIs(t, err, forecast.ErrNotEnoughData)
}

func TestForecastTransformer_OneModelFailingStillAlerts(t *testing.T) {
	tfm := pipeline.NewTransformer(
		panel.Config{},
		testStressModel(),
		testVolModel(),
		nil,
		newTestMetrics(),
		slog.Default(),
	)

	// Two rows are enough for the stress model but below the volatility
	// model's rolling window.
	alerts, err := tfm.Transform(context.Background(), testSources(2))
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, "stress_event", alerts[0].Model)
}

// --- helpers ---

func testStressModel() forecast.Model {
	return forecast.Model{
		Kind:         forecast.StressEventModel,
		Threshold:    0.3,
		FeatureNames: []string{panel.FeatHDDLag, panel.FeatStorageLag, panel.FeatCapacityLag, panel.FeatNoticesLag},
		Draws: forecast.Draws{
			forecast.InterceptParam:                     {0, 0},
			forecast.CoefPrefix + panel.FeatHDDLag:      {0, 0},
			forecast.CoefPrefix + panel.FeatStorageLag:  {0, 0},
			forecast.CoefPrefix + panel.FeatCapacityLag: {0, 0},
			forecast.CoefPrefix + panel.FeatNoticesLag:  {0, 0},
		},
		Scalers: map[string]forecast.Scaler{
			panel.FeatHDDLag:      {Mean: 10, Std: 5},
			panel.FeatStorageLag:  {Mean: 3000, Std: 400},
			panel.FeatCapacityLag: {Mean: 1e6, Std: 1e5},
			panel.FeatNoticesLag:  {Mean: 1, Std: 1},
		},
	}
}

func testVolModel() forecast.Model {
	return forecast.Model{
		Kind:         forecast.VolRiskModel,
		Threshold:    0.02,
		FeatureNames: []string{panel.FeatOpStress, panel.FeatPersist, panel.FeatHDD5d, panel.FeatStorageZ},
		Draws: forecast.Draws{
			forecast.InterceptParam:                  {0, 0},
			forecast.CoefPrefix + panel.FeatOpStress: {0, 0},
			forecast.CoefPrefix + panel.FeatPersist:  {0, 0},
			forecast.CoefPrefix + panel.FeatHDD5d:    {0, 0},
			forecast.CoefPrefix + panel.FeatStorageZ: {0, 0},
			forecast.SigmaParam:                      {0.01, 0.01},
			forecast.NuParam:                         {4, 4},
		},
		Scalers: map[string]forecast.Scaler{
			panel.FeatPersist:  {Mean: 0.02, Std: 0.01},
			panel.FeatHDD5d:    {Mean: 10, Std: 5},
			panel.FeatStorageZ: {Mean: 0, Std: 200},
		},
	}
}

// testSources builds n consecutive days starting 2024-01-01 with weather,
// prices, and a forward-fillable storage observation.
func testSources(n int) panel.Sources {
	base := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

	src := panel.Sources{
		StorageWeekly: []domain.Observation{{Date: base, Value: 3100}},
	}
	for i := 0; i < n; i++ {
		day := base.AddDate(0, 0, i)
		src.Weather = append(src.Weather, domain.WeatherDay{
			Date:      day,
			Pipeline:  "algonquin",
			HDDMean:   12 + float64(i),
			HDDMedian: 11 + float64(i),
		})
		src.Price = append(src.Price, domain.PriceDay{
			Date:        day,
			USDPerMMBtu: 2.5 + 0.1*float64(i%3),
		})
	}
	return src
}
