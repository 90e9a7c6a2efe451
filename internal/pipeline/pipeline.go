package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gasebb/gas-forecast-etl/internal/domain"
	"github.com/gasebb/gas-forecast-etl/internal/observability"
	"github.com/gasebb/gas-forecast-etl/internal/panel"
)

// SourceExtractor gathers all source series for one refresh cycle.
type SourceExtractor interface {
	Extract(ctx context.Context) (panel.Sources, error)
}

// PanelTransformer assembles the feature panel from the sources and
// evaluates the fitted models against it.
type PanelTransformer interface {
	Transform(ctx context.Context, sources panel.Sources) ([]domain.ForecastAlert, error)
}

// AlertLoader writes forecast alerts to the destination.
type AlertLoader interface {
	LoadBatch(ctx context.Context, alerts []domain.ForecastAlert) error
}

// Pipeline orchestrates the extract-panel-forecast-publish refresh loop.
type Pipeline struct {
	extractor   SourceExtractor
	transformer PanelTransformer
	loader      AlertLoader
	logger      *slog.Logger
	metrics     *observability.Metrics
	interval    time.Duration

	ready atomic.Bool

	mu     sync.RWMutex
	latest []domain.ForecastAlert
}

// New creates a Pipeline with the given stages and observability.
func New(e SourceExtractor, t PanelTransformer, l AlertLoader, logger *slog.Logger, metrics *observability.Metrics, interval time.Duration) *Pipeline {
	return &Pipeline{
		extractor:   e,
		transformer: t,
		loader:      l,
		logger:      logger,
		metrics:     metrics,
		interval:    interval,
	}
}

// CheckReadiness returns nil once at least one refresh cycle has completed,
// or an error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no refresh cycle has completed yet")
	}
	return nil
}

// Latest returns the alerts produced by the most recent successful cycle.
func (p *Pipeline) Latest() []domain.ForecastAlert {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]domain.ForecastAlert, len(p.latest))
	copy(out, p.latest)
	return out
}

func (p *Pipeline) setLatest(alerts []domain.ForecastAlert) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.latest = alerts
}

// Run executes refresh cycles until the context is cancelled. A cycle runs
// immediately on start; subsequent cycles wait for the refresh interval.
// Failed cycles retry with exponential backoff instead.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "refresh_interval", p.interval)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	// Exponential backoff: start at 200ms, double each retry, cap at 5s.
	backoff := 200 * time.Millisecond
	maxBackoff := 5 * time.Second

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		default:
		}

		if p.runCycle(ctx) {
			backoff = 200 * time.Millisecond
			if !sleepWithContext(ctx, p.interval) {
				return nil
			}
			continue
		}

		if ctx.Err() != nil {
			return nil
		}
		if !sleepWithContext(ctx, backoff) {
			return nil
		}
		backoff = nextBackoff(backoff, maxBackoff)
	}
}

// runCycle runs one extract-panel-forecast-publish cycle. Returns false on
// failure so the caller can back off before retrying.
func (p *Pipeline) runCycle(ctx context.Context) bool {
	start := domain.Clock().Now()

	sources, err := p.extractor.Extract(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		p.logger.Error("extract sources failed", "error", err)
		return false
	}

	alerts, err := p.transformer.Transform(ctx, sources)
	if err != nil {
		p.logger.Error("forecast cycle failed", "error", err)
		return false
	}

	if len(alerts) > 0 {
		if err := p.loader.LoadBatch(ctx, alerts); err != nil {
			p.logger.Error("publish alerts failed", "error", err, "alerts", len(alerts))
			return false
		}
		p.metrics.AlertsPublished.Add(float64(len(alerts)))
	}

	p.setLatest(alerts)
	p.metrics.CycleDuration.Observe(domain.Clock().Since(start).Seconds())
	p.ready.Store(true)

	p.logger.Info("refresh cycle complete",
		"alerts", len(alerts),
		"duration", domain.Clock().Since(start),
	)
	return true
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

// sleepWithContext waits on the injected clock so tests can advance time
// instead of sleeping for real.
func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := domain.Clock().NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}
