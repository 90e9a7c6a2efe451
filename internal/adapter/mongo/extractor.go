package mongo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gasebb/gas-forecast-etl/internal/adapter/eia"
	"github.com/gasebb/gas-forecast-etl/internal/config"
	"github.com/gasebb/gas-forecast-etl/internal/domain"
	"github.com/gasebb/gas-forecast-etl/internal/observability"
	"github.com/gasebb/gas-forecast-etl/internal/panel"
)

// seriesStore is the slice of Store the extractor needs.
type seriesStore interface {
	LoadWeatherDaily(ctx context.Context, pipeline, regionID string, start, end time.Time) ([]domain.WeatherDay, error)
	LoadPriceDaily(ctx context.Context, start, end time.Time) ([]domain.PriceDay, error)
	LoadStorageWeekly(ctx context.Context, region string, start, end time.Time) ([]domain.Observation, error)
	LoadNotices(ctx context.Context, start, end time.Time, onlyActive bool) ([]domain.Notice, error)
	LoadCapacity(ctx context.Context, start, end time.Time) ([]domain.CapacitySnapshot, error)
}

// Extractor loads all source series for one refresh cycle from the store,
// optionally layering fresher price and storage rows from the EIA API on
// top. API rows for dates the store already covers win the join, so a
// staleness gap between ingest runs narrows without a re-ingest.
type Extractor struct {
	store    seriesStore
	provider eia.Provider // nil disables the overlay

	pipeline      string
	regionID      string
	storageRegion string
	lookbackDays  int

	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewExtractor creates an Extractor scoped by the configured pipeline,
// region, and lookback window. Pass a nil provider to disable the EIA
// overlay.
func NewExtractor(store seriesStore, provider eia.Provider, cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) *Extractor {
	return &Extractor{
		store:         store,
		provider:      provider,
		pipeline:      cfg.Pipeline,
		regionID:      cfg.RegionID,
		storageRegion: cfg.StorageRegion,
		lookbackDays:  cfg.LookbackDays,
		metrics:       metrics,
		logger:        logger,
	}
}

// Extract loads every source over the lookback window ending today. A store
// load failing fails the whole cycle; overlay failures only log, since the
// store copy is still usable.
func (e *Extractor) Extract(ctx context.Context) (panel.Sources, error) {
	end := domain.FloorToDay(domain.Clock().Now().UTC())
	start := end.AddDate(0, 0, -e.lookbackDays)

	weather, err := e.store.LoadWeatherDaily(ctx, e.pipeline, e.regionID, start, end)
	if err != nil {
		e.metrics.SourceLoadErrors.WithLabelValues("weather").Inc()
		return panel.Sources{}, fmt.Errorf("load weather: %w", err)
	}

	prices, err := e.store.LoadPriceDaily(ctx, start, end)
	if err != nil {
		e.metrics.SourceLoadErrors.WithLabelValues("price").Inc()
		return panel.Sources{}, fmt.Errorf("load prices: %w", err)
	}

	storage, err := e.store.LoadStorageWeekly(ctx, e.storageRegion, start, end)
	if err != nil {
		e.metrics.SourceLoadErrors.WithLabelValues("storage").Inc()
		return panel.Sources{}, fmt.Errorf("load storage: %w", err)
	}

	notices, err := e.store.LoadNotices(ctx, start, end, false)
	if err != nil {
		e.metrics.SourceLoadErrors.WithLabelValues("notices").Inc()
		return panel.Sources{}, fmt.Errorf("load notices: %w", err)
	}

	capacity, err := e.store.LoadCapacity(ctx, start, end)
	if err != nil {
		e.metrics.SourceLoadErrors.WithLabelValues("capacity").Inc()
		return panel.Sources{}, fmt.Errorf("load capacity: %w", err)
	}

	prices, storage = e.overlay(ctx, prices, storage, start, end)

	return panel.Sources{
		Weather:       weather,
		Price:         prices,
		StorageWeekly: storage,
		Stress:        domain.BuildStressSignal(notices),
		Capacity:      capacity,
	}, nil
}

// overlay appends fresh EIA rows after the store rows; the panel join is
// last-wins per date, so API values supersede stale store values.
func (e *Extractor) overlay(ctx context.Context, prices []domain.PriceDay, storage []domain.Observation, start, end time.Time) ([]domain.PriceDay, []domain.Observation) {
	if e.provider == nil {
		return prices, storage
	}

	overlayStart := overlayWindowStart(prices, storage, start)

	fresh, err := e.provider.SpotPrices(ctx, overlayStart, end)
	if err != nil {
		e.logger.Warn("EIA spot overlay failed, using store copy", "error", err)
	} else {
		prices = append(prices, fresh...)
	}

	freshStorage, err := e.provider.WeeklyStorage(ctx, e.storageRegion, overlayStart, end)
	if err != nil {
		e.logger.Warn("EIA storage overlay failed, using store copy", "error", err)
	} else {
		storage = append(storage, freshStorage...)
	}

	return prices, storage
}

// overlayWindowStart picks where the API fetch should begin: the oldest of
// the two series' last stored dates, or the window start when either series
// is empty.
func overlayWindowStart(prices []domain.PriceDay, storage []domain.Observation, start time.Time) time.Time {
	if len(prices) == 0 || len(storage) == 0 {
		return start
	}
	lastPrice := prices[len(prices)-1].Date
	lastStorage := storage[len(storage)-1].Date
	if lastPrice.Before(lastStorage) {
		return lastPrice
	}
	return lastStorage
}
