package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/exp/rand"

	"github.com/gasebb/gas-forecast-etl/internal/adapter/eia"
	httpadapter "github.com/gasebb/gas-forecast-etl/internal/adapter/http"
	kafkaadapter "github.com/gasebb/gas-forecast-etl/internal/adapter/kafka"
	mongoadapter "github.com/gasebb/gas-forecast-etl/internal/adapter/mongo"
	"github.com/gasebb/gas-forecast-etl/internal/config"
	"github.com/gasebb/gas-forecast-etl/internal/forecast"
	"github.com/gasebb/gas-forecast-etl/internal/observability"
	"github.com/gasebb/gas-forecast-etl/internal/panel"
	"github.com/gasebb/gas-forecast-etl/internal/pipeline"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	stressModel, err := forecast.LoadModel(cfg.StressModelPath)
	if err != nil {
		logger.Error("failed to load stress model artifact", "path", cfg.StressModelPath, "error", err)
		os.Exit(1)
	}
	volModel, err := forecast.LoadModel(cfg.VolModelPath)
	if err != nil {
		logger.Error("failed to load volatility model artifact", "path", cfg.VolModelPath, "error", err)
		os.Exit(1)
	}

	// Decision thresholds are an operator setting, not a model property:
	// config overrides whatever the artifact was validated against.
	stressModel.Threshold = cfg.AlertThreshold
	volModel.Threshold = cfg.ExceedThreshold

	connectCtx, cancelConnect := context.WithTimeout(context.Background(), 15*time.Second)
	store, err := mongoadapter.NewStore(connectCtx, cfg, logger)
	cancelConnect()
	if err != nil {
		logger.Error("failed to connect to mongo", "error", err)
		os.Exit(1)
	}

	// EIA overlay (feature-flagged via EIA_ENABLED / EIA_API_KEY).
	var provider eia.Provider
	if cfg.EIAEnabled {
		client := eia.NewClient(cfg.EIAAPIKey, cfg.EIATimeout, metrics, logger)
		provider = eia.NewCachedProvider(client, cfg.EIACacheSize, metrics)
		logger.Info("EIA overlay enabled", "cache_size", cfg.EIACacheSize, "timeout", cfg.EIATimeout)
	} else {
		logger.Info("EIA overlay disabled")
	}

	extractor := mongoadapter.NewExtractor(store, provider, cfg, metrics, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)
	transformer := pipeline.NewTransformer(
		panel.Config{CalendarOrder: calendarOrder(cfg.CalendarOrder)},
		stressModel,
		volModel,
		rand.NewSource(uint64(time.Now().UnixNano())),
		metrics,
		logger,
	)

	p := pipeline.New(extractor, transformer, writer, logger, metrics, cfg.RefreshInterval)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, p, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start refresh pipeline.
	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}
	if err := store.Close(shutdownCtx); err != nil {
		logger.Error("mongo close error", "error", err)
	}

	logger.Info("shutdown complete")
}

// calendarOrder converts the configured source names, already validated by
// config.Load.
func calendarOrder(names []string) []panel.CalendarSource {
	order := make([]panel.CalendarSource, 0, len(names))
	for _, n := range names {
		order = append(order, panel.CalendarSource(n))
	}
	return order
}
