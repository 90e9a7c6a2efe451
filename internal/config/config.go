package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	// Mongo document store.
	MongoURI           string
	MongoDB            string
	WeatherCollection  string
	PriceCollection    string
	StorageCollection  string
	NoticesCollection  string
	CapacityCollection string

	// Panel scope.
	Pipeline      string
	RegionID      string
	StorageRegion string
	LookbackDays  int
	CalendarOrder []string

	// EIA provider (feature-flagged via EIA_API_KEY / EIA_ENABLED).
	EIAAPIKey    string
	EIAEnabled   bool
	EIATimeout   time.Duration
	EIACacheSize int

	// Model artifacts and decision thresholds.
	StressModelPath string
	VolModelPath    string
	AlertThreshold  float64
	ExceedThreshold float64

	// Service plumbing.
	KafkaBrokers    []string
	KafkaSinkTopic  string
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	RefreshInterval time.Duration
	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	refreshInterval, err := parseDuration("REFRESH_INTERVAL", "6h")
	if err != nil {
		return nil, err
	}
	eiaTimeout, err := parseDuration("EIA_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	lookbackDays, err := parseInt("LOOKBACK_DAYS", 540)
	if err != nil {
		return nil, err
	}
	eiaCacheSize, err := parseInt("EIA_CACHE_SIZE", 128)
	if err != nil {
		return nil, err
	}

	alertThreshold, err := parseFloat("ALERT_THRESHOLD", 0.30)
	if err != nil {
		return nil, err
	}
	exceedThreshold, err := parseFloat("EXCEED_THRESHOLD", 0.02)
	if err != nil {
		return nil, err
	}

	eiaKey := os.Getenv("EIA_API_KEY")
	eiaEnabled := eiaKey != ""
	if v := os.Getenv("EIA_ENABLED"); v != "" {
		eiaEnabled = v == "true"
	}

	cfg := &Config{
		MongoURI:           envOrDefault("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:            envOrDefault("MONGO_DB", "gas_model"),
		WeatherCollection:  envOrDefault("WEATHER_COLLECTION", "noaa_region_daily"),
		PriceCollection:    envOrDefault("PRICE_COLLECTION", "eia_hh_spot_daily"),
		StorageCollection:  envOrDefault("STORAGE_COLLECTION", "eia_storage_weekly"),
		NoticesCollection:  envOrDefault("NOTICES_COLLECTION", "algonquin_notices"),
		CapacityCollection: envOrDefault("CAPACITY_COLLECTION", "algonquin_capacity"),

		Pipeline:      envOrDefault("PIPELINE", "algonquin"),
		RegionID:      os.Getenv("REGION_ID"),
		StorageRegion: envOrDefault("STORAGE_REGION", "lower48"),
		LookbackDays:  lookbackDays,
		CalendarOrder: splitList(envOrDefault("CALENDAR_ORDER", "weather,price,stress")),

		EIAAPIKey:    eiaKey,
		EIAEnabled:   eiaEnabled,
		EIATimeout:   eiaTimeout,
		EIACacheSize: eiaCacheSize,

		StressModelPath: envOrDefault("STRESS_MODEL_PATH", "models/stress_event.json"),
		VolModelPath:    envOrDefault("VOL_MODEL_PATH", "models/vol_risk.json"),
		AlertThreshold:  alertThreshold,
		ExceedThreshold: exceedThreshold,

		KafkaBrokers:    splitList(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSinkTopic:  envOrDefault("KAFKA_SINK_TOPIC", "gas-forecast-alerts"),
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		RefreshInterval: refreshInterval,
		ShutdownTimeout: shutdownTimeout,
	}

	if cfg.MongoURI == "" {
		return nil, errors.New("MONGO_URI is required")
	}
	if cfg.Pipeline == "" {
		return nil, errors.New("PIPELINE is required")
	}
	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required")
	}
	if cfg.LookbackDays <= 0 {
		return nil, errors.New("LOOKBACK_DAYS must be positive")
	}
	if cfg.AlertThreshold <= 0 || cfg.AlertThreshold >= 1 {
		return nil, errors.New("ALERT_THRESHOLD must be in (0, 1)")
	}
	if cfg.EIAEnabled && cfg.EIAAPIKey == "" {
		return nil, errors.New("EIA_ENABLED is true but EIA_API_KEY is not set")
	}
	for _, src := range cfg.CalendarOrder {
		switch src {
		case "weather", "price", "stress":
		default:
			return nil, fmt.Errorf("CALENDAR_ORDER: unknown source %q", src)
		}
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseInt(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}

func parseFloat(key string, fallback float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return f, nil
}
