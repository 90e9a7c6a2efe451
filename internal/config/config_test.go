package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "mongodb://localhost:27017", cfg.MongoURI)
	assert.Equal(t, "gas_model", cfg.MongoDB)
	assert.Equal(t, "noaa_region_daily", cfg.WeatherCollection)
	assert.Equal(t, "eia_hh_spot_daily", cfg.PriceCollection)
	assert.Equal(t, "eia_storage_weekly", cfg.StorageCollection)
	assert.Equal(t, "algonquin_notices", cfg.NoticesCollection)
	assert.Equal(t, "algonquin_capacity", cfg.CapacityCollection)

	assert.Equal(t, "algonquin", cfg.Pipeline)
	assert.Equal(t, "lower48", cfg.StorageRegion)
	assert.Equal(t, 540, cfg.LookbackDays)
	assert.Equal(t, []string{"weather", "price", "stress"}, cfg.CalendarOrder)

	assert.False(t, cfg.EIAEnabled)
	assert.Equal(t, 10*time.Second, cfg.EIATimeout)
	assert.Equal(t, 128, cfg.EIACacheSize)

	assert.Equal(t, "models/stress_event.json", cfg.StressModelPath)
	assert.Equal(t, "models/vol_risk.json", cfg.VolModelPath)
	assert.Equal(t, 0.30, cfg.AlertThreshold)
	assert.Equal(t, 0.02, cfg.ExceedThreshold)

	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "gas-forecast-alerts", cfg.KafkaSinkTopic)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 6*time.Hour, cfg.RefreshInterval)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("MONGO_URI", "mongodb://db:27017")
	t.Setenv("MONGO_DB", "gas_test")
	t.Setenv("PIPELINE", "texas-eastern")
	t.Setenv("REGION_ID", "new-england")
	t.Setenv("LOOKBACK_DAYS", "90")
	t.Setenv("CALENDAR_ORDER", "price,weather")
	t.Setenv("EIA_API_KEY", "key-123")
	t.Setenv("EIA_TIMEOUT", "3s")
	t.Setenv("EIA_CACHE_SIZE", "16")
	t.Setenv("ALERT_THRESHOLD", "0.5")
	t.Setenv("EXCEED_THRESHOLD", "0.05")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_SINK_TOPIC", "alerts")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("REFRESH_INTERVAL", "1h")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "mongodb://db:27017", cfg.MongoURI)
	assert.Equal(t, "gas_test", cfg.MongoDB)
	assert.Equal(t, "texas-eastern", cfg.Pipeline)
	assert.Equal(t, "new-england", cfg.RegionID)
	assert.Equal(t, 90, cfg.LookbackDays)
	assert.Equal(t, []string{"price", "weather"}, cfg.CalendarOrder)
	assert.True(t, cfg.EIAEnabled)
	assert.Equal(t, "key-123", cfg.EIAAPIKey)
	assert.Equal(t, 3*time.Second, cfg.EIATimeout)
	assert.Equal(t, 16, cfg.EIACacheSize)
	assert.Equal(t, 0.5, cfg.AlertThreshold)
	assert.Equal(t, 0.05, cfg.ExceedThreshold)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "alerts", cfg.KafkaSinkTopic)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, time.Hour, cfg.RefreshInterval)
}

func TestLoad_EIAFlagWithoutKey(t *testing.T) {
	t.Setenv("EIA_ENABLED", "true")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "EIA_API_KEY")
}

func TestLoad_InvalidRefreshInterval(t *testing.T) {
	t.Setenv("REFRESH_INTERVAL", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REFRESH_INTERVAL")
}

func TestLoad_InvalidThreshold(t *testing.T) {
	t.Setenv("ALERT_THRESHOLD", "1.5")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ALERT_THRESHOLD")
}

func TestLoad_UnknownCalendarSource(t *testing.T) {
	t.Setenv("CALENDAR_ORDER", "weather,moon")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "moon")
}

func TestLoad_NegativeLookback(t *testing.T) {
	t.Setenv("LOOKBACK_DAYS", "-5")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LOOKBACK_DAYS")
}
