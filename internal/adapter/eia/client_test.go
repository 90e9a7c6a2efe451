package eia

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gasebb/gas-forecast-etl/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testAPIKey        = "test-key"
	contentTypeJSON   = "application/json"
	headerContentType = "Content-Type"
)

func testMetrics() *observability.Metrics {
	return observability.NewMetricsForTesting()
}

func testClient(baseURL string) *Client {
	return &Client{
		apiKey:     testAPIKey,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		baseURL:    baseURL,
		metrics:    testMetrics(),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestClient_SpotPrices_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "natural-gas/pri/fut/data")
		assert.Equal(t, testAPIKey, r.URL.Query().Get("api_key"))
		assert.Equal(t, "RNGWHHD", r.URL.Query()["facets[series][]"][0])
		assert.Equal(t, "2024-01-02", r.URL.Query().Get("start"))

		w.Header().Set(headerContentType, contentTypeJSON)
		_, err := w.Write([]byte(`{"response":{"data":[
			{"period":"2024-01-02","value":"2.57","series":"RNGWHHD","units":"$/MMBTU"},
			{"period":"2024-01-03","value":"2.61","series":"RNGWHHD","units":"$/MMBTU"},
			{"period":"2024-01-04","value":null,"series":"RNGWHHD","units":"$/MMBTU"}
		]}}`))
		require.NoError(t, err)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)

	prices, err := c.SpotPrices(context.Background(), start, end)
	require.NoError(t, err)

	// Null values are dropped, not zero-coded.
	require.Len(t, prices, 2)
	assert.Equal(t, start, prices[0].Date)
	assert.Equal(t, 2.57, prices[0].USDPerMMBtu)
	assert.Equal(t, 2.61, prices[1].USDPerMMBtu)
}

func TestClient_WeeklyStorage_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "natural-gas/stor/wkly/data")
		assert.Equal(t, "NW2_EPG0_SWO_R48_BCF", r.URL.Query()["facets[series][]"][0])
		assert.Equal(t, "weekly", r.URL.Query().Get("frequency"))

		w.Header().Set(headerContentType, contentTypeJSON)
		_, err := w.Write([]byte(`{"response":{"data":[
			{"period":"2024-01-05","value":"3190","series":"NW2_EPG0_SWO_R48_BCF","units":"BCF"},
			{"period":"2024-01-12","value":"3112","series":"NW2_EPG0_SWO_R48_BCF","units":"BCF"}
		]}}`))
		require.NoError(t, err)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	obs, err := c.WeeklyStorage(context.Background(), "lower48", time.Time{}, time.Time{})
	require.NoError(t, err)

	require.Len(t, obs, 2)
	assert.Equal(t, 3190.0, obs[0].Value)
	assert.Equal(t, time.Date(2024, 1, 12, 0, 0, 0, 0, time.UTC), obs[1].Date)
}

func TestClient_WeeklyStorage_UnknownRegion(t *testing.T) {
	c := testClient("http://unused")
	_, err := c.WeeklyStorage(context.Background(), "atlantis", time.Time{}, time.Time{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "atlantis")
}

func TestClient_SpotPrices_NoRows(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte(`{"response":{"data":[]}}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	prices, err := c.SpotPrices(context.Background(), time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Empty(t, prices)
}

func TestClient_SpotPrices_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"invalid api key"}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	_, err := c.SpotPrices(context.Background(), time.Time{}, time.Time{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestClient_SpotPrices_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := &Client{
		apiKey:     testAPIKey,
		httpClient: &http.Client{Timeout: 50 * time.Millisecond},
		baseURL:    srv.URL,
		metrics:    testMetrics(),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	_, err := c.SpotPrices(context.Background(), time.Time{}, time.Time{})
	require.Error(t, err)
}
