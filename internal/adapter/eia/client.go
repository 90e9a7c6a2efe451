package eia

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/gasebb/gas-forecast-etl/internal/domain"
	"github.com/gasebb/gas-forecast-etl/internal/observability"
)

// Series identifiers on the EIA v2 API.
const (
	henryHubSeries = "RNGWHHD"

	spotPriceRoute = "natural-gas/pri/fut/data"
	storageRoute   = "natural-gas/stor/wkly/data"
)

// storageSeries maps a storage region name to its EIA weekly series id.
var storageSeries = map[string]string{
	"lower48":      "NW2_EPG0_SWO_R48_BCF",
	"east":         "NW2_EPG0_SWO_R31_BCF",
	"midwest":      "NW2_EPG0_SWO_R32_BCF",
	"mountain":     "NW2_EPG0_SWO_R33_BCF",
	"pacific":      "NW2_EPG0_SWO_R34_BCF",
	"southcentral": "NW2_EPG0_SWO_R35_BCF",
}

// Provider fetches market series used to refresh the panel between Mongo loads.
type Provider interface {
	SpotPrices(ctx context.Context, start, end time.Time) ([]domain.PriceDay, error)
	WeeklyStorage(ctx context.Context, region string, start, end time.Time) ([]domain.Observation, error)
}

// Client implements Provider against the EIA v2 open data API.
type Client struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates an EIA API client.
func NewClient(apiKey string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: "https://api.eia.gov/v2",
		metrics: metrics,
		logger:  logger,
	}
}

// SpotPrices fetches Henry Hub daily spot prices in USD per MMBtu.
func (c *Client) SpotPrices(ctx context.Context, start, end time.Time) ([]domain.PriceDay, error) {
	rows, err := c.fetchSeries(ctx, "spot", spotPriceRoute, henryHubSeries, start, end)
	if err != nil {
		return nil, err
	}

	prices := make([]domain.PriceDay, 0, len(rows))
	for _, r := range rows {
		day, value, ok := r.parsed()
		if !ok {
			continue
		}
		prices = append(prices, domain.PriceDay{Date: day, USDPerMMBtu: value})
	}
	return prices, nil
}

// WeeklyStorage fetches working gas in storage for a region, in Bcf.
func (c *Client) WeeklyStorage(ctx context.Context, region string, start, end time.Time) ([]domain.Observation, error) {
	series, ok := storageSeries[region]
	if !ok {
		return nil, fmt.Errorf("unknown storage region %q", region)
	}

	rows, err := c.fetchSeries(ctx, "storage", storageRoute, series, start, end)
	if err != nil {
		return nil, err
	}

	obs := make([]domain.Observation, 0, len(rows))
	for _, r := range rows {
		day, value, ok := r.parsed()
		if !ok {
			continue
		}
		obs = append(obs, domain.Observation{Date: day, Value: value})
	}
	return obs, nil
}

func (c *Client) fetchSeries(ctx context.Context, dataset, route, series string, start, end time.Time) ([]seriesRow, error) {
	params := url.Values{
		"api_key":            {c.apiKey},
		"frequency":          {"daily"},
		"data[0]":            {"value"},
		"facets[series][]":   {series},
		"sort[0][column]":    {"period"},
		"sort[0][direction]": {"asc"},
	}
	if route == storageRoute {
		params.Set("frequency", "weekly")
	}
	if !start.IsZero() {
		params.Set("start", start.Format("2006-01-02"))
	}
	if !end.IsZero() {
		params.Set("end", end.Format("2006-01-02"))
	}

	fullURL := fmt.Sprintf("%s/%s?%s", c.baseURL, route, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.EIAAPIDuration.WithLabelValues(dataset).Observe(time.Since(started).Seconds())
	if err != nil {
		c.metrics.EIARequests.WithLabelValues(dataset, "error").Inc()
		return nil, fmt.Errorf("fetch %s: %w", series, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.metrics.EIARequests.WithLabelValues(dataset, "error").Inc()
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("EIA API error: status %d: %s", resp.StatusCode, body)
	}

	var apiResp response
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		c.metrics.EIARequests.WithLabelValues(dataset, "error").Inc()
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if len(apiResp.Response.Data) == 0 {
		c.metrics.EIARequests.WithLabelValues(dataset, "empty").Inc()
		c.logger.Warn("EIA returned no rows", "dataset", dataset, "series", series)
	} else {
		c.metrics.EIARequests.WithLabelValues(dataset, "success").Inc()
	}
	return apiResp.Response.Data, nil
}

// EIA API response types.

type response struct {
	Response struct {
		Data []seriesRow `json:"data"`
	} `json:"response"`
}

type seriesRow struct {
	Period string      `json:"period"`
	Value  json.Number `json:"value"` // string-typed in the API payload
	Series string      `json:"series"`
	Units  string      `json:"units"`
}

// parsed returns the row's day and numeric value, dropping rows with
// unparseable dates or null values.
func (r seriesRow) parsed() (time.Time, float64, bool) {
	day, err := time.Parse("2006-01-02", r.Period)
	if err != nil {
		return time.Time{}, 0, false
	}
	value, err := r.Value.Float64()
	if err != nil {
		return time.Time{}, 0, false
	}
	return day.UTC(), value, true
}
