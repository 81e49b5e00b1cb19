// Package openweather implements the weather provider port against the
// OpenWeatherMap One Call API.
package openweather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/geomoodmap/backend/internal/core/domain"
	"github.com/geomoodmap/backend/internal/core/ports"
)

const defaultBaseURL = "https://api.openweathermap.org/data/3.0"

// Client is an HTTP client for the OpenWeatherMap adapter.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	apiKey      string
	maxRetries  int
	baseBackoff time.Duration
	logger      *slog.Logger
}

// compile-time interface assertion
var _ ports.WeatherProvider = (*Client)(nil)

// Config configures a Client.
type Config struct {
	BaseURL      string
	APIKey       string
	Timeout      time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
}

// NewClient constructs a new OpenWeatherMap client.
func NewClient(httpClient *http.Client, cfg Config, logger *slog.Logger) *Client {
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		httpClient:  httpClient,
		baseURL:     baseURL,
		apiKey:      cfg.APIKey,
		maxRetries:  cfg.MaxRetries,
		baseBackoff: cfg.RetryBackoff,
		logger:      logger,
	}
}

// CurrentWeather fetches current conditions at the coordinate.
func (c *Client) CurrentWeather(ctx context.Context, lat, lng float64) (domain.WeatherObservation, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lng, 'f', -1, 64))
	q.Set("exclude", "minutely,hourly,daily,alerts")
	q.Set("appid", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/onecall?"+q.Encode(), nil)
	if err != nil {
		return domain.WeatherObservation{}, fmt.Errorf("openweather: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.doRequestWithRetry(req)
	if err != nil {
		return domain.WeatherObservation{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.WeatherObservation{}, fmt.Errorf("openweather: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var payload oneCallResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return domain.WeatherObservation{}, fmt.Errorf("openweather: decode response: %w", err)
	}
	return mapToDomain(payload), nil
}
