// Package accuweather implements forecast.Provider on the AccuWeather
// locations and daily forecast APIs.
package accuweather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/routecast/routecast/internal/forecast"
	"github.com/routecast/routecast/internal/provider/resilience"
	"github.com/routecast/routecast/internal/telemetry"
)

const (
	// ProviderName identifies this provider.
	ProviderName = "accuweather"

	// DefaultBaseURL is the AccuWeather data service base URL.
	DefaultBaseURL = "https://dataservice.accuweather.com"

	// DefaultLanguage is used for localized names when none is configured.
	DefaultLanguage = "en-us"

	// maxBodyBytes caps how much of a response body is read.
	maxBodyBytes = 1 << 20
)

// HTTPDoer executes HTTP requests. *resilience.Client and *http.Client both satisfy it.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the AccuWeather client.
type ClientConfig struct {
	// APIKey is the AccuWeather API key (required).
	APIKey string

	// BaseURL is the API base URL (optional, defaults to DefaultBaseURL).
	BaseURL string

	// Language selects localized names (optional, defaults to DefaultLanguage).
	Language string

	// HTTPClient executes requests (optional).
	// If nil, uses a resilient client with defaults.
	HTTPClient HTTPDoer

	// Metrics records request outcomes (optional).
	Metrics *telemetry.ProviderMetrics

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is an AccuWeather API client.
type Client struct {
	apiKey     string
	baseURL    string
	language   string
	httpClient HTTPDoer
	metrics    *telemetry.ProviderMetrics
	logger     zerolog.Logger
}

var _ forecast.Provider = (*Client)(nil)

// NewClient creates a new AccuWeather client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	language := cfg.Language
	if language == "" {
		language = DefaultLanguage
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = resilience.NewClient(resilience.DefaultClientConfig(ProviderName))
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		language:   language,
		httpClient: httpClient,
		metrics:    cfg.Metrics,
		logger:     cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// ResolveLocation searches cities by name and returns the first match.
func (c *Client) ResolveLocation(ctx context.Context, city string) (loc *forecast.Location, err error) {
	start := time.Now()
	defer func() { c.record("resolve_location", start, err) }()

	query := url.Values{}
	query.Set("apikey", c.apiKey)
	query.Set("q", city)
	query.Set("language", c.language)

	var results []citySearchResult
	if err := c.get(ctx, "/locations/v1/cities/search", query, &results); err != nil {
		return nil, err
	}

	if len(results) == 0 || results[0].Key == "" {
		return nil, &forecast.Error{
			Provider: ProviderName,
			Code:     "LOCATION_NOT_FOUND",
			Message:  fmt.Sprintf("no city matches %q", city),
			Err:      forecast.ErrNotFound,
		}
	}

	loc = results[0].toLocation()
	if loc == nil {
		return nil, &forecast.Error{
			Provider: ProviderName,
			Code:     "MISSING_COORDINATES",
			Message:  fmt.Sprintf("match %s for %q has no coordinates", results[0].Key, city),
			Err:      forecast.ErrNotFound,
		}
	}

	c.logger.Debug().
		Str("city", city).
		Str("location_key", loc.Key).
		Int("matches", len(results)).
		Msg("resolved city")

	return loc, nil
}

// GetDailyForecast fetches a days-long daily forecast for locationKey.
// Days are returned in chronological order.
func (c *Client) GetDailyForecast(ctx context.Context, locationKey string, days forecast.DayCount) (fc []forecast.ForecastDay, err error) {
	if !days.Valid() {
		return nil, &forecast.Error{
			Provider: ProviderName,
			Code:     "INVALID_DAY_COUNT",
			Message:  fmt.Sprintf("%d-day forecasts are not offered", days),
			Err:      forecast.ErrInvalidDayCount,
		}
	}

	start := time.Now()
	defer func() { c.record("daily_forecast", start, err) }()

	query := url.Values{}
	query.Set("apikey", c.apiKey)
	query.Set("metric", "true")
	query.Set("details", "true")
	query.Set("language", c.language)

	path := fmt.Sprintf("/forecasts/v1/daily/%dday/%s", days, url.PathEscape(locationKey))

	var resp dailyForecastResponse
	if err := c.get(ctx, path, query, &resp); err != nil {
		return nil, err
	}

	if len(resp.DailyForecasts) == 0 {
		return nil, &forecast.Error{
			Provider: ProviderName,
			Code:     "EMPTY_FORECAST",
			Message:  "forecast response has no days",
			Err:      forecast.ErrNotFound,
		}
	}

	fc = make([]forecast.ForecastDay, len(resp.DailyForecasts))
	for i, d := range resp.DailyForecasts {
		fc[i] = d.toForecastDay()
	}
	sort.SliceStable(fc, func(i, j int) bool { return fc[i].Date.Before(fc[j].Date) })

	c.logger.Debug().
		Str("location_key", locationKey).
		Int("days", len(fc)).
		Msg("received daily forecast")

	return fc, nil
}

// get performs a GET on path and decodes a 200 JSON body into out.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	reqURL := c.baseURL + path + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.transportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return c.transportError(err)
	}

	if resp.StatusCode != http.StatusOK {
		return c.handleErrorResponse(resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &forecast.Error{
			Provider: ProviderName,
			Code:     "MALFORMED_RESPONSE",
			Message:  fmt.Sprintf("decoding response: %v", err),
			Err:      forecast.ErrNotFound,
		}
	}
	return nil
}

// transportError maps a failed round trip to the connection class.
func (c *Client) transportError(err error) error {
	code := "REQUEST_FAILED"
	switch {
	case errors.Is(err, resilience.ErrCircuitOpen):
		code = "CIRCUIT_OPEN"
	case errors.Is(err, context.DeadlineExceeded):
		code = "TIMEOUT"
	}

	return &forecast.Error{
		Provider: ProviderName,
		Code:     code,
		Message:  fmt.Sprintf("weather provider request failed: %v", err),
		Err:      forecast.ErrConnection,
	}
}

// errorBody is the AccuWeather error payload.
type errorBody struct {
	Code    string `json:"Code"`
	Message string `json:"Message"`
}

// handleErrorResponse maps non-200 responses to forecast errors.
func (c *Client) handleErrorResponse(statusCode int, body []byte) error {
	var payload errorBody
	_ = json.Unmarshal(body, &payload) //nolint:errcheck // payload is informational

	message := payload.Message
	if message == "" {
		message = fmt.Sprintf("weather provider returned status %d", statusCode)
	}

	switch {
	case statusCode == http.StatusTooManyRequests:
		return &forecast.Error{
			Provider: ProviderName,
			Code:     "RATE_LIMIT",
			Message:  "weather provider quota exceeded, please try again later",
			Err:      forecast.ErrRateLimitExceeded,
		}
	case statusCode >= http.StatusInternalServerError:
		return &forecast.Error{
			Provider: ProviderName,
			Code:     "SERVICE_UNAVAILABLE",
			Message:  message,
			Err:      forecast.ErrConnection,
		}
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		c.logger.Error().
			Int("status", statusCode).
			Str("provider_code", payload.Code).
			Msg("weather provider rejected credentials, check ACCUWEATHER_API_KEY")
		return &forecast.Error{
			Provider: ProviderName,
			Code:     "UNAUTHORIZED",
			Message:  message,
			Err:      forecast.ErrNotFound,
		}
	default:
		return &forecast.Error{
			Provider: ProviderName,
			Code:     fmt.Sprintf("HTTP_%d", statusCode),
			Message:  message,
			Err:      forecast.ErrNotFound,
		}
	}
}

func (c *Client) record(operation string, start time.Time, err error) {
	code := ""
	if err != nil {
		code = forecast.ErrorCode(err)
	}
	c.metrics.RecordRequest(ProviderName, operation, time.Since(start), code)
}
