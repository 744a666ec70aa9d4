// Package forecast turns per-city weather forecasts into comparable metrics and
// travel-condition verdicts for an ordered route of cities.
package forecast

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for forecast operations.
var (
	// ErrConnection indicates the weather provider could not be reached.
	ErrConnection = errors.New("weather provider unreachable")
	// ErrNotFound indicates the provider answered but returned no usable result.
	ErrNotFound = errors.New("weather data not found")
	// ErrData indicates a fetched record lacks a field that has no default.
	ErrData = errors.New("weather data incomplete")
	// ErrRateLimitExceeded indicates the provider quota has been exhausted.
	ErrRateLimitExceeded = fmt.Errorf("%w: rate limit exceeded", ErrConnection)
	// ErrInvalidDayCount indicates a forecast window the provider does not offer.
	ErrInvalidDayCount = errors.New("unsupported forecast day count")
	// ErrInvalidMetric indicates an unknown chart metric selector.
	ErrInvalidMetric = errors.New("unsupported metric")
)

// Provider defines the interface for geocoding and forecast providers.
type Provider interface {
	// ResolveLocation maps a free-text city name to the provider's first match.
	ResolveLocation(ctx context.Context, city string) (*Location, error)
	// GetDailyForecast returns days in chronological order, index 0 first.
	GetDailyForecast(ctx context.Context, locationKey string, days DayCount) ([]ForecastDay, error)
	// Name returns the provider identifier for logging and metrics.
	Name() string
}

// Location is a resolved place.
type Location struct {
	Key  string // Opaque provider key used to request forecasts
	Name string // Provider's localized name for the match
	Lat  float64
	Lon  float64
}

// ForecastDay is one day of a provider forecast as received. Nil pointers mark
// fields the provider left out.
type ForecastDay struct {
	Date                     time.Time
	Temperature              *Temperature
	Wind                     *Wind
	PrecipitationProbability *float64
	HasPrecipitation         *bool
}

// Temperature holds the temperature readings of a forecast day.
type Temperature struct {
	Metric *Reading
}

// Wind holds the wind readings of a forecast day.
type Wind struct {
	Speed *WindSpeed
}

// WindSpeed holds wind speed readings per unit system.
type WindSpeed struct {
	Metric *Reading
}

// Reading is a single measured value.
type Reading struct {
	Value *float64
	Unit  string
}

// Metrics is the normalized view of one forecast day.
type Metrics struct {
	Temperature              float64 // °C
	WindSpeed                float64 // km/h
	PrecipitationProbability float64 // percent (0-100)
	HasPrecipitation         bool
}

// Metric selects which value of Metrics is charted.
type Metric string

const (
	MetricTemperature   Metric = "temperature"
	MetricWindSpeed     Metric = "wind_speed"
	MetricPrecipitation Metric = "precipitation" // precipitation probability
)

// AllMetrics returns the chartable metrics in display order.
func AllMetrics() []Metric {
	return []Metric{MetricTemperature, MetricWindSpeed, MetricPrecipitation}
}

// ParseMetric parses a metric selector. An empty string selects temperature.
func ParseMetric(s string) (Metric, error) {
	switch Metric(s) {
	case "":
		return MetricTemperature, nil
	case MetricTemperature, MetricWindSpeed, MetricPrecipitation:
		return Metric(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMetric, s)
	}
}

// DayCount is a forecast window size offered by the provider.
type DayCount int

const (
	Days1 DayCount = 1
	Days3 DayCount = 3
	Days5 DayCount = 5
)

// Valid reports whether the provider offers this window.
func (d DayCount) Valid() bool {
	return d == Days1 || d == Days3 || d == Days5
}

// Error provides detailed error information from a forecast operation.
type Error struct {
	Provider string // Provider that generated the error, empty for local checks
	Code     string // Machine-readable error code
	Message  string // Human-readable error message
	Err      error  // Underlying sentinel
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if the error is transient and the request can be retried.
func (e *Error) IsRetryable() bool {
	return errors.Is(e.Err, ErrConnection)
}

// ErrorClass returns the failure class of err: ErrConnection, ErrData or
// ErrNotFound. Deadlines and cancellations count as connection failures.
func ErrorClass(err error) error {
	switch {
	case errors.Is(err, ErrConnection),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return ErrConnection
	case errors.Is(err, ErrData):
		return ErrData
	default:
		return ErrNotFound
	}
}

// ErrorCode returns the code for err: the Code of a wrapped *Error, otherwise
// a code derived from the sentinel it wraps.
func ErrorCode(err error) string {
	var fe *Error
	if errors.As(err, &fe) && fe.Code != "" {
		return fe.Code
	}
	switch {
	case errors.Is(err, ErrConnection):
		return "CONNECTION_ERROR"
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrData):
		return "DATA_ERROR"
	case errors.Is(err, context.DeadlineExceeded):
		return "TIMEOUT"
	default:
		return "INTERNAL"
	}
}
