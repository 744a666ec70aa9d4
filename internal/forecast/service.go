package forecast

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/routecast/routecast/pkg/polyline"
)

const tracerName = "github.com/routecast/routecast/internal/forecast"

// FailurePolicy decides how a failing city affects the rest of the route.
type FailurePolicy string

const (
	// PolicyIsolate evaluates every city and reports failures per city.
	PolicyIsolate FailurePolicy = "isolate"
	// PolicyFailFast evaluates cities one by one in route order and aborts the
	// route on the first failure.
	PolicyFailFast FailurePolicy = "fail_fast"
)

// ParseFailurePolicy parses a policy name. An empty string selects PolicyIsolate.
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch FailurePolicy(s) {
	case "", PolicyIsolate:
		return PolicyIsolate, nil
	case PolicyFailFast:
		return PolicyFailFast, nil
	default:
		return "", fmt.Errorf("unknown failure policy %q", s)
	}
}

// CityError is returned by EvaluateRoute under PolicyFailFast.
type CityError struct {
	Index int
	City  string
	Err   error
}

func (e *CityError) Error() string {
	return fmt.Sprintf("city %q: %v", e.City, e.Err)
}

func (e *CityError) Unwrap() error {
	return e.Err
}

// ServiceConfig holds configuration for the route service.
type ServiceConfig struct {
	// Provider resolves cities and fetches forecasts.
	Provider Provider

	// Logger for service operations.
	Logger zerolog.Logger

	// Concurrency bounds how many cities are evaluated at once (default: 3).
	Concurrency int

	// CityTimeout bounds one city's resolve and fetch (default: 20 seconds).
	CityTimeout time.Duration

	// FailurePolicy selects per-city isolation or fail-fast (default: isolate).
	FailurePolicy FailurePolicy

	// TracerProvider overrides the global tracer provider.
	TracerProvider trace.TracerProvider
}

// Service evaluates routes city by city.
type Service struct {
	provider    Provider
	logger      zerolog.Logger
	concurrency int
	cityTimeout time.Duration
	policy      FailurePolicy
	tracer      trace.Tracer
}

// NewService creates a new route service.
func NewService(cfg ServiceConfig) *Service {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 3
	}

	cityTimeout := cfg.CityTimeout
	if cityTimeout == 0 {
		cityTimeout = 20 * time.Second
	}

	policy := cfg.FailurePolicy
	if policy == "" {
		policy = PolicyIsolate
	}

	tp := cfg.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}

	return &Service{
		provider:    cfg.Provider,
		logger:      cfg.Logger,
		concurrency: concurrency,
		cityTimeout: cityTimeout,
		policy:      policy,
		tracer:      tp.Tracer(tracerName),
	}
}

// Policy returns the configured failure policy.
func (s *Service) Policy() FailurePolicy {
	return s.policy
}

// ProviderName returns the name of the underlying provider.
func (s *Service) ProviderName() string {
	return s.provider.Name()
}

// EvaluateRoute resolves, fetches, and classifies every city of the route.
// A request without cities yields an evaluation with Empty set and no error.
// Under PolicyFailFast the first failing city's error is returned as a
// *CityError; otherwise failures are reported in the per-city results.
func (s *Service) EvaluateRoute(ctx context.Context, req RouteRequest) (*RouteEvaluation, error) {
	req, err := normalize(req)
	if err != nil {
		return nil, err
	}

	cities := req.Cities()
	eval := &RouteEvaluation{
		Metric:      req.Metric,
		Days:        req.Days,
		Locale:      req.Locale,
		Cities:      []CityResult{},
		GeneratedAt: time.Now(),
	}

	if len(cities) == 0 {
		eval.Empty = true
		s.logger.Debug().Msg("route has no cities")
		return eval, nil
	}

	ctx, span := s.tracer.Start(ctx, "forecast.EvaluateRoute",
		trace.WithAttributes(
			attribute.Int("route.cities", len(cities)),
			attribute.String("route.metric", string(req.Metric)),
			attribute.Int("route.days", int(req.Days)),
			attribute.String("route.failure_policy", string(s.policy)),
			attribute.String("provider.name", s.provider.Name()),
		),
	)
	defer span.End()

	start := time.Now()

	if s.policy == PolicyFailFast {
		results, err := s.evaluateInOrder(ctx, cities, req)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, ErrorCode(err))
			return nil, err
		}
		eval.Cities = results
	} else {
		eval.Cities = s.evaluateConcurrently(ctx, cities, req)
	}

	for i := range eval.Cities {
		if eval.Cities[i].OK() {
			eval.Succeeded++
		} else {
			eval.Failed++
		}
	}
	coords := eval.Coordinates()
	eval.Polyline = polyline.Encode(coords)
	eval.DistanceMeters = polyline.Length(coords)

	span.SetAttributes(
		attribute.Int("route.succeeded", eval.Succeeded),
		attribute.Int("route.failed", eval.Failed),
	)

	s.logger.Info().
		Int("cities", len(cities)).
		Int("succeeded", eval.Succeeded).
		Int("failed", eval.Failed).
		Str("metric", string(req.Metric)).
		Int("days", int(req.Days)).
		Dur("duration", time.Since(start)).
		Msg("route evaluated")

	return eval, nil
}

// normalize applies request defaults and rejects unsupported selectors.
func normalize(req RouteRequest) (RouteRequest, error) {
	metric, err := ParseMetric(string(req.Metric))
	if err != nil {
		return req, err
	}
	req.Metric = metric

	if req.Days == 0 {
		req.Days = Days3
	}
	if !req.Days.Valid() {
		return req, fmt.Errorf("%w: %d", ErrInvalidDayCount, req.Days)
	}

	req.Locale = ParseLocale(string(req.Locale))
	return req, nil
}

// evaluateConcurrently runs every city pipeline, at most s.concurrency at a
// time. Results keep route order.
func (s *Service) evaluateConcurrently(ctx context.Context, cities []string, req RouteRequest) []CityResult {
	results := make([]CityResult, len(cities))

	var g errgroup.Group
	g.SetLimit(s.concurrency)

	for i, city := range cities {
		g.Go(func() error {
			results[i] = s.evaluateCity(ctx, i, city, req)
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // city pipelines report failures in their results

	return results
}

// evaluateInOrder runs city pipelines sequentially and stops at the first failure.
func (s *Service) evaluateInOrder(ctx context.Context, cities []string, req RouteRequest) ([]CityResult, error) {
	results := make([]CityResult, 0, len(cities))
	for i, city := range cities {
		result := s.evaluateCity(ctx, i, city, req)
		if result.Err != nil {
			return nil, &CityError{Index: i, City: city, Err: result.Err}
		}
		results = append(results, result)
	}
	return results, nil
}

// evaluateCity runs resolve, fetch, extract, and classify for one city.
func (s *Service) evaluateCity(ctx context.Context, index int, city string, req RouteRequest) CityResult {
	result := CityResult{Index: index, City: city}

	ctx, cancel := context.WithTimeout(ctx, s.cityTimeout)
	defer cancel()

	ctx, span := s.tracer.Start(ctx, "forecast.evaluateCity",
		trace.WithAttributes(
			attribute.String("city.name", city),
			attribute.Int("city.index", index),
		),
	)
	defer span.End()

	fail := func(err error) CityResult {
		result.Err = err
		span.RecordError(err)
		span.SetStatus(codes.Error, ErrorCode(err))
		s.logger.Warn().Err(err).
			Str("city", city).
			Int("index", index).
			Str("code", ErrorCode(err)).
			Msg("city evaluation failed")
		return result
	}

	loc, err := s.provider.ResolveLocation(ctx, city)
	if err != nil {
		return fail(err)
	}
	if loc == nil {
		return fail(&Error{
			Provider: s.provider.Name(),
			Code:     "LOCATION_NOT_FOUND",
			Message:  "no location matches the city name",
			Err:      ErrNotFound,
		})
	}
	result.Location = loc

	days, err := s.provider.GetDailyForecast(ctx, loc.Key, req.Days)
	if err != nil {
		return fail(err)
	}
	if len(days) == 0 {
		return fail(&Error{
			Provider: s.provider.Name(),
			Code:     "EMPTY_FORECAST",
			Message:  "provider returned no forecast days",
			Err:      ErrNotFound,
		})
	}

	result.Series = s.series(city, days, req.Metric)

	current, err := Extract(days[0])
	if err != nil {
		return fail(err)
	}
	result.Metrics = &current
	result.Assessment = Classify(current)

	span.SetAttributes(attribute.String("city.assessment", string(result.Assessment)))

	s.logger.Debug().
		Str("city", city).
		Str("location_key", loc.Key).
		Int("days", len(days)).
		Str("assessment", string(result.Assessment)).
		Msg("city evaluated")

	return result
}

// series builds the chart points for metric over every fetched day. Days
// without a temperature are left out of temperature charts.
func (s *Service) series(city string, days []ForecastDay, metric Metric) []SeriesPoint {
	points := make([]SeriesPoint, 0, len(days))
	for _, day := range days {
		value, ok := seriesValue(day, metric)
		if !ok {
			s.logger.Debug().
				Str("city", city).
				Time("date", day.Date).
				Msg("skipping forecast day without temperature")
			continue
		}
		points = append(points, SeriesPoint{Date: day.Date, Value: value})
	}
	return points
}

func seriesValue(day ForecastDay, metric Metric) (float64, bool) {
	switch metric {
	case MetricWindSpeed:
		return windSpeedKmh(day), true
	case MetricPrecipitation:
		return precipitationProbability(day), true
	default:
		return temperatureC(day)
	}
}
