package forecast_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/routecast/routecast/internal/forecast"
	"github.com/routecast/routecast/pkg/polyline"
)

// mockProvider serves canned locations and forecasts keyed by city name.
type mockProvider struct {
	mu         sync.Mutex
	locations  map[string]*forecast.Location
	forecasts  map[string][]forecast.ForecastDay
	resolveErr map[string]error
	fetchErr   map[string]error
	delay      time.Duration

	resolved []string
	inFlight atomic.Int32
	maxSeen  atomic.Int32
}

func newMockProvider() *mockProvider {
	return &mockProvider{
		locations:  make(map[string]*forecast.Location),
		forecasts:  make(map[string][]forecast.ForecastDay),
		resolveErr: make(map[string]error),
		fetchErr:   make(map[string]error),
	}
}

// add registers a city whose forecast key equals its name.
func (m *mockProvider) add(city string, lat, lon float64, days ...forecast.ForecastDay) {
	m.locations[city] = &forecast.Location{Key: city, Name: city, Lat: lat, Lon: lon}
	m.forecasts[city] = days
}

func (m *mockProvider) Name() string {
	return "mock"
}

func (m *mockProvider) ResolveLocation(ctx context.Context, city string) (*forecast.Location, error) {
	n := m.inFlight.Add(1)
	defer m.inFlight.Add(-1)
	for {
		seen := m.maxSeen.Load()
		if n <= seen || m.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}

	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.resolved = append(m.resolved, city)

	if err := m.resolveErr[city]; err != nil {
		return nil, err
	}
	return m.locations[city], nil
}

func (m *mockProvider) GetDailyForecast(_ context.Context, key string, days forecast.DayCount) ([]forecast.ForecastDay, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.fetchErr[key]; err != nil {
		return nil, err
	}
	fc := m.forecasts[key]
	if len(fc) > int(days) {
		fc = fc[:days]
	}
	return fc, nil
}

func dated(d forecast.ForecastDay, offset int) forecast.ForecastDay {
	d.Date = time.Date(2026, 10, 15+offset, 7, 0, 0, 0, time.UTC)
	return d
}

func newTestService(p forecast.Provider, policy forecast.FailurePolicy) *forecast.Service {
	return forecast.NewService(forecast.ServiceConfig{
		Provider:      p,
		Logger:        zerolog.Nop(),
		FailurePolicy: policy,
	})
}

func TestEvaluateRoute_PreservesRouteOrder(t *testing.T) {
	p := newMockProvider()
	p.delay = 5 * time.Millisecond
	p.add("Moscow", 55.7558, 37.6173, dated(day(10, 10, 10, false), 0))
	p.add("Vladimir", 56.1290, 40.4070, dated(day(-3, 10, 10, false), 0))
	p.add("Nizhny Novgorod", 56.3269, 44.0059, dated(day(12, 60, 10, false), 0))
	p.add("Kazan", 55.7963, 49.1088, dated(day(15, 5, 90, false), 0))

	svc := newTestService(p, forecast.PolicyIsolate)
	eval, err := svc.EvaluateRoute(context.Background(), forecast.RouteRequest{
		Start:        "Moscow",
		Intermediate: []string{"Vladimir", "Nizhny Novgorod"},
		End:          "Kazan",
	})
	require.NoError(t, err)

	require.Len(t, eval.Cities, 4)
	names := make([]string, len(eval.Cities))
	for i, c := range eval.Cities {
		names[i] = c.City
		assert.Equal(t, i, c.Index)
	}
	assert.Equal(t, []string{"Moscow", "Vladimir", "Nizhny Novgorod", "Kazan"}, names)

	assert.Equal(t, forecast.Favorable, eval.Cities[0].Assessment)
	assert.Equal(t, forecast.UnfavorableTemperature, eval.Cities[1].Assessment)
	assert.Equal(t, forecast.UnfavorableWind, eval.Cities[2].Assessment)
	assert.Equal(t, forecast.UnfavorablePrecipitation, eval.Cities[3].Assessment)

	assert.Equal(t, 4, eval.Succeeded)
	assert.Zero(t, eval.Failed)
	assert.False(t, eval.Empty)
	assert.LessOrEqual(t, p.maxSeen.Load(), int32(3))
}

func TestEvaluateRoute_Defaults(t *testing.T) {
	p := newMockProvider()
	p.add("Kazan", 55.7963, 49.1088,
		dated(day(15, 5, 10, false), 0),
		dated(day(16, 5, 10, false), 1),
		dated(day(17, 5, 10, false), 2),
		dated(day(18, 5, 10, false), 3),
	)

	eval, err := newTestService(p, "").EvaluateRoute(context.Background(), forecast.RouteRequest{Start: "Kazan"})
	require.NoError(t, err)

	assert.Equal(t, forecast.MetricTemperature, eval.Metric)
	assert.Equal(t, forecast.Days3, eval.Days)
	assert.Equal(t, forecast.LocaleEN, eval.Locale)
	require.Len(t, eval.Cities, 1)
	assert.Len(t, eval.Cities[0].Series, 3)
	assert.Equal(t, 15.0, eval.Cities[0].Series[0].Value)
}

func TestEvaluateRoute_SeriesFollowsMetric(t *testing.T) {
	p := newMockProvider()
	p.add("Kazan", 55.7963, 49.1088,
		dated(day(15, 12, 30, false), 0),
		dated(forecast.ForecastDay{PrecipitationProbability: ptr(55.0)}, 1),
		dated(day(17, 24, 80, true), 2),
	)
	svc := newTestService(p, forecast.PolicyIsolate)

	t.Run("precipitation keeps days without temperature", func(t *testing.T) {
		eval, err := svc.EvaluateRoute(context.Background(), forecast.RouteRequest{
			Start:  "Kazan",
			Metric: forecast.MetricPrecipitation,
		})
		require.NoError(t, err)

		series := eval.Cities[0].Series
		require.Len(t, series, 3)
		assert.Equal(t, []float64{30, 55, 80}, []float64{series[0].Value, series[1].Value, series[2].Value})
		assert.True(t, series[0].Date.Before(series[1].Date))
	})

	t.Run("temperature skips days without temperature", func(t *testing.T) {
		eval, err := svc.EvaluateRoute(context.Background(), forecast.RouteRequest{Start: "Kazan"})
		require.NoError(t, err)

		series := eval.Cities[0].Series
		require.Len(t, series, 2)
		assert.Equal(t, 17.0, series[1].Value)
	})

	t.Run("wind speed", func(t *testing.T) {
		eval, err := svc.EvaluateRoute(context.Background(), forecast.RouteRequest{
			Start:  "Kazan",
			Metric: forecast.MetricWindSpeed,
		})
		require.NoError(t, err)
		assert.Equal(t, 12.0, eval.Cities[0].Series[0].Value)
		assert.Equal(t, 0.0, eval.Cities[0].Series[1].Value)
	})
}

func TestEvaluateRoute_EmptyRoute(t *testing.T) {
	p := newMockProvider()
	svc := newTestService(p, forecast.PolicyIsolate)

	eval, err := svc.EvaluateRoute(context.Background(), forecast.RouteRequest{
		Start:        "  ",
		Intermediate: []string{""},
	})
	require.NoError(t, err)

	assert.True(t, eval.Empty)
	assert.Empty(t, eval.Cities)
	assert.Empty(t, eval.Polyline)
	assert.Empty(t, p.resolved)
}

func TestEvaluateRoute_IsolatesFailures(t *testing.T) {
	p := newMockProvider()
	p.add("Moscow", 55.7558, 37.6173, dated(day(10, 10, 10, false), 0))
	p.add("Kazan", 55.7963, 49.1088, dated(day(15, 5, 10, false), 0))
	p.add("Samara", 53.1959, 50.1002, dated(forecast.ForecastDay{}, 0))
	p.add("Ufa", 54.7388, 55.9721, dated(day(15, 5, 10, false), 0))
	p.fetchErr["Ufa"] = &forecast.Error{Provider: "mock", Code: "SERVICE_UNAVAILABLE", Err: forecast.ErrConnection}

	svc := newTestService(p, forecast.PolicyIsolate)
	eval, err := svc.EvaluateRoute(context.Background(), forecast.RouteRequest{
		Start:        "Moscow",
		Intermediate: []string{"Atlantis", "Samara", "Ufa"},
		End:          "Kazan",
	})
	require.NoError(t, err)
	require.Len(t, eval.Cities, 5)

	assert.True(t, eval.Cities[0].OK())
	assert.True(t, eval.Cities[4].OK())

	unknown := eval.Cities[1]
	assert.ErrorIs(t, unknown.Err, forecast.ErrNotFound)
	assert.Equal(t, "LOCATION_NOT_FOUND", forecast.ErrorCode(unknown.Err))
	assert.Nil(t, unknown.Location)

	incomplete := eval.Cities[2]
	assert.ErrorIs(t, incomplete.Err, forecast.ErrData)
	assert.NotNil(t, incomplete.Location)
	assert.Empty(t, incomplete.Assessment)

	unreachable := eval.Cities[3]
	assert.ErrorIs(t, unreachable.Err, forecast.ErrConnection)
	assert.Equal(t, forecast.MessageConnection, forecast.ErrorMessage(unreachable.Err))
	assert.NotNil(t, unreachable.Location)

	assert.Equal(t, 2, eval.Succeeded)
	assert.Equal(t, 3, eval.Failed)

	// Every resolved city is on the path, including failed fetches.
	assert.Len(t, polyline.Decode(eval.Polyline), 4)
	assert.Greater(t, eval.DistanceMeters, 0.0)
}

func TestEvaluateRoute_UnplacedCityStaysOffTheMap(t *testing.T) {
	p := newMockProvider()
	p.add("Moscow", 55.7558, 37.6173, dated(day(10, 10, 10, false), 0))
	p.add("Kazan", 55.7963, 49.1088, dated(day(15, 5, 10, false), 0))
	p.resolveErr["Cheboksary"] = &forecast.Error{Provider: "mock", Code: "MISSING_COORDINATES", Err: forecast.ErrNotFound}

	svc := newTestService(p, forecast.PolicyIsolate)
	eval, err := svc.EvaluateRoute(context.Background(), forecast.RouteRequest{
		Start:        "Moscow",
		Intermediate: []string{"Cheboksary"},
		End:          "Kazan",
	})
	require.NoError(t, err)
	require.Len(t, eval.Cities, 3)

	unplaced := eval.Cities[1]
	assert.Nil(t, unplaced.Location)
	assert.Equal(t, "MISSING_COORDINATES", forecast.ErrorCode(unplaced.Err))

	moscow := polyline.Coordinate{Lat: 55.7558, Lon: 37.6173}
	kazan := polyline.Coordinate{Lat: 55.7963, Lon: 49.1088}
	assert.Equal(t, []polyline.Coordinate{moscow, kazan}, eval.Coordinates())
	assert.Len(t, polyline.Decode(eval.Polyline), 2)
	assert.InDelta(t, polyline.Distance(moscow, kazan), eval.DistanceMeters, 1)
}

func TestEvaluateRoute_FailFast(t *testing.T) {
	p := newMockProvider()
	p.add("Moscow", 55.7558, 37.6173, dated(day(10, 10, 10, false), 0))
	p.add("Kazan", 55.7963, 49.1088, dated(day(15, 5, 10, false), 0))
	p.resolveErr["Vladimir"] = &forecast.Error{Provider: "mock", Code: "REQUEST_FAILED", Err: forecast.ErrConnection}

	svc := newTestService(p, forecast.PolicyFailFast)
	eval, err := svc.EvaluateRoute(context.Background(), forecast.RouteRequest{
		Start:        "Moscow",
		Intermediate: []string{"Vladimir"},
		End:          "Kazan",
	})
	require.Error(t, err)
	assert.Nil(t, eval)

	var cityErr *forecast.CityError
	require.True(t, errors.As(err, &cityErr))
	assert.Equal(t, 1, cityErr.Index)
	assert.Equal(t, "Vladimir", cityErr.City)
	assert.ErrorIs(t, err, forecast.ErrConnection)

	// Cities after the failing one are never requested.
	assert.Equal(t, []string{"Moscow", "Vladimir"}, p.resolved)
}

func TestEvaluateRoute_FailFastAllSucceed(t *testing.T) {
	p := newMockProvider()
	p.add("Moscow", 55.7558, 37.6173, dated(day(10, 10, 10, false), 0))
	p.add("Kazan", 55.7963, 49.1088, dated(day(15, 5, 10, false), 0))

	svc := newTestService(p, forecast.PolicyFailFast)
	eval, err := svc.EvaluateRoute(context.Background(), forecast.RouteRequest{Start: "Moscow", End: "Kazan"})
	require.NoError(t, err)
	assert.Equal(t, 2, eval.Succeeded)
	assert.Equal(t, forecast.PolicyFailFast, svc.Policy())
}

func TestEvaluateRoute_InvalidSelectors(t *testing.T) {
	svc := newTestService(newMockProvider(), forecast.PolicyIsolate)

	_, err := svc.EvaluateRoute(context.Background(), forecast.RouteRequest{Start: "Kazan", Days: 7})
	assert.ErrorIs(t, err, forecast.ErrInvalidDayCount)

	_, err = svc.EvaluateRoute(context.Background(), forecast.RouteRequest{Start: "Kazan", Metric: "humidity"})
	assert.ErrorIs(t, err, forecast.ErrInvalidMetric)
}

func TestEvaluateRoute_CityTimeout(t *testing.T) {
	p := newMockProvider()
	p.delay = time.Second
	p.add("Kazan", 55.7963, 49.1088, dated(day(15, 5, 10, false), 0))

	svc := forecast.NewService(forecast.ServiceConfig{
		Provider:    p,
		Logger:      zerolog.Nop(),
		CityTimeout: 20 * time.Millisecond,
	})

	eval, err := svc.EvaluateRoute(context.Background(), forecast.RouteRequest{Start: "Kazan"})
	require.NoError(t, err)
	require.Len(t, eval.Cities, 1)
	assert.ErrorIs(t, eval.Cities[0].Err, context.DeadlineExceeded)
	assert.Equal(t, forecast.MessageConnection, forecast.ErrorMessage(eval.Cities[0].Err))
}

func TestEvaluateRoute_DuplicateCitiesAreDistinctStops(t *testing.T) {
	p := newMockProvider()
	p.add("Kazan", 55.7963, 49.1088, dated(day(15, 5, 10, false), 0))

	eval, err := newTestService(p, forecast.PolicyIsolate).EvaluateRoute(context.Background(), forecast.RouteRequest{
		Start: "Kazan",
		End:   "Kazan",
	})
	require.NoError(t, err)
	assert.Len(t, eval.Cities, 2)
}

func TestParseFailurePolicy(t *testing.T) {
	p, err := forecast.ParseFailurePolicy("")
	require.NoError(t, err)
	assert.Equal(t, forecast.PolicyIsolate, p)

	p, err = forecast.ParseFailurePolicy("fail_fast")
	require.NoError(t, err)
	assert.Equal(t, forecast.PolicyFailFast, p)

	_, err = forecast.ParseFailurePolicy("retry")
	assert.Error(t, err)
}

func TestEvaluateRoute_RecordsSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	p := newMockProvider()
	p.add("Moscow", 55.7558, 37.6173, dated(day(10, 10, 10, false), 0))

	svc := forecast.NewService(forecast.ServiceConfig{
		Provider:       p,
		Logger:         zerolog.Nop(),
		TracerProvider: tp,
	})

	_, err := svc.EvaluateRoute(context.Background(), forecast.RouteRequest{Start: "Moscow", End: "Atlantis"})
	require.NoError(t, err)

	names := make(map[string]int)
	for _, span := range recorder.Ended() {
		names[span.Name()]++
	}
	assert.Equal(t, 1, names["forecast.EvaluateRoute"])
	assert.Equal(t, 2, names["forecast.evaluateCity"])
}
