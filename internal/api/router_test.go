package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/routecast/routecast/internal/api"
	"github.com/routecast/routecast/internal/api/models"
	"github.com/routecast/routecast/internal/forecast"
	"github.com/routecast/routecast/internal/provider/resilience"
)

// cityProvider answers every city with a mild three-day forecast.
type cityProvider struct{}

func (cityProvider) Name() string { return "test" }

func (cityProvider) ResolveLocation(_ context.Context, city string) (*forecast.Location, error) {
	return &forecast.Location{Key: city, Name: city, Lat: 55.0 + float64(len(city)), Lon: 37.0}, nil
}

func (cityProvider) GetDailyForecast(_ context.Context, _ string, days forecast.DayCount) ([]forecast.ForecastDay, error) {
	out := make([]forecast.ForecastDay, 0, int(days))
	start := time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)
	for i := 0; i < int(days); i++ {
		v := 18.0
		out = append(out, forecast.ForecastDay{
			Date:        start.AddDate(0, 0, i),
			Temperature: &forecast.Temperature{Metric: &forecast.Reading{Value: &v, Unit: "C"}},
		})
	}
	return out, nil
}

func newTestRouter(mutate ...func(*api.RouterConfig)) http.Handler {
	cfg := api.RouterConfig{
		Version:   "test",
		BuildTime: "2026-01-01T00:00:00Z",
		Logger:    zerolog.New(io.Discard),
		RouteService: forecast.NewService(forecast.ServiceConfig{
			Provider: cityProvider{},
			Logger:   zerolog.Nop(),
		}),
		FailurePolicy: string(forecast.PolicyIsolate),
		Registry:      resilience.NewRegistry(),
		RateLimitRPM:  100,
		RouteTimeout:  5 * time.Second,
	}
	for _, m := range mutate {
		m(&cfg)
	}
	return api.NewRouter(cfg)
}

func evaluateRequest(t *testing.T, body any) *http.Request {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/v1/routes:evaluate", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestRouter_OpsEndpoints(t *testing.T) {
	router := newTestRouter()

	for _, path := range []string{"/v1/ops/health", "/v1/ops/ready", "/v1/ops/status"} {
		t.Run(path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, http.NoBody))

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
			assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
		})
	}
}

func TestRouter_Enums(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/metadata/enums?locale=ru", http.NoBody))

	require.Equal(t, http.StatusOK, rec.Code)
	var enums models.Enums
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &enums))
	assert.Equal(t, "ru", enums.Locale)
	assert.Len(t, enums.Metrics, 3)
}

func TestRouter_EvaluateRoute(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rec, evaluateRequest(t, models.RouteEvaluateRequest{
		StartCity:          "Moscow",
		IntermediateCities: []string{"Tver"},
		EndCity:            "Saint Petersburg",
	}))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Polyline  string `json:"polyline"`
		Succeeded int    `json:"succeeded"`
		Cities    []struct {
			City       string `json:"city"`
			Assessment string `json:"assessment"`
		} `json:"cities"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body.Polyline)
	assert.Equal(t, 3, body.Succeeded)
	require.Len(t, body.Cities, 3)
	assert.Equal(t, "Moscow", body.Cities[0].City)
	assert.Equal(t, "Tver", body.Cities[1].City)
	assert.Equal(t, "Saint Petersburg", body.Cities[2].City)
	assert.Equal(t, "FAVORABLE", body.Cities[0].Assessment)
}

func TestRouter_EvaluateRoute_MissingStartCity(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rec, evaluateRequest(t, models.RouteEvaluateRequest{EndCity: "Kazan"}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

	var problem models.Problem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	assert.Equal(t, models.ProblemTypeValidation, problem.Type)
	assert.Equal(t, rec.Header().Get("X-Request-Id"), problem.TraceID)
	require.Len(t, problem.Errors, 1)
	assert.Equal(t, "startCity", problem.Errors[0].Field)
}

func TestRouter_EvaluateRoute_RejectsNonJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/v1/routes:evaluate", bytes.NewBufferString("start=Moscow"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestRouter_EvaluateRoute_RateLimited(t *testing.T) {
	router := newTestRouter(func(cfg *api.RouterConfig) { cfg.RateLimitRPM = 2 })

	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		req := evaluateRequest(t, models.RouteEvaluateRequest{})
		req.RemoteAddr = "203.0.113.9:4000"
		last = httptest.NewRecorder()
		router.ServeHTTP(last, req)
	}

	assert.Equal(t, http.StatusTooManyRequests, last.Code)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/ops/health", http.NoBody))
	assert.Equal(t, http.StatusOK, rec.Code, "ops endpoints are not rate limited")
}

func TestRouter_RequireTLS(t *testing.T) {
	router := newTestRouter(func(cfg *api.RouterConfig) { cfg.RequireTLS = true })

	req := httptest.NewRequest(http.MethodGet, "/v1/ops/health", http.NoBody)
	req.Header.Set("X-Forwarded-Proto", "http")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRouter_NotFound(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/me", http.NoBody))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
