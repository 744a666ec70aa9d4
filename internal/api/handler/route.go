// Package handler provides HTTP handlers for the Routecast API.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/routecast/routecast/internal/api/models"
	"github.com/routecast/routecast/internal/api/response"
	"github.com/routecast/routecast/internal/forecast"
	"github.com/routecast/routecast/internal/telemetry"
	"github.com/routecast/routecast/pkg/polyline"
)

const maxRouteBodyBytes = 64 << 10

// RouteEvaluator evaluates a route city by city.
type RouteEvaluator interface {
	EvaluateRoute(ctx context.Context, req forecast.RouteRequest) (*forecast.RouteEvaluation, error)
}

// RouteHandler handles route evaluation endpoints.
type RouteHandler struct {
	evaluator RouteEvaluator
	metrics   *telemetry.RouteMetrics
	timeout   time.Duration
}

// NewRouteHandler creates a new RouteHandler. metrics may be nil; a zero
// timeout leaves the request context as is.
func NewRouteHandler(evaluator RouteEvaluator, metrics *telemetry.RouteMetrics, timeout time.Duration) *RouteHandler {
	return &RouteHandler{
		evaluator: evaluator,
		metrics:   metrics,
		timeout:   timeout,
	}
}

// EvaluateRoute handles POST /v1/routes:evaluate.
func (h *RouteHandler) EvaluateRoute(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	log := zerolog.Ctx(r.Context())

	var input models.RouteEvaluateRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRouteBodyBytes))
	if err := dec.Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	req, fieldErrors := parseRouteRequest(input)
	if len(fieldErrors) > 0 {
		response.BadRequest(w, r, "route request is invalid", fieldErrors)
		return
	}

	ctx := r.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	eval, err := h.evaluator.EvaluateRoute(ctx, req)
	if err != nil {
		h.metrics.RecordEvaluation(r.Context(), "api", forecast.ErrorCode(err), time.Since(start))
		h.writeEvaluationError(w, r, req.Locale, err)
		return
	}

	outcome := "ok"
	if eval.Empty {
		outcome = "empty"
	}
	h.metrics.RecordEvaluation(r.Context(), "api", outcome, time.Since(start))
	for i := range eval.Cities {
		h.metrics.RecordCity(r.Context(), cityOutcome(eval.Cities[i]))
	}

	log.Debug().
		Int("cities", len(eval.Cities)).
		Int("failed", eval.Failed).
		Msg("route evaluated")

	response.JSON(w, r, http.StatusOK, toRouteResponse(eval))
}

// parseRouteRequest validates the body. A body naming no city at all is
// valid and yields an empty evaluation.
func parseRouteRequest(input models.RouteEvaluateRequest) (forecast.RouteRequest, []models.FieldError) {
	req := forecast.RouteRequest{
		Start:        input.StartCity,
		Intermediate: input.IntermediateCities,
		End:          input.EndCity,
		Locale:       forecast.ParseLocale(input.Locale),
	}

	var fieldErrors []models.FieldError

	if len(req.Cities()) > 0 {
		if isBlank(input.StartCity) {
			fieldErrors = append(fieldErrors, models.FieldError{Field: "startCity", Message: "required", Code: "REQUIRED"})
		}
		if isBlank(input.EndCity) {
			fieldErrors = append(fieldErrors, models.FieldError{Field: "endCity", Message: "required", Code: "REQUIRED"})
		}
	}

	metric, err := forecast.ParseMetric(input.Metric)
	if err != nil {
		fieldErrors = append(fieldErrors, models.FieldError{
			Field:   "metric",
			Message: "must be one of temperature, wind_speed, precipitation",
			Code:    "INVALID_ENUM",
		})
	}
	req.Metric = metric

	switch forecast.DayCount(input.Days) {
	case 0:
		req.Days = forecast.Days3
	case forecast.Days3, forecast.Days5:
		req.Days = forecast.DayCount(input.Days)
	default:
		fieldErrors = append(fieldErrors, models.FieldError{Field: "days", Message: "must be 3 or 5", Code: "OUT_OF_RANGE"})
	}

	return req, fieldErrors
}

func (h *RouteHandler) writeEvaluationError(w http.ResponseWriter, r *http.Request, locale forecast.Locale, err error) {
	log := zerolog.Ctx(r.Context())

	var cityErr *forecast.CityError
	if !errors.As(err, &cityErr) {
		log.Error().Err(err).Msg("route evaluation failed")
		response.InternalError(w, r, "route evaluation failed")
		return
	}

	code := forecast.ErrorCode(cityErr.Err)
	detail := forecast.ErrorMessage(cityErr.Err).Text(locale)
	log.Warn().Err(err).Str("city", cityErr.City).Str("code", code).Msg("route aborted")

	if forecast.ErrorClass(cityErr.Err) == forecast.ErrConnection {
		response.UpstreamUnavailable(w, r, detail, code, cityErr.City)
		return
	}
	response.Unprocessable(w, r, detail, code, cityErr.City)
}

func toRouteResponse(eval *forecast.RouteEvaluation) models.RouteEvaluateResponse {
	resp := models.RouteEvaluateResponse{
		GeneratedAt:    models.Timestamp(eval.GeneratedAt),
		Metric:         string(eval.Metric),
		MetricLabel:    eval.Metric.Label(eval.Locale),
		Days:           int(eval.Days),
		Locale:         string(eval.Locale),
		Polyline:       eval.Polyline,
		DistanceMeters: int(eval.DistanceMeters + 0.5),
		Succeeded:      eval.Succeeded,
		Failed:         eval.Failed,
		Empty:          eval.Empty,
		Cities:         make([]models.CityForecast, 0, len(eval.Cities)),
	}

	if eval.Empty {
		msg := forecast.MessageEmptyRoute.Text(eval.Locale)
		resp.Message = &msg
	}

	if sw, ne, ok := polyline.Bounds(eval.Coordinates()); ok {
		resp.Bounds = &models.Bounds{
			SouthWest: models.Point{Lat: sw.Lat, Lon: sw.Lon},
			NorthEast: models.Point{Lat: ne.Lat, Lon: ne.Lon},
		}
	}

	for i := range eval.Cities {
		resp.Cities = append(resp.Cities, toCityForecast(eval.Cities[i], eval))
	}
	return resp
}

func toCityForecast(c forecast.CityResult, eval *forecast.RouteEvaluation) models.CityForecast {
	out := models.CityForecast{
		Index:      c.Index,
		City:       c.City,
		ChartTitle: forecast.ChartTitle(eval.Metric, c.City, eval.Days, eval.Locale),
		Series:     make([]models.SeriesPoint, 0, len(c.Series)),
	}

	if c.Location != nil {
		out.Location = &models.CityLocation{
			Key:   c.Location.Key,
			Name:  c.Location.Name,
			Point: models.Point{Lat: c.Location.Lat, Lon: c.Location.Lon},
		}
	}

	for _, p := range c.Series {
		out.Series = append(out.Series, models.SeriesPoint{Date: models.Date(p.Date), Value: p.Value})
	}

	if !c.OK() {
		out.Error = &models.CityError{
			Code:    forecast.ErrorCode(c.Err),
			Message: forecast.ErrorMessage(c.Err).Text(eval.Locale),
		}
		return out
	}

	assessment := string(c.Assessment)
	label := c.Assessment.Label(eval.Locale)
	favorable := c.Assessment.IsFavorable()
	out.Assessment = &assessment
	out.AssessmentLabel = &label
	out.Favorable = &favorable

	if c.Metrics != nil {
		out.Current = &models.CurrentConditions{
			TemperatureC:             c.Metrics.Temperature,
			WindSpeedKmh:             c.Metrics.WindSpeed,
			PrecipitationProbability: c.Metrics.PrecipitationProbability,
			HasPrecipitation:         c.Metrics.HasPrecipitation,
		}
	}
	return out
}

func cityOutcome(c forecast.CityResult) string {
	if c.OK() {
		return string(c.Assessment)
	}
	return forecast.ErrorCode(c.Err)
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
