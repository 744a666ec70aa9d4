package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ProviderMetrics records outbound weather provider calls.
type ProviderMetrics struct {
	requestDuration metric.Float64Histogram
	requestTotal    metric.Int64Counter
}

// NewProviderMetrics creates provider call instruments on meter.
func NewProviderMetrics(meter metric.Meter) (*ProviderMetrics, error) {
	requestDuration, err := meter.Float64Histogram(
		"provider.request.duration",
		metric.WithDescription("Duration of weather provider requests in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	requestTotal, err := meter.Int64Counter(
		"provider.request.total",
		metric.WithDescription("Total number of weather provider requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	return &ProviderMetrics{
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
	}, nil
}

// RecordRequest records one provider operation. code is empty on success.
func (m *ProviderMetrics) RecordRequest(provider, operation string, duration time.Duration, code string) {
	if m == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("provider.name", provider),
		attribute.String("provider.operation", operation),
	}
	if code != "" {
		attrs = append(attrs, attribute.Bool("error", true), attribute.String("error.code", code))
	}

	// Detached from the request context so cancelled requests are still counted.
	ctx := context.Background()
	m.requestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	m.requestTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RouteMetrics records route evaluations and their per-city outcomes.
type RouteMetrics struct {
	evaluations metric.Int64Counter
	cities      metric.Int64Counter
	duration    metric.Float64Histogram
}

// NewRouteMetrics creates route evaluation instruments on meter.
func NewRouteMetrics(meter metric.Meter) (*RouteMetrics, error) {
	evaluations, err := meter.Int64Counter(
		"route.evaluation.total",
		metric.WithDescription("Total number of route evaluations"),
		metric.WithUnit("{evaluation}"),
	)
	if err != nil {
		return nil, err
	}

	cities, err := meter.Int64Counter(
		"route.city.total",
		metric.WithDescription("Cities evaluated, by outcome"),
		metric.WithUnit("{city}"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram(
		"route.evaluation.duration",
		metric.WithDescription("Duration of route evaluations in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &RouteMetrics{
		evaluations: evaluations,
		cities:      cities,
		duration:    duration,
	}, nil
}

// RecordEvaluation records one evaluation. source is "api" or "worker";
// outcome is "ok", "empty" or an error code.
func (m *RouteMetrics) RecordEvaluation(ctx context.Context, source, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("route.source", source),
		attribute.String("route.outcome", outcome),
	)
	m.evaluations.Add(ctx, 1, attrs)
	m.duration.Record(ctx, duration.Seconds(), attrs)
}

// RecordCity records one city outcome: its assessment on success or its error code.
func (m *RouteMetrics) RecordCity(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.cities.Add(ctx, 1, metric.WithAttributes(attribute.String("city.outcome", outcome)))
}
