// Package worker evaluates routes submitted over Pub/Sub.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/routecast/routecast/internal/forecast"
	"github.com/routecast/routecast/internal/telemetry"
)

// RouteJob is one queued route evaluation.
type RouteJob struct {
	JobID              string   `json:"jobId"`
	StartCity          string   `json:"startCity"`
	EndCity            string   `json:"endCity"`
	IntermediateCities []string `json:"intermediateCities,omitempty"`
	Metric             string   `json:"metric,omitempty"`
	Days               int      `json:"days,omitempty"`
	Locale             string   `json:"locale,omitempty"`
}

// RouteJobResult is published once a job has been evaluated.
type RouteJobResult struct {
	JobID       string        `json:"jobId"`
	CompletedAt time.Time     `json:"completedAt"`
	Metric      string        `json:"metric"`
	Days        int           `json:"days"`
	Polyline    string        `json:"polyline"`
	Empty       bool          `json:"empty"`
	Succeeded   int           `json:"succeeded"`
	Failed      int           `json:"failed"`
	Cities      []CityOutcome `json:"cities"`
}

// CityOutcome is the verdict or the failure of one stop.
type CityOutcome struct {
	City       string    `json:"city"`
	Assessment string    `json:"assessment,omitempty"`
	Label      string    `json:"label,omitempty"`
	Error      *JobError `json:"error,omitempty"`
}

// JobError describes a city failure.
type JobError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Decision tells the subscriber what to do with a message.
type Decision int

const (
	// Ack removes the message from the subscription.
	Ack Decision = iota
	// Nack asks Pub/Sub to redeliver the message.
	Nack
)

func (d Decision) String() string {
	if d == Nack {
		return "nack"
	}
	return "ack"
}

// Evaluator evaluates a route city by city.
type Evaluator interface {
	EvaluateRoute(ctx context.Context, req forecast.RouteRequest) (*forecast.RouteEvaluation, error)
}

// Publisher sends a job result downstream.
type Publisher interface {
	Publish(ctx context.Context, data []byte, attributes map[string]string) error
}

// errMalformedJob marks messages that can never be processed.
var errMalformedJob = errors.New("malformed route job")

// ProcessorConfig holds configuration for the job processor.
type ProcessorConfig struct {
	Evaluator Evaluator

	// Publisher receives results; nil only logs them.
	Publisher Publisher

	// Metrics records evaluation outcomes; nil disables them.
	Metrics *telemetry.RouteMetrics

	// Timeout bounds one job (default: 45 seconds).
	Timeout time.Duration

	Logger zerolog.Logger
}

// Processor turns RouteJob messages into RouteJobResults.
type Processor struct {
	evaluator Evaluator
	publisher Publisher
	metrics   *telemetry.RouteMetrics
	timeout   time.Duration
	logger    zerolog.Logger
}

// NewProcessor creates a job processor.
func NewProcessor(cfg ProcessorConfig) *Processor {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	return &Processor{
		evaluator: cfg.Evaluator,
		publisher: cfg.Publisher,
		metrics:   cfg.Metrics,
		timeout:   timeout,
		logger:    cfg.Logger,
	}
}

// Process evaluates one message. Malformed jobs are dropped with Ack since
// redelivery cannot fix them; evaluation and publish failures are Nacked.
func (p *Processor) Process(ctx context.Context, messageID string, data []byte) Decision {
	start := time.Now()
	log := p.logger.With().Str("message_id", messageID).Logger()

	job, req, err := decodeJob(data)
	if err != nil {
		log.Error().Err(err).Msg("dropping route job")
		p.metrics.RecordEvaluation(ctx, "worker", "MALFORMED_JOB", time.Since(start))
		return Ack
	}
	log = log.With().Str("job_id", job.JobID).Logger()

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	eval, err := p.evaluator.EvaluateRoute(ctx, req)
	if err != nil {
		code := forecast.ErrorCode(err)
		event := log.Warn().Err(err).Str("code", code)
		var cityErr *forecast.CityError
		if errors.As(err, &cityErr) {
			event = event.Str("city", cityErr.City)
		}
		event.Msg("route job failed, requesting redelivery")
		p.metrics.RecordEvaluation(ctx, "worker", code, time.Since(start))
		return Nack
	}

	result := toJobResult(job.JobID, eval)
	for i := range eval.Cities {
		c := eval.Cities[i]
		if c.OK() {
			p.metrics.RecordCity(ctx, string(c.Assessment))
		} else {
			p.metrics.RecordCity(ctx, forecast.ErrorCode(c.Err))
		}
	}

	if p.publisher != nil {
		payload, err := json.Marshal(result)
		if err != nil {
			log.Error().Err(err).Msg("encoding route job result")
			return Nack
		}
		if err := p.publisher.Publish(ctx, payload, map[string]string{"jobId": job.JobID}); err != nil {
			log.Error().Err(err).Msg("publishing route job result")
			return Nack
		}
	}

	outcome := "ok"
	if eval.Empty {
		outcome = "empty"
	}
	p.metrics.RecordEvaluation(ctx, "worker", outcome, time.Since(start))

	log.Info().
		Int("succeeded", result.Succeeded).
		Int("failed", result.Failed).
		Bool("empty", result.Empty).
		Dur("duration", time.Since(start)).
		Msg("route job completed")

	return Ack
}

// decodeJob parses and validates a job. Selectors are checked here so that
// bad input is dropped instead of redelivered.
func decodeJob(data []byte) (RouteJob, forecast.RouteRequest, error) {
	var job RouteJob
	if err := json.Unmarshal(data, &job); err != nil {
		return job, forecast.RouteRequest{}, fmt.Errorf("%w: %w", errMalformedJob, err)
	}
	if strings.TrimSpace(job.JobID) == "" {
		return job, forecast.RouteRequest{}, fmt.Errorf("%w: jobId is required", errMalformedJob)
	}

	metric, err := forecast.ParseMetric(job.Metric)
	if err != nil {
		return job, forecast.RouteRequest{}, fmt.Errorf("%w: %w", errMalformedJob, err)
	}

	days := forecast.DayCount(job.Days)
	if days == 0 {
		days = forecast.Days3
	}
	if !days.Valid() {
		return job, forecast.RouteRequest{}, fmt.Errorf("%w: %w: %d", errMalformedJob, forecast.ErrInvalidDayCount, job.Days)
	}

	return job, forecast.RouteRequest{
		Start:        job.StartCity,
		Intermediate: job.IntermediateCities,
		End:          job.EndCity,
		Metric:       metric,
		Days:         days,
		Locale:       forecast.ParseLocale(job.Locale),
	}, nil
}

func toJobResult(jobID string, eval *forecast.RouteEvaluation) RouteJobResult {
	result := RouteJobResult{
		JobID:       jobID,
		CompletedAt: time.Now().UTC(),
		Metric:      string(eval.Metric),
		Days:        int(eval.Days),
		Polyline:    eval.Polyline,
		Empty:       eval.Empty,
		Succeeded:   eval.Succeeded,
		Failed:      eval.Failed,
		Cities:      make([]CityOutcome, 0, len(eval.Cities)),
	}

	for i := range eval.Cities {
		c := eval.Cities[i]
		out := CityOutcome{City: c.City}
		if c.OK() {
			out.Assessment = string(c.Assessment)
			out.Label = c.Assessment.Label(eval.Locale)
		} else {
			out.Error = &JobError{
				Code:    forecast.ErrorCode(c.Err),
				Message: forecast.ErrorMessage(c.Err).Text(eval.Locale),
			}
		}
		result.Cities = append(result.Cities, out)
	}
	return result
}
