// Package main provides the entrypoint for the Routecast route worker.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"

	"github.com/routecast/routecast/internal/config"
	"github.com/routecast/routecast/internal/forecast"
	"github.com/routecast/routecast/internal/forecast/accuweather"
	"github.com/routecast/routecast/internal/provider/resilience"
	"github.com/routecast/routecast/internal/telemetry"
	"github.com/routecast/routecast/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "routecast-worker"

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	cfg, err := config.Load(log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	log = log.Level(cfg.App.LogLevel)

	if !cfg.PubSub.WorkerEnabled() {
		log.Fatal().Msg("pubsub project and subscription must be configured")
	}

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting Routecast worker")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.App.Env,
		Enabled:        cfg.Telemetry.Enabled,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRatio:    cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	routeMetrics, err := telemetry.NewRouteMetrics(otel.Meter("routecast/route"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize route metrics")
	}
	providerMetrics, err := telemetry.NewProviderMetrics(otel.Meter("routecast/provider"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize provider metrics")
	}

	httpClient := resilience.NewClient(resilience.ClientConfig{
		Name:              accuweather.ProviderName,
		Timeout:           cfg.Provider.Timeout,
		MaxRetries:        cfg.Provider.MaxRetries,
		RequestsPerSecond: cfg.Provider.RPS,
		Burst:             cfg.Provider.Burst,
		Logger:            log,
	})
	routeService := forecast.NewService(forecast.ServiceConfig{
		Provider: accuweather.NewClient(accuweather.ClientConfig{
			APIKey:     cfg.AccuWeather.APIKey,
			BaseURL:    cfg.AccuWeather.BaseURL,
			Language:   cfg.AccuWeather.Language,
			HTTPClient: httpClient,
			Metrics:    providerMetrics,
			Logger:     log,
		}),
		Logger:        log,
		Concurrency:   cfg.Route.Concurrency,
		CityTimeout:   cfg.Route.CityTimeout,
		FailurePolicy: cfg.Route.FailurePolicy,
	})

	ps, err := worker.NewPubSubClient(ctx, worker.PubSubConfig{
		ProjectID:    cfg.PubSub.ProjectID,
		Subscription: cfg.PubSub.Subscription,
		ResultTopic:  cfg.PubSub.ResultTopic,
		Logger:       log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to pubsub")
	}
	defer func() {
		if closeErr := ps.Close(); closeErr != nil {
			log.Error().Err(closeErr).Msg("failed to close pubsub client")
		}
	}()

	processor := worker.NewProcessor(worker.ProcessorConfig{
		Evaluator: routeService,
		Publisher: ps.Publisher(),
		Metrics:   routeMetrics,
		Timeout:   cfg.Route.Timeout,
		Logger:    log,
	})

	// Worker also exposes a health endpoint for Cloud Run
	server := &http.Server{
		Addr:         ":" + cfg.PubSub.HealthPort,
		Handler:      worker.HealthHandler(Version, ps),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("health server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("health server error")
		}
	}()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := ps.Receive(ctx, processor); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("pubsub receive stopped")
		}
	}()

	// Wait for interrupt signal or a dead receiver
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-done:
	}

	log.Info().Msg("shutting down worker")
	cancel()
	<-done

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}

	log.Info().Msg("worker stopped")
}
