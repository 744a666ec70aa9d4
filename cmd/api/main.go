// Package main provides the entrypoint for the Routecast API server.
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

	"github.com/routecast/routecast/internal/api"
	"github.com/routecast/routecast/internal/api/middleware"
	"github.com/routecast/routecast/internal/config"
	"github.com/routecast/routecast/internal/forecast"
	"github.com/routecast/routecast/internal/forecast/accuweather"
	"github.com/routecast/routecast/internal/provider/resilience"
	"github.com/routecast/routecast/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "routecast-api"

	// Setup structured logging
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

	log.Info().
		Str("build_time", BuildTime).
		Str("env", cfg.App.Env).
		Msg("starting Routecast API")

	ctx := context.Background()

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
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if cfg.Telemetry.Enabled {
		log.Info().
			Str("otlp_endpoint", cfg.Telemetry.OTLPEndpoint).
			Msg("OpenTelemetry initialized")
	}

	metrics, err := middleware.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}
	routeMetrics, err := telemetry.NewRouteMetrics(otel.Meter("routecast/route"))
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize route metrics")
		os.Exit(1)
	}
	providerMetrics, err := telemetry.NewProviderMetrics(otel.Meter("routecast/provider"))
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize provider metrics")
		os.Exit(1)
	}

	// Weather provider behind retries, rate limiting and a circuit breaker
	registry := resilience.NewRegistry()
	httpClient := resilience.NewClient(resilience.ClientConfig{
		Name:              accuweather.ProviderName,
		Timeout:           cfg.Provider.Timeout,
		MaxRetries:        cfg.Provider.MaxRetries,
		RequestsPerSecond: cfg.Provider.RPS,
		Burst:             cfg.Provider.Burst,
		Registry:          registry,
		Logger:            log,
	})
	provider := accuweather.NewClient(accuweather.ClientConfig{
		APIKey:     cfg.AccuWeather.APIKey,
		BaseURL:    cfg.AccuWeather.BaseURL,
		Language:   cfg.AccuWeather.Language,
		HTTPClient: httpClient,
		Metrics:    providerMetrics,
		Logger:     log,
	})

	routeService := forecast.NewService(forecast.ServiceConfig{
		Provider:      provider,
		Logger:        log,
		Concurrency:   cfg.Route.Concurrency,
		CityTimeout:   cfg.Route.CityTimeout,
		FailurePolicy: cfg.Route.FailurePolicy,
	})
	log.Info().
		Str("failure_policy", string(routeService.Policy())).
		Int("concurrency", cfg.Route.Concurrency).
		Msg("route service initialized")

	router := api.NewRouter(api.RouterConfig{
		Version:       Version,
		BuildTime:     BuildTime,
		Logger:        log,
		ServiceName:   serviceName,
		Metrics:       metrics,
		RouteMetrics:  routeMetrics,
		RouteService:  routeService,
		FailurePolicy: string(routeService.Policy()),
		Registry:      registry,
		RequireTLS:    cfg.App.RequireTLS,
		RateLimitRPM:  cfg.App.RateLimitRPM,
		RouteTimeout:  cfg.Route.Timeout,
	})

	// Writes must outlast the slowest route evaluation
	writeTimeout := 15 * time.Second
	if cfg.Route.Timeout+5*time.Second > writeTimeout {
		writeTimeout = cfg.Route.Timeout + 5*time.Second
	}

	server := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: writeTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server stopped")
}
