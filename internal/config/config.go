// Package config loads process configuration from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/routecast/routecast/internal/forecast"
)

// Config is the full process configuration shared by the API and the worker.
type Config struct {
	App         AppConfig
	AccuWeather AccuWeatherConfig
	Provider    ProviderConfig
	Route       RouteConfig
	Telemetry   TelemetryConfig
	PubSub      PubSubConfig
}

// AppConfig holds process-level settings.
type AppConfig struct {
	Port         string
	Env          string
	LogLevel     zerolog.Level
	RequireTLS   bool
	RateLimitRPM int
}

// IsDevelopment reports whether the process runs in a development environment.
func (c AppConfig) IsDevelopment() bool {
	return c.Env == "development" || c.Env == "test"
}

// AccuWeatherConfig holds provider credentials and endpoint settings.
type AccuWeatherConfig struct {
	APIKey   string
	BaseURL  string
	Language string
}

// ProviderConfig holds outbound call resilience settings.
type ProviderConfig struct {
	Timeout    time.Duration
	MaxRetries uint64
	RPS        float64
	Burst      int
}

// RouteConfig holds route evaluation settings.
type RouteConfig struct {
	Concurrency   int
	CityTimeout   time.Duration
	Timeout       time.Duration
	FailurePolicy forecast.FailurePolicy
}

// TelemetryConfig holds OpenTelemetry export settings.
type TelemetryConfig struct {
	Enabled      bool
	OTLPEndpoint string
	Insecure     bool
	SampleRatio  float64
}

// PubSubConfig holds worker messaging settings.
type PubSubConfig struct {
	ProjectID    string
	Subscription string
	ResultTopic  string
	HealthPort   string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("REQUIRE_TLS", false)
	v.SetDefault("RATE_LIMIT_RPM", 60)

	v.SetDefault("ACCUWEATHER_BASE_URL", "https://dataservice.accuweather.com")
	v.SetDefault("ACCUWEATHER_LANGUAGE", "en-us")

	v.SetDefault("PROVIDER_TIMEOUT", 10*time.Second)
	v.SetDefault("PROVIDER_MAX_RETRIES", 2)
	v.SetDefault("PROVIDER_RPS", 5.0)
	v.SetDefault("PROVIDER_BURST", 5)

	v.SetDefault("ROUTE_CONCURRENCY", 3)
	v.SetDefault("ROUTE_CITY_TIMEOUT", 20*time.Second)
	v.SetDefault("ROUTE_TIMEOUT", 45*time.Second)
	v.SetDefault("ROUTE_FAILURE_POLICY", string(forecast.PolicyIsolate))

	v.SetDefault("OTEL_ENABLED", false)
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", true)
	v.SetDefault("OTEL_SAMPLE_RATIO", 1.0)

	v.SetDefault("WORKER_HEALTH_PORT", "8081")
}

// Load reads configuration from the environment, overlaid on a .env file in
// the working directory when one exists.
func Load(logger zerolog.Logger) (*Config, error) {
	return load(".", logger)
}

func load(dir string, logger zerolog.Logger) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.AutomaticEnv()

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(dir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		logger.Debug().Msg("no .env file found, using environment variables only")
	} else {
		logger.Info().Str("file", v.ConfigFileUsed()).Msg("config file loaded")
	}

	level, err := zerolog.ParseLevel(strings.ToLower(v.GetString("LOG_LEVEL")))
	if err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}

	policy, err := forecast.ParseFailurePolicy(v.GetString("ROUTE_FAILURE_POLICY"))
	if err != nil {
		return nil, fmt.Errorf("ROUTE_FAILURE_POLICY: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Port:         v.GetString("APP_PORT"),
			Env:          v.GetString("APP_ENV"),
			LogLevel:     level,
			RequireTLS:   v.GetBool("REQUIRE_TLS"),
			RateLimitRPM: v.GetInt("RATE_LIMIT_RPM"),
		},
		AccuWeather: AccuWeatherConfig{
			APIKey:   v.GetString("ACCUWEATHER_API_KEY"),
			BaseURL:  v.GetString("ACCUWEATHER_BASE_URL"),
			Language: v.GetString("ACCUWEATHER_LANGUAGE"),
		},
		Provider: ProviderConfig{
			Timeout:    v.GetDuration("PROVIDER_TIMEOUT"),
			MaxRetries: v.GetUint64("PROVIDER_MAX_RETRIES"),
			RPS:        v.GetFloat64("PROVIDER_RPS"),
			Burst:      v.GetInt("PROVIDER_BURST"),
		},
		Route: RouteConfig{
			Concurrency:   v.GetInt("ROUTE_CONCURRENCY"),
			CityTimeout:   v.GetDuration("ROUTE_CITY_TIMEOUT"),
			Timeout:       v.GetDuration("ROUTE_TIMEOUT"),
			FailurePolicy: policy,
		},
		Telemetry: TelemetryConfig{
			Enabled:      v.GetBool("OTEL_ENABLED"),
			OTLPEndpoint: v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"),
			Insecure:     v.GetBool("OTEL_EXPORTER_OTLP_INSECURE"),
			SampleRatio:  v.GetFloat64("OTEL_SAMPLE_RATIO"),
		},
		PubSub: PubSubConfig{
			ProjectID:    v.GetString("GCP_PROJECT_ID"),
			Subscription: v.GetString("ROUTECAST_PUBSUB_SUBSCRIPTION"),
			ResultTopic:  v.GetString("ROUTECAST_PUBSUB_RESULT_TOPIC"),
			HealthPort:   v.GetString("WORKER_HEALTH_PORT"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	if c.AccuWeather.APIKey == "" && !c.App.IsDevelopment() {
		errs = append(errs, errors.New("ACCUWEATHER_API_KEY is required outside development"))
	}
	if c.Route.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("ROUTE_CONCURRENCY must be at least 1, got %d", c.Route.Concurrency))
	}
	if c.Route.CityTimeout <= 0 {
		errs = append(errs, errors.New("ROUTE_CITY_TIMEOUT must be positive"))
	}
	if c.Route.Timeout <= 0 {
		errs = append(errs, errors.New("ROUTE_TIMEOUT must be positive"))
	}
	if c.Provider.RPS < 0 {
		errs = append(errs, errors.New("PROVIDER_RPS must not be negative"))
	}
	return errors.Join(errs...)
}

// WorkerEnabled reports whether the Pub/Sub worker has what it needs to subscribe.
func (c PubSubConfig) WorkerEnabled() bool {
	return c.ProjectID != "" && c.Subscription != ""
}
