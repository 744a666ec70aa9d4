// Package api provides the HTTP API for Routecast.
package api

import (
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/routecast/routecast/internal/api/handler"
	"github.com/routecast/routecast/internal/api/middleware"
	"github.com/routecast/routecast/internal/telemetry"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	BuildTime   string
	Logger      zerolog.Logger
	ServiceName string

	// Metrics records HTTP server metrics; nil disables them.
	Metrics *middleware.Metrics
	// RouteMetrics records route evaluation outcomes; nil disables them.
	RouteMetrics *telemetry.RouteMetrics

	RouteService  handler.RouteEvaluator
	FailurePolicy string
	Registry      handler.ProviderRegistry

	RequireTLS   bool
	RateLimitRPM int           // Per-IP limit on route evaluation (0 disables)
	RouteTimeout time.Duration // Upper bound for one evaluation (0 disables)
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "routecast-api"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)
	r.Use(middleware.Tracing(serviceName))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware())
	}
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.RequireTLS(cfg.RequireTLS))

	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.BuildTime, cfg.FailurePolicy, cfg.Registry)
	metadataHandler := handler.NewMetadataHandler()
	routeHandler := handler.NewRouteHandler(cfg.RouteService, cfg.RouteMetrics, cfg.RouteTimeout)

	r.Route("/v1", func(r chi.Router) {
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.Get("/status", opsHandler.SystemStatus)
		})

		r.Get("/metadata/enums", metadataHandler.GetEnums)

		// Each evaluation fans out to the weather provider per city.
		r.With(
			middleware.RateLimitByIP(middleware.PerMinute(cfg.RateLimitRPM)),
			middleware.RequireJSON,
		).Post("/routes:evaluate", routeHandler.EvaluateRoute)
	})

	return r
}
