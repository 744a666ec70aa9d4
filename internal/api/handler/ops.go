package handler

import (
	"net/http"
	"time"

	"github.com/routecast/routecast/internal/api/models"
	"github.com/routecast/routecast/internal/api/response"
	"github.com/routecast/routecast/internal/provider/resilience"
)

// ProviderRegistry exposes the health of outbound provider clients.
type ProviderRegistry interface {
	Snapshot() []resilience.ProviderHealth
	Status() resilience.Status
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version       string
	buildTime     string
	failurePolicy string
	registry      ProviderRegistry
}

// NewOpsHandler creates a new OpsHandler. registry may be nil, in which case
// no providers are reported.
func NewOpsHandler(version, buildTime, failurePolicy string, registry ProviderRegistry) *OpsHandler {
	return &OpsHandler{
		version:       version,
		buildTime:     buildTime,
		failurePolicy: failurePolicy,
		registry:      registry,
	}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
		Details: map[string]any{
			"version":   h.version,
			"buildTime": h.buildTime,
		},
	})
}

// ReadinessCheck handles GET /v1/ops/ready. The service reports 503 while any
// provider circuit is open.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	status := h.overallStatus()
	code := http.StatusOK
	if status == models.HealthStatusFail {
		code = http.StatusServiceUnavailable
	}
	response.JSON(w, r, code, models.Health{
		Status: status,
		Time:   models.Timestamp(time.Now()),
	})
}

// SystemStatus handles GET /v1/ops/status - provider circuit breaker status.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	status := models.SystemStatus{
		Status:        h.overallStatus(),
		Time:          models.Timestamp(time.Now()),
		FailurePolicy: h.failurePolicy,
		Providers:     []models.ProviderStatus{},
	}

	if h.registry != nil {
		for _, p := range h.registry.Snapshot() {
			status.Providers = append(status.Providers, toProviderStatus(p))
		}
	}

	response.JSON(w, r, http.StatusOK, status)
}

func (h *OpsHandler) overallStatus() models.HealthStatus {
	if h.registry == nil {
		return models.HealthStatusOK
	}
	return toHealthStatus(h.registry.Status())
}

func toProviderStatus(p resilience.ProviderHealth) models.ProviderStatus {
	ps := models.ProviderStatus{
		Provider:            p.Name,
		Status:              toHealthStatus(p.Status()),
		CircuitState:        p.CircuitState.String(),
		Requests:            p.Counts.Requests,
		ConsecutiveFailures: p.Counts.ConsecutiveFailures,
	}
	if p.LastSuccessAt != nil {
		ts := models.Timestamp(*p.LastSuccessAt)
		ps.LastSuccessAt = &ts
	}
	if p.LastFailureAt != nil {
		ts := models.Timestamp(*p.LastFailureAt)
		ps.LastFailureAt = &ts
	}
	if p.LastError != "" {
		msg := p.LastError
		ps.Message = &msg
	}
	return ps
}

func toHealthStatus(s resilience.Status) models.HealthStatus {
	switch s {
	case resilience.StatusUnhealthy:
		return models.HealthStatusFail
	case resilience.StatusDegraded:
		return models.HealthStatusDegraded
	default:
		return models.HealthStatusOK
	}
}
