// Package handler provides HTTP handlers for the parkwise API.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/parkwise/parkwise/internal/api/models"
	"github.com/parkwise/parkwise/internal/api/response"
	"github.com/parkwise/parkwise/internal/provider/resilience"
)

const readinessTimeout = 2 * time.Second

// Pinger checks a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// OpsConfig holds the dependencies of the operational endpoints.
type OpsConfig struct {
	Version   string
	BuildTime string
	// Database is optional; without it the in-memory catalogue is in use.
	Database  Pinger
	Providers *resilience.Registry
	Logger    zerolog.Logger
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	cfg OpsConfig
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(cfg OpsConfig) *OpsHandler {
	return &OpsHandler{cfg: cfg}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
		Details: map[string]interface{}{
			"version":   h.cfg.Version,
			"buildTime": h.cfg.BuildTime,
		},
	}
	response.JSON(w, r, http.StatusOK, health)
}

// ReadinessCheck handles GET /v1/ops/ready - readiness check.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
	}

	if err := h.pingDatabase(r.Context()); err != nil {
		h.cfg.Logger.Warn().Err(err).Msg("readiness check failed")
		health.Status = models.HealthStatusFail
		health.Details = map[string]interface{}{"database": err.Error()}
		response.JSON(w, r, http.StatusServiceUnavailable, health)
		return
	}

	response.JSON(w, r, http.StatusOK, health)
}

// SystemStatus handles GET /v1/ops/status - provider and subsystem status.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	status := models.SystemStatus{
		Status:     models.HealthStatusOK,
		Time:       models.Timestamp(time.Now()),
		Subsystems: []models.SubsystemStatus{h.databaseStatus(r.Context())},
		Providers:  []models.ProviderStatus{},
	}

	if h.cfg.Providers != nil {
		for _, ph := range h.cfg.Providers.GetAllHealth() {
			ps := models.ProviderStatus{
				Provider:      ph.Name,
				Status:        providerHealthStatus(ph),
				LastSuccessAt: models.TimestampPtr(ph.LastSuccessAt),
				LastFailureAt: models.TimestampPtr(ph.LastFailureAt),
			}
			if ph.LastError != "" {
				msg := ph.LastError
				ps.Message = &msg
			}
			if ps.Status != models.HealthStatusOK {
				status.DegradedProviders = append(status.DegradedProviders, ph.Name)
			}
			status.Providers = append(status.Providers, ps)
		}
	}

	for _, sub := range status.Subsystems {
		if sub.Status == models.HealthStatusFail {
			status.Status = models.HealthStatusFail
		}
	}
	if status.Status == models.HealthStatusOK && len(status.DegradedProviders) > 0 {
		status.Status = models.HealthStatusDegraded
	}

	response.JSON(w, r, http.StatusOK, status)
}

func (h *OpsHandler) pingDatabase(ctx context.Context) error {
	if h.cfg.Database == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, readinessTimeout)
	defer cancel()
	return h.cfg.Database.Ping(ctx)
}

func (h *OpsHandler) databaseStatus(ctx context.Context) models.SubsystemStatus {
	sub := models.SubsystemStatus{Name: "catalogue-store", Status: models.HealthStatusOK}
	if h.cfg.Database == nil {
		detail := "in-memory"
		sub.Detail = &detail
		return sub
	}
	if err := h.pingDatabase(ctx); err != nil {
		detail := err.Error()
		sub.Status = models.HealthStatusFail
		sub.Detail = &detail
	}
	return sub
}

// providerHealthStatus maps circuit breaker state onto API health.
// A half-open circuit is still probing and reported as degraded.
func providerHealthStatus(ph *resilience.ProviderHealth) models.HealthStatus {
	switch ph.Status() {
	case "ok":
		return models.HealthStatusOK
	case "degraded":
		return models.HealthStatusDegraded
	default:
		return models.HealthStatusFail
	}
}
