package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/upb/physics-tutor/services/completion"
	"github.com/upb/physics-tutor/services/content"
	"github.com/upb/physics-tutor/utils"
	"go.uber.org/zap"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp,omitempty"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// HealthChecker is implemented by the lesson database
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthHandler handles health-related HTTP requests
type HealthHandler struct {
	db       HealthChecker
	loader   content.Loader
	provider completion.Provider
	timeout  time.Duration
	logger   *zap.Logger
}

// NewHealthHandler creates a new HealthHandler. db may be nil when lessons come from disk.
func NewHealthHandler(db HealthChecker, loader content.Loader, provider completion.Provider, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		db:       db,
		loader:   loader,
		provider: provider,
		timeout:  5 * time.Second,
		logger:   logger,
	}
}

// HandleHealth handles GET /healthz
// Liveness only: returns 200 while the process is serving
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	_ = utils.WriteJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// HandleReadiness handles GET /readyz
// Ready means lessons can be loaded and the completion service is configured
func (h *HealthHandler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	checks := make(map[string]string)
	allHealthy := true

	if h.db != nil {
		if err := h.db.HealthCheck(ctx); err != nil {
			h.logger.Warn("database health check failed", zap.Error(err))
			checks["database"] = "unhealthy"
			allHealthy = false
		} else {
			checks["database"] = "healthy"
		}
	}

	docs, err := h.loader.Load(ctx)
	switch {
	case err != nil:
		h.logger.Warn("content health check failed", zap.Error(err))
		checks["content"] = "unavailable"
		allHealthy = false
	case len(docs) == 0:
		checks["content"] = "empty"
		allHealthy = false
	default:
		checks["content"] = "healthy"
	}

	if completion.IsConfigured(h.provider) {
		checks["completion"] = "configured"
	} else {
		checks["completion"] = "not_configured"
		allHealthy = false
	}

	status := "ready"
	httpStatus := http.StatusOK
	if !allHealthy {
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	}

	response := HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	}

	if err := utils.WriteJSON(w, httpStatus, response); err != nil {
		h.logger.Error("failed to write readiness response", zap.Error(err))
	}
}
