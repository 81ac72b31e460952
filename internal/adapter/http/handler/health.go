package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/navatransportes/nava-fleet/pkg/logger"
	wrap "github.com/navatransportes/nava-fleet/pkg/logger/wrapper"
)

const healthCheckTimeout = 2 * time.Second

// Dependency is a backing service pinged by the health check.
type Dependency struct {
	Name string
	Ping func(ctx context.Context) error
}

type Health struct {
	serviceName string
	deps        []Dependency
	log         logger.Logger
}

func NewHealth(serviceName string, deps []Dependency, log logger.Logger) *Health {
	return &Health{
		serviceName: serviceName,
		deps:        deps,
		log:         log,
	}
}

// HealthCheck godoc
// @Summary      Health Check
// @Description  Reports the service and the state of its dependencies, 503 when one is down
// @Tags         Health
// @Produce      json
// @Success      200  {object}  map[string]any
// @Failure      503  {object}  map[string]any
// @Router       /health [get]
func (h *Health) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "health_check")
	pingCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	status, code := "available", http.StatusOK
	deps := make(map[string]string, len(h.deps))
	for _, d := range h.deps {
		if err := d.Ping(pingCtx); err != nil {
			h.log.Warn(ctx, "dependency is down", "dependency", d.Name, "error", err.Error())
			deps[d.Name] = "unavailable"
			status, code = "degraded", http.StatusServiceUnavailable
			continue
		}
		deps[d.Name] = "ok"
	}

	response := envelope{
		"status":       status,
		"service":      h.serviceName,
		"dependencies": deps,
	}
	if err := writeJSON(w, code, response, nil); err != nil {
		h.log.Error(ctx, "failed to write health response", err)
	}
}
