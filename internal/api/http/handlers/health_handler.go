package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/identity-service/internal/observability"
)

// Pinger is a dependency that can report its connectivity.
type Pinger interface {
	Configured() bool
	Ping(ctx context.Context) error
}

// HealthHandler responds to liveness, readiness and metrics probes.
type HealthHandler struct {
	serviceName string
	version     string
	deps        map[string]Pinger
	metrics     *observability.Metrics
}

// NewHealthHandler returns a new handler instance. Dependencies that are
// not configured are reported as disabled and do not fail readiness.
func NewHealthHandler(serviceName, version string, metrics *observability.Metrics, deps map[string]Pinger) *HealthHandler {
	return &HealthHandler{serviceName: serviceName, version: version, deps: deps, metrics: metrics}
}

// Live reports service liveness.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"message": "Server is live",
		"service": h.serviceName,
		"version": h.version,
	})
}

// Ready reports service readiness by checking dependencies.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	depStatus := fiber.Map{}
	ready := true

	for name, dep := range h.deps {
		switch {
		case dep == nil || !dep.Configured():
			depStatus[name] = "disabled"
		default:
			if err := dep.Ping(ctx); err != nil {
				depStatus[name] = err.Error()
				ready = false
			} else {
				depStatus[name] = "ok"
			}
		}
	}

	if ready {
		return c.JSON(fiber.Map{
			"status":       "ready",
			"dependencies": depStatus,
		})
	}

	return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
		"message": "one or more dependencies unavailable",
		"code":    "DEPENDENCY_UNAVAILABLE",
		"details": depStatus,
	})
}

// Metrics returns the in-memory request counters.
func (h *HealthHandler) Metrics(c *fiber.Ctx) error {
	return c.JSON(h.metrics.Snapshot())
}
