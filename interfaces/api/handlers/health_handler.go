package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

// HealthCheck probes one dependency. A nil Check reports the component as unavailable.
type HealthCheck struct {
	Name     string
	Critical bool // A failing critical component makes the service unhealthy
	Check    func(ctx context.Context) error
}

// HealthHandler handles health check endpoints
type HealthHandler struct {
	checks      []HealthCheck
	workerStats func() map[string]interface{}
}

// NewHealthHandler creates a new health handler. workerStats may be nil.
func NewHealthHandler(checks []HealthCheck, workerStats func() map[string]interface{}) *HealthHandler {
	return &HealthHandler{
		checks:      checks,
		workerStats: workerStats,
	}
}

// ComponentHealth represents health status of a component
type ComponentHealth struct {
	Status  string `json:"status"` // "ok", "error", "unavailable"
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// DetailedHealthResponse represents detailed health check response
type DetailedHealthResponse struct {
	Status     string                     `json:"status"` // "healthy", "degraded", "unhealthy"
	Timestamp  time.Time                  `json:"timestamp"`
	Components map[string]ComponentHealth `json:"components"`
	Worker     map[string]interface{}     `json:"worker,omitempty"`
}

func (h *HealthHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"message": "Server is running",
		"service": "Event Faces API",
	})
}

// DetailedHealth godoc
// @Summary Get detailed system health
// @Description Returns detailed health status of all system components
// @Tags Health
// @Produce json
// @Success 200 {object} DetailedHealthResponse
// @Router /health/detailed [get]
func (h *HealthHandler) DetailedHealth(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 10*time.Second)
	defer cancel()

	response := DetailedHealthResponse{
		Timestamp:  time.Now(),
		Components: make(map[string]ComponentHealth, len(h.checks)),
	}

	allHealthy := true
	hasCriticalFailure := false

	for _, check := range h.checks {
		health := runCheck(ctx, check)
		response.Components[check.Name] = health
		if health.Status != "error" {
			continue
		}
		if check.Critical {
			hasCriticalFailure = true
		} else {
			allHealthy = false
		}
	}

	if h.workerStats != nil {
		response.Worker = h.workerStats()
		if closed, ok := response.Worker["circuitBreaker"].(bool); ok && !closed {
			allHealthy = false
		}
	}

	switch {
	case hasCriticalFailure:
		response.Status = "unhealthy"
	case !allHealthy:
		response.Status = "degraded"
	default:
		response.Status = "healthy"
	}

	// Return 503 for unhealthy, 200 for others
	statusCode := fiber.StatusOK
	if response.Status == "unhealthy" {
		statusCode = fiber.StatusServiceUnavailable
	}
	return c.Status(statusCode).JSON(response)
}

func runCheck(ctx context.Context, check HealthCheck) ComponentHealth {
	if check.Check == nil {
		return ComponentHealth{Status: "unavailable", Message: check.Name + " not configured"}
	}

	start := time.Now()
	if err := check.Check(ctx); err != nil {
		return ComponentHealth{Status: "error", Message: err.Error()}
	}
	return ComponentHealth{
		Status:  "ok",
		Latency: time.Since(start).String(),
	}
}
