// api/handlers/health_handler.go
package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthCheckFunc reports whether one dependency is usable.
type HealthCheckFunc func(ctx context.Context) error

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	AppName string
	Checks  map[string]HealthCheckFunc
}

// NewHealthHandler creates a HealthHandler. checks may be nil.
func NewHealthHandler(appName string, checks map[string]HealthCheckFunc) *HealthHandler {
	return &HealthHandler{AppName: appName, Checks: checks}
}

// Health always answers 200 while the process is up.
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"app":       h.AppName,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Readiness runs every dependency check and answers 503 if any fails.
func (h *HealthHandler) Readiness(c *gin.Context) {
	names := make([]string, 0, len(h.Checks))
	for name := range h.Checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := http.StatusOK
	overall := "healthy"
	results := make(map[string]string, len(names))
	for _, name := range names {
		if err := h.Checks[name](c.Request.Context()); err != nil {
			customLog.Warnf("Readiness: %s check failed: %v", name, err)
			results[name] = "unhealthy"
			status = http.StatusServiceUnavailable
			overall = "unhealthy"
			continue
		}
		results[name] = "healthy"
	}

	c.JSON(status, gin.H{
		"status":    overall,
		"checks":    results,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
