package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthChecker reports one dependency's health.
type HealthChecker interface {
	Name() string
	HealthCheck(ctx context.Context) error
}

// NamedCheck adapts a bare check function into a HealthChecker.
type NamedCheck struct {
	CheckName string
	Fn        func(ctx context.Context) error
}

func (n NamedCheck) Name() string                          { return n.CheckName }
func (n NamedCheck) HealthCheck(ctx context.Context) error { return n.Fn(ctx) }

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	checkers []HealthChecker
	version  string
	startAt  time.Time
}

// NewHealthHandler creates the probe handler.
func NewHealthHandler(version string, checkers ...HealthChecker) *HealthHandler {
	return &HealthHandler{
		checkers: checkers,
		version:  version,
		startAt:  time.Now(),
	}
}

// RegisterRoutes registers the probe endpoints on the engine root.
func (h *HealthHandler) RegisterRoutes(e *gin.Engine) {
	e.GET("/healthz", h.Liveness)
	e.GET("/readyz", h.Readiness)
}

// ComponentCheck is one dependency's probe result.
type ComponentCheck struct {
	Status  string `json:"status"`
	Latency string `json:"latency,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Liveness always reports alive while the process runs.
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "alive",
		"version": h.version,
		"uptime":  time.Since(h.startAt).Truncate(time.Second).String(),
	})
}

// Readiness probes every dependency concurrently; any failure yields 503.
func (h *HealthHandler) Readiness(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	var (
		mu         sync.Mutex
		components = make(map[string]ComponentCheck, len(h.checkers))
		healthy    = true
	)

	var wg sync.WaitGroup
	for _, checker := range h.checkers {
		wg.Add(1)
		go func(chk HealthChecker) {
			defer wg.Done()

			start := time.Now()
			err := chk.HealthCheck(ctx)
			result := ComponentCheck{
				Status:  "ok",
				Latency: time.Since(start).Truncate(time.Millisecond).String(),
			}
			if err != nil {
				result.Status = "unhealthy"
				result.Error = err.Error()
			}

			mu.Lock()
			components[chk.Name()] = result
			if err != nil {
				healthy = false
			}
			mu.Unlock()
		}(checker)
	}
	wg.Wait()

	status := http.StatusOK
	overall := "ready"
	if !healthy {
		status = http.StatusServiceUnavailable
		overall = "unavailable"
	}
	c.JSON(status, gin.H{
		"status":     overall,
		"components": components,
	})
}
