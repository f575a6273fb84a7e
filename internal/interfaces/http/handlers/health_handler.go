package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

// HealthChecker is one dependency probed by /readyz.
type HealthChecker interface {
	Name() string
	Check(ctx context.Context) error
}

// CheckFunc adapts a function to HealthChecker.
type CheckFunc struct {
	ComponentName string
	Fn            func(ctx context.Context) error
}

func (f CheckFunc) Name() string                    { return f.ComponentName }
func (f CheckFunc) Check(ctx context.Context) error { return f.Fn(ctx) }

// HealthHandler serves the probe endpoints.
type HealthHandler struct {
	checkers []HealthChecker
	version  string
	startAt  time.Time
	timeout  time.Duration
}

// NewHealthHandler reports version on /healthz and probes checkers on /readyz.
func NewHealthHandler(version string, checkers ...HealthChecker) *HealthHandler {
	return &HealthHandler{
		checkers: checkers,
		version:  version,
		startAt:  time.Now(),
		timeout:  5 * time.Second,
	}
}

// RegisterRoutes registers the probe routes on r.
func (h *HealthHandler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/healthz", h.Liveness)
	r.GET("/readyz", h.Readiness)
}

// LivenessResponse is the /healthz body.
type LivenessResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
}

// ReadinessResponse is the /readyz body.
type ReadinessResponse struct {
	Status     string                    `json:"status"`
	Components map[string]ComponentCheck `json:"components,omitempty"`
}

// ComponentCheck is the outcome of one HealthChecker.
type ComponentCheck struct {
	Status  string `json:"status"`
	Latency string `json:"latency,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Liveness handles GET /healthz. Always 200 while the process runs.
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, LivenessResponse{
		Status:  "alive",
		Version: h.version,
		Uptime:  time.Since(h.startAt).Truncate(time.Second).String(),
	})
}

// Readiness handles GET /readyz. Any failing component yields 503.
func (h *HealthHandler) Readiness(c *gin.Context) {
	resp := ReadinessResponse{Status: "ready"}
	code := http.StatusOK
	if len(h.checkers) > 0 {
		ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
		defer cancel()
		resp.Components = h.probe(ctx)
		for _, cc := range resp.Components {
			if cc.Status != "healthy" {
				resp.Status, code = "not_ready", http.StatusServiceUnavailable
				break
			}
		}
	}
	c.JSON(code, resp)
}

// probe runs every checker concurrently under ctx.
func (h *HealthHandler) probe(ctx context.Context) map[string]ComponentCheck {
	checks := make([]ComponentCheck, len(h.checkers))
	var g errgroup.Group
	for i, hc := range h.checkers {
		i, hc := i, hc
		g.Go(func() error {
			began := time.Now()
			err := hc.Check(ctx)
			checks[i] = ComponentCheck{Status: "healthy", Latency: time.Since(began).Truncate(time.Microsecond).String()}
			if err != nil {
				checks[i].Status, checks[i].Error = "unhealthy", err.Error()
			}
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string]ComponentCheck, len(checks))
	for i, hc := range h.checkers {
		out[hc.Name()] = checks[i]
	}
	return out
}
