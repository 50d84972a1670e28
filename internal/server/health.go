package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"
)

const (
	healthStatusOK           = "ok"
	healthStatusNotReady     = "not ready"
	healthStatusShuttingDown = "shutting down"
	healthStatusUnreachable  = "unreachable"
)

// storePingTimeout bounds the store check of a readiness check.
const storePingTimeout = 2 * time.Second

// Pinger is implemented by stores that can report connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// dependencyCheck reports healthStatusOK or the reason a dependency is unhealthy.
type dependencyCheck struct {
	name  string
	check func(ctx context.Context) string
}

// HealthChecker serves liveness and readiness endpoints for Kubernetes.
// The server is ready on creation.
type HealthChecker struct {
	ready     atomic.Bool
	sc        *ServerContext
	startTime time.Time
	deps      []dependencyCheck
}

// NewHealthChecker creates a HealthChecker over sc. A nil sc skips the
// shutdown and store checks.
func NewHealthChecker(sc *ServerContext) *HealthChecker {
	h := &HealthChecker{sc: sc, startTime: time.Now()}
	h.ready.Store(true)
	h.deps = []dependencyCheck{
		{name: "ready", check: h.checkReady},
		{name: "shutdown", check: h.checkShutdown},
		{name: "store", check: h.checkStore},
	}
	return h
}

// SetReady marks the server ready or draining.
func (h *HealthChecker) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady reports the readiness flag.
func (h *HealthChecker) IsReady() bool {
	return h.ready.Load()
}

func (h *HealthChecker) checkReady(context.Context) string {
	if !h.ready.Load() {
		return healthStatusNotReady
	}
	return healthStatusOK
}

func (h *HealthChecker) checkShutdown(context.Context) string {
	if h.sc != nil && h.sc.IsShutdown() {
		return healthStatusShuttingDown
	}
	return healthStatusOK
}

// checkStore pings the user store. Stores without Ping always pass.
func (h *HealthChecker) checkStore(ctx context.Context) string {
	if h.sc == nil {
		return healthStatusOK
	}
	p, ok := h.sc.Store().(Pinger)
	if !ok {
		return healthStatusOK
	}
	ctx, cancel := context.WithTimeout(ctx, storePingTimeout)
	defer cancel()
	if p.Ping(ctx) != nil {
		return healthStatusUnreachable
	}
	return healthStatusOK
}

// run evaluates every dependency check.
func (h *HealthChecker) run(ctx context.Context) (map[string]string, bool) {
	checks := make(map[string]string, len(h.deps))
	healthy := true
	for _, p := range h.deps {
		status := p.check(ctx)
		checks[p.name] = status
		healthy = healthy && status == healthStatusOK
	}
	return checks, healthy
}

// HealthResponse is the JSON body of the health endpoints.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
	Uptime string            `json:"uptime,omitempty"`
}

func writeHealth(w http.ResponseWriter, code int, resp HealthResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}

// LivenessHandler serves /healthz. It only proves the process answers.
func (h *HealthChecker) LivenessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeHealth(w, http.StatusOK, HealthResponse{Status: healthStatusOK})
	})
}

// ReadinessHandler serves /readyz. Any failing check yields 503.
func (h *HealthChecker) ReadinessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		checks, healthy := h.run(r.Context())
		if !healthy {
			writeHealth(w, http.StatusServiceUnavailable, HealthResponse{Status: healthStatusNotReady, Checks: checks})
			return
		}
		writeHealth(w, http.StatusOK, HealthResponse{Status: healthStatusOK, Checks: checks})
	})
}

// DetailedHealthHandler serves /healthz/detailed: the readiness checks plus
// process uptime.
func (h *HealthChecker) DetailedHealthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		checks, healthy := h.run(r.Context())
		resp := HealthResponse{
			Status: healthStatusOK,
			Checks: checks,
			Uptime: time.Since(h.startTime).Truncate(time.Second).String(),
		}
		code := http.StatusOK
		if !healthy {
			resp.Status = healthStatusNotReady
			if checks["shutdown"] != healthStatusOK {
				resp.Status = healthStatusShuttingDown
			}
			code = http.StatusServiceUnavailable
		}
		writeHealth(w, code, resp)
	})
}

// RegisterHealthEndpoints mounts the health endpoints on mux.
func (h *HealthChecker) RegisterHealthEndpoints(mux *http.ServeMux) {
	mux.Handle("/healthz", h.LivenessHandler())
	mux.Handle("/readyz", h.ReadinessHandler())
	mux.Handle("/healthz/detailed", h.DetailedHealthHandler())
}
