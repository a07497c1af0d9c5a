package server

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/teemow/safegate/internal/credentials"
	"github.com/teemow/safegate/internal/session"
)

const (
	healthStatusOK           = "ok"
	healthStatusNotReady     = "not ready"
	healthStatusShuttingDown = "shutting down"

	credentialsConfigured    = "configured"
	credentialsNotConfigured = "not configured"
)

// HealthChecker provides the Kubernetes liveness and readiness endpoints.
type HealthChecker struct {
	ready        atomic.Bool
	shuttingDown atomic.Bool
	startTime    time.Time

	credentials *credentials.Store
	sessions    *session.Store
}

// NewHealthChecker creates a HealthChecker that is not ready until SetReady.
// Both stores are optional and only feed the informational checks.
func NewHealthChecker(creds *credentials.Store, sessions *session.Store) *HealthChecker {
	return &HealthChecker{
		startTime:   time.Now(),
		credentials: creds,
		sessions:    sessions,
	}
}

// SetReady sets the readiness state of the server. Server.Serve sets it once
// the listener is bound.
func (h *HealthChecker) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady returns whether the server is ready to receive traffic.
func (h *HealthChecker) IsReady() bool {
	return h.ready.Load() && !h.shuttingDown.Load()
}

// SetShuttingDown marks the server as draining. Readiness fails from then on.
func (h *HealthChecker) SetShuttingDown() {
	h.shuttingDown.Store(true)
}

// HealthResponse represents the JSON response for health endpoints.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// DetailedHealthResponse provides comprehensive health information.
type DetailedHealthResponse struct {
	Status         string `json:"status"`
	Uptime         string `json:"uptime"`
	Credentials    string `json:"credentials"`
	ActiveSessions int    `json:"activeSessions"`
}

// LivenessHandler returns the /healthz handler. It only proves the process
// is serving.
func (h *HealthChecker) LivenessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, HealthResponse{Status: healthStatusOK})
	})
}

// ReadinessHandler returns the /readyz handler. A missing client credential
// does not fail readiness: the gateway serves and can be configured at
// runtime.
func (h *HealthChecker) ReadinessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		checks := map[string]string{
			"ready":       healthStatusOK,
			"shutdown":    healthStatusOK,
			"credentials": h.credentialState(),
		}
		if !h.ready.Load() {
			checks["ready"] = healthStatusNotReady
		}
		if h.shuttingDown.Load() {
			checks["shutdown"] = healthStatusShuttingDown
		}

		if h.IsReady() {
			writeJSON(w, http.StatusOK, HealthResponse{Status: healthStatusOK, Checks: checks})
			return
		}
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: healthStatusNotReady, Checks: checks})
	})
}

// DetailedHealthHandler returns the /healthz/detailed handler.
func (h *HealthChecker) DetailedHealthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		response := DetailedHealthResponse{
			Status:      healthStatusOK,
			Uptime:      time.Since(h.startTime).Truncate(time.Second).String(),
			Credentials: h.credentialState(),
		}
		if h.sessions != nil {
			response.ActiveSessions = h.sessions.Len()
		}

		status := http.StatusOK
		switch {
		case h.shuttingDown.Load():
			response.Status = healthStatusShuttingDown
			status = http.StatusServiceUnavailable
		case !h.IsReady():
			response.Status = healthStatusNotReady
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, response)
	})
}

// RegisterHealthEndpoints registers the health endpoints on the given mux.
func (h *HealthChecker) RegisterHealthEndpoints(mux *http.ServeMux) {
	mux.Handle("GET /healthz", h.LivenessHandler())
	mux.Handle("GET /readyz", h.ReadinessHandler())
	mux.Handle("GET /healthz/detailed", h.DetailedHealthHandler())
}

func (h *HealthChecker) credentialState() string {
	if h.credentials != nil && h.credentials.IsConfigured() {
		return credentialsConfigured
	}
	return credentialsNotConfigured
}
