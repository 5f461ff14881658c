// Package health exposes liveness/readiness HTTP handlers for the
// plantsim process.
package health

import (
	"encoding/json"
	"net/http"
	"time"
)

// Status is the health check response body.
type Status struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// Handler serves /healthz, /healthz/live, and /healthz/ready.
type Handler struct {
	sessionRunning func() bool
	startTime      time.Time
}

// NewHandler creates a Handler. sessionRunning reports whether the
// plantsim Clock is currently running; it may be nil before a session
// is constructed.
func NewHandler(sessionRunning func() bool) *Handler {
	return &Handler{
		sessionRunning: sessionRunning,
		startTime:      time.Now(),
	}
}

// HandleLive answers the liveness probe: 200 if the process is up.
func (h *Handler) HandleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Status{
		Status:    "alive",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// HandleReady answers the readiness probe: 200 only once the session
// clock has been started and the process has cleared its startup grace
// period.
func (h *Handler) HandleReady(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string)
	healthy := true

	if h.sessionRunning != nil && h.sessionRunning() {
		checks["session"] = "running"
	} else {
		checks["session"] = "not_ready"
		healthy = false
	}

	if time.Since(h.startTime) > 2*time.Second {
		checks["startup"] = "complete"
	} else {
		checks["startup"] = "in_progress"
		healthy = false
	}

	status := "ready"
	code := http.StatusOK
	if !healthy {
		status = "not_ready"
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, code, Status{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	})
}

// HandleHealth is the combined endpoint used by a Docker HEALTHCHECK.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	h.HandleReady(w, r)
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
