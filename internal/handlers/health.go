package handlers

import (
	"net/http"
	"time"
)

// HealthHandlers serves liveness and readiness probes.
type HealthHandlers struct {
	started time.Time
	ready   func() bool
}

// NewHealthHandlers constructs health endpoints; readiness defaults to true.
func NewHealthHandlers() *HealthHandlers {
	return &HealthHandlers{started: time.Now(), ready: func() bool { return true }}
}

// WithReadiness overrides the readiness probe.
func (h *HealthHandlers) WithReadiness(fn func() bool) *HealthHandlers {
	if fn != nil {
		h.ready = fn
	}
	return h
}

// Healthz reports process liveness.
func (h *HealthHandlers) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"uptime":    time.Since(h.started).String(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Readyz reports whether the engine can serve traffic.
func (h *HealthHandlers) Readyz(w http.ResponseWriter, r *http.Request) {
	if !h.ready() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}
