package handler

import (
	"net/http"
)

// GatewayStatus reports whether the AI gateway credential is present.
type GatewayStatus interface {
	Configured() bool
}

// Connection reports broker connectivity.
type Connection interface {
	IsConnected() bool
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	gateway GatewayStatus
	events  Connection
}

// NewHealthHandler creates a new health handler. events is nil when the
// event feed is disabled.
func NewHealthHandler(gateway GatewayStatus, events Connection) *HealthHandler {
	return &HealthHandler{
		gateway: gateway,
		events:  events,
	}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.gateway == nil || !h.gateway.Configured() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "AI gateway credential not configured",
		})
		return
	}

	if h.events != nil && !h.events.IsConnected() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "NATS not connected",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}
