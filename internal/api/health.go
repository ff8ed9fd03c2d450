package api

import (
	"net/http"
)

// ComponentHealth is the status of one backing component.
type ComponentHealth struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// HealthResponse is the health endpoint payload.
type HealthResponse struct {
	Status     string                     `json:"status"`
	Version    string                     `json:"version"`
	Components map[string]ComponentHealth `json:"components"`
}

// Component status values.
const (
	healthOK       = "ok"
	healthError    = "error"
	healthIdle     = "idle"
	healthDisabled = "disabled"
)

// handleHealth returns the health of the server and its components.
//
// The bridge connects lazily on the first dispatch, so an unconnected
// bridge reports "idle" rather than failing the check; only a database
// failure degrades the overall status, since it means dispatch
// outcomes are being lost.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := healthOK
	components := make(map[string]ComponentHealth)

	if s.db != nil {
		if err := s.db.HealthCheck(r.Context()); err != nil {
			status = "degraded"
			components["database"] = ComponentHealth{Status: healthError, Error: err.Error()}
		} else {
			components["database"] = ComponentHealth{Status: healthOK}
		}
	}

	if s.bridge != nil {
		if s.bridge.IsConnected() {
			components["bridge"] = ComponentHealth{Status: healthOK}
		} else {
			components["bridge"] = ComponentHealth{Status: healthIdle}
		}
	}

	if s.telemetry == nil {
		components["telemetry"] = ComponentHealth{Status: healthDisabled}
	} else if err := s.telemetry.HealthCheck(r.Context()); err != nil {
		components["telemetry"] = ComponentHealth{Status: healthError, Error: err.Error()}
	} else {
		components["telemetry"] = ComponentHealth{Status: healthOK}
	}

	writeJSON(w, http.StatusOK, HealthResponse{
		Status:     status,
		Version:    s.version,
		Components: components,
	})
}
