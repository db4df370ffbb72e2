package handlers

import (
	"net/http"
	"time"
)

// HealthHandler provides health check endpoints for readiness and liveness probes
type HealthHandler struct {
	startTime       time.Time
	readinessChecks map[string]func() error
	livenessChecks  map[string]func() error
}

// HealthResponse is the body of the probe endpoints.
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Uptime    string            `json:"uptime"`
	Details   map[string]string `json:"details,omitempty"`
}

// NewHealthHandler creates a health handler with the given readiness checks.
func NewHealthHandler(readinessChecks map[string]func() error) *HealthHandler {
	h := &HealthHandler{
		startTime:       time.Now(),
		readinessChecks: make(map[string]func() error),
		livenessChecks: map[string]func() error{
			"uptime": func() error { return nil },
		},
	}
	for name, check := range readinessChecks {
		h.readinessChecks[name] = check
	}
	return h
}

// HandleReadiness handles readiness probe requests
func (h *HealthHandler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	h.respond(w, h.readinessChecks, true)
}

// HandleLiveness handles liveness probe requests
func (h *HealthHandler) HandleLiveness(w http.ResponseWriter, r *http.Request) {
	h.respond(w, h.livenessChecks, false)
}

// HandleHealth handles general health check requests
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *HealthHandler) respond(w http.ResponseWriter, checks map[string]func() error, withDetails bool) {
	details := make(map[string]string, len(checks))
	allOk := true
	for name, check := range checks {
		if err := check(); err != nil {
			allOk = false
			details[name] = err.Error()
		} else {
			details[name] = "OK"
		}
	}

	response := HealthResponse{
		Status:    "UP",
		Timestamp: time.Now().Format(time.RFC3339),
		Uptime:    time.Since(h.startTime).String(),
	}
	if withDetails {
		response.Details = details
	}

	status := http.StatusOK
	if !allOk {
		response.Status = "DOWN"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, response)
}
