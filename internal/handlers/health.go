package handlers

import (
	"context"
	"net/http"
	"time"
)

const version = "0.1.0"

// Check represents the status of a health check.
type Check struct {
	Status  string `json:"status"`            // "pass", "fail" or "skip"
	Latency string `json:"latency,omitempty"` // e.g., "2ms"
	Message string `json:"message,omitempty"`
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status    string           `json:"status"` // "healthy" or "degraded"
	Version   string           `json:"version"`
	Checks    map[string]Check `json:"checks"`
	Timestamp string           `json:"timestamp"`
}

// Health handles the health check endpoint.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := make(map[string]Check)
	allHealthy := true

	// Check translation server
	serverStart := time.Now()
	if resp, err := h.server.Health(ctx); err != nil {
		checks["server"] = Check{Status: "fail", Message: err.Error()}
		allHealthy = false
	} else {
		checks["server"] = Check{Status: "pass", Latency: time.Since(serverStart).String(), Message: resp.Status}
	}

	// Check transcript archive
	if h.archive != nil {
		archiveStart := time.Now()
		if err := h.archive.Ping(ctx); err != nil {
			checks["archive"] = Check{Status: "fail", Message: "connection failed"}
			allHealthy = false
		} else {
			checks["archive"] = Check{Status: "pass", Latency: time.Since(archiveStart).String()}
		}
	} else {
		checks["archive"] = Check{Status: "skip", Message: "not configured"}
	}

	// Realtime channel
	if h.conv.Status().Connected {
		checks["realtime"] = Check{Status: "pass"}
	} else {
		checks["realtime"] = Check{Status: "fail", Message: "disconnected"}
		allHealthy = false
	}

	status := "healthy"
	statusCode := http.StatusOK
	if !allHealthy {
		status = "degraded"
		statusCode = http.StatusServiceUnavailable
	}

	h.JSON(w, statusCode, HealthResponse{
		Status:    status,
		Version:   version,
		Checks:    checks,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// RootResponse represents the root endpoint response.
type RootResponse struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Root handles the root endpoint.
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	h.JSON(w, http.StatusOK, RootResponse{
		Name:    "talkbridge",
		Version: version,
	})
}
