package handlers

import (
	"context"
	"net/http"
	"time"
)

// Pinger checks a dependency is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// NextRunner reports the next scheduled reminder scan.
type NextRunner interface {
	NextRun() *time.Time
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status      string     `json:"status"`
	DBConnected bool       `json:"db_connected"`
	Events      int        `json:"events"`
	NextScanAt  *time.Time `json:"next_scan_at,omitempty"`
}

// HealthCheck returns a handler that performs a health check.
func HealthCheck(db Pinger, events int, scans NextRunner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		dbConnected := db.PingContext(ctx) == nil

		response := HealthResponse{
			Status:      "healthy",
			DBConnected: dbConnected,
			Events:      events,
		}
		if scans != nil {
			response.NextScanAt = scans.NextRun()
		}

		code := http.StatusOK
		if !dbConnected {
			response.Status = "degraded"
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, response)
	}
}
