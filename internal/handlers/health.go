package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/mwsanalytics/posts-backend/internal/version"
)

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Tables  int    `json:"tables"`
}

// Health returns an HTTP handler for the health check endpoint. It reports
// the number of registered tables without contacting any of them.
func Health(tables func() int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, HealthResponse{
			Status:  "healthy",
			Version: version.Short(),
			Tables:  tables(),
		})
	}
}

// Version returns an HTTP handler reporting build information.
func Version() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, version.Get())
	}
}

func writeJSON(w http.ResponseWriter, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}
