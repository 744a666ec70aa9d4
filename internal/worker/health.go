package worker

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// StatsSource reports message throughput.
type StatsSource interface {
	Stats() (received int64, lastSeen time.Time)
}

type healthResponse struct {
	Status        string     `json:"status"`
	Version       string     `json:"version"`
	Received      int64      `json:"received"`
	LastMessageAt *time.Time `json:"lastMessageAt,omitempty"`
}

// HealthHandler serves GET /health for the worker's platform probes.
func HealthHandler(version string, stats StatsSource) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		resp := healthResponse{Status: "healthy", Version: version}
		if stats != nil {
			received, last := stats.Stats()
			resp.Received = received
			if !last.IsZero() {
				resp.LastMessageAt = &last
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(resp)
	})
	return r
}
