package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"skyvario/pkg/tracker"
	"skyvario/pkg/version"
)

// TelemetryStats reports per-sink delivery counters.
type TelemetryStats interface {
	Snapshot() map[string]tracker.SinkStats
}

// NewServer creates and configures the HTTP server.
// It accepts handlers for all API endpoints and a shutdownFunc for graceful shutdown.
func NewServer(addr string, flightH *FlightHandler, audioH *AudioHandler, hub *Hub, stats TelemetryStats, shutdown func()) *http.Server {
	mux := http.NewServeMux()

	// 1. Health Endpoint
	mux.HandleFunc("GET /health", handleHealth)

	// 2. Version Endpoint
	mux.HandleFunc("GET /api/version", handleVersion)

	// 3. Flight Endpoints
	mux.HandleFunc("GET /api/flight", flightH.HandleSnapshot)
	mux.HandleFunc("GET /api/sensors", flightH.HandleStatus)
	mux.HandleFunc("POST /api/flight/start", flightH.HandleStart)
	mux.HandleFunc("POST /api/flight/stop", flightH.HandleStop)
	mux.HandleFunc("GET /api/flight/track", flightH.HandleTrack)
	mux.HandleFunc("GET /api/flight/igc", flightH.HandleIGC)

	// 4. Audio Endpoints
	if audioH != nil {
		mux.HandleFunc("POST /api/audio/mute", audioH.HandleMute)
		mux.HandleFunc("GET /api/audio/status", audioH.HandleStatus)
	}

	// 5. Logs Endpoints
	mux.HandleFunc("GET /api/log/latest", handleLatestLog)
	mux.HandleFunc("GET /api/log/event", handleLatestEvent)

	// 6. Live Stream
	if hub != nil {
		mux.HandleFunc("GET /api/ws", hub.HandleWS)
	}

	// 7. Telemetry
	if stats != nil {
		mux.HandleFunc("GET /api/telemetry/stats", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, stats.Snapshot())
		})
	}

	// 8. Shutdown Endpoint
	mux.HandleFunc("POST /api/shutdown", func(w http.ResponseWriter, r *http.Request) {
		slog.Info("Graceful shutdown initiated via API")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("Shutting down...")); err != nil {
			slog.Error("Failed to write shutdown response", "error", err)
		}
		// Call shutdown in a goroutine to allow response to flush
		go func() {
			time.Sleep(100 * time.Millisecond)
			shutdown()
		}()
	})

	return &http.Server{
		Addr:        addr,
		Handler:     mux,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		slog.Error("Failed to write health response", "error", err)
	}
}

func handleVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if _, err := fmt.Fprintf(w, `{"version": "%s"}`, version.Version); err != nil {
		slog.Error("Failed to write version response", "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}
