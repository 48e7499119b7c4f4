package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"skyvario/pkg/flight"
	"skyvario/pkg/igc"
)

// Flight is the instrument surface the API drives.
type Flight interface {
	Start(ctx context.Context) error
	Stop()
	Active() bool
	Snapshot() flight.Snapshot
	Status() flight.Status
	Track() []igc.Fix
	ExportIGC() (flight.Export, error)
	ToggleMute() bool
}

// FlightHandler serves session control and readings.
type FlightHandler struct {
	flight Flight
	onStop func(context.Context)
}

// NewFlightHandler creates a handler. onStop, if set, runs after every
// successful stop request (auto export).
func NewFlightHandler(f Flight, onStop func(context.Context)) *FlightHandler {
	return &FlightHandler{flight: f, onStop: onStop}
}

// FlightResponse is the snapshot plus the session flag.
type FlightResponse struct {
	flight.Snapshot
	Active bool `json:"active"`
}

// HandleSnapshot handles GET /api/flight
func (h *FlightHandler) HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, FlightResponse{
		Snapshot: h.flight.Snapshot(),
		Active:   h.flight.Active(),
	})
}

// HandleStatus handles GET /api/sensors
func (h *FlightHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.flight.Status())
}

// HandleStart handles POST /api/flight/start
func (h *FlightHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	if h.flight.Active() {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "flight already active"})
		return
	}
	if err := h.flight.Start(r.Context()); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, flight.ErrPermissionDenied) {
			status = http.StatusForbidden
		}
		writeJSON(w, status, map[string]any{
			"error":  err.Error(),
			"status": h.flight.Status(),
		})
		return
	}
	slog.Info("Flight started via API")
	writeJSON(w, http.StatusOK, h.flight.Status())
}

// HandleStop handles POST /api/flight/stop
func (h *FlightHandler) HandleStop(w http.ResponseWriter, r *http.Request) {
	if !h.flight.Active() {
		writeJSON(w, http.StatusConflict, map[string]string{"error": flight.ErrNotActive.Error()})
		return
	}
	h.flight.Stop()
	slog.Info("Flight stopped via API")
	if h.onStop != nil {
		h.onStop(context.WithoutCancel(r.Context()))
	}
	writeJSON(w, http.StatusOK, h.flight.Status())
}

// HandleTrack handles GET /api/flight/track
func (h *FlightHandler) HandleTrack(w http.ResponseWriter, r *http.Request) {
	track := h.flight.Track()
	type point struct {
		Time      int64   `json:"time"`
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
		Baro      float64 `json:"altitude_baro"`
		GPS       float64 `json:"altitude_gps"`
	}
	out := make([]point, 0, len(track))
	for _, f := range track {
		out = append(out, point{f.Time.UnixMilli(), f.Latitude, f.Longitude, f.BaroAltitude, f.GPSAltitude})
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleIGC handles GET /api/flight/igc
func (h *FlightHandler) HandleIGC(w http.ResponseWriter, r *http.Request) {
	exp, err := h.flight.ExportIGC()
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, igc.ErrInsufficientData) {
			status = http.StatusConflict
		}
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+exp.FileName+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(exp.Data)))
	if _, err := w.Write(exp.Data); err != nil {
		slog.Error("Failed to write IGC response", "error", err)
	}
}
