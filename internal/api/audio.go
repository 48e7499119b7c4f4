package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

// Muter is the mute control of the instrument.
type Muter interface {
	ToggleMute() bool
	IsMuted() bool
}

// AudioHandler handles audio control endpoints.
type AudioHandler struct {
	audio Muter
}

// NewAudioHandler creates a new AudioHandler.
func NewAudioHandler(m Muter) *AudioHandler {
	return &AudioHandler{audio: m}
}

// MuteRequest sets the mute state. An empty body toggles it.
type MuteRequest struct {
	Muted *bool `json:"muted"`
}

// AudioStatusResponse represents the audio status.
type AudioStatusResponse struct {
	Muted bool `json:"muted"`
}

// HandleMute handles POST /api/audio/mute
func (h *AudioHandler) HandleMute(w http.ResponseWriter, r *http.Request) {
	var req MuteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	muted := h.audio.IsMuted()
	if req.Muted == nil || *req.Muted != muted {
		muted = h.audio.ToggleMute()
	}
	writeJSON(w, http.StatusOK, AudioStatusResponse{Muted: muted})
}

// HandleStatus handles GET /api/audio/status
func (h *AudioHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, AudioStatusResponse{Muted: h.audio.IsMuted()})
}
