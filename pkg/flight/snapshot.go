package flight

import "skyvario/pkg/vario"

// Snapshot is the composed instrument reading.
type Snapshot struct {
	SessionID     string               `json:"session_id,omitempty"`
	VerticalSpeed float64              `json:"vertical_speed"` // m/s, positive climbing
	AltitudeBaro  float64              `json:"altitude_baro"`  // m, 0 without barometer
	AltitudeGPS   float64              `json:"altitude_gps"`   // m, 0 before first fix
	GroundSpeed   float64              `json:"ground_speed"`   // m/s
	GlideRatio    float64              `json:"glide_ratio"`    // 0 when not meaningful
	Latitude      float64              `json:"latitude"`
	Longitude     float64              `json:"longitude"`
	Timestamp     int64                `json:"timestamp"` // ms since epoch
	History       []vario.HistoryPoint `json:"history"`
	IsMuted       bool                 `json:"is_muted"`
	Source        vario.Source         `json:"source"`
	GForce        float64              `json:"g_force"`
}
