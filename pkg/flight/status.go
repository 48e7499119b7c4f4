package flight

import (
	"sync"

	"skyvario/pkg/sensor"
)

// Theme is the display theme requested from the renderer.
type Theme string

const (
	ThemeDark         Theme = "theme-dark"
	ThemeHighContrast Theme = "theme-high-contrast"

	// brightLux is the illuminance above which the display switches to high contrast.
	brightLux = 1000.0
)

// ThemeFor picks the display theme for an ambient light level.
func ThemeFor(lux float64) Theme {
	if lux > brightLux {
		return ThemeHighContrast
	}
	return ThemeDark
}

// MaxMessages is how many diagnostic messages are retained.
const MaxMessages = 5

// MessageLog keeps the most recent diagnostic messages, oldest first.
type MessageLog struct {
	mu       sync.RWMutex
	messages []string
}

// Add appends msg, dropping the oldest entry beyond MaxMessages.
func (l *MessageLog) Add(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, msg)
	if n := len(l.messages); n > MaxMessages {
		l.messages = append([]string(nil), l.messages[n-MaxMessages:]...)
	}
}

// Messages returns a copy of the retained messages.
func (l *MessageLog) Messages() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]string(nil), l.messages...)
}

// Status describes the sensor side of the instrument.
type Status struct {
	Active            bool                         `json:"active"`
	SessionID         string                       `json:"session_id,omitempty"`
	Sensors           map[sensor.Kind]sensor.State `json:"sensors"`
	PermissionGranted bool                         `json:"permission_granted"`
	Theme             Theme                        `json:"theme"`
	Messages          []string                     `json:"messages"`
}
