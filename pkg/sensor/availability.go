package sensor

import "sync"

// State is the lifecycle stage of one sensor class.
type State string

const (
	// StateUnavailable means the sensor is absent or failed to start. It is
	// terminal: nothing promotes it again.
	StateUnavailable State = "unavailable"
	// StateAvailable means the sensor can be started (or, for GPS, is started
	// but has no fix yet).
	StateAvailable State = "available"
	// StateActive means the sensor is started and emitting.
	StateActive State = "active"
)

// Availability tracks the State of every sensor class.
type Availability struct {
	mu     sync.RWMutex
	states [kindCount]State
}

// NewAvailability classifies each sensor class from the host suite:
// present capabilities start as available, absent ones as unavailable.
func NewAvailability(s *Suite) *Availability {
	a := &Availability{}
	for _, k := range Kinds {
		if s != nil && s.Has(k) {
			a.states[k] = StateAvailable
		} else {
			a.states[k] = StateUnavailable
		}
	}
	return a
}

// Get returns the state of k.
func (a *Availability) Get(k Kind) State {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.states[k]
}

// MarkActive promotes k to active. Unavailable sensors stay unavailable.
// It reports whether the state changed.
func (a *Availability) MarkActive(k Kind) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.states[k] != StateAvailable {
		return false
	}
	a.states[k] = StateActive
	return true
}

// MarkUnavailable records a failed or absent sensor for the rest of the process.
func (a *Availability) MarkUnavailable(k Kind) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.states[k] = StateUnavailable
}

// Demote moves every active sensor back to available, ready for a restart.
func (a *Availability) Demote() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i, s := range a.states {
		if s == StateActive {
			a.states[i] = StateAvailable
		}
	}
}

// Snapshot returns the state of every sensor class.
func (a *Availability) Snapshot() map[Kind]State {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make(map[Kind]State, len(Kinds))
	for _, k := range Kinds {
		out[k] = a.states[k]
	}
	return out
}
