package vario

import (
	"math"

	"skyvario/pkg/sensor"
)

// Source identifies which altitude stream drives vertical speed.
type Source string

const (
	SourceBarometer Source = "barometer"
	SourceGPS       Source = "gps"
)

// SelectSource returns the authoritative vario source for the given barometer
// state. GPS only drives vertical speed while the barometer is not active.
func SelectSource(baro sensor.State) Source {
	if baro == sensor.StateActive {
		return SourceBarometer
	}
	return SourceGPS
}

// PressureSample is the previous barometric reading kept between updates.
type PressureSample struct {
	Pressure  float64 // hPa
	Timestamp int64   // ms
}

type altitudeSample struct {
	altitude  float64
	timestamp int64
}

// Estimate is the outcome of a single altitude update.
type Estimate struct {
	// Altitude is the altitude field owned by the source: smoothed barometric
	// altitude or raw GPS altitude.
	Altitude float64
	// VerticalSpeed is only meaningful when Emitted is true.
	VerticalSpeed float64
	Emitted       bool
}

// Estimator turns barometric and GPS altitude streams into vertical speed.
// It is not safe for concurrent use; the owner serializes access.
type Estimator struct {
	smoother *Smoother
	last     *PressureSample
	lastFix  *altitudeSample
}

// NewEstimator creates an estimator with the given EMA weight.
func NewEstimator(alpha float64) *Estimator {
	return &Estimator{smoother: NewSmoother(alpha)}
}

// UpdatePressure processes one barometric reading.
//
// The rate is taken between the newly smoothed altitude and the raw altitude of
// the previous sample, not between two smoothed values. This asymmetry shapes how
// the output settles and is intentional.
func (e *Estimator) UpdatePressure(s PressureSample) Estimate {
	if e.last == nil {
		e.last = &s
		return Estimate{}
	}

	current := PressureToAltitude(s.Pressure)
	smoothed := e.smoother.Update(current)
	lastAltitude := PressureToAltitude(e.last.Pressure)
	dt := float64(s.Timestamp-e.last.Timestamp) / 1000.0

	est := Estimate{Altitude: smoothed}
	if dt > 0 {
		est.VerticalSpeed = (smoothed - lastAltitude) / dt
		est.Emitted = true
	}

	e.last = &s
	return est
}

// UpdatePosition processes the altitude of one GPS fix. The GPS baseline is
// always advanced so that a handover from the barometer starts from a fresh
// sample. A missing or non-finite altitude is ignored entirely.
func (e *Estimator) UpdatePosition(altitude float64, hasAltitude bool, timestamp int64) Estimate {
	if !hasAltitude || math.IsNaN(altitude) || math.IsInf(altitude, 0) {
		return Estimate{}
	}

	est := Estimate{Altitude: altitude}
	if e.lastFix != nil {
		dt := float64(timestamp-e.lastFix.timestamp) / 1000.0
		if dt > 0 {
			est.VerticalSpeed = (altitude - e.lastFix.altitude) / dt
			est.Emitted = true
		}
	}

	e.lastFix = &altitudeSample{altitude: altitude, timestamp: timestamp}
	return est
}

// LastPressure returns the retained barometric sample, if any.
func (e *Estimator) LastPressure() (PressureSample, bool) {
	if e.last == nil {
		return PressureSample{}, false
	}
	return *e.last, true
}

// SmoothedAltitude returns the current smoothed barometric altitude.
func (e *Estimator) SmoothedAltitude() (float64, bool) {
	return e.smoother.Value()
}

// Reset drops all per-session state.
func (e *Estimator) Reset() {
	e.smoother.Reset()
	e.last = nil
	e.lastFix = nil
}
