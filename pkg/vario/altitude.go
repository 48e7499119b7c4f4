// Package vario derives vertical speed from barometric and GPS altitude.
package vario

import "math"

const (
	// SeaLevelPressure is the ISA standard pressure at mean sea level in hPa.
	SeaLevelPressure = 1013.25

	baroScale    = 44330.0
	baroExponent = 1 / 5.255
)

// PressureToAltitude converts a static pressure reading (hPa) to pressure
// altitude in meters using the international barometric formula.
// Callers must not pass a non-positive pressure.
func PressureToAltitude(hPa float64) float64 {
	return baroScale * (1 - math.Pow(hPa/SeaLevelPressure, baroExponent))
}

// AltitudeToPressure is the inverse of PressureToAltitude.
func AltitudeToPressure(meters float64) float64 {
	return SeaLevelPressure * math.Pow(1-meters/baroScale, 1/baroExponent)
}
