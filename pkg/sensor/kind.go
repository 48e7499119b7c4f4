// Package sensor defines the sensor capabilities consumed by the flight
// controller and tracks their availability.
package sensor

import (
	"fmt"
	"strings"
)

// Kind is the closed set of sensor classes the instrument knows about.
type Kind int

const (
	Barometer Kind = iota
	GPS
	IMU
	Light
	Proximity

	kindCount
)

// Kinds lists every sensor class in bring-up order.
var Kinds = []Kind{Barometer, IMU, GPS, Light, Proximity}

func (k Kind) String() string {
	switch k {
	case Barometer:
		return "barometer"
	case GPS:
		return "gps"
	case IMU:
		return "imu"
	case Light:
		return "light"
	case Proximity:
		return "proximity"
	default:
		return "unknown"
	}
}

// Label is the human readable name used in status messages.
func (k Kind) Label() string {
	switch k {
	case Barometer:
		return "Barometer"
	case GPS:
		return "GPS"
	case IMU:
		return "Accelerometer"
	case Light:
		return "Ambient light sensor"
	case Proximity:
		return "Proximity sensor"
	default:
		return "Unknown sensor"
	}
}

// MarshalText implements encoding.TextMarshaler so kinds can key JSON maps.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// ParseKind resolves a sensor class from its config name. "accelerometer"
// is accepted as an alias for imu.
func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "barometer", "baro":
		return Barometer, nil
	case "gps":
		return GPS, nil
	case "imu", "accelerometer":
		return IMU, nil
	case "light":
		return Light, nil
	case "proximity":
		return Proximity, nil
	}
	return 0, fmt.Errorf("unknown sensor %q", name)
}
