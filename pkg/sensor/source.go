package sensor

import (
	"context"
	"errors"
)

var (
	// ErrNotSupported is returned by a PermissionChecker when the host has no
	// permission model for sensors at all.
	ErrNotSupported = errors.New("sensor permissions not supported")
)

// PressureReading is one barometer sample.
type PressureReading struct {
	Pressure  float64 // hPa
	Timestamp int64   // ms, sensor clock
}

// Fix is one GPS position. Altitude and Speed are nil when the receiver did
// not report them.
type Fix struct {
	Latitude  float64
	Longitude float64
	Altitude  *float64 // m MSL
	Speed     *float64 // m/s over ground
	Timestamp int64    // ms since epoch
}

// Acceleration is one accelerometer sample in m/s².
type Acceleration struct {
	X, Y, Z float64
}

// Illuminance is one ambient light sample in lux.
type Illuminance struct {
	Lux float64
}

// ProximityEvent reports whether something is close to the device.
type ProximityEvent struct {
	Near bool
}

// BarometerSource delivers pressure readings at the requested rate.
type BarometerSource interface {
	Start(hz int, onReading func(PressureReading)) error
	Stop()
}

// GPSReceiver delivers position fixes and transient errors until the watch
// is cleared.
type GPSReceiver interface {
	Watch(onFix func(Fix), onError func(error)) error
	ClearWatch()
}

// Accelerometer delivers acceleration samples at the requested rate.
type Accelerometer interface {
	Start(hz int, onReading func(Acceleration)) error
	Stop()
}

// LightSensor delivers ambient light samples.
type LightSensor interface {
	Start(onReading func(Illuminance)) error
	Stop()
}

// ProximitySensor delivers near/far events.
type ProximitySensor interface {
	Start(onReading func(ProximityEvent)) error
	Stop()
}

// PermissionChecker reports whether the user granted sensor access.
type PermissionChecker interface {
	Query(ctx context.Context) (bool, error)
}

// Suite is the set of sensor capabilities a host offers. A nil field means
// the capability does not exist on this host.
type Suite struct {
	Permission    PermissionChecker
	Barometer     BarometerSource
	GPS           GPSReceiver
	Accelerometer Accelerometer
	Light         LightSensor
	Proximity     ProximitySensor
}

// Has reports whether the suite provides sensor class k.
func (s *Suite) Has(k Kind) bool {
	switch k {
	case Barometer:
		return s.Barometer != nil
	case GPS:
		return s.GPS != nil
	case IMU:
		return s.Accelerometer != nil
	case Light:
		return s.Light != nil
	case Proximity:
		return s.Proximity != nil
	default:
		return false
	}
}

// Float returns a pointer to v, for building fixes.
func Float(v float64) *float64 {
	return &v
}
