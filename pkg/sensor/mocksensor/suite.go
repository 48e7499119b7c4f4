package mocksensor

import (
	"fmt"
	"log/slog"
	"time"

	"skyvario/pkg/config"
	"skyvario/pkg/sensor"
)

// Rig bundles the simulated glider with the sensors reading from it.
type Rig struct {
	Glider        *Glider
	Barometer     *Barometer
	GPS           *GPS
	Accelerometer *Accelerometer
	Light         *Light
	Proximity     *Proximity
	Suite         *sensor.Suite
}

// OptionsFromConfig maps the YAML settings onto glider options.
func OptionsFromConfig(cfg config.MockConfig) Options {
	return Options{
		StartLat:      cfg.StartLat,
		StartLon:      cfg.StartLon,
		StartAlt:      cfg.StartAlt,
		StartHeading:  cfg.StartHeading,
		Airspeed:      cfg.Airspeed,
		Scenario:      cfg.Scenario,
		PhaseDuration: time.Duration(cfg.PhaseDuration),
		NoiseHPa:      cfg.NoiseHPa,
		Lux:           cfg.Lux,
	}
}

// New builds a simulated sensor suite. Sensors named in disable are left out
// of the suite; those named in failStart exist but refuse to start.
func New(opts Options, disable, failStart []string) (*Rig, error) {
	g, err := NewGlider(opts)
	if err != nil {
		return nil, err
	}

	off, err := kindSet(disable)
	if err != nil {
		return nil, fmt.Errorf("disable: %w", err)
	}
	broken, err := kindSet(failStart)
	if err != nil {
		return nil, fmt.Errorf("fail_start: %w", err)
	}
	failure := func(k sensor.Kind) error {
		if broken[k] {
			return fmt.Errorf("simulated %s failure", k)
		}
		return nil
	}

	r := &Rig{
		Glider:        g,
		Barometer:     &Barometer{g: g, noise: opts.NoiseHPa, fail: failure(sensor.Barometer)},
		GPS:           &GPS{g: g, fail: failure(sensor.GPS)},
		Accelerometer: &Accelerometer{g: g, fail: failure(sensor.IMU)},
		Light:         &Light{lux: opts.Lux, fail: failure(sensor.Light)},
		Proximity:     &Proximity{fail: failure(sensor.Proximity)},
	}

	suite := &sensor.Suite{Permission: Permission{Granted: true}}
	if !off[sensor.Barometer] {
		suite.Barometer = r.Barometer
	}
	if !off[sensor.GPS] {
		suite.GPS = r.GPS
	}
	if !off[sensor.IMU] {
		suite.Accelerometer = r.Accelerometer
	}
	if !off[sensor.Light] {
		suite.Light = r.Light
	}
	if !off[sensor.Proximity] {
		suite.Proximity = r.Proximity
	}
	r.Suite = suite

	slog.Info("Mock sensors ready", "scenario", opts.Scenario, "disabled", disable, "failing", failStart)
	return r, nil
}

// Close stops the glider.
func (r *Rig) Close() error {
	return r.Glider.Close()
}

func kindSet(names []string) (map[sensor.Kind]bool, error) {
	set := make(map[sensor.Kind]bool, len(names))
	for _, n := range names {
		k, err := sensor.ParseKind(n)
		if err != nil {
			return nil, err
		}
		set[k] = true
	}
	return set, nil
}
