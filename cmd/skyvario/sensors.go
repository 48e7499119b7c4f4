package main

import (
	"fmt"
	"log/slog"

	"skyvario/pkg/config"
	"skyvario/pkg/sensor"
	"skyvario/pkg/sensor/mocksensor"
	"skyvario/pkg/sensor/nmeagps"
	"skyvario/pkg/sensor/periph"
)

// sensorSet is the host suite plus whatever must be released on exit.
type sensorSet struct {
	Suite *sensor.Suite
	close func() error
}

func (s *sensorSet) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

func initSensors(cfg *config.Config) (*sensorSet, error) {
	switch cfg.Sensors.Provider {
	case "mock":
		rig, err := mocksensor.New(mocksensor.OptionsFromConfig(cfg.Sensors.Mock), cfg.Sensors.Mock.Disable, cfg.Sensors.Mock.FailStart)
		if err != nil {
			return nil, err
		}
		rig.Glider.Run()
		return &sensorSet{Suite: rig.Suite, close: rig.Close}, nil
	case "hardware":
		return &sensorSet{Suite: hardwareSuite(cfg.Sensors)}, nil
	}
	return nil, fmt.Errorf("unknown sensor provider %q", cfg.Sensors.Provider)
}

func hardwareSuite(cfg config.SensorsConfig) *sensor.Suite {
	suite := &sensor.Suite{}
	var nodes []string

	if cfg.Hardware.Barometer {
		suite.Barometer = periph.NewBarometer(cfg.Hardware.BarometerSPI)
		nodes = append(nodes, cfg.Hardware.BarometerSPI)
	}
	if cfg.Hardware.Accelerometer {
		suite.Accelerometer = periph.NewAccelerometer(cfg.Hardware.AccelSPI, cfg.Hardware.AccelCS)
		nodes = append(nodes, cfg.Hardware.AccelSPI)
	}
	if cfg.GPS.Enabled {
		suite.GPS = nmeagps.New(nmeagps.SerialOpener(cfg.GPS.Port, cfg.GPS.Baud))
		nodes = append(nodes, cfg.GPS.Port)
	}
	suite.Permission = periph.Permission{Paths: nodes}

	slog.Info("Hardware sensors configured",
		"barometer", suite.Has(sensor.Barometer),
		"accelerometer", suite.Has(sensor.IMU),
		"gps", suite.Has(sensor.GPS))
	return suite
}
