// Package periph drives the on-board barometer (BMP280/BME280) and
// accelerometer (MPU-9250) over SPI.
package periph

import (
	"fmt"
	"log/slog"
	"sync"

	"periph.io/x/host/v3"
)

var (
	hostOnce sync.Once
	hostErr  error
)

// initHost loads the periph host drivers once per process.
func initHost() error {
	hostOnce.Do(func() {
		state, err := host.Init()
		if err != nil {
			hostErr = fmt.Errorf("periph host init: %w", err)
			return
		}
		slog.Debug("periph host ready", "drivers", len(state.Loaded))
	})
	return hostErr
}
