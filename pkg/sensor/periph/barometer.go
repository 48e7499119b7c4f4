package periph

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/bmxx80"

	"skyvario/pkg/sensor"
)

// Barometer streams pressure from a BMP280/BME280 on an SPI port.
type Barometer struct {
	port string

	mu   sync.Mutex
	bus  spi.PortCloser
	dev  *bmxx80.Dev
	done chan struct{}
}

// NewBarometer creates a barometer on the SPI port (e.g. /dev/spidev0.1).
// The device is opened on Start.
func NewBarometer(port string) *Barometer {
	return &Barometer{port: port}
}

func (b *Barometer) Start(hz int, onReading func(sensor.PressureReading)) error {
	if hz <= 0 {
		return errors.New("barometer: rate must be positive")
	}
	if err := initHost(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.dev != nil {
		return errors.New("barometer: already running")
	}

	bus, err := spireg.Open(b.port)
	if err != nil {
		return fmt.Errorf("barometer: open %s: %w", b.port, err)
	}
	dev, err := bmxx80.NewSPI(bus, &bmxx80.DefaultOpts)
	if err != nil {
		bus.Close()
		return fmt.Errorf("barometer: init: %w", err)
	}
	ch, err := dev.SenseContinuous(time.Second / time.Duration(hz))
	if err != nil {
		dev.Halt()
		bus.Close()
		return fmt.Errorf("barometer: continuous sensing: %w", err)
	}

	b.bus, b.dev = bus, dev
	b.done = make(chan struct{})
	go func(done chan struct{}) {
		defer close(done)
		for e := range ch {
			onReading(sensor.PressureReading{
				Pressure:  pressureHPa(e),
				Timestamp: time.Now().UnixMilli(),
			})
		}
	}(b.done)

	slog.Info("Barometer started", "device", dev.String(), "port", b.port, "hz", hz)
	return nil
}

func (b *Barometer) Stop() {
	b.mu.Lock()
	dev, bus, done := b.dev, b.bus, b.done
	b.dev, b.bus, b.done = nil, nil, nil
	b.mu.Unlock()
	if dev == nil {
		return
	}
	if err := dev.Halt(); err != nil {
		slog.Warn("Barometer halt failed", "error", err)
	}
	<-done
	bus.Close()
}

func pressureHPa(e physic.Env) float64 {
	return float64(e.Pressure) / float64(physic.Pascal) / 100
}
