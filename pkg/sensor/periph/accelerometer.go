package periph

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/devices/v3/mpu9250"

	"skyvario/pkg/sensor"
)

const (
	gravity = 9.80665

	// ±8 g full scale
	accelRange = 2
)

// Accelerometer polls the MPU-9250 accelerometer over SPI.
type Accelerometer struct {
	port   string
	csPin  string
	imu    *mpu9250.MPU9250
	initMu sync.Mutex

	mu     sync.Mutex
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewAccelerometer creates an accelerometer on the SPI port with the given
// chip select pin. The device is initialized on the first Start.
func NewAccelerometer(port, csPin string) *Accelerometer {
	return &Accelerometer{port: port, csPin: csPin}
}

func (a *Accelerometer) open() (*mpu9250.MPU9250, error) {
	a.initMu.Lock()
	defer a.initMu.Unlock()
	if a.imu != nil {
		return a.imu, nil
	}
	if err := initHost(); err != nil {
		return nil, err
	}
	cs := gpioreg.ByName(a.csPin)
	if cs == nil {
		return nil, fmt.Errorf("accelerometer: CS pin %q not found", a.csPin)
	}
	tr, err := mpu9250.NewSpiTransport(a.port, cs)
	if err != nil {
		return nil, fmt.Errorf("accelerometer: SPI transport (%s): %w", a.port, err)
	}
	imu, err := mpu9250.New(*tr)
	if err != nil {
		return nil, fmt.Errorf("accelerometer: device creation: %w", err)
	}
	if err := imu.Init(); err != nil {
		return nil, fmt.Errorf("accelerometer: initialization: %w", err)
	}
	if err := imu.SetAccelRange(accelRange); err != nil {
		return nil, fmt.Errorf("accelerometer: set range: %w", err)
	}
	a.imu = imu
	return imu, nil
}

func (a *Accelerometer) Start(hz int, onReading func(sensor.Acceleration)) error {
	if hz <= 0 {
		return errors.New("accelerometer: rate must be positive")
	}
	imu, err := a.open()
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stopCh != nil {
		return errors.New("accelerometer: already running")
	}
	stop := make(chan struct{})
	a.stopCh = stop
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ticker := time.NewTicker(time.Second / time.Duration(hz))
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				acc, err := read(imu)
				if err != nil {
					slog.Debug("Accelerometer read failed", "error", err)
					continue
				}
				onReading(acc)
			}
		}
	}()
	slog.Info("Accelerometer started", "port", a.port, "hz", hz)
	return nil
}

func (a *Accelerometer) Stop() {
	a.mu.Lock()
	stop := a.stopCh
	a.stopCh = nil
	a.mu.Unlock()
	if stop != nil {
		close(stop)
		a.wg.Wait()
	}
}

func read(imu *mpu9250.MPU9250) (sensor.Acceleration, error) {
	x, err := imu.GetAccelerationX()
	if err != nil {
		return sensor.Acceleration{}, err
	}
	y, err := imu.GetAccelerationY()
	if err != nil {
		return sensor.Acceleration{}, err
	}
	z, err := imu.GetAccelerationZ()
	if err != nil {
		return sensor.Acceleration{}, err
	}
	return sensor.Acceleration{X: toMS2(x, accelRange), Y: toMS2(y, accelRange), Z: toMS2(z, accelRange)}, nil
}

// toMS2 scales a raw reading for full-scale setting fs (0: ±2 g ... 3: ±16 g).
func toMS2(raw int16, fs byte) float64 {
	lsbPerG := 16384.0 / float64(int(1)<<fs)
	return float64(raw) / lsbPerG * gravity
}
