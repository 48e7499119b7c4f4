package mocksensor

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"skyvario/pkg/sensor"
	"skyvario/pkg/vario"
)

var (
	errRunning = errors.New("sensor already running")
	errRate    = errors.New("sample rate must be positive")
)

// stream runs fn on a ticker until halted.
type stream struct {
	mu     sync.Mutex
	stopCh chan struct{}
	wg     sync.WaitGroup
}

func (s *stream) start(every time.Duration, fn func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopCh != nil {
		return errRunning
	}
	stop := make(chan struct{})
	s.stopCh = stop
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				fn()
			}
		}
	}()
	return nil
}

func (s *stream) halt() {
	s.mu.Lock()
	stop := s.stopCh
	s.stopCh = nil
	s.mu.Unlock()
	if stop != nil {
		close(stop)
		s.wg.Wait()
	}
}

func period(hz int) (time.Duration, error) {
	if hz <= 0 {
		return 0, errRate
	}
	return time.Second / time.Duration(hz), nil
}

// Barometer reports the glider's static pressure with gaussian noise.
type Barometer struct {
	g     *Glider
	noise float64
	fail  error
	s     stream
}

func (b *Barometer) Start(hz int, onReading func(sensor.PressureReading)) error {
	if b.fail != nil {
		return b.fail
	}
	every, err := period(hz)
	if err != nil {
		return err
	}
	return b.s.start(every, func() {
		onReading(b.Sample(time.Now()))
	})
}

// Sample produces one reading at the current glider altitude.
func (b *Barometer) Sample(at time.Time) sensor.PressureReading {
	p := vario.AltitudeToPressure(b.g.State().Altitude) + rand.NormFloat64()*b.noise
	return sensor.PressureReading{Pressure: p, Timestamp: at.UnixMilli()}
}

func (b *Barometer) Stop() { b.s.halt() }

// GPS reports a 1 Hz fix with altitude and ground speed.
type GPS struct {
	g    *Glider
	fail error
	s    stream
}

func (r *GPS) Watch(onFix func(sensor.Fix), onError func(error)) error {
	if r.fail != nil {
		return r.fail
	}
	return r.s.start(time.Second, func() {
		onFix(r.Sample(time.Now()))
	})
}

// Sample produces one fix at the current glider position.
func (r *GPS) Sample(at time.Time) sensor.Fix {
	st := r.g.State()
	return sensor.Fix{
		Latitude:  st.Latitude,
		Longitude: st.Longitude,
		Altitude:  sensor.Float(st.Altitude + rand.NormFloat64()*0.5),
		Speed:     sensor.Float(st.GroundSpeed),
		Timestamp: at.UnixMilli(),
	}
}

func (r *GPS) ClearWatch() { r.s.halt() }

// Accelerometer reports the turn load along Z.
type Accelerometer struct {
	g    *Glider
	fail error
	s    stream
}

func (a *Accelerometer) Start(hz int, onReading func(sensor.Acceleration)) error {
	if a.fail != nil {
		return a.fail
	}
	every, err := period(hz)
	if err != nil {
		return err
	}
	return a.s.start(every, func() {
		onReading(a.Sample())
	})
}

// Sample produces one acceleration reading.
func (a *Accelerometer) Sample() sensor.Acceleration {
	load := a.g.State().Load
	return sensor.Acceleration{
		X: rand.NormFloat64() * 0.05,
		Y: rand.NormFloat64() * 0.05,
		Z: load*gravity + rand.NormFloat64()*0.05,
	}
}

func (a *Accelerometer) Stop() { a.s.halt() }

// Light reports a constant ambient level once per second.
type Light struct {
	lux  float64
	fail error
	s    stream
}

func (l *Light) Start(onReading func(sensor.Illuminance)) error {
	if l.fail != nil {
		return l.fail
	}
	return l.s.start(time.Second, func() {
		onReading(sensor.Illuminance{Lux: l.lux})
	})
}

func (l *Light) Stop() { l.s.halt() }

// Proximity delivers events injected with Cover.
type Proximity struct {
	mu   sync.Mutex
	cb   func(sensor.ProximityEvent)
	fail error
}

func (p *Proximity) Start(onReading func(sensor.ProximityEvent)) error {
	if p.fail != nil {
		return p.fail
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cb != nil {
		return errRunning
	}
	p.cb = onReading
	return nil
}

func (p *Proximity) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cb = nil
}

// Cover simulates a hand over the sensor. It reports whether a listener was
// attached.
func (p *Proximity) Cover(near bool) bool {
	p.mu.Lock()
	cb := p.cb
	p.mu.Unlock()
	if cb == nil {
		return false
	}
	cb(sensor.ProximityEvent{Near: near})
	return true
}

// Permission always reports the configured grant.
type Permission struct {
	Granted bool
}

func (p Permission) Query(ctx context.Context) (bool, error) {
	return p.Granted, ctx.Err()
}
