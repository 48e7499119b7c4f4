// Package nmeagps reads position fixes from an NMEA 0183 receiver on a
// serial port.
package nmeagps

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	nmea "github.com/adrianmo/go-nmea"
	serial "github.com/jacobsa/go-serial/serial"

	"skyvario/pkg/logging"
	"skyvario/pkg/sensor"
)

const knotsToMS = 0.514444

// ErrNoFix is reported when the receiver loses its fix, or has none on the
// first RMC sentence. Repeated void sentences are not reported again.
var ErrNoFix = errors.New("gps: no fix")

// Opener returns the byte stream carrying NMEA sentences.
type Opener func() (io.ReadCloser, error)

// SerialOpener opens port at baud, 8N1.
func SerialOpener(port string, baud uint) Opener {
	return func() (io.ReadCloser, error) {
		rwc, err := serial.Open(serial.OpenOptions{
			PortName:        port,
			BaudRate:        baud,
			DataBits:        8,
			StopBits:        1,
			MinimumReadSize: 1,
			ParityMode:      serial.PARITY_NONE,
		})
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", port, err)
		}
		slog.Info("GPS serial port opened", "port", port, "baud", baud)
		return rwc, nil
	}
}

// Receiver implements sensor.GPSReceiver. A fix is emitted for every valid
// RMC sentence, carrying the altitude of the GGA sentence with the same UTC
// time, if any.
type Receiver struct {
	open Opener

	mu   sync.Mutex
	port io.ReadCloser
	done chan struct{}
}

// New creates a receiver reading from open.
func New(open Opener) *Receiver {
	return &Receiver{open: open}
}

func (r *Receiver) Watch(onFix func(sensor.Fix), onError func(error)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.port != nil {
		return errors.New("gps: already watching")
	}
	port, err := r.open()
	if err != nil {
		return err
	}
	r.port = port
	r.done = make(chan struct{})
	go r.readLoop(port, r.done, onFix, onError)
	return nil
}

// ClearWatch closes the port and waits for the reader to exit.
func (r *Receiver) ClearWatch() {
	r.mu.Lock()
	port, done := r.port, r.done
	r.port, r.done = nil, nil
	r.mu.Unlock()
	if port == nil {
		return
	}
	if err := port.Close(); err != nil {
		slog.Debug("GPS: close failed", "error", err)
	}
	<-done
}

func (r *Receiver) readLoop(port io.Reader, done chan struct{}, onFix func(sensor.Fix), onError func(error)) {
	defer close(done)

	var p parser
	scanner := bufio.NewScanner(port)
	for scanner.Scan() {
		fixes, err := p.feed(scanner.Text())
		for _, f := range fixes {
			onFix(f)
		}
		if err != nil {
			onError(err)
		}
	}
	if f, ok := p.flush(); ok {
		onFix(f)
	}
	if err := scanner.Err(); err != nil && !r.closed(done) {
		onError(fmt.Errorf("gps read: %w", err))
	}
}

// closed reports whether ClearWatch has detached this loop.
func (r *Receiver) closed(done chan struct{}) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done != done
}

type fixState int

const (
	fixUnknown fixState = iota
	fixValid
	fixVoid
)

// parser folds GGA altitude into RMC fixes, pairing the two sentences by
// their UTC time. A valid RMC is held back until the GGA of its epoch
// arrives, unless that GGA came first or the receiver sends no GGA at all.
type parser struct {
	sawGGA  bool
	ggaTime nmea.Time
	ggaAlt  *float64

	pending *nmea.RMC
	state   fixState
}

func (p *parser) feed(line string) ([]sensor.Fix, error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "$") {
		return nil, nil
	}

	s, err := nmea.Parse(line)
	if err != nil {
		logging.TraceDefault("GPS: unparsable sentence", "line", line, "error", err)
		return nil, nil
	}

	switch s.DataType() {
	case nmea.TypeGGA:
		return p.gga(s.(nmea.GGA)), nil
	case nmea.TypeRMC:
		return p.rmc(s.(nmea.RMC))
	}
	return nil, nil
}

func (p *parser) gga(m nmea.GGA) []sensor.Fix {
	p.sawGGA = true
	p.ggaTime = m.Time
	p.ggaAlt = nil
	if m.FixQuality != nmea.Invalid {
		p.ggaAlt = sensor.Float(m.Altitude)
	}

	if p.pending == nil {
		return nil
	}
	rmc := *p.pending
	p.pending = nil
	if rmc.Time == m.Time {
		return []sensor.Fix{toFix(rmc, p.ggaAlt)}
	}
	return []sensor.Fix{toFix(rmc, nil)}
}

func (p *parser) rmc(m nmea.RMC) ([]sensor.Fix, error) {
	var out []sensor.Fix
	if f, ok := p.flush(); ok {
		out = append(out, f)
	}

	if m.Validity != nmea.ValidRMC {
		if p.state == fixVoid {
			logging.TraceDefault("GPS: still no fix", "time", m.Time.String())
			return out, nil
		}
		p.state = fixVoid
		return out, ErrNoFix
	}
	p.state = fixValid

	switch {
	case !p.sawGGA:
		out = append(out, toFix(m, nil))
	case p.ggaTime == m.Time:
		out = append(out, toFix(m, p.ggaAlt))
	default:
		p.pending = &m
	}
	return out, nil
}

// flush releases a held RMC whose GGA never arrived.
func (p *parser) flush() (sensor.Fix, bool) {
	if p.pending == nil {
		return sensor.Fix{}, false
	}
	f := toFix(*p.pending, nil)
	p.pending = nil
	return f, true
}

func toFix(m nmea.RMC, alt *float64) sensor.Fix {
	return sensor.Fix{
		Latitude:  m.Latitude,
		Longitude: m.Longitude,
		Altitude:  alt,
		Speed:     sensor.Float(m.Speed * knotsToMS),
		Timestamp: timestamp(m.Date, m.Time),
	}
}

func timestamp(d nmea.Date, t nmea.Time) int64 {
	if !d.Valid || !t.Valid {
		return time.Now().UnixMilli()
	}
	return time.Date(2000+d.YY, time.Month(d.MM), d.DD,
		t.Hour, t.Minute, t.Second, t.Millisecond*int(time.Millisecond), time.UTC).UnixMilli()
}
