// Package flight owns the flight session: it brings sensors up and down,
// fuses their readings into a Snapshot and drives the audio synthesizer.
package flight

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"skyvario/pkg/audio"
	"skyvario/pkg/clock"
	"skyvario/pkg/igc"
	"skyvario/pkg/logging"
	"skyvario/pkg/sensor"
	"skyvario/pkg/vario"
)

var (
	// ErrPermissionDenied is returned by Start when the user refused sensor access.
	ErrPermissionDenied = errors.New("flight: sensor permission denied")
	// ErrNotActive is returned by operations that need a running session.
	ErrNotActive = errors.New("flight: no active session")
)

const (
	DefaultBarometerRate = 60 // Hz
	DefaultAccelRate     = 10 // Hz

	// GForceThreshold is the load factor treated as a turn entry.
	GForceThreshold = 1.5
	standardGravity = 9.81
)

// Messages surfaced to the pilot.
const (
	msgPermissionDenied = "Sensor permissions not granted. Please allow access."
	msgNoPermissionAPI  = "Generic Sensor API not supported. Using fallbacks."
	msgBaroFailed       = "Barometer failed to start. Vario will use GPS (less accurate)."
	msgNotEnoughTrack   = "Not enough track data to generate IGC file."
	msgAudioUnavailable = "Audio output not available."
)

// Options tunes a Controller. Zero values fall back to defaults.
type Options struct {
	BarometerRate  int
	AccelRate      int
	SmoothingAlpha float64
	HistorySize    int
	Clock          clock.Clock
	Header         igc.Header
}

// Export is an encoded flight log ready to be saved.
type Export struct {
	FileName string
	Start    time.Time
	Data     []byte
}

// Controller is the flight session state machine (idle, active).
//
// Every reading is applied under a single lock. Callbacks handed to sensors
// carry the session generation they were registered for and are ignored once
// that session has ended.
type Controller struct {
	lifecycle sync.Mutex // serializes Start and Stop

	mu    sync.Mutex
	suite *sensor.Suite
	avail *sensor.Availability
	synth *audio.Synthesizer
	clk   clock.Clock
	opts  Options

	active     bool
	gen        uint64
	sessionID  string
	startedAt  time.Time
	permission bool
	stoppers   []func()

	est     *vario.Estimator
	history *vario.History
	snap    Snapshot
	theme   Theme
	track   []igc.Fix

	messages MessageLog
}

// NewController creates an idle controller for the given host suite.
func NewController(suite *sensor.Suite, synth *audio.Synthesizer, opts Options) *Controller {
	if suite == nil {
		suite = &sensor.Suite{}
	}
	if opts.BarometerRate <= 0 {
		opts.BarometerRate = DefaultBarometerRate
	}
	if opts.AccelRate <= 0 {
		opts.AccelRate = DefaultAccelRate
	}
	if opts.HistorySize <= 0 {
		opts.HistorySize = vario.DefaultHistorySize
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	return &Controller{
		suite:   suite,
		avail:   sensor.NewAvailability(suite),
		synth:   synth,
		clk:     opts.Clock,
		opts:    opts,
		est:     vario.NewEstimator(opts.SmoothingAlpha),
		history: vario.NewHistory(opts.HistorySize),
		theme:   ThemeDark,
	}
}

// Start begins a session. A denied permission is the only hard failure;
// every sensor is brought up independently and the session proceeds with
// whatever subset works, down to none at all.
func (c *Controller) Start(ctx context.Context) error {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	c.mu.Lock()
	if c.active {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	if perm := c.suite.Permission; perm != nil {
		granted, err := perm.Query(ctx)
		switch {
		case err != nil:
			slog.Warn("Flight: permission query failed", "error", err)
			c.addMessage(msgNoPermissionAPI)
		case !granted:
			c.addMessage(msgPermissionDenied)
			return ErrPermissionDenied
		default:
			c.mu.Lock()
			c.permission = true
			c.mu.Unlock()
		}
	}

	c.mu.Lock()
	c.gen++
	gen := c.gen
	c.active = true
	c.sessionID = uuid.NewString()
	c.startedAt = c.clk.Now()
	c.est.Reset()
	c.history.Reset()
	c.snap = Snapshot{Timestamp: c.startedAt.UnixMilli()}
	c.track = nil
	c.stoppers = nil
	sessionID := c.sessionID
	c.mu.Unlock()

	if c.synth != nil {
		if err := c.synth.Start(); err != nil {
			slog.Warn("Flight: audio failed to start", "error", err)
			c.addMessage(msgAudioUnavailable)
		}
	}

	c.startBarometer(gen)
	c.startAccelerometer(gen)
	c.startGPS(gen)
	c.startLight(gen)
	c.startProximity(gen)

	slog.Info("Flight: session started", "session", sessionID, "sensors", c.avail.Snapshot())
	logging.LogEvent(&logging.Event{Time: c.clk.Now(), Type: "session", Title: "Flight started", Summary: sessionID})
	return nil
}

// startable checks whether k may be started, reporting an absent capability.
// Light and proximity are extras and stay quiet.
func (c *Controller) startable(k sensor.Kind) bool {
	if c.avail.Get(k) == sensor.StateUnavailable {
		if !optional(k) {
			c.addMessage(k.Label() + " not available.")
		}
		return false
	}
	return true
}

func optional(k sensor.Kind) bool {
	return k == sensor.Light || k == sensor.Proximity
}

func (c *Controller) started(k sensor.Kind, stop func()) {
	c.mu.Lock()
	c.stoppers = append(c.stoppers, stop)
	c.mu.Unlock()
	if k != sensor.GPS {
		c.avail.MarkActive(k)
	}
}

func (c *Controller) failed(k sensor.Kind, err error, msg string) {
	c.avail.MarkUnavailable(k)
	slog.Warn("Flight: sensor failed to start", "sensor", k, "error", err)
	if msg != "" {
		c.addMessage(msg)
	}
}

func (c *Controller) startBarometer(gen uint64) {
	if !c.startable(sensor.Barometer) {
		return
	}
	b := c.suite.Barometer
	err := b.Start(c.opts.BarometerRate, func(r sensor.PressureReading) { c.handlePressure(gen, r) })
	if err != nil {
		c.failed(sensor.Barometer, err, msgBaroFailed)
		return
	}
	c.started(sensor.Barometer, b.Stop)
}

func (c *Controller) startAccelerometer(gen uint64) {
	if !c.startable(sensor.IMU) {
		return
	}
	a := c.suite.Accelerometer
	err := a.Start(c.opts.AccelRate, func(r sensor.Acceleration) { c.handleAcceleration(gen, r) })
	if err != nil {
		c.failed(sensor.IMU, err, sensor.IMU.Label()+" not available.")
		return
	}
	c.started(sensor.IMU, a.Stop)
}

// startGPS registers the watch. GPS only turns active on its first fix.
func (c *Controller) startGPS(gen uint64) {
	if !c.startable(sensor.GPS) {
		return
	}
	g := c.suite.GPS
	err := g.Watch(
		func(f sensor.Fix) { c.handleFix(gen, f) },
		func(err error) { c.handleFixError(gen, err) },
	)
	if err != nil {
		c.failed(sensor.GPS, err, "GPS failed to start.")
		return
	}
	c.started(sensor.GPS, g.ClearWatch)
}

func (c *Controller) startLight(gen uint64) {
	if !c.startable(sensor.Light) {
		return
	}
	l := c.suite.Light
	if err := l.Start(func(r sensor.Illuminance) { c.handleLight(gen, r) }); err != nil {
		c.failed(sensor.Light, err, "")
		return
	}
	c.started(sensor.Light, l.Stop)
}

func (c *Controller) startProximity(gen uint64) {
	if !c.startable(sensor.Proximity) {
		return
	}
	p := c.suite.Proximity
	if err := p.Start(func(r sensor.ProximityEvent) { c.handleProximity(gen, r) }); err != nil {
		c.failed(sensor.Proximity, err, "")
		return
	}
	c.started(sensor.Proximity, p.Stop)
}

// Stop ends the session. Every subscription is halted before Stop returns and
// late callbacks from the ended session are discarded. Mute preference,
// unavailable classifications and the track log survive.
func (c *Controller) Stop() {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	c.mu.Lock()
	if !c.active {
		c.mu.Unlock()
		return
	}
	c.active = false
	c.gen++
	stoppers := c.stoppers
	c.stoppers = nil
	sessionID := c.sessionID
	points := len(c.track)
	c.mu.Unlock()

	// sources may be waiting on c.mu inside a callback; stop them unlocked
	for i := len(stoppers) - 1; i >= 0; i-- {
		stoppers[i]()
	}
	if c.synth != nil {
		c.synth.Stop()
	}

	c.mu.Lock()
	c.avail.Demote()
	c.est.Reset()
	c.history.Reset()
	c.snap.VerticalSpeed = 0
	c.snap.GlideRatio = 0
	c.snap.GForce = 0
	c.mu.Unlock()

	slog.Info("Flight: session stopped", "session", sessionID, "track_points", points)
	logging.LogEvent(&logging.Event{Time: c.clk.Now(), Type: "session", Title: "Flight stopped", Summary: sessionID})
}

// Active reports whether a session is running.
func (c *Controller) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// accept must be called with c.mu held.
func (c *Controller) accept(gen uint64) bool {
	return c.active && c.gen == gen
}

func (c *Controller) currentGen() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

// HandlePressure applies a barometer reading to the running session.
func (c *Controller) HandlePressure(r sensor.PressureReading) { c.handlePressure(c.currentGen(), r) }

// HandleFix applies a GPS fix to the running session.
func (c *Controller) HandleFix(f sensor.Fix) { c.handleFix(c.currentGen(), f) }

// HandleFixError records a transient GPS error.
func (c *Controller) HandleFixError(err error) { c.handleFixError(c.currentGen(), err) }

// HandleAcceleration applies an accelerometer reading.
func (c *Controller) HandleAcceleration(a sensor.Acceleration) {
	c.handleAcceleration(c.currentGen(), a)
}

// HandleLight applies an ambient light reading.
func (c *Controller) HandleLight(l sensor.Illuminance) { c.handleLight(c.currentGen(), l) }

// HandleProximity applies a proximity event. It reports whether mute was toggled.
func (c *Controller) HandleProximity(p sensor.ProximityEvent) bool {
	return c.handleProximity(c.currentGen(), p)
}

func (c *Controller) handlePressure(gen uint64, r sensor.PressureReading) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.accept(gen) {
		return
	}

	est := c.est.UpdatePressure(vario.PressureSample{Pressure: r.Pressure, Timestamp: r.Timestamp})
	if alt, ok := c.est.SmoothedAltitude(); ok {
		c.snap.AltitudeBaro = alt
	}
	if !est.Emitted {
		return
	}
	c.emitLocked(est.VerticalSpeed, c.snap.GroundSpeed)
	logging.TraceDefault("Flight: baro vario", "vs", est.VerticalSpeed, "alt", est.Altitude)
}

func (c *Controller) handleFix(gen uint64, f sensor.Fix) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.accept(gen) {
		return
	}

	if c.avail.MarkActive(sensor.GPS) {
		slog.Info("Flight: GPS fix acquired", "lat", f.Latitude, "lon", f.Longitude)
	}

	var alt float64
	hasAlt := f.Altitude != nil
	if hasAlt {
		alt = *f.Altitude
		hasAlt = !math.IsNaN(alt) && !math.IsInf(alt, 0)
	}
	groundSpeed := 0.0
	if f.Speed != nil && *f.Speed > 0 && !math.IsInf(*f.Speed, 0) {
		groundSpeed = *f.Speed
	}

	est := c.est.UpdatePosition(alt, hasAlt, f.Timestamp)
	if est.Emitted && vario.SelectSource(c.avail.Get(sensor.Barometer)) == vario.SourceGPS {
		c.emitLocked(est.VerticalSpeed, groundSpeed)
	}

	if hasAlt {
		c.snap.AltitudeGPS = alt
	}
	c.snap.GroundSpeed = groundSpeed
	c.snap.Latitude = f.Latitude
	c.snap.Longitude = f.Longitude
	c.snap.Timestamp = f.Timestamp
}

// emitLocked publishes a new vertical speed from the authoritative source.
func (c *Controller) emitLocked(vs, groundSpeed float64) {
	c.snap.VerticalSpeed = vs
	c.snap.GlideRatio = vario.GlideRatio(groundSpeed, vs)
	c.history.Push(vario.HistoryPoint{Time: c.clk.Now().UnixMilli(), VZ: vs})
	if c.synth != nil {
		c.synth.Update(vs)
	}
}

func (c *Controller) handleFixError(gen uint64, err error) {
	c.mu.Lock()
	ok := c.accept(gen)
	c.mu.Unlock()
	if !ok || err == nil {
		return
	}
	c.addMessage("GPS Error: " + err.Error())
}

func (c *Controller) handleAcceleration(gen uint64, a sensor.Acceleration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.accept(gen) {
		return
	}
	g := math.Sqrt(a.X*a.X+a.Y*a.Y+a.Z*a.Z) / standardGravity
	c.snap.GForce = g
	if g > GForceThreshold {
		c.compensate(g)
	}
}

// compensate is the hook for damping vario spikes during turn entry.
// It is intentionally a no-op: no compensation model is implemented.
func (c *Controller) compensate(g float64) {
	logging.TraceDefault("Flight: load factor above threshold", "g", g)
}

func (c *Controller) handleLight(gen uint64, l sensor.Illuminance) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.accept(gen) {
		return
	}
	if t := ThemeFor(l.Lux); t != c.theme {
		slog.Debug("Flight: theme changed", "theme", t, "lux", l.Lux)
		c.theme = t
	}
}

func (c *Controller) handleProximity(gen uint64, p sensor.ProximityEvent) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.accept(gen) || c.synth == nil {
		return false
	}
	return c.synth.HandleProximity(p.Near)
}

// ToggleMute flips the audio mute preference and returns the new value.
func (c *Controller) ToggleMute() bool {
	if c.synth == nil {
		return false
	}
	return c.synth.ToggleMute()
}

// IsMuted reports the audio mute preference.
func (c *Controller) IsMuted() bool {
	return c.synth != nil && c.synth.IsMuted()
}

// Snapshot returns the current composed reading.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	s := c.snap
	s.SessionID = c.sessionID
	s.History = c.history.Points()
	s.Source = vario.SelectSource(c.avail.Get(sensor.Barometer))
	if c.synth != nil {
		s.IsMuted = c.synth.IsMuted()
	}
	return s
}

// Status returns sensor availability and diagnostics.
func (c *Controller) Status() Status {
	c.mu.Lock()
	st := Status{
		Active:            c.active,
		SessionID:         c.sessionID,
		PermissionGranted: c.permission,
		Theme:             c.theme,
	}
	c.mu.Unlock()
	st.Sensors = c.avail.Snapshot()
	st.Messages = c.messages.Messages()
	return st
}

// Messages returns the retained diagnostic messages.
func (c *Controller) Messages() []string {
	return c.messages.Messages()
}

func (c *Controller) addMessage(msg string) {
	c.messages.Add(msg)
	slog.Warn("Flight: " + msg)
	logging.LogEvent(&logging.Event{Time: c.clk.Now(), Type: "message", Title: msg})
}

// RecordTrackPoint appends the current position to the track log.
func (c *Controller) RecordTrackPoint() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.active {
		return ErrNotActive
	}
	c.track = append(c.track, igc.Fix{
		Time:         c.clk.Now(),
		Latitude:     c.snap.Latitude,
		Longitude:    c.snap.Longitude,
		BaroAltitude: c.snap.AltitudeBaro,
		GPSAltitude:  c.snap.AltitudeGPS,
	})
	return nil
}

// Track returns a copy of the track log of the current or last session.
func (c *Controller) Track() []igc.Fix {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]igc.Fix(nil), c.track...)
}

// ExportIGC encodes the track log. With fewer than two points the export is
// refused with igc.ErrInsufficientData and a notice.
func (c *Controller) ExportIGC() (Export, error) {
	c.mu.Lock()
	track := append([]igc.Fix(nil), c.track...)
	start := c.startedAt
	c.mu.Unlock()

	data, err := igc.Encode(c.opts.Header, track)
	if err != nil {
		if errors.Is(err, igc.ErrInsufficientData) {
			c.addMessage(msgNotEnoughTrack)
		}
		return Export{}, err
	}
	return Export{FileName: igc.FileName(start), Start: start, Data: data}, nil
}
