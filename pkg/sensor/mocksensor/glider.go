// Package mocksensor simulates a glider in flight and exposes it through the
// sensor capability interfaces, so the instrument can run without hardware.
package mocksensor

import (
	"fmt"
	"math"
	"sync"
	"time"

	"skyvario/pkg/geo"
)

const (
	// Scenarios
	ScenarioThermal = "thermal"
	ScenarioGlide   = "glide"
	ScenarioSink    = "sink"

	tickRateMs = 100
	gravity    = 9.80665
)

// Options configures the simulated flight.
type Options struct {
	StartLat      float64
	StartLon      float64
	StartAlt      float64 // m MSL
	StartHeading  float64 // degrees
	Airspeed      float64 // m/s
	Scenario      string
	PhaseDuration time.Duration
	NoiseHPa      float64
	Lux           float64
}

// State is the instantaneous glider state.
type State struct {
	Latitude    float64
	Longitude   float64
	Altitude    float64 // m MSL
	Heading     float64 // degrees
	GroundSpeed float64 // m/s
	Climb       float64 // m/s
	Load        float64 // g
	Phase       string
}

type phase struct {
	name     string
	climb    float64 // m/s
	turnRate float64 // deg/s
}

// Glider integrates a simple flight model through a repeating scenario.
type Glider struct {
	mu       sync.Mutex
	opts     Options
	state    State
	scenario []phase
	idx      int
	elapsed  time.Duration

	stopCh chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

// NewGlider creates a glider at the configured start position. The physics
// loop does not run until Run is called; Step advances it manually.
func NewGlider(opts Options) (*Glider, error) {
	sc, err := scenarioFor(opts.Scenario)
	if err != nil {
		return nil, err
	}
	if opts.PhaseDuration <= 0 {
		opts.PhaseDuration = 30 * time.Second
	}
	g := &Glider{
		opts:     opts,
		scenario: sc,
		stopCh:   make(chan struct{}),
		state: State{
			Latitude:    opts.StartLat,
			Longitude:   opts.StartLon,
			Altitude:    opts.StartAlt,
			Heading:     opts.StartHeading,
			GroundSpeed: opts.Airspeed,
			Load:        1,
		},
	}
	g.applyPhase()
	return g, nil
}

func scenarioFor(name string) ([]phase, error) {
	switch name {
	case ScenarioThermal, "":
		return []phase{
			{name: "circling", climb: 2.0, turnRate: 15},
			{name: "glide", climb: -1.2},
		}, nil
	case ScenarioGlide:
		return []phase{{name: "glide", climb: -1.0}}, nil
	case ScenarioSink:
		return []phase{
			{name: "sink", climb: -3.5},
			{name: "glide", climb: -1.0},
		}, nil
	}
	return nil, fmt.Errorf("unknown scenario %q", name)
}

// Run starts the physics loop.
func (g *Glider) Run() {
	g.wg.Add(1)
	go g.physicsLoop()
}

// Close stops the physics loop and waits for it to exit.
func (g *Glider) Close() error {
	g.once.Do(func() { close(g.stopCh) })
	g.wg.Wait()
	return nil
}

func (g *Glider) physicsLoop() {
	defer g.wg.Done()
	ticker := time.NewTicker(time.Duration(tickRateMs) * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-g.stopCh:
			return
		case <-ticker.C:
			g.Step(time.Duration(tickRateMs) * time.Millisecond)
		}
	}
}

// Step advances the model by dt.
func (g *Glider) Step(dt time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.elapsed += dt
	if g.elapsed >= g.opts.PhaseDuration {
		g.elapsed = 0
		g.idx = (g.idx + 1) % len(g.scenario)
		g.applyPhase()
	}

	p := g.scenario[g.idx]
	sec := dt.Seconds()

	g.state.Heading = math.Mod(g.state.Heading+p.turnRate*sec+360, 360)
	g.state.Altitude += p.climb * sec

	pos := geo.DestinationPoint(
		geo.Point{Lat: g.state.Latitude, Lon: g.state.Longitude},
		g.opts.Airspeed*sec,
		g.state.Heading,
	)
	g.state.Latitude = pos.Lat
	g.state.Longitude = pos.Lon
}

func (g *Glider) applyPhase() {
	p := g.scenario[g.idx]
	g.state.Phase = p.name
	g.state.Climb = p.climb
	g.state.GroundSpeed = g.opts.Airspeed

	// coordinated turn: tan(bank) = v*omega/g
	omega := p.turnRate * math.Pi / 180
	bank := math.Atan(g.opts.Airspeed * omega / gravity)
	g.state.Load = 1 / math.Cos(bank)
}

// State returns a copy of the current state.
func (g *Glider) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}
