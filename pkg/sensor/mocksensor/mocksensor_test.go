package mocksensor

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skyvario/pkg/geo"
	"skyvario/pkg/sensor"
	"skyvario/pkg/vario"
)

var (
	_ sensor.BarometerSource   = (*Barometer)(nil)
	_ sensor.GPSReceiver       = (*GPS)(nil)
	_ sensor.Accelerometer     = (*Accelerometer)(nil)
	_ sensor.LightSensor       = (*Light)(nil)
	_ sensor.ProximitySensor   = (*Proximity)(nil)
	_ sensor.PermissionChecker = Permission{}
)

func testOptions(scenario string) Options {
	return Options{
		StartLat:      46.6863,
		StartLon:      7.8632,
		StartAlt:      1800,
		StartHeading:  90,
		Airspeed:      10,
		Scenario:      scenario,
		PhaseDuration: 10 * time.Second,
		Lux:           25000,
	}
}

func TestGlider_Scenarios(t *testing.T) {
	tests := []struct {
		name      string
		scenario  string
		wantClimb float64
		wantPhase string
	}{
		{"thermal starts circling", ScenarioThermal, 2.0, "circling"},
		{"default is thermal", "", 2.0, "circling"},
		{"glide", ScenarioGlide, -1.0, "glide"},
		{"sink", ScenarioSink, -3.5, "sink"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := NewGlider(testOptions(tt.scenario))
			require.NoError(t, err)

			for range 50 {
				g.Step(100 * time.Millisecond)
			}
			st := g.State()
			assert.Equal(t, tt.wantPhase, st.Phase)
			assert.InDelta(t, 1800+tt.wantClimb*5, st.Altitude, 1e-9)
		})
	}
}

func TestGlider_UnknownScenario(t *testing.T) {
	_, err := NewGlider(testOptions("aerobatics"))
	assert.Error(t, err)
}

func TestGlider_PhaseCycle(t *testing.T) {
	g, err := NewGlider(testOptions(ScenarioThermal))
	require.NoError(t, err)

	circling := g.State()
	assert.Greater(t, circling.Load, 1.0, "turning raises the load factor")

	for range 100 {
		g.Step(100 * time.Millisecond)
	}
	st := g.State()
	assert.Equal(t, "glide", st.Phase)
	assert.Equal(t, 1.0, st.Load)

	for range 100 {
		g.Step(100 * time.Millisecond)
	}
	assert.Equal(t, "circling", g.State().Phase)
}

func TestGlider_MovesAtAirspeed(t *testing.T) {
	g, err := NewGlider(testOptions(ScenarioGlide))
	require.NoError(t, err)
	start := g.State()

	for range 10 {
		g.Step(time.Second)
	}
	st := g.State()
	d := geo.Distance(geo.Point{Lat: start.Latitude, Lon: start.Longitude}, geo.Point{Lat: st.Latitude, Lon: st.Longitude})
	assert.InDelta(t, 100, d, 0.5)
	assert.InDelta(t, 90, st.Heading, 1e-9)
}

func TestSensors_Samples(t *testing.T) {
	rig, err := New(testOptions(ScenarioGlide), nil, nil)
	require.NoError(t, err)
	defer rig.Close()

	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	r := rig.Barometer.Sample(at)
	assert.InDelta(t, 1800, vario.PressureToAltitude(r.Pressure), 1e-6)
	assert.Equal(t, at.UnixMilli(), r.Timestamp)

	fix := rig.GPS.Sample(at)
	require.NotNil(t, fix.Altitude)
	require.NotNil(t, fix.Speed)
	assert.InDelta(t, 1800, *fix.Altitude, 5)
	assert.Equal(t, 10.0, *fix.Speed)

	a := rig.Accelerometer.Sample()
	assert.InDelta(t, 9.80665, math.Sqrt(a.X*a.X+a.Y*a.Y+a.Z*a.Z), 0.5)
}

func TestBarometer_Streams(t *testing.T) {
	rig, err := New(testOptions(ScenarioGlide), nil, nil)
	require.NoError(t, err)
	defer rig.Close()

	got := make(chan sensor.PressureReading, 16)
	require.NoError(t, rig.Barometer.Start(100, func(r sensor.PressureReading) {
		select {
		case got <- r:
		default:
		}
	}))
	assert.ErrorIs(t, rig.Barometer.Start(100, func(sensor.PressureReading) {}), errRunning)

	for range 3 {
		select {
		case <-got:
		case <-time.After(time.Second):
			t.Fatal("no pressure reading")
		}
	}
	rig.Barometer.Stop()
	rig.Barometer.Stop()

	assert.ErrorIs(t, rig.Barometer.Start(0, func(sensor.PressureReading) {}), errRate)
}

func TestNew_DisableAndFail(t *testing.T) {
	rig, err := New(testOptions(ScenarioThermal), []string{"gps", "light"}, []string{"barometer"})
	require.NoError(t, err)
	defer rig.Close()

	s := rig.Suite
	assert.False(t, s.Has(sensor.GPS))
	assert.False(t, s.Has(sensor.Light))
	assert.True(t, s.Has(sensor.Barometer))
	assert.True(t, s.Has(sensor.IMU))
	assert.True(t, s.Has(sensor.Proximity))

	err = s.Barometer.Start(60, func(sensor.PressureReading) {})
	assert.ErrorContains(t, err, "simulated barometer failure")

	ok, err := s.Permission.Query(context.Background())
	assert.True(t, ok)
	assert.NoError(t, err)

	_, err = New(testOptions(ScenarioThermal), []string{"sonar"}, nil)
	assert.Error(t, err)
}

func TestProximity_Cover(t *testing.T) {
	p := &Proximity{}
	assert.False(t, p.Cover(true), "no listener yet")

	var events []bool
	require.NoError(t, p.Start(func(e sensor.ProximityEvent) { events = append(events, e.Near) }))
	assert.True(t, p.Cover(true))
	assert.True(t, p.Cover(false))
	p.Stop()
	assert.False(t, p.Cover(true))

	assert.Equal(t, []bool{true, false}, events)
}
