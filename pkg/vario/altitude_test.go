package vario

import (
	"math"
	"testing"
)

func TestPressureToAltitude(t *testing.T) {
	tests := []struct {
		name     string
		pressure float64
		want     float64
		tol      float64
	}{
		{"Sea level", 1013.25, 0, 1e-9},
		{"Roughly 1000 m", 898.75, 1000, 5},
		{"Roughly 3000 m", 701.12, 3000, 10},
		{"Below sea level", 1020, -56, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PressureToAltitude(tt.pressure)
			if math.Abs(got-tt.want) > tt.tol {
				t.Errorf("PressureToAltitude(%.2f) = %.2f, want %.2f ±%.1f", tt.pressure, got, tt.want, tt.tol)
			}
		})
	}
}

func TestPressureToAltitude_Monotonic(t *testing.T) {
	prev := PressureToAltitude(1050)
	for p := 1049.0; p > 300; p -= 7 {
		alt := PressureToAltitude(p)
		if alt <= prev {
			t.Fatalf("altitude must increase as pressure drops: p=%.1f alt=%.2f prev=%.2f", p, alt, prev)
		}
		prev = alt
	}
}

func TestAltitudeToPressure_Inverse(t *testing.T) {
	for _, alt := range []float64{-100, 0, 500, 1800, 4500} {
		p := AltitudeToPressure(alt)
		if got := PressureToAltitude(p); math.Abs(got-alt) > 1e-6 {
			t.Errorf("round trip %.1f m -> %.4f hPa -> %.6f m", alt, p, got)
		}
	}
}
