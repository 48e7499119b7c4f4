package vario

import (
	"math"
	"testing"
)

func TestSmoother_FirstSampleInitializes(t *testing.T) {
	s := NewSmoother(0.2)
	if _, ok := s.Value(); ok {
		t.Fatal("expected unprimed smoother")
	}
	if got := s.Update(500); got != 500 {
		t.Errorf("first update = %.2f, want 500", got)
	}
	if got := s.Update(600); math.Abs(got-520) > 1e-9 {
		t.Errorf("second update = %.4f, want 520", got)
	}
}

func TestSmoother_Convergence(t *testing.T) {
	s := NewSmoother(0.2)
	s.Update(0)

	const target = 100.0
	for n := 1; n <= 40; n++ {
		got := s.Update(target)
		wantErr := target * math.Pow(0.8, float64(n))
		if math.Abs((target-got)-wantErr) > 1e-9 {
			t.Fatalf("step %d: error %.6f, want %.6f", n, target-got, wantErr)
		}
	}
	if v, _ := s.Value(); math.Abs(v-target) > 0.02 {
		t.Errorf("not converged after 40 samples: %.4f", v)
	}
}

func TestSmoother_AlphaFallbackAndReset(t *testing.T) {
	tests := []struct {
		name  string
		alpha float64
		want  float64
	}{
		{"Zero", 0, DefaultAlpha},
		{"Negative", -1, DefaultAlpha},
		{"Above one", 1.5, DefaultAlpha},
		{"Valid", 0.5, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSmoother(tt.alpha)
			if s.Alpha() != tt.want {
				t.Errorf("Alpha() = %v, want %v", s.Alpha(), tt.want)
			}
			s.Update(10)
			s.Reset()
			if _, ok := s.Value(); ok {
				t.Error("expected unprimed smoother after Reset")
			}
		})
	}
}
