package vario

import "math"

const (
	minGlideGroundSpeed = 1.0  // m/s
	minGlideSinkRate    = -0.1 // m/s
)

// GlideRatio returns distance flown per unit of height lost.
// It is 0 when the ratio is not meaningful: nearly stationary or not sinking.
func GlideRatio(groundSpeed, verticalSpeed float64) float64 {
	if groundSpeed > minGlideGroundSpeed && verticalSpeed < minGlideSinkRate {
		return math.Abs(groundSpeed / verticalSpeed)
	}
	return 0
}
