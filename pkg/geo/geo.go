// Package geo provides the great-circle helpers used for positions and tracks.
package geo

import (
	"math"

	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"
)

// Point represents a geographic coordinate.
type Point struct {
	Lat float64
	Lon float64
}

func (p Point) orb() orb.Point {
	return orb.Point{p.Lon, p.Lat}
}

func fromOrb(p orb.Point) Point {
	return Point{Lat: p.Lat(), Lon: p.Lon()}
}

// Distance returns the great-circle distance between two points in meters.
func Distance(p1, p2 Point) float64 {
	return orbgeo.Distance(p1.orb(), p2.orb())
}

// DestinationPoint returns the point distMeters away from start along the
// given bearing (degrees).
func DestinationPoint(start Point, distMeters, bearing float64) Point {
	return fromOrb(orbgeo.PointAtBearingAndDistance(start.orb(), bearing, distMeters))
}

// Bearing returns the initial bearing from p1 to p2 in degrees [0, 360).
func Bearing(p1, p2 Point) float64 {
	return math.Mod(orbgeo.Bearing(p1.orb(), p2.orb())+360.0, 360.0)
}

// NormalizeAngle normalizes an angle difference to the range [-180, 180].
func NormalizeAngle(angleDeg float64) float64 {
	for angleDeg > 180 {
		angleDeg -= 360
	}
	for angleDeg < -180 {
		angleDeg += 360
	}
	return angleDeg
}
