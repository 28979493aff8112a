// Package geo holds the distance and scoring math used to grade guesses.
package geo

import (
	"math"

	"github.com/golang/geo/s2"
)

const (
	// EarthRadiusKm is the mean Earth radius used for every distance in the game.
	EarthRadiusKm = 6371.0

	// MaxPoints is awarded for a guess exactly on the answer.
	MaxPoints = 5000

	// decayKm controls how fast points fall off with distance.
	decayKm = 2000.0
)

// DistanceKm returns the great-circle distance between two lat/lng pairs in kilometers.
// The angle is taken between unit vectors, so antipodal points and pairs straddling the
// date line resolve to the shortest path.
func DistanceKm(lat1, lng1, lat2, lng2 float64) float64 {
	p1 := s2.PointFromLatLng(s2.LatLngFromDegrees(lat1, lng1))
	p2 := s2.PointFromLatLng(s2.LatLngFromDegrees(lat2, lng2))

	return p1.Distance(p2).Radians() * EarthRadiusKm
}

// Points converts a distance into a round score: round(5000 * e^(-d/2000)), never negative.
func Points(distanceKm float64) int {
	if distanceKm < 0 {
		distanceKm = 0
	}
	p := int(math.Round(MaxPoints * math.Exp(-distanceKm/decayKm)))
	if p < 0 {
		return 0
	}
	return p
}
