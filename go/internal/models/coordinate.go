package models

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mcdev12/geoduel/go/internal/geo"
)

// Coordinate is a latitude/longitude pair in degrees.
type Coordinate struct {
	Lat float64 `json:"x" validate:"gte=-90,lte=90"`
	Lng float64 `json:"y" validate:"gte=-180,lte=180"`
}

func NewCoordinate(lat, lng float64) Coordinate {
	return Coordinate{Lat: lat, Lng: lng}
}

// DistanceTo returns the great-circle distance to other in kilometers.
func (c Coordinate) DistanceTo(other Coordinate) float64 {
	return geo.DistanceKm(c.Lat, c.Lng, other.Lat, other.Lng)
}

// String encodes the coordinate as "lat,lng", the storage format for guesses and answers.
func (c Coordinate) String() string {
	return strconv.FormatFloat(c.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(c.Lng, 'f', -1, 64)
}

// ParseCoordinate reads the "lat,lng" form written by String.
func ParseCoordinate(s string) (Coordinate, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return Coordinate{}, fmt.Errorf("invalid coordinate %q", s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return Coordinate{}, fmt.Errorf("invalid latitude in %q: %w", s, err)
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return Coordinate{}, fmt.Errorf("invalid longitude in %q: %w", s, err)
	}
	return Coordinate{Lat: lat, Lng: lng}, nil
}

// PointsFor scores a guess against the answer. A missing guess scores zero.
func PointsFor(guess Optional[Coordinate], answer Coordinate) int {
	g, ok := guess.Get()
	if !ok {
		return 0
	}
	return geo.Points(g.DistanceTo(answer))
}

// Location is a round's target as served by the location provider.
type Location struct {
	Coordinate Coordinate `json:"coordinate"`
	Heading    int        `json:"heading"`
	Pitch      int        `json:"pitch"`
	Name       string     `json:"name,omitempty"`
}
