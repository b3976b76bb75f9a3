package geo

import (
	"math"

	"github.com/golang/geo/s2"
)

// EarthRadiusMeters is the mean Earth radius used for great-circle distances.
const EarthRadiusMeters = 6371000.0

// UniqueLocationThreshold is the minimum separation between two points for them
// to count as distinct places.
const UniqueLocationThreshold = 100.0

// Location represents a geographic coordinate.
type Location struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
}

// Provider defines the interface for obtaining the current location.
type Provider interface {
	GetLocation() Location
}

// StaticProvider implements Provider with a fixed location.
type StaticProvider struct {
	Lat float64
	Lng float64
}

// NewStaticProvider creates a provider that always returns the same location.
func NewStaticProvider(lat, lng float64) *StaticProvider {
	return &StaticProvider{
		Lat: lat,
		Lng: lng,
	}
}

// GetLocation returns the fixed location.
func (s *StaticProvider) GetLocation() Location {
	return Location{
		Latitude:  s.Lat,
		Longitude: s.Lng,
	}
}

// DistanceMeters returns the great-circle distance between two locations.
func DistanceMeters(a, b Location) float64 {
	p1 := s2.LatLngFromDegrees(a.Latitude, a.Longitude)
	p2 := s2.LatLngFromDegrees(b.Latitude, b.Longitude)
	return p1.Distance(p2).Radians() * EarthRadiusMeters
}

// Near reports whether b lies within threshold meters of a.
func (l Location) Near(b Location, threshold float64) bool {
	return DistanceMeters(l, b) < threshold
}

// Rounded snaps the coordinate to the given number of decimal places.
func (l Location) Rounded(decimals int) Location {
	scale := math.Pow(10, float64(decimals))
	return Location{
		Latitude:  math.Round(l.Latitude*scale) / scale,
		Longitude: math.Round(l.Longitude*scale) / scale,
	}
}

// UniqueLocations greedily clusters points: a point is kept only if it is at
// least threshold meters away from every point kept before it.
func UniqueLocations(points []Location, threshold float64) []Location {
	unique := make([]Location, 0, len(points))
	for _, p := range points {
		distinct := true
		for _, u := range unique {
			if p.Near(u, threshold) {
				distinct = false
				break
			}
		}
		if distinct {
			unique = append(unique, p)
		}
	}
	return unique
}

// CountUniqueLocations is UniqueLocations reduced to its size.
func CountUniqueLocations(points []Location, threshold float64) int {
	return len(UniqueLocations(points, threshold))
}
