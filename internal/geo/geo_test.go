package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceMeters(t *testing.T) {
	a := Location{Latitude: 40.4168, Longitude: -3.7038}

	assert.InDelta(t, 0, DistanceMeters(a, a), 0.001)

	// One thousandth of a degree of latitude is roughly 111 m.
	b := Location{Latitude: 40.4178, Longitude: -3.7038}
	assert.InDelta(t, 111.2, DistanceMeters(a, b), 1.0)
}

func TestUniqueLocations(t *testing.T) {
	base := Location{Latitude: 51.5007, Longitude: -0.1246}

	tests := []struct {
		name   string
		points []Location
		want   int
	}{
		{"empty", nil, 0},
		{"single", []Location{base}, 1},
		{"within threshold", []Location{base, {Latitude: 51.5010, Longitude: -0.1246}}, 1},
		{"beyond threshold", []Location{base, {Latitude: 51.5020, Longitude: -0.1246}}, 2},
		{"four distinct", []Location{
			base,
			{Latitude: 51.5030, Longitude: -0.1246},
			{Latitude: 51.5060, Longitude: -0.1246},
			{Latitude: 51.5090, Longitude: -0.1246},
		}, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CountUniqueLocations(tt.points, UniqueLocationThreshold))
		})
	}
}

func TestRounded(t *testing.T) {
	l := Location{Latitude: 12.34567, Longitude: -7.65432}
	assert.Equal(t, Location{Latitude: 12.346, Longitude: -7.654}, l.Rounded(3))
}

func TestStaticProvider(t *testing.T) {
	p := NewStaticProvider(1.5, 2.5)
	assert.Equal(t, Location{Latitude: 1.5, Longitude: 2.5}, p.GetLocation())
}
