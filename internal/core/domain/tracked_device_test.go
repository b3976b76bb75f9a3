package domain

import (
	"testing"
	"time"

	"github.com/lcalzada-xor/tailwatch/internal/geo"
	"github.com/stretchr/testify/assert"
)

func TestRing_OverwritesOldest(t *testing.T) {
	r := NewRing[int](3)
	for i := 1; i <= 5; i++ {
		r.Push(i)
	}

	assert.Equal(t, 3, r.Len())
	assert.Equal(t, 3, r.Cap())
	assert.Equal(t, []int{3, 4, 5}, r.Items())

	last, ok := r.Last()
	assert.True(t, ok)
	assert.Equal(t, 5, last)
}

func TestRing_Empty(t *testing.T) {
	r := NewRing[string](2)
	_, ok := r.Last()
	assert.False(t, ok)
	assert.Empty(t, r.Items())
}

func TestTrackedDevice_Observe(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	d := NewTrackedDevice("dev-1", "fp", 2, start)

	loc := geo.Location{Latitude: 1, Longitude: 1}
	d.Observe(SightingRecord{Address: "AA", Timestamp: start})
	d.Observe(SightingRecord{Address: "BB", Timestamp: start.Add(time.Minute), Location: &loc})
	d.Observe(SightingRecord{Address: "AA", Timestamp: start.Add(2 * time.Minute)})

	assert.Equal(t, []string{"AA", "BB"}, d.Addresses, "address set is append-only and deduplicated")
	assert.Equal(t, 2, d.Sightings.Len(), "history is bounded by capacity")
	assert.Equal(t, 2*time.Minute, d.TrackedDuration())
	assert.Equal(t, &loc, d.LastLocation())
	assert.Equal(t, 1, d.UniqueLocationCount())
}
