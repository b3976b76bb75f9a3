package domain

import (
	"time"

	"github.com/lcalzada-xor/tailwatch/internal/geo"
)

// Ring is a fixed-capacity buffer that overwrites its oldest element once full.
type Ring[T any] struct {
	items []T
	start int
	size  int
}

// NewRing allocates a ring holding at most capacity elements.
func NewRing[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring[T]{items: make([]T, capacity)}
}

// Push appends v, evicting the oldest element when the ring is full.
func (r *Ring[T]) Push(v T) {
	if r.size < len(r.items) {
		r.items[(r.start+r.size)%len(r.items)] = v
		r.size++
		return
	}
	r.items[r.start] = v
	r.start = (r.start + 1) % len(r.items)
}

// Len returns the number of stored elements.
func (r *Ring[T]) Len() int { return r.size }

// Cap returns the ring capacity.
func (r *Ring[T]) Cap() int { return len(r.items) }

// Items returns the stored elements oldest first.
func (r *Ring[T]) Items() []T {
	out := make([]T, r.size)
	for i := 0; i < r.size; i++ {
		out[i] = r.items[(r.start+i)%len(r.items)]
	}
	return out
}

// Last returns the most recently pushed element.
func (r *Ring[T]) Last() (T, bool) {
	var zero T
	if r.size == 0 {
		return zero, false
	}
	return r.items[(r.start+r.size-1)%len(r.items)], true
}

// SightingRecord is the slice of a sighting retained in a device's history.
type SightingRecord struct {
	Address   string        `json:"address"`
	RSSI      int           `json:"rssi"`
	Location  *geo.Location `json:"location,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// TrackedDevice is one inferred physical device, possibly seen under several addresses.
type TrackedDevice struct {
	ID          string
	Fingerprint string
	// Addresses is append-only, in order of first appearance.
	Addresses []string
	Sightings *Ring[SightingRecord]
	FirstSeen time.Time
	LastSeen  time.Time

	addressSet map[string]struct{}
}

// NewTrackedDevice creates an empty device with a sighting history of the given capacity.
func NewTrackedDevice(id, fingerprint string, capacity int, at time.Time) *TrackedDevice {
	return &TrackedDevice{
		ID:          id,
		Fingerprint: fingerprint,
		Addresses:   make([]string, 0, 4),
		Sightings:   NewRing[SightingRecord](capacity),
		FirstSeen:   at,
		LastSeen:    at,
		addressSet:  make(map[string]struct{}),
	}
}

// Observe folds a sighting into the device history.
func (d *TrackedDevice) Observe(rec SightingRecord) {
	if !d.HasAddress(rec.Address) {
		d.addressSet[rec.Address] = struct{}{}
		d.Addresses = append(d.Addresses, rec.Address)
	}
	d.Sightings.Push(rec)
	if rec.Timestamp.Before(d.FirstSeen) {
		d.FirstSeen = rec.Timestamp
	}
	if rec.Timestamp.After(d.LastSeen) {
		d.LastSeen = rec.Timestamp
	}
}

// HasAddress reports whether the address has ever been attributed to this device.
func (d *TrackedDevice) HasAddress(address string) bool {
	_, ok := d.addressSet[address]
	return ok
}

// TrackedDuration is the span between first and last sighting.
func (d *TrackedDevice) TrackedDuration() time.Duration {
	return d.LastSeen.Sub(d.FirstSeen)
}

// Locations returns the coordinates of every retained sighting that carried one.
func (d *TrackedDevice) Locations() []geo.Location {
	records := d.Sightings.Items()
	locs := make([]geo.Location, 0, len(records))
	for _, r := range records {
		if r.Location != nil {
			locs = append(locs, *r.Location)
		}
	}
	return locs
}

// UniqueLocationCount applies the 100 m clustering rule to the retained history.
func (d *TrackedDevice) UniqueLocationCount() int {
	return geo.CountUniqueLocations(d.Locations(), geo.UniqueLocationThreshold)
}

// LastLocation returns the most recent known coordinate.
func (d *TrackedDevice) LastLocation() *geo.Location {
	records := d.Sightings.Items()
	for i := len(records) - 1; i >= 0; i-- {
		if records[i].Location != nil {
			loc := *records[i].Location
			return &loc
		}
	}
	return nil
}
