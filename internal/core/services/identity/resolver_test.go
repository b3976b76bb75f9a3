package identity

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/lcalzada-xor/tailwatch/internal/core/domain"
	"github.com/lcalzada-xor/tailwatch/internal/core/services/signatures"
	"github.com/lcalzada-xor/tailwatch/internal/geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestResolver() *Resolver {
	return NewResolver(signatures.Default())
}

func loc(lat, lng float64) *geo.Location {
	return &geo.Location{Latitude: lat, Longitude: lng}
}

func airTag(address string, at time.Time) domain.Sighting {
	return domain.Sighting{
		Address:          address,
		ManufacturerID:   u16(0x004C),
		ManufacturerData: []byte{0x12, 0x19, 0x10, 0x00, 0x01},
		RSSI:             -55,
		Timestamp:        at,
	}
}

func TestResolver_RotatingAddressesResolveToOneDevice(t *testing.T) {
	r := newTestResolver()

	first := r.Process(airTag("4A:00:00:00:00:01", base))
	r.Process(airTag("4A:00:00:00:00:01", base.Add(1*time.Minute)))
	r.Process(airTag("4B:00:00:00:00:02", base.Add(10*time.Minute)))
	last := r.Process(airTag("4C:00:00:00:00:03", base.Add(20*time.Minute)))

	assert.Equal(t, 1, r.DeviceCount())
	assert.Equal(t, first.DeviceID, last.DeviceID)
	assert.Equal(t, 3, last.AddressCount)
	assert.True(t, last.IsRotatingAddress)
	assert.Equal(t, 10*time.Minute, last.RotationInterval)
	assert.Equal(t, 0.9, last.PayloadConsistency)
	assert.Equal(t, domain.AddressResolvablePrivate, last.AddressType)
	assert.Equal(t, domain.CategoryFindMy, last.Category)
	assert.Contains(t, last.MatchedSignatures, "Apple Find My offline finding")

	// rotating 20 + high signature 30 + resolvable 15 + consistency 10 + match 10
	assert.Equal(t, 85, last.ThreatScore)
	assert.Equal(t, domain.ThreatCritical, last.ThreatLevel)
}

func TestResolver_RotationWindowExcludesOldAddresses(t *testing.T) {
	r := newTestResolver()

	r.Process(airTag("4A:00:00:00:00:01", base))
	r.Process(airTag("4B:00:00:00:00:02", base.Add(2*time.Minute)))
	got := r.Process(airTag("4C:00:00:00:00:03", base.Add(45*time.Minute)))

	assert.Equal(t, 3, got.AddressCount)
	assert.False(t, got.IsRotatingAddress)
}

func TestResolver_PayloadConsistencySingleAddress(t *testing.T) {
	r := newTestResolver()

	r.Process(airTag("4A:00:00:00:00:01", base))
	got := r.Process(airTag("4A:00:00:00:00:01", base.Add(time.Second)))

	assert.Equal(t, 0.0, got.PayloadConsistency)
	assert.Equal(t, time.Duration(0), got.RotationInterval)
}

func TestResolver_FollowingAcrossFourLocations(t *testing.T) {
	r := newTestResolver()
	s := domain.Sighting{Address: "12:34:56:78:9A:BC", Name: "Keys", RSSI: -70}

	points := []*geo.Location{loc(40.0, -3.0), loc(40.01, -3.0), loc(40.02, -3.0), loc(40.03, -3.0)}
	var got domain.BleTrackingAnalysis
	for i, p := range points {
		s.Location = p
		s.Timestamp = base.Add(time.Duration(i) * time.Minute)
		got = r.Process(s)
	}

	assert.True(t, got.IsFollowing)
	assert.Equal(t, 4, got.UniqueLocationsCount)
	// 0.4*0.4 + 0.3*(3m/4h) + 0.3 (one minute cadence)
	assert.InDelta(t, 0.16+0.3*(0.05/4)+0.3, got.FollowingScore, 1e-9)
	assert.Equal(t, 40, got.ThreatScore)
	assert.Equal(t, domain.ThreatMedium, got.ThreatLevel)
	require.NotNil(t, got.LastLocation)
	assert.Equal(t, 40.03, got.LastLocation.Latitude)

	following := r.Following().Snapshot()
	require.Len(t, following, 1)
	assert.Equal(t, got.DeviceID, following[0].DeviceID)
	assert.Len(t, r.Suspicious().Snapshot(), 1)
}

func TestResolver_NearbySightingsAreOneLocation(t *testing.T) {
	r := newTestResolver()
	s := domain.Sighting{Address: "12:34:56:78:9A:BC", Name: "Keys"}

	s.Location, s.Timestamp = loc(40.0, -3.0), base
	r.Process(s)
	s.Location, s.Timestamp = loc(40.0003, -3.0), base.Add(time.Minute)
	got := r.Process(s)

	assert.Equal(t, 1, got.UniqueLocationsCount)
	assert.False(t, got.IsFollowing)
}

func TestResolver_FeaturelessSightingsOnlyMatchByAddress(t *testing.T) {
	r := newTestResolver()

	a := r.Process(domain.Sighting{Address: "12:00:00:00:00:01", Timestamp: base})
	b := r.Process(domain.Sighting{Address: "12:00:00:00:00:02", Timestamp: base})
	again := r.Process(domain.Sighting{Address: "12:00:00:00:00:01", Timestamp: base.Add(time.Second)})

	assert.NotEqual(t, a.DeviceID, b.DeviceID)
	assert.Equal(t, a.DeviceID, again.DeviceID)
	assert.Equal(t, 2, r.DeviceCount())
	assert.Equal(t, domain.CategoryUnknown, again.Category)
	assert.Equal(t, domain.ThreatInfo, again.ThreatLevel)
}

func TestResolver_ConcurrentFirstSightingsShareIdentity(t *testing.T) {
	r := newTestResolver()

	const workers = 32
	ids := make([]string, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i] = r.Process(airTag(fmt.Sprintf("4A:00:00:00:00:%02X", i), base)).DeviceID
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, r.DeviceCount())
	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
}

func TestResolver_FeedCaps(t *testing.T) {
	r := newTestResolver()

	for i := 0; i < 80; i++ {
		s := airTag(fmt.Sprintf("12:00:00:00:%02X:01", i), base.Add(time.Duration(i)*time.Millisecond))
		s.Name = fmt.Sprintf("tag-%d", i)
		got := r.Process(s)
		require.GreaterOrEqual(t, got.ThreatLevel, domain.ThreatMedium)
	}
	for i := 0; i < 30; i++ {
		s := domain.Sighting{Address: fmt.Sprintf("12:00:00:01:%02X:01", i), Name: fmt.Sprintf("walker-%d", i)}
		for j := 0; j < 3; j++ {
			s.Location = loc(41.0+float64(j)*0.01, 2.0)
			s.Timestamp = base.Add(time.Duration(j) * time.Second)
			r.Process(s)
		}
	}

	assert.Len(t, r.Suspicious().Snapshot(), SuspiciousFeedCapacity)
	assert.Len(t, r.Following().Snapshot(), FollowingFeedCapacity)
}

func TestResolver_EvictsStaleDevices(t *testing.T) {
	r := newTestResolver()

	r.Process(domain.Sighting{Address: "12:00:00:00:00:01", Name: "old", Timestamp: base})
	r.Process(domain.Sighting{Address: "12:00:00:00:00:02", Name: "fresh", Timestamp: base.Add(3 * time.Hour)})

	assert.Equal(t, 1, r.DeviceCount())
}

func TestResolver_CapacityEvictsOldestQuartile(t *testing.T) {
	r := newTestResolver()

	for i := 0; i <= MaxDevices; i++ {
		r.Process(domain.Sighting{
			Address:   fmt.Sprintf("12:00:00:00:%02X:%02X", i/256, i%256),
			Name:      fmt.Sprintf("device-%d", i),
			Timestamp: base.Add(time.Duration(i) * time.Millisecond),
		})
	}

	assert.Equal(t, MaxDevices+1-(MaxDevices+1)/4, r.DeviceCount())

	// the earliest device is gone, so its address starts a new identity
	before := r.DeviceCount()
	r.Process(domain.Sighting{Address: "12:00:00:00:00:00", Timestamp: base.Add(time.Second)})
	assert.Equal(t, before+1, r.DeviceCount())
}

func TestResolver_Reset(t *testing.T) {
	r := newTestResolver()
	s := domain.Sighting{Address: "12:34:56:78:9A:BC", Name: "Keys"}
	for i := 0; i < 3; i++ {
		s.Location = loc(40.0+float64(i)*0.01, -3.0)
		s.Timestamp = base.Add(time.Duration(i) * time.Minute)
		r.Process(s)
	}
	require.NotEmpty(t, r.Following().Snapshot())

	r.Reset()

	assert.Equal(t, 0, r.DeviceCount())
	assert.Empty(t, r.Following().Snapshot())
	assert.Empty(t, r.Suspicious().Snapshot())
}

func TestResolver_DefaultsTimestampFromClock(t *testing.T) {
	r := newTestResolver()
	r.SetClock(func() time.Time { return base })

	got := r.Process(domain.Sighting{Address: "12:00:00:00:00:01", Name: "x"})

	assert.Equal(t, base, got.FirstSeen)
	assert.Equal(t, base, got.LastSeen)
}

func TestRotationInterval_UsesRetainedHistory(t *testing.T) {
	// The ring has already dropped everything before base+100m.
	records := []domain.SightingRecord{
		{Address: "4A:00:00:00:00:01", Timestamp: base.Add(100 * time.Minute)},
		{Address: "4A:00:00:00:00:01", Timestamp: base.Add(105 * time.Minute)},
		{Address: "4B:00:00:00:00:02", Timestamp: base.Add(110 * time.Minute)},
		{Address: "4C:00:00:00:00:03", Timestamp: base.Add(120 * time.Minute)},
	}

	assert.Equal(t, 10*time.Minute, rotationInterval(records))
	assert.Equal(t, time.Duration(0), rotationInterval(records[:2]))
	assert.Equal(t, time.Duration(0), rotationInterval(nil))
}
