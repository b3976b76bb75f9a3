package identity

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lcalzada-xor/tailwatch/internal/core/domain"
	"github.com/lcalzada-xor/tailwatch/internal/core/services/signatures"
	"github.com/lcalzada-xor/tailwatch/internal/core/services/stream"
	"github.com/lcalzada-xor/tailwatch/internal/telemetry"
)

const (
	HistoryCapacity   = 200
	MaxDeviceAge      = 2 * time.Hour
	CleanupInterval   = 5 * time.Minute
	MaxDevices        = 500
	RotationWindow    = 30 * time.Minute
	RotationThreshold = 3
	// FollowingThreshold is the number of unique locations that makes a device a follower.
	FollowingThreshold = 3

	SuspiciousFeedCapacity = 50
	FollowingFeedCapacity  = 20

	consistentPayloadScore = 0.9
	component              = "identity"
)

// Threat score contributions.
const (
	pointsFollowing       = 40
	pointsHighSignature   = 30
	pointsRotating        = 20
	pointsResolvable      = 15
	pointsConsistent      = 10
	pointsSignatureMatch  = 10
	consistencyAlertLevel = 0.8
)

type trackedEntry struct {
	device *domain.TrackedDevice
	// fingerprints maps every stable fingerprint linked to the device to the
	// addresses it was seen with.
	fingerprints map[string]map[string]struct{}
}

// Resolver links rotating BLE addresses to persistent device identities.
// A single lock covers lookup and creation, so concurrent first sightings of
// one device always resolve to the same identity.
type Resolver struct {
	mu            sync.Mutex
	sigs          *signatures.Database
	devices       map[string]*trackedEntry
	byFingerprint map[string]string
	byAddress     map[string]string
	lastCleanup   time.Time
	clock         func() time.Time

	suspicious *stream.Feed[domain.BleTrackingAnalysis]
	following  *stream.Feed[domain.BleTrackingAnalysis]
}

// NewResolver creates a resolver backed by the given signature table.
func NewResolver(sigs *signatures.Database) *Resolver {
	if sigs == nil {
		sigs = signatures.Default()
	}
	byDevice := func(a domain.BleTrackingAnalysis) string { return a.DeviceID }
	return &Resolver{
		sigs:          sigs,
		devices:       make(map[string]*trackedEntry),
		byFingerprint: make(map[string]string),
		byAddress:     make(map[string]string),
		clock:         time.Now,
		suspicious:    stream.NewFeed(string(domain.FeedSuspicious), SuspiciousFeedCapacity, byDevice),
		following:     stream.NewFeed(string(domain.FeedFollowing), FollowingFeedCapacity, byDevice),
	}
}

// SetClock overrides the time source used for sightings without a timestamp.
func (r *Resolver) SetClock(clock func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clock = clock
}

// Suspicious is the feed of devices whose threat level reached Medium.
func (r *Resolver) Suspicious() *stream.Feed[domain.BleTrackingAnalysis] { return r.suspicious }

// Following is the feed of devices seen at several distinct locations.
func (r *Resolver) Following() *stream.Feed[domain.BleTrackingAnalysis] { return r.following }

// Process resolves a sighting to a tracked device and analyses its behaviour.
func (r *Resolver) Process(s domain.Sighting) domain.BleTrackingAnalysis {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s.Timestamp.IsZero() {
		s.Timestamp = r.clock()
	}
	now := s.Timestamp

	r.maybeCleanup(now)

	fp, stable := Fingerprint(s, now)
	entry := r.resolve(s.Address, fp, stable, now)

	entry.device.Observe(domain.SightingRecord{
		Address:   s.Address,
		RSSI:      s.RSSI,
		Location:  s.Location,
		Timestamp: now,
	})
	r.byAddress[s.Address] = entry.device.ID
	if stable {
		r.byFingerprint[fp] = entry.device.ID
		seen, ok := entry.fingerprints[fp]
		if !ok {
			seen = make(map[string]struct{})
			entry.fingerprints[fp] = seen
		}
		seen[s.Address] = struct{}{}
	}

	analysis := r.analyze(entry, s, fp, stable)

	if analysis.ThreatLevel >= domain.ThreatMedium {
		r.suspicious.Publish(analysis)
	}
	if analysis.IsFollowing {
		r.following.Publish(analysis)
	}

	if len(r.devices) > MaxDevices {
		r.evictOldestQuartile()
	}
	telemetry.TrackedEntities.WithLabelValues(component).Set(float64(len(r.devices)))

	return analysis
}

func (r *Resolver) resolve(address, fp string, stable bool, now time.Time) *trackedEntry {
	if stable {
		if id, ok := r.byFingerprint[fp]; ok {
			if e, ok := r.devices[id]; ok {
				return e
			}
		}
	}
	if id, ok := r.byAddress[address]; ok {
		if e, ok := r.devices[id]; ok {
			return e
		}
	}

	id := uuid.NewString()
	e := &trackedEntry{
		device:       domain.NewTrackedDevice(id, fp, HistoryCapacity, now),
		fingerprints: make(map[string]map[string]struct{}),
	}
	r.devices[id] = e
	slog.Debug("New BLE identity", "device_id", id, "address", address, "stable_fingerprint", stable)
	return e
}

func (r *Resolver) analyze(e *trackedEntry, s domain.Sighting, fp string, stable bool) domain.BleTrackingAnalysis {
	dev := e.device
	records := dev.Sightings.Items()

	a := domain.BleTrackingAnalysis{
		DeviceID:      dev.ID,
		Fingerprint:   fp,
		Address:       s.Address,
		AddressType:   ClassifyAddress(s.Address),
		AddressCount:  len(dev.Addresses),
		Category:      domain.CategoryUnknown,
		SightingCount: len(records),
		FirstSeen:     dev.FirstSeen,
		LastSeen:      dev.LastSeen,
		LastLocation:  dev.LastLocation(),
	}
	a.TrackedDuration = dev.TrackedDuration()

	a.IsRotatingAddress = recentAddressCount(records, s.Timestamp) >= RotationThreshold
	a.RotationInterval = rotationInterval(records)

	a.UniqueLocationsCount = dev.UniqueLocationCount()
	a.IsFollowing = a.UniqueLocationsCount >= FollowingThreshold
	a.FollowingScore = followingScore(a.UniqueLocationsCount, a.TrackedDuration, records)

	if stable && len(e.fingerprints[fp]) >= 2 {
		a.PayloadConsistency = consistentPayloadScore
	}

	matches := r.sigs.MatchBLE(s)
	best := domain.ThreatInfo
	for _, m := range matches {
		a.MatchedSignatures = append(a.MatchedSignatures, m.Name)
		if a.Category == domain.CategoryUnknown || m.ThreatLevel > best {
			a.Category = m.Category
			best = m.ThreatLevel
		}
	}

	score := 0
	if a.IsFollowing {
		score += pointsFollowing
		a.Indicators = append(a.Indicators, "seen at multiple distinct locations")
	}
	if len(matches) > 0 && best >= domain.ThreatHigh {
		score += pointsHighSignature
		a.Indicators = append(a.Indicators, "matches high-risk tracker signature")
	}
	if a.IsRotatingAddress {
		score += pointsRotating
		a.Indicators = append(a.Indicators, "rotating address")
	}
	if a.AddressType == domain.AddressResolvablePrivate {
		score += pointsResolvable
		a.Indicators = append(a.Indicators, "resolvable private address")
	}
	if a.PayloadConsistency > consistencyAlertLevel {
		score += pointsConsistent
		a.Indicators = append(a.Indicators, "consistent payload across addresses")
	}
	if len(matches) > 0 {
		score += pointsSignatureMatch
		a.Indicators = append(a.Indicators, "known tracker signature")
	}
	a.ThreatScore = score
	a.ThreatLevel = domain.ThreatLevelFromScore(score)

	return a
}

// recentAddressCount counts distinct addresses seen in the rotation window ending at now.
func recentAddressCount(records []domain.SightingRecord, now time.Time) int {
	cutoff := now.Add(-RotationWindow)
	seen := make(map[string]struct{})
	for _, rec := range records {
		if rec.Timestamp.Before(cutoff) {
			continue
		}
		seen[rec.Address] = struct{}{}
	}
	return len(seen)
}

// rotationInterval is the mean gap between address changes, measured from
// the oldest retained sighting.
func rotationInterval(records []domain.SightingRecord) time.Duration {
	if len(records) == 0 {
		return 0
	}
	sorted := make([]domain.SightingRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Timestamp.Before(sorted[j].Timestamp) })

	boundaries := []time.Time{sorted[0].Timestamp}
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Address != sorted[i-1].Address {
			boundaries = append(boundaries, sorted[i].Timestamp)
		}
	}
	if len(boundaries) < 2 {
		return 0
	}
	var total time.Duration
	for i := 1; i < len(boundaries); i++ {
		total += boundaries[i].Sub(boundaries[i-1])
	}
	return total / time.Duration(len(boundaries)-1)
}

func followingScore(uniqueLocations int, tracked time.Duration, records []domain.SightingRecord) float64 {
	locs := float64(min(uniqueLocations, 10)) / 10
	hours := min(tracked.Hours(), 4) / 4

	regular := 0.0
	if mean, ok := meanInterval(records); ok && mean >= time.Second && mean <= 5*time.Minute {
		regular = 1
	}
	return 0.4*locs + 0.3*hours + 0.3*regular
}

func meanInterval(records []domain.SightingRecord) (time.Duration, bool) {
	if len(records) < 2 {
		return 0, false
	}
	first, last := records[0].Timestamp, records[0].Timestamp
	for _, rec := range records[1:] {
		if rec.Timestamp.Before(first) {
			first = rec.Timestamp
		}
		if rec.Timestamp.After(last) {
			last = rec.Timestamp
		}
	}
	return last.Sub(first) / time.Duration(len(records)-1), true
}

func (r *Resolver) maybeCleanup(now time.Time) {
	if r.lastCleanup.IsZero() {
		r.lastCleanup = now
		return
	}
	if now.Sub(r.lastCleanup) < CleanupInterval {
		return
	}
	r.lastCleanup = now

	cutoff := now.Add(-MaxDeviceAge)
	removed := 0
	for id, e := range r.devices {
		if e.device.LastSeen.Before(cutoff) {
			r.removeLocked(id)
			removed++
		}
	}
	if removed > 0 {
		telemetry.Evictions.WithLabelValues(component, "age").Add(float64(removed))
		slog.Info("Evicted stale BLE identities", "count", removed, "remaining", len(r.devices))
	}
}

func (r *Resolver) evictOldestQuartile() {
	entries := make([]*trackedEntry, 0, len(r.devices))
	for _, e := range r.devices {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].device.LastSeen.Before(entries[j].device.LastSeen)
	})
	n := len(entries) / 4
	for _, e := range entries[:n] {
		r.removeLocked(e.device.ID)
	}
	telemetry.Evictions.WithLabelValues(component, "capacity").Add(float64(n))
	slog.Info("BLE identity table over capacity", "evicted", n, "remaining", len(r.devices))
}

func (r *Resolver) removeLocked(id string) {
	e, ok := r.devices[id]
	if !ok {
		return
	}
	for _, addr := range e.device.Addresses {
		if r.byAddress[addr] == id {
			delete(r.byAddress, addr)
		}
	}
	for fp := range e.fingerprints {
		if r.byFingerprint[fp] == id {
			delete(r.byFingerprint, fp)
		}
	}
	delete(r.devices, id)
}

// DeviceCount returns the number of tracked identities.
func (r *Resolver) DeviceCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.devices)
}

// Reset drops every identity and clears both feeds.
func (r *Resolver) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.devices = make(map[string]*trackedEntry)
	r.byFingerprint = make(map[string]string)
	r.byAddress = make(map[string]string)
	r.lastCleanup = time.Time{}
	r.suspicious.Clear()
	r.following.Clear()
	telemetry.TrackedEntities.WithLabelValues(component).Set(0)
}
