package tracking

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lcalzada-xor/tailwatch/internal/core/domain"
	"github.com/lcalzada-xor/tailwatch/internal/core/services/identity"
	"github.com/lcalzada-xor/tailwatch/internal/core/services/signatures"
	"github.com/lcalzada-xor/tailwatch/internal/core/services/stream"
	"github.com/lcalzada-xor/tailwatch/internal/telemetry"
)

const (
	HistoryCapacity = 100
	MaxDeviceAge    = 24 * time.Hour
	CleanupInterval = 5 * time.Minute
	MaxDevices      = 1000

	AlertCooldown        = 30 * time.Minute
	AlertHistoryCapacity = 50
	ActiveThreatCapacity = 50

	// SeparationThreshold is how long a device must follow the user before
	// location spread alone raises an alert.
	SeparationThreshold = 15 * time.Minute
	ActiveThreatWindow  = 30 * time.Minute
	FollowingLocations  = 3

	// ScanInterval is the assumed scanner cadence used for the presence ratio.
	ScanInterval = 30 * time.Second

	alertScore    = 40
	strongSignal  = -60.0
	steadyPresent = 0.7
	component     = "tracking"
)

// Threat score contributions.
const (
	pointsSeparated = 50
	pointsLongTrack = 20
	pointsLocations = 25
	pointsStrongRSS = 10
	pointsPresence  = 15
)

type trackerState struct {
	device        *domain.TrackedDevice
	fingerprints  map[string]struct{}
	sightings     int
	trackerType   domain.TrackerType
	lastSeparated time.Time
	lastScore     int
	lastLevel     domain.ThreatLevel
}

func (st *trackerState) separatedAt(now time.Time) bool {
	return !st.lastSeparated.IsZero() && now.Sub(st.lastSeparated) <= ActiveThreatWindow
}

// Detector recognises trackers separated from their owner and raises
// rate-limited unwanted-tracking alerts. Its state is independent of the
// identity resolver.
type Detector struct {
	mu            sync.Mutex
	sigs          *signatures.Database
	devices       map[string]*trackerState // by device id
	byAddress     map[string]string
	byFingerprint map[string]string
	lastAlert     map[string]time.Time
	lastCleanup   time.Time
	clock         func() time.Time

	alerts *stream.Feed[domain.UnwantedTrackingAlert]
	active *stream.Feed[domain.ActiveThreat]
}

// NewDetector creates a detector backed by the given signature table.
func NewDetector(sigs *signatures.Database) *Detector {
	if sigs == nil {
		sigs = signatures.Default()
	}
	return &Detector{
		sigs:          sigs,
		devices:       make(map[string]*trackerState),
		byAddress:     make(map[string]string),
		byFingerprint: make(map[string]string),
		lastAlert:     make(map[string]time.Time),
		clock:         time.Now,
		alerts: stream.NewFeed(string(domain.FeedAlerts), AlertHistoryCapacity,
			func(a domain.UnwantedTrackingAlert) string { return a.ID }),
		active: stream.NewFeed(string(domain.FeedActiveThreats), ActiveThreatCapacity,
			func(t domain.ActiveThreat) string { return t.DeviceID }),
	}
}

// SetClock overrides the time source used for sightings without a timestamp.
func (d *Detector) SetClock(clock func() time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clock = clock
}

// Alerts is the newest-first alert history.
func (d *Detector) Alerts() *stream.Feed[domain.UnwantedTrackingAlert] { return d.alerts }

// ActiveThreats is the snapshot of trackers currently considered dangerous.
func (d *Detector) ActiveThreats() *stream.Feed[domain.ActiveThreat] { return d.active }

// resolve finds the state for a sighting by stable fingerprint, then by
// address, so a rotating tracker and a tracker that changes its advertised
// services both stay on one entry.
func (d *Detector) resolve(s domain.Sighting, now time.Time) *trackerState {
	fp, stable := identity.Fingerprint(s, now)

	var st *trackerState
	if stable {
		if id, ok := d.byFingerprint[fp]; ok {
			st = d.devices[id]
		}
	}
	if st == nil {
		if id, ok := d.byAddress[s.Address]; ok {
			st = d.devices[id]
		}
	}
	if st == nil {
		id := uuid.NewString()
		st = &trackerState{
			device:       domain.NewTrackedDevice(id, fp, HistoryCapacity, now),
			fingerprints: make(map[string]struct{}),
			trackerType:  domain.TrackerUnknown,
		}
		d.devices[id] = st
	}

	d.byAddress[s.Address] = st.device.ID
	if stable {
		d.byFingerprint[fp] = st.device.ID
		st.fingerprints[fp] = struct{}{}
	}
	return st
}

// Process folds a sighting into the detector and evaluates it.
func (d *Detector) Process(s domain.Sighting) domain.UnwantedTrackingResult {
	d.mu.Lock()
	defer d.mu.Unlock()

	if s.Timestamp.IsZero() {
		s.Timestamp = d.clock()
	}
	now := s.Timestamp
	d.maybeCleanup(now)

	st := d.resolve(s, now)
	st.device.Observe(domain.SightingRecord{
		Address:   s.Address,
		RSSI:      s.RSSI,
		Location:  s.Location,
		Timestamp: now,
	})
	st.sightings++

	if d.sigs.HasSeparationSignal(s.ServiceIDs) {
		st.lastSeparated = now
	}
	separated := st.separatedAt(now)

	res := domain.UnwantedTrackingResult{
		DeviceID:        st.device.ID,
		Address:         s.Address,
		IsSeparated:     separated,
		TrackedDuration: st.device.TrackedDuration(),
		UniqueLocations: st.device.UniqueLocationCount(),
		LastRSSI:        s.RSSI,
	}
	records := st.device.Sightings.Items()
	res.AverageRSSI = averageRSSI(records)
	res.PresenceRatio = presenceRatio(st.sightings, res.TrackedDuration)

	tt := classifyTracker(d.sigs, s, separated, res.UniqueLocations, res.TrackedDuration)
	if tt != domain.TrackerUnknown && (st.trackerType == domain.TrackerUnknown || tt.Recognized()) {
		st.trackerType = tt
	}
	res.TrackerType = st.trackerType

	score := 0
	if separated {
		score += pointsSeparated
		res.Indicators = append(res.Indicators, "broadcasting separated-from-owner signal")
	}
	if res.TrackedDuration > time.Hour {
		score += pointsLongTrack
		res.Indicators = append(res.Indicators, "tracked for over an hour")
	}
	if res.UniqueLocations >= FollowingLocations {
		score += pointsLocations
		res.Indicators = append(res.Indicators, "seen at multiple distinct locations")
	}
	if len(records) > 0 && res.AverageRSSI > strongSignal {
		score += pointsStrongRSS
		res.Indicators = append(res.Indicators, "consistently strong signal")
	}
	if res.PresenceRatio > steadyPresent {
		score += pointsPresence
		res.Indicators = append(res.Indicators, "continuously present")
	}
	res.ThreatScore = score
	res.ThreatLevel = domain.ThreatLevelFromScore(score)
	if separated {
		res.ThreatLevel = domain.ThreatCritical
	}
	st.lastScore = score
	st.lastLevel = res.ThreatLevel

	res.IsUnwantedTracking = separated ||
		(score >= alertScore && res.TrackerType.Recognized()) ||
		(res.UniqueLocations >= FollowingLocations && res.TrackedDuration > SeparationThreshold)

	if res.IsUnwantedTracking {
		d.raiseAlert(&res, st, now)
	}

	if len(d.devices) > MaxDevices {
		d.evictOldestQuartile()
	}
	telemetry.TrackedEntities.WithLabelValues(component).Set(float64(len(d.devices)))
	return res
}

func (d *Detector) raiseAlert(res *domain.UnwantedTrackingResult, st *trackerState, now time.Time) {
	if last, ok := d.lastAlert[res.DeviceID]; ok && now.Sub(last) < AlertCooldown {
		res.AlertSuppressed = true
		telemetry.AlertsSuppressed.Inc()
		return
	}
	d.lastAlert[res.DeviceID] = now

	alert := buildAlert(uuid.NewString(), *res, st.device.LastLocation(), now)
	res.Alert = &alert
	d.alerts.Publish(alert)
	telemetry.TrackingAlerts.WithLabelValues(string(alert.Type)).Inc()
	slog.Info("Unwanted tracking alert",
		"device_id", res.DeviceID,
		"type", alert.Type,
		"tracker", res.TrackerType,
		"level", res.ThreatLevel.String(),
		"score", res.ThreatScore)

	d.active.Replace(d.activeThreats(now))
}

// activeThreats lists devices seen recently that are either behaving like a
// tracker or raised the separation signal, most dangerous first.
func (d *Detector) activeThreats(now time.Time) []domain.ActiveThreat {
	cutoff := now.Add(-ActiveThreatWindow)
	var out []domain.ActiveThreat
	for _, st := range d.devices {
		if st.device.LastSeen.Before(cutoff) {
			continue
		}
		separated := st.separatedAt(now)
		locs := st.device.UniqueLocationCount()
		if !separated && st.lastScore < alertScore && locs < FollowingLocations {
			continue
		}
		addr := ""
		if last, ok := st.device.Sightings.Last(); ok {
			addr = last.Address
		}
		out = append(out, domain.ActiveThreat{
			DeviceID:        st.device.ID,
			Address:         addr,
			TrackerType:     st.trackerType,
			IsSeparated:     separated,
			ThreatLevel:     st.lastLevel,
			ThreatScore:     st.lastScore,
			UniqueLocations: locs,
			LastLocation:    st.device.LastLocation(),
			LastSeen:        st.device.LastSeen,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ThreatLevel != out[j].ThreatLevel {
			return out[i].ThreatLevel > out[j].ThreatLevel
		}
		return out[i].LastSeen.After(out[j].LastSeen)
	})
	return out
}

func averageRSSI(records []domain.SightingRecord) float64 {
	if len(records) == 0 {
		return 0
	}
	sum := 0
	for _, r := range records {
		sum += r.RSSI
	}
	return float64(sum) / float64(len(records))
}

// presenceRatio compares observed sightings against what a scanner running
// every ScanInterval would have produced, capped at 1.
func presenceRatio(observed int, tracked time.Duration) float64 {
	expected := int(tracked/ScanInterval) + 1
	ratio := float64(observed) / float64(expected)
	if ratio > 1 {
		return 1
	}
	return ratio
}

func (d *Detector) maybeCleanup(now time.Time) {
	if d.lastCleanup.IsZero() {
		d.lastCleanup = now
		return
	}
	if now.Sub(d.lastCleanup) < CleanupInterval {
		return
	}
	d.lastCleanup = now

	cutoff := now.Add(-MaxDeviceAge)
	removed := 0
	for id, st := range d.devices {
		if st.device.LastSeen.Before(cutoff) {
			d.removeLocked(id)
			removed++
		}
	}
	if removed > 0 {
		telemetry.Evictions.WithLabelValues(component, "age").Add(float64(removed))
		slog.Info("Evicted stale trackers", "count", removed, "remaining", len(d.devices))
	}
}

// evictOldestQuartile drops the least recently seen quarter of the trackers
// together with their cooldowns.
func (d *Detector) evictOldestQuartile() {
	states := make([]*trackerState, 0, len(d.devices))
	for _, st := range d.devices {
		states = append(states, st)
	}
	sort.Slice(states, func(i, j int) bool {
		return states[i].device.LastSeen.Before(states[j].device.LastSeen)
	})
	n := len(states) / 4
	for _, st := range states[:n] {
		d.removeLocked(st.device.ID)
	}
	telemetry.Evictions.WithLabelValues(component, "capacity").Add(float64(n))
	slog.Info("Tracker table over capacity", "evicted", n, "remaining", len(d.devices))
}

func (d *Detector) removeLocked(id string) {
	st, ok := d.devices[id]
	if !ok {
		return
	}
	for _, addr := range st.device.Addresses {
		if d.byAddress[addr] == id {
			delete(d.byAddress, addr)
		}
	}
	for fp := range st.fingerprints {
		if d.byFingerprint[fp] == id {
			delete(d.byFingerprint, fp)
		}
	}
	delete(d.lastAlert, id)
	delete(d.devices, id)
}

// DeviceCount returns the number of trackers held in memory.
func (d *Detector) DeviceCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.devices)
}

// Reset clears all tracker state, cooldowns and feeds.
func (d *Detector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.devices = make(map[string]*trackerState)
	d.byAddress = make(map[string]string)
	d.byFingerprint = make(map[string]string)
	d.lastAlert = make(map[string]time.Time)
	d.lastCleanup = time.Time{}
	d.alerts.Clear()
	d.active.Clear()
	telemetry.TrackedEntities.WithLabelValues(component).Set(0)
}
