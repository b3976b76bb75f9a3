package correlation

import (
	"log/slog"
	"sync"
	"time"

	"github.com/lcalzada-xor/tailwatch/internal/core/domain"
	"github.com/lcalzada-xor/tailwatch/internal/core/services/signatures"
	"github.com/lcalzada-xor/tailwatch/internal/core/services/stream"
	"github.com/lcalzada-xor/tailwatch/internal/telemetry"
)

const (
	// TemporalWindow bounds the temporal score; candidates are scanned
	// within twice this window.
	TemporalWindow = 60 * time.Second
	ScanWindow     = 2 * TemporalWindow

	MinPairScore = 0.4

	MaxDetectionsPerDomain = 1000
	MaxAge                 = 2 * time.Hour
	SweepInterval          = time.Minute
	ThreatFeedCapacity     = 50

	component = "correlation"
)

type match struct {
	det   domain.DomainDetection
	score float64
}

// Correlator fuses detections from different radio and audio domains into
// correlated threats.
type Correlator struct {
	mu           sync.Mutex
	sigs         *signatures.Database
	detections   map[domain.Domain]map[string]domain.DomainDetection
	lastSweep    time.Time
	clock        func() time.Time
	threats      *stream.Feed[domain.CorrelatedThreat]
	maxPerDomain int
}

// NewCorrelator creates a correlator backed by the given signature table.
func NewCorrelator(sigs *signatures.Database) *Correlator {
	if sigs == nil {
		sigs = signatures.Default()
	}
	c := &Correlator{
		sigs:         sigs,
		clock:        time.Now,
		maxPerDomain: MaxDetectionsPerDomain,
		threats: stream.NewFeed(string(domain.FeedCorrelated), ThreatFeedCapacity,
			func(t domain.CorrelatedThreat) string { return t.ID }),
	}
	c.resetLocked()
	return c
}

// SetClock overrides the time source used for sightings without a timestamp.
func (c *Correlator) SetClock(clock func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clock = clock
}

// Threats is the newest-first feed of correlated threats.
func (c *Correlator) Threats() *stream.Feed[domain.CorrelatedThreat] { return c.threats }

// RegisterBLE records a BLE detection enriched by the BLE analysers.
func (c *Correlator) RegisterBLE(s domain.Sighting, ctx BLEContext) (domain.DomainDetection, *domain.CorrelatedThreat) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s.Timestamp.IsZero() {
		s.Timestamp = c.clock()
	}
	return c.register(c.normalizeBLE(s, ctx))
}

// RegisterWiFi records a WiFi detection.
func (c *Correlator) RegisterWiFi(s domain.WiFiSighting) (domain.DomainDetection, *domain.CorrelatedThreat) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s.Timestamp.IsZero() {
		s.Timestamp = c.clock()
	}
	return c.register(c.normalizeWiFi(s))
}

// RegisterRF records a Sub-GHz or cellular RF detection.
func (c *Correlator) RegisterRF(s domain.RFSighting) (domain.DomainDetection, *domain.CorrelatedThreat) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s.Timestamp.IsZero() {
		s.Timestamp = c.clock()
	}
	return c.register(c.normalizeRF(s))
}

// RegisterUltrasonic records an ultrasonic audio detection.
func (c *Correlator) RegisterUltrasonic(s domain.UltrasonicSighting) (domain.DomainDetection, *domain.CorrelatedThreat) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s.Timestamp.IsZero() {
		s.Timestamp = c.clock()
	}
	return c.register(c.normalizeUltrasonic(s))
}

func (c *Correlator) register(det domain.DomainDetection) (domain.DomainDetection, *domain.CorrelatedThreat) {
	c.maybeSweep(det.Timestamp)

	bucket := c.detections[det.Domain]
	if len(bucket) >= c.maxPerDomain {
		evicted := 0
		// Map order is unspecified, so this drops an arbitrary subset.
		for id := range bucket {
			if len(bucket) < c.maxPerDomain {
				break
			}
			delete(bucket, id)
			evicted++
		}
		telemetry.Evictions.WithLabelValues(component, "capacity").Add(float64(evicted))
	}
	bucket[det.ID] = det
	telemetry.TrackedEntities.WithLabelValues(component).Set(float64(c.countLocked()))

	threat := c.correlate(det)
	return det, threat
}

// candidates returns detections from other domains close enough in time to det.
func (c *Correlator) candidates(det domain.DomainDetection) []domain.DomainDetection {
	var out []domain.DomainDetection
	for _, d := range domain.AllDomains {
		if d == det.Domain {
			continue
		}
		for _, other := range c.detections[d] {
			dt := other.Timestamp.Sub(det.Timestamp)
			if dt < 0 {
				dt = -dt
			}
			if dt <= ScanWindow {
				out = append(out, other)
			}
		}
	}
	return out
}

func (c *Correlator) matches(det domain.DomainDetection) []match {
	var out []match
	for _, other := range c.candidates(det) {
		if score := PairScore(c.sigs, det, other); score >= MinPairScore {
			out = append(out, match{det: other, score: score})
		}
	}
	return out
}

func (c *Correlator) correlate(det domain.DomainDetection) *domain.CorrelatedThreat {
	direct := c.matches(det)
	if len(direct) == 0 {
		return nil
	}

	group := c.gather(det, direct)
	threat := c.synthesize(det, direct, group)

	action := "created"
	if existing, ok := c.threats.Get(threat.ID); ok {
		threat.FirstSeen = existing.FirstSeen
		action = "updated"
	}
	c.threats.Publish(threat)
	telemetry.CorrelatedThreats.WithLabelValues(action).Inc()
	slog.Debug("Correlated threat",
		"id", threat.ID,
		"action", action,
		"domains", threat.Domains,
		"score", threat.CorrelationScore,
		"level", threat.ThreatLevel.String())
	return &threat
}

// gather walks qualifying matches transitively, staying inside the scan
// window of the triggering detection.
func (c *Correlator) gather(det domain.DomainDetection, direct []match) []domain.DomainDetection {
	seen := map[string]bool{det.ID: true}
	group := []domain.DomainDetection{det}
	queue := make([]domain.DomainDetection, 0, len(direct))
	for _, m := range direct {
		seen[m.det.ID] = true
		group = append(group, m.det)
		queue = append(queue, m.det)
	}

	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		for _, m := range c.matches(next) {
			if seen[m.det.ID] {
				continue
			}
			dt := m.det.Timestamp.Sub(det.Timestamp)
			if dt < -ScanWindow || dt > ScanWindow {
				continue
			}
			seen[m.det.ID] = true
			group = append(group, m.det)
			queue = append(queue, m.det)
		}
	}
	return group
}

func (c *Correlator) maybeSweep(now time.Time) {
	if !c.lastSweep.IsZero() && now.Sub(c.lastSweep) < SweepInterval {
		return
	}
	c.lastSweep = now

	cutoff := now.Add(-MaxAge)
	removed := 0
	for _, bucket := range c.detections {
		for id, d := range bucket {
			if d.Timestamp.Before(cutoff) {
				delete(bucket, id)
				removed++
			}
		}
	}
	stale := c.threats.Remove(func(t domain.CorrelatedThreat) bool {
		return t.LastSeen.Before(cutoff)
	})
	if removed > 0 {
		telemetry.Evictions.WithLabelValues(component, "age").Add(float64(removed))
	}
	if removed > 0 || stale > 0 {
		slog.Info("Swept stale correlation state", "detections", removed, "threats", stale)
	}
}

func (c *Correlator) countLocked() int {
	n := 0
	for _, bucket := range c.detections {
		n += len(bucket)
	}
	return n
}

// DetectionCount returns the number of retained detections per domain.
func (c *Correlator) DetectionCount() map[domain.Domain]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[domain.Domain]int, len(c.detections))
	for d, bucket := range c.detections {
		out[d] = len(bucket)
	}
	return out
}

// Reset drops every detection and correlated threat.
func (c *Correlator) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
	c.threats.Clear()
	telemetry.TrackedEntities.WithLabelValues(component).Set(0)
}

func (c *Correlator) resetLocked() {
	c.detections = make(map[domain.Domain]map[string]domain.DomainDetection, len(domain.AllDomains))
	for _, d := range domain.AllDomains {
		c.detections[d] = make(map[string]domain.DomainDetection)
	}
	c.lastSweep = time.Time{}
}
