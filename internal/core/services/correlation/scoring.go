package correlation

import (
	"time"

	"github.com/lcalzada-xor/tailwatch/internal/core/domain"
	"github.com/lcalzada-xor/tailwatch/internal/core/services/signatures"
	"github.com/lcalzada-xor/tailwatch/internal/geo"
)

type band[T time.Duration | float64] struct {
	below T
	score float64
}

var temporalBands = []band[time.Duration]{
	{5 * time.Second, 0.4},
	{15 * time.Second, 0.3},
	{30 * time.Second, 0.2},
	{TemporalWindow, 0.1},
}

var spatialBands = []band[float64]{
	{10, 0.4},
	{25, 0.3},
	{50, 0.2},
	{100, 0.1},
}

const (
	sameLevelScore     = 0.15
	adjacentLevelScore = 0.1
)

func banded[T time.Duration | float64](v T, bands []band[T]) float64 {
	for _, b := range bands {
		if v < b.below {
			return b.score
		}
	}
	return 0
}

func temporalScore(a, b domain.DomainDetection) float64 {
	dt := a.Timestamp.Sub(b.Timestamp)
	if dt < 0 {
		dt = -dt
	}
	return banded(dt, temporalBands)
}

func spatialScore(a, b domain.DomainDetection) float64 {
	if a.Location == nil || b.Location == nil {
		return 0
	}
	return banded(geo.DistanceMeters(*a.Location, *b.Location), spatialBands)
}

func levelScore(a, b domain.DomainDetection) float64 {
	switch {
	case a.ThreatLevel == b.ThreatLevel:
		return sameLevelScore
	case a.ThreatLevel.Adjacent(b.ThreatLevel):
		return adjacentLevelScore
	default:
		return 0
	}
}

// patternBonus returns the largest bonus among the multi-protocol patterns
// the pair satisfies, and the pattern that earned it.
func patternBonus(sigs *signatures.Database, a, b domain.DomainDetection) (float64, *domain.MultiProtocolPattern) {
	var (
		best    float64
		matched *domain.MultiProtocolPattern
	)
	for _, p := range sigs.PatternsFor(a.Domain, b.Domain) {
		if p.Bonus <= best || !satisfies(p.Requires, a, b) {
			continue
		}
		best, matched = p.Bonus, &p
	}
	return best, matched
}

func satisfies(req domain.PatternRequirement, pair ...domain.DomainDetection) bool {
	for _, d := range pair {
		switch req {
		case domain.RequireGPSBand:
			if p, ok := d.RF(); ok && p.GPSTracker {
				return true
			}
		case domain.RequireUltrasonicBeacon:
			if p, ok := d.Ultrasonic(); ok && p.Beacon != "" {
				return true
			}
		case domain.RequireSuspiciousSSID:
			if p, ok := d.WiFi(); ok && p.Pattern != "" {
				return true
			}
		case domain.RequireTrackerSignature:
			if p, ok := d.BLE(); ok && p.TrackerType.Recognized() {
				return true
			}
		}
	}
	return false
}

// PairScore rates how likely two detections from different domains come from
// the same source, in [0, 1].
func PairScore(sigs *signatures.Database, a, b domain.DomainDetection) float64 {
	bonus, _ := patternBonus(sigs, a, b)
	return min(temporalScore(a, b)+spatialScore(a, b)+levelScore(a, b)+bonus, 1)
}
