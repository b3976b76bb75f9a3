package correlation

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/lcalzada-xor/tailwatch/internal/core/domain"
	"github.com/lcalzada-xor/tailwatch/internal/geo"
)

const (
	// upgradeScore is the best pair score above which two or more matches
	// raise the aggregated level by one step.
	upgradeScore       = 0.6
	followingLocations = 3
	gridDecimals       = 3
)

// ThreatKey derives the identity of a correlated threat. Detections with a
// location share a key per ~100 m grid cell and minute; otherwise the key is
// the pair of detection ids.
func ThreatKey(det, best domain.DomainDetection) string {
	if det.Location != nil {
		cell := det.Location.Rounded(gridDecimals)
		return fmt.Sprintf("geo:%.3f,%.3f@%d", cell.Latitude, cell.Longitude, det.Timestamp.Truncate(time.Minute).Unix())
	}
	return "pair:" + det.ID + "|" + best.ID
}

func (c *Correlator) synthesize(det domain.DomainDetection, direct []match, group []domain.DomainDetection) domain.CorrelatedThreat {
	best := direct[0]
	for _, m := range direct[1:] {
		if m.score > best.score {
			best = m
		}
	}

	sorted := make([]domain.DomainDetection, len(group))
	copy(sorted, group)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Timestamp.Before(sorted[j].Timestamp) })

	t := domain.CorrelatedThreat{
		ID:               ThreatKey(det, best.det),
		Detections:       sorted,
		CorrelationScore: best.score,
		MatchCount:       len(direct),
		FirstSeen:        sorted[0].Timestamp,
		LastSeen:         sorted[len(sorted)-1].Timestamp,
	}

	var (
		levels    []domain.ThreatLevel
		points    []geo.Location
		seenDom   = make(map[domain.Domain]bool)
		seenIndic = make(map[string]bool)
	)
	addIndicator := func(s string) {
		if s == "" || seenIndic[s] {
			return
		}
		seenIndic[s] = true
		t.Indicators = append(t.Indicators, s)
	}

	for _, d := range sorted {
		if !seenDom[d.Domain] {
			seenDom[d.Domain] = true
			t.Domains = append(t.Domains, d.Domain)
		}
		t.DomainInfos = append(t.DomainInfos, domain.DomainInfo{
			Domain:      d.Domain,
			DetectionID: d.ID,
			Summary:     d.Payload.Summary(),
			Category:    d.Category,
			ThreatLevel: d.ThreatLevel,
			Timestamp:   d.Timestamp,
		})
		levels = append(levels, d.ThreatLevel)
		if d.Location != nil {
			points = append(points, *d.Location)
		}
		for _, ind := range d.Indicators {
			addIndicator(ind)
		}
	}

	for _, m := range direct {
		if _, p := patternBonus(c.sigs, det, m.det); p != nil {
			addIndicator(p.Description)
		}
	}
	addIndicator(fmt.Sprintf("activity correlated across %d domains", len(t.Domains)))

	t.ThreatLevel = domain.MaxThreatLevel(levels...)
	if len(direct) >= 2 && best.score > upgradeScore {
		t.ThreatLevel = t.ThreatLevel.Upgrade()
	}

	t.SharedLocations = geo.UniqueLocations(points, geo.UniqueLocationThreshold)
	t.IsFollowing = len(t.SharedLocations) >= followingLocations
	if t.IsFollowing {
		addIndicator("correlated activity at multiple distinct locations")
	}

	t.Description = describe(t)
	return t
}

func describe(t domain.CorrelatedThreat) string {
	names := make([]string, len(t.Domains))
	for i, d := range t.Domains {
		names[i] = strings.ToUpper(string(d))
	}
	desc := fmt.Sprintf("%s activity from %d detections correlated (score %.2f)",
		strings.Join(names, " + "), len(t.Detections), t.CorrelationScore)
	if t.IsFollowing {
		desc += fmt.Sprintf(", seen at %d locations", len(t.SharedLocations))
	}
	return desc
}
