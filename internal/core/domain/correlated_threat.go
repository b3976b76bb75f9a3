package domain

import (
	"strconv"
	"time"

	"github.com/lcalzada-xor/tailwatch/internal/geo"
)

// DomainInfo is the per-domain summary extracted from one contributing detection.
type DomainInfo struct {
	Domain      Domain          `json:"domain"`
	DetectionID string          `json:"detection_id"`
	Summary     string          `json:"summary"`
	Category    TrackerCategory `json:"category"`
	ThreatLevel ThreatLevel     `json:"threat_level"`
	Timestamp   time.Time       `json:"timestamp"`
}

// CorrelatedThreat fuses detections from several domains into one threat entity.
type CorrelatedThreat struct {
	ID               string            `json:"id"`
	Domains          []Domain          `json:"domains"`
	Detections       []DomainDetection `json:"detections"`
	DomainInfos      []DomainInfo      `json:"domain_infos"`
	CorrelationScore float64           `json:"correlation_score"`
	MatchCount       int               `json:"match_count"`
	ThreatLevel      ThreatLevel       `json:"threat_level"`
	Indicators       []string          `json:"indicators,omitempty"`
	SharedLocations  []geo.Location    `json:"shared_locations,omitempty"`
	IsFollowing      bool              `json:"is_following"`
	Description      string            `json:"description"`
	FirstSeen        time.Time         `json:"first_seen"`
	LastSeen         time.Time         `json:"last_seen"`
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
