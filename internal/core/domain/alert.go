package domain

import (
	"time"

	"github.com/lcalzada-xor/tailwatch/internal/geo"
)

// TrackingAlertType describes why an unwanted-tracking alert fired.
type TrackingAlertType string

const (
	AlertSeparatedTracker TrackingAlertType = "SEPARATED_TRACKER"
	AlertKnownTracker     TrackingAlertType = "KNOWN_TRACKER"
	AlertFollowingDevice  TrackingAlertType = "FOLLOWING_DEVICE"
)

// UnwantedTrackingAlert is raised once per triggering event, subject to per-device cooldown.
type UnwantedTrackingAlert struct {
	ID              string            `json:"id"`
	DeviceID        string            `json:"device_id"`
	Address         string            `json:"address"`
	Type            TrackingAlertType `json:"type"`
	TrackerType     TrackerType       `json:"tracker_type"`
	ThreatLevel     ThreatLevel       `json:"threat_level"`
	ThreatScore     int               `json:"threat_score"`
	Title           string            `json:"title"`
	Description     string            `json:"description"`
	Recommendations []string          `json:"recommendations"`
	UniqueLocations int               `json:"unique_locations"`
	TrackedDuration time.Duration     `json:"tracked_duration"`
	Location        *geo.Location     `json:"location,omitempty"`
	Timestamp       time.Time         `json:"timestamp"`
}

// ActiveThreat is a snapshot of a tracker currently considered dangerous.
type ActiveThreat struct {
	DeviceID        string        `json:"device_id"`
	Address         string        `json:"address"`
	TrackerType     TrackerType   `json:"tracker_type"`
	IsSeparated     bool          `json:"is_separated"`
	ThreatLevel     ThreatLevel   `json:"threat_level"`
	ThreatScore     int           `json:"threat_score"`
	UniqueLocations int           `json:"unique_locations"`
	LastLocation    *geo.Location `json:"last_location,omitempty"`
	LastSeen        time.Time     `json:"last_seen"`
}
