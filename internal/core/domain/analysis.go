package domain

import (
	"time"

	"github.com/lcalzada-xor/tailwatch/internal/geo"
)

// BleTrackingAnalysis is the identity resolver's per-sighting verdict.
type BleTrackingAnalysis struct {
	DeviceID             string          `json:"device_id"`
	Fingerprint          string          `json:"fingerprint"`
	Address              string          `json:"address"`
	AddressType          AddressType     `json:"address_type"`
	AddressCount         int             `json:"address_count"`
	IsRotatingAddress    bool            `json:"is_rotating_address"`
	RotationInterval     time.Duration   `json:"rotation_interval"`
	UniqueLocationsCount int             `json:"unique_locations_count"`
	IsFollowing          bool            `json:"is_following"`
	FollowingScore       float64         `json:"following_score"`
	PayloadConsistency   float64         `json:"payload_consistency"`
	Category             TrackerCategory `json:"category"`
	MatchedSignatures    []string        `json:"matched_signatures,omitempty"`
	ThreatScore          int             `json:"threat_score"`
	ThreatLevel          ThreatLevel     `json:"threat_level"`
	Indicators           []string        `json:"indicators,omitempty"`
	SightingCount        int             `json:"sighting_count"`
	TrackedDuration      time.Duration   `json:"tracked_duration"`
	FirstSeen            time.Time       `json:"first_seen"`
	LastSeen             time.Time       `json:"last_seen"`
	LastLocation         *geo.Location   `json:"last_location,omitempty"`
}

// UnwantedTrackingResult is the separation detector's per-sighting verdict.
type UnwantedTrackingResult struct {
	DeviceID           string                 `json:"device_id"`
	Address            string                 `json:"address"`
	TrackerType        TrackerType            `json:"tracker_type"`
	IsSeparated        bool                   `json:"is_separated"`
	IsUnwantedTracking bool                   `json:"is_unwanted_tracking"`
	ThreatScore        int                    `json:"threat_score"`
	ThreatLevel        ThreatLevel            `json:"threat_level"`
	TrackedDuration    time.Duration          `json:"tracked_duration"`
	UniqueLocations    int                    `json:"unique_locations"`
	AverageRSSI        float64                `json:"average_rssi"`
	LastRSSI           int                    `json:"last_rssi"`
	PresenceRatio      float64                `json:"presence_ratio"`
	Indicators         []string               `json:"indicators,omitempty"`
	Alert              *UnwantedTrackingAlert `json:"alert,omitempty"`
	AlertSuppressed    bool                   `json:"alert_suppressed,omitempty"`
}
