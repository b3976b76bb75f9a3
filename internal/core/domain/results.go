package domain

// BLEResult bundles everything learned from one BLE sighting.
type BLEResult struct {
	Analysis  BleTrackingAnalysis    `json:"analysis"`
	Tracking  UnwantedTrackingResult `json:"tracking"`
	Detection DomainDetection        `json:"detection"`
	Threat    *CorrelatedThreat      `json:"correlated_threat,omitempty"`
}

// DetectionResult is the outcome of a WiFi, RF or ultrasonic sighting.
type DetectionResult struct {
	Detection DomainDetection   `json:"detection"`
	Threat    *CorrelatedThreat `json:"correlated_threat,omitempty"`
}

// EngineStats summarises the in-memory state of every analyser.
type EngineStats struct {
	TrackedDevices    int            `json:"tracked_devices"`
	Trackers          int            `json:"trackers"`
	Detections        map[Domain]int `json:"detections"`
	SuspiciousDevices int            `json:"suspicious_devices"`
	FollowingDevices  int            `json:"following_devices"`
	Alerts            int            `json:"alerts"`
	ActiveThreats     int            `json:"active_threats"`
	CorrelatedThreats int            `json:"correlated_threats"`
}

// FeedName identifies one of the published result streams.
type FeedName string

const (
	FeedSuspicious    FeedName = "suspicious_devices"
	FeedFollowing     FeedName = "following_devices"
	FeedAlerts        FeedName = "tracking_alerts"
	FeedActiveThreats FeedName = "active_threats"
	FeedCorrelated    FeedName = "correlated_threats"
)

// FeedUpdate carries the latest snapshot of one feed. Items holds the
// feed's element slice, e.g. []CorrelatedThreat for FeedCorrelated.
type FeedUpdate struct {
	Feed  FeedName `json:"type"`
	Items any      `json:"payload"`
}
