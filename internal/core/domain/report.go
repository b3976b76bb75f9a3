package domain

import "time"

// IncidentReport aggregates everything needed for the PDF incident report.
type IncidentReport struct {
	GeneratedAt       time.Time
	Title             string
	Stats             EngineStats
	Alerts            []UnwantedTrackingAlert
	ActiveThreats     []ActiveThreat
	CorrelatedThreats []CorrelatedThreat
	FollowingDevices  []BleTrackingAnalysis

	RiskScore       float64
	RiskLevel       string
	TopRisks        []RiskItem
	Recommendations []Recommendation
}

// HighRiskAlerts counts alerts at High or above.
func (r IncidentReport) HighRiskAlerts() int {
	n := 0
	for _, a := range r.Alerts {
		if a.ThreatLevel >= ThreatHigh {
			n++
		}
	}
	return n
}

// Finding kinds beyond the tracking alert types.
const (
	FindingGPSTracker         = "GPS_TRACKER"
	FindingSuspiciousHotspot  = "SUSPICIOUS_HOTSPOT"
	FindingUltrasonicBeacon   = "ULTRASONIC_BEACON"
	FindingCorrelatedActivity = "CORRELATED_ACTIVITY"
)

// Finding is one reportable observation: an alert or a correlated threat
// seen through a single lens.
type Finding struct {
	Kind        string
	SubjectID   string
	ThreatLevel ThreatLevel
}

// RiskItem ranks one kind of finding in the report.
type RiskItem struct {
	Rank            int         `json:"rank"`
	Kind            string      `json:"kind"`
	ThreatLevel     ThreatLevel `json:"threat_level"`
	AffectedDevices int         `json:"affected_devices"`
	Impact          string      `json:"impact"`
	Likelihood      string      `json:"likelihood"`
	RiskScore       float64     `json:"risk_score"`
}

// Recommendation is an actionable step for the person being tracked.
type Recommendation struct {
	Priority        string   `json:"priority"`
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	Actions         []string `json:"actions"`
	EstimatedEffort string   `json:"estimated_effort"`
}
