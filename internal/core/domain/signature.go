package domain

// BLESignature maps advertisement fields to a known tracker or beacon.
// A signature matches on ManufacturerID (optionally narrowed by DataPrefix)
// or on ServiceID.
type BLESignature struct {
	Name           string          `json:"name"`
	ManufacturerID *uint16         `json:"manufacturer_id,omitempty"`
	DataPrefix     []byte          `json:"-"`
	ServiceID      string          `json:"service_id,omitempty"`
	Category       TrackerCategory `json:"category"`
	TrackerType    TrackerType     `json:"tracker_type"`
	ThreatLevel    ThreatLevel     `json:"threat_level"`
}

// RFBand is a frequency range associated with a class of transmitter.
type RFBand struct {
	Name        string          `json:"name"`
	MinMHz      float64         `json:"min_mhz"`
	MaxMHz      float64         `json:"max_mhz"`
	Category    TrackerCategory `json:"category"`
	ThreatLevel ThreatLevel     `json:"threat_level"`
	GPSTracker  bool            `json:"gps_tracker"`
}

// Contains reports whether the frequency falls inside the band.
func (b RFBand) Contains(mhz float64) bool {
	return mhz >= b.MinMHz && mhz <= b.MaxMHz
}

// UltrasonicSignature is a near-ultrasonic frequency range used by ad-tracking SDKs.
type UltrasonicSignature struct {
	Name        string      `json:"name"`
	Vendor      string      `json:"vendor"`
	MinHz       float64     `json:"min_hz"`
	MaxHz       float64     `json:"max_hz"`
	ThreatLevel ThreatLevel `json:"threat_level"`
}

// Contains reports whether the frequency falls inside the signature range.
func (s UltrasonicSignature) Contains(hz float64) bool {
	return hz >= s.MinHz && hz <= s.MaxHz
}

// WiFiPattern flags SSID prefixes broadcast by cameras and tracker hotspots.
type WiFiPattern struct {
	Prefix      string      `json:"prefix"`
	Description string      `json:"description"`
	ThreatLevel ThreatLevel `json:"threat_level"`
}

// PatternRequirement is the domain-specific condition a multi-protocol pattern needs.
type PatternRequirement string

const (
	RequireGPSBand          PatternRequirement = "gps_band"
	RequireUltrasonicBeacon PatternRequirement = "ultrasonic_beacon"
	RequireSuspiciousSSID   PatternRequirement = "suspicious_ssid"
	RequireTrackerSignature PatternRequirement = "tracker_signature"
)

// MultiProtocolPattern is a known combination of two domains emitted by one device class.
type MultiProtocolPattern struct {
	Name        string             `json:"name"`
	Domains     [2]Domain          `json:"domains"`
	Requires    PatternRequirement `json:"requires"`
	Bonus       float64            `json:"bonus"`
	Description string             `json:"description"`
}

// Involves reports whether the pattern covers the unordered domain pair.
func (p MultiProtocolPattern) Involves(a, b Domain) bool {
	return (p.Domains[0] == a && p.Domains[1] == b) || (p.Domains[0] == b && p.Domains[1] == a)
}
