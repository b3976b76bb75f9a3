package domain

import (
	"time"

	"github.com/lcalzada-xor/tailwatch/internal/geo"
)

// DomainDetection is a protocol-normalised record fed into cross-domain correlation.
type DomainDetection struct {
	ID          string           `json:"id"`
	Domain      Domain           `json:"domain"`
	Timestamp   time.Time        `json:"timestamp"`
	Location    *geo.Location    `json:"location,omitempty"`
	RSSI        int              `json:"rssi"`
	ThreatLevel ThreatLevel      `json:"threat_level"`
	Category    TrackerCategory  `json:"category"`
	Indicators  []string         `json:"indicators,omitempty"`
	Payload     DetectionPayload `json:"payload"`
}

// DetectionPayload is the closed set of per-domain detection details.
type DetectionPayload interface {
	Domain() Domain
	Summary() string
	isDetectionPayload()
}

// BLEPayload carries identity-resolver context for a BLE detection.
type BLEPayload struct {
	Address     string      `json:"address"`
	DeviceID    string      `json:"device_id"`
	Name        string      `json:"name,omitempty"`
	TrackerType TrackerType `json:"tracker_type"`
	IsRotating  bool        `json:"is_rotating"`
	IsFollowing bool        `json:"is_following"`
	IsSeparated bool        `json:"is_separated"`
}

// WiFiPayload carries 802.11 details.
type WiFiPayload struct {
	MAC          string `json:"mac"`
	SSID         string `json:"ssid,omitempty"`
	Vendor       string `json:"vendor,omitempty"`
	Hidden       bool   `json:"hidden,omitempty"`
	FrequencyMHz int    `json:"freq,omitempty"`
	Channel      int    `json:"channel,omitempty"`
	Pattern      string `json:"pattern,omitempty"`
}

// RFPayload carries Sub-GHz / cellular band details.
type RFPayload struct {
	FrequencyMHz float64 `json:"freq_mhz"`
	Band         string  `json:"band,omitempty"`
	Modulation   string  `json:"modulation,omitempty"`
	Protocol     string  `json:"protocol,omitempty"`
	GPSTracker   bool    `json:"gps_tracker"`
}

// UltrasonicPayload carries audio beacon details.
type UltrasonicPayload struct {
	FrequencyHz float64 `json:"freq_hz"`
	AmplitudeDB float64 `json:"amplitude_db"`
	Source      string  `json:"source,omitempty"`
	Beacon      string  `json:"beacon,omitempty"`
}

func (BLEPayload) Domain() Domain        { return DomainBLE }
func (WiFiPayload) Domain() Domain       { return DomainWiFi }
func (RFPayload) Domain() Domain         { return DomainRF }
func (UltrasonicPayload) Domain() Domain { return DomainUltrasonic }

func (BLEPayload) isDetectionPayload()        {}
func (WiFiPayload) isDetectionPayload()       {}
func (RFPayload) isDetectionPayload()         {}
func (UltrasonicPayload) isDetectionPayload() {}

func (p BLEPayload) Summary() string {
	s := "BLE " + string(p.TrackerType) + " " + p.Address
	if p.IsSeparated {
		s += " (separated from owner)"
	}
	return s
}

func (p WiFiPayload) Summary() string {
	s := "WiFi \"" + p.SSID + "\" " + p.MAC
	if p.Hidden || p.SSID == "" {
		s = "WiFi hidden network " + p.MAC
	}
	if p.Vendor != "" {
		s += " (" + p.Vendor + ")"
	}
	return s
}

func (p RFPayload) Summary() string {
	s := "RF " + formatFloat(p.FrequencyMHz) + " MHz"
	if p.Band != "" {
		s += " " + p.Band
	}
	return s
}

func (p UltrasonicPayload) Summary() string {
	s := "Ultrasonic " + formatFloat(p.FrequencyHz) + " Hz"
	if p.Beacon != "" {
		s += " " + p.Beacon
	}
	return s
}

// BLE returns the BLE payload if this is a BLE detection.
func (d DomainDetection) BLE() (BLEPayload, bool) {
	p, ok := d.Payload.(BLEPayload)
	return p, ok
}

// WiFi returns the WiFi payload if this is a WiFi detection.
func (d DomainDetection) WiFi() (WiFiPayload, bool) {
	p, ok := d.Payload.(WiFiPayload)
	return p, ok
}

// RF returns the RF payload if this is an RF detection.
func (d DomainDetection) RF() (RFPayload, bool) {
	p, ok := d.Payload.(RFPayload)
	return p, ok
}

// Ultrasonic returns the ultrasonic payload if this is an ultrasonic detection.
func (d DomainDetection) Ultrasonic() (UltrasonicPayload, bool) {
	p, ok := d.Payload.(UltrasonicPayload)
	return p, ok
}
