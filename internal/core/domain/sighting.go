package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lcalzada-xor/tailwatch/internal/geo"
)

// ErrUnknownDomain is returned for an unrecognised radio/audio domain name.
var ErrUnknownDomain = errors.New("unknown detection domain")

// Domain tags the radio or audio channel a detection came from.
type Domain string

const (
	DomainBLE        Domain = "ble"
	DomainWiFi       Domain = "wifi"
	DomainRF         Domain = "rf"
	DomainUltrasonic Domain = "ultrasonic"
)

// AllDomains lists every domain in a stable order.
var AllDomains = []Domain{DomainBLE, DomainWiFi, DomainRF, DomainUltrasonic}

// ParseDomain resolves a domain name.
func ParseDomain(s string) (Domain, error) {
	d := Domain(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllDomains {
		if d == known {
			return d, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownDomain, s)
}

// AddressType is the Bluetooth LE address class encoded in the top two bits
// of the most significant address byte.
type AddressType string

const (
	AddressPublic               AddressType = "public"
	AddressRandomStatic         AddressType = "random_static"
	AddressResolvablePrivate    AddressType = "random_resolvable_private"
	AddressNonResolvablePrivate AddressType = "random_non_resolvable_private"
)

// Sighting is a single BLE advertisement observation.
type Sighting struct {
	Address          string        `json:"address"`
	Name             string        `json:"name,omitempty"`
	ManufacturerID   *uint16       `json:"manufacturer_id,omitempty"`
	ManufacturerData []byte        `json:"manufacturer_data,omitempty"`
	ServiceIDs       []string      `json:"service_ids,omitempty"`
	RSSI             int           `json:"rssi"`
	Location         *geo.Location `json:"location,omitempty"`
	Timestamp        time.Time     `json:"timestamp"`
}

// HasManufacturer reports whether the advertisement carried manufacturer data.
func (s Sighting) HasManufacturer() bool {
	return s.ManufacturerID != nil
}

// WiFiSighting is a single 802.11 frame observation.
type WiFiSighting struct {
	MAC           string        `json:"mac"`
	SSID          string        `json:"ssid,omitempty"`
	Vendor        string        `json:"vendor,omitempty"`
	Hidden        bool          `json:"hidden,omitempty"`
	RSSI          int           `json:"rssi"`
	FrequencyMHz  int           `json:"freq,omitempty"`
	Channel       int           `json:"channel,omitempty"`
	IsAccessPoint bool          `json:"is_ap,omitempty"`
	Location      *geo.Location `json:"location,omitempty"`
	Timestamp     time.Time     `json:"timestamp"`
}

// RFSighting is a Sub-GHz / cellular-band emission observed by an SDR front end.
type RFSighting struct {
	FrequencyMHz float64       `json:"freq_mhz"`
	RSSI         int           `json:"rssi"`
	Modulation   string        `json:"modulation,omitempty"`
	Protocol     string        `json:"protocol,omitempty"`
	Location     *geo.Location `json:"location,omitempty"`
	Timestamp    time.Time     `json:"timestamp"`
}

// UltrasonicSighting is a near-ultrasonic audio beacon picked up by the microphone.
type UltrasonicSighting struct {
	FrequencyHz float64       `json:"freq_hz"`
	AmplitudeDB float64       `json:"amplitude_db"`
	Source      string        `json:"source,omitempty"`
	Location    *geo.Location `json:"location,omitempty"`
	Timestamp   time.Time     `json:"timestamp"`
}
