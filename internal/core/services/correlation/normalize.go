package correlation

import (
	"github.com/google/uuid"
	"github.com/lcalzada-xor/tailwatch/internal/core/domain"
)

// BLEContext is what the BLE analysers already know about a sighting.
type BLEContext struct {
	DeviceID    string
	TrackerType domain.TrackerType
	Category    domain.TrackerCategory
	ThreatLevel domain.ThreatLevel
	IsRotating  bool
	IsFollowing bool
	IsSeparated bool
	Indicators  []string
}

func (c *Correlator) normalizeBLE(s domain.Sighting, ctx BLEContext) domain.DomainDetection {
	category := ctx.Category
	if category == "" {
		category = domain.CategoryUnknown
	}
	return domain.DomainDetection{
		ID:          uuid.NewString(),
		Domain:      domain.DomainBLE,
		Timestamp:   s.Timestamp,
		Location:    s.Location,
		RSSI:        s.RSSI,
		ThreatLevel: ctx.ThreatLevel,
		Category:    category,
		Indicators:  append([]string(nil), ctx.Indicators...),
		Payload: domain.BLEPayload{
			Address:     s.Address,
			DeviceID:    ctx.DeviceID,
			Name:        s.Name,
			TrackerType: ctx.TrackerType,
			IsRotating:  ctx.IsRotating,
			IsFollowing: ctx.IsFollowing,
			IsSeparated: ctx.IsSeparated,
		},
	}
}

func (c *Correlator) normalizeWiFi(s domain.WiFiSighting) domain.DomainDetection {
	d := domain.DomainDetection{
		ID:          uuid.NewString(),
		Domain:      domain.DomainWiFi,
		Timestamp:   s.Timestamp,
		Location:    s.Location,
		RSSI:        s.RSSI,
		ThreatLevel: domain.ThreatInfo,
		Category:    domain.CategoryUnknown,
	}
	payload := domain.WiFiPayload{
		MAC:          s.MAC,
		SSID:         s.SSID,
		Vendor:       s.Vendor,
		Hidden:       s.Hidden,
		FrequencyMHz: s.FrequencyMHz,
		Channel:      s.Channel,
	}
	if p, ok := c.sigs.MatchWiFiSSID(s.SSID); ok {
		payload.Pattern = p.Prefix
		d.ThreatLevel = p.ThreatLevel
		d.Category = domain.CategorySurveillanceWiFi
		d.Indicators = append(d.Indicators, p.Description)
	} else if s.Hidden {
		d.ThreatLevel = domain.ThreatLow
		d.Indicators = append(d.Indicators, "hidden network")
	}
	d.Payload = payload
	return d
}

func (c *Correlator) normalizeRF(s domain.RFSighting) domain.DomainDetection {
	d := domain.DomainDetection{
		ID:          uuid.NewString(),
		Domain:      domain.DomainRF,
		Timestamp:   s.Timestamp,
		Location:    s.Location,
		RSSI:        s.RSSI,
		ThreatLevel: domain.ThreatInfo,
		Category:    domain.CategoryUnknown,
	}
	payload := domain.RFPayload{
		FrequencyMHz: s.FrequencyMHz,
		Modulation:   s.Modulation,
		Protocol:     s.Protocol,
	}
	if b, ok := c.sigs.MatchRFBand(s.FrequencyMHz); ok {
		payload.Band = b.Name
		payload.GPSTracker = b.GPSTracker
		d.ThreatLevel = b.ThreatLevel
		d.Category = b.Category
		if b.GPSTracker {
			d.Indicators = append(d.Indicators, "transmission in GPS tracker uplink band")
		} else {
			d.Indicators = append(d.Indicators, "transmission in "+b.Name+" band")
		}
	}
	d.Payload = payload
	return d
}

func (c *Correlator) normalizeUltrasonic(s domain.UltrasonicSighting) domain.DomainDetection {
	d := domain.DomainDetection{
		ID:          uuid.NewString(),
		Domain:      domain.DomainUltrasonic,
		Timestamp:   s.Timestamp,
		Location:    s.Location,
		ThreatLevel: domain.ThreatLow,
		Category:    domain.CategoryUnknown,
	}
	payload := domain.UltrasonicPayload{
		FrequencyHz: s.FrequencyHz,
		AmplitudeDB: s.AmplitudeDB,
		Source:      s.Source,
	}
	if sig, ok := c.sigs.MatchUltrasonic(s.FrequencyHz); ok {
		payload.Beacon = sig.Name
		d.ThreatLevel = sig.ThreatLevel
		d.Category = domain.CategoryUltrasonicBeacon
		d.Indicators = append(d.Indicators, sig.Vendor+" ultrasonic beacon")
	} else {
		d.Indicators = append(d.Indicators, "unclassified ultrasonic emission")
	}
	d.Payload = payload
	return d
}
