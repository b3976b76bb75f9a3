package tracking

import (
	"fmt"
	"time"

	"github.com/lcalzada-xor/tailwatch/internal/core/domain"
	"github.com/lcalzada-xor/tailwatch/internal/geo"
)

var trackerNames = map[domain.TrackerType]string{
	domain.TrackerAirTag:   "Apple AirTag / Find My accessory",
	domain.TrackerSmartTag: "Samsung Galaxy SmartTag",
	domain.TrackerTile:     "Tile tracker",
	domain.TrackerGeneric:  "Bluetooth tracker",
	domain.TrackerUnknown:  "Unknown Bluetooth device",
}

func trackerName(t domain.TrackerType) string {
	if name, ok := trackerNames[t]; ok {
		return name
	}
	return trackerNames[domain.TrackerUnknown]
}

func alertType(r domain.UnwantedTrackingResult) domain.TrackingAlertType {
	switch {
	case r.IsSeparated:
		return domain.AlertSeparatedTracker
	case r.TrackerType.Recognized():
		return domain.AlertKnownTracker
	default:
		return domain.AlertFollowingDevice
	}
}

func buildAlert(id string, r domain.UnwantedTrackingResult, loc *geo.Location, at time.Time) domain.UnwantedTrackingAlert {
	kind := alertType(r)
	name := trackerName(r.TrackerType)
	minutes := int(r.TrackedDuration.Minutes())

	alert := domain.UnwantedTrackingAlert{
		ID:              id,
		DeviceID:        r.DeviceID,
		Address:         r.Address,
		Type:            kind,
		TrackerType:     r.TrackerType,
		ThreatLevel:     r.ThreatLevel,
		ThreatScore:     r.ThreatScore,
		UniqueLocations: r.UniqueLocations,
		TrackedDuration: r.TrackedDuration,
		Location:        loc,
		Timestamp:       at,
	}

	switch kind {
	case domain.AlertSeparatedTracker:
		alert.Title = fmt.Sprintf("%s separated from its owner is moving with you", name)
		alert.Description = fmt.Sprintf(
			"A %s is broadcasting the separated-from-owner signal and has been near you for %d minutes across %d locations.",
			name, minutes, r.UniqueLocations)
		alert.Recommendations = []string{
			"Check your bags and vehicle for a small tag",
			"Use the platform's tracker scan feature to make the device play a sound",
			"If you find it, disable it by removing the battery",
			"Contact local law enforcement if you believe you are being tracked",
		}
	case domain.AlertKnownTracker:
		alert.Title = fmt.Sprintf("%s detected near you", name)
		alert.Description = fmt.Sprintf(
			"A %s has been observed for %d minutes with threat score %d.",
			name, minutes, r.ThreatScore)
		alert.Recommendations = []string{
			"Note whether the device keeps appearing when you change location",
			"Search your belongings for a tracking tag",
			"Move to a different location and scan again",
		}
	default:
		alert.Title = "Unknown device appears to be following you"
		alert.Description = fmt.Sprintf(
			"An unidentified Bluetooth device has been seen at %d distinct locations over %d minutes.",
			r.UniqueLocations, minutes)
		alert.Recommendations = []string{
			"Keep scanning to confirm the device continues to follow you",
			"Check your vehicle and belongings for hidden electronics",
			"Contact local law enforcement if the pattern persists",
		}
	}
	return alert
}
