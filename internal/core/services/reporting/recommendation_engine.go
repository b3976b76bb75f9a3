package reporting

import (
	"fmt"

	"github.com/lcalzada-xor/tailwatch/internal/core/domain"
)

const maxRecommendations = 5

// RecommendationEngine turns ranked risks into concrete steps.
type RecommendationEngine struct{}

// NewRecommendationEngine creates a new recommendation engine instance
func NewRecommendationEngine() *RecommendationEngine {
	return &RecommendationEngine{}
}

// GenerateRecommendations returns one recommendation per ranked risk, topped
// up with general advice, at most five in total.
func (re *RecommendationEngine) GenerateRecommendations(topRisks []domain.RiskItem) []domain.Recommendation {
	var recommendations []domain.Recommendation
	seen := make(map[string]bool)

	for _, risk := range topRisks {
		rec := re.getRecommendationForRisk(risk.Kind, risk.AffectedDevices)
		if rec == nil || seen[rec.Title] {
			continue
		}
		seen[rec.Title] = true
		recommendations = append(recommendations, *rec)
	}

	if len(recommendations) < 3 {
		for _, rec := range re.getGeneralRecommendations() {
			if len(recommendations) >= 3 {
				break
			}
			if !seen[rec.Title] {
				seen[rec.Title] = true
				recommendations = append(recommendations, rec)
			}
		}
	}

	if len(recommendations) > maxRecommendations {
		recommendations = recommendations[:maxRecommendations]
	}
	return recommendations
}

func (re *RecommendationEngine) getRecommendationForRisk(kind string, affected int) *domain.Recommendation {
	switch kind {
	case string(domain.AlertSeparatedTracker):
		return &domain.Recommendation{
			Priority:    "critical",
			Title:       "Locate the Separated Tracker",
			Description: fmt.Sprintf("%d tracker(s) away from their owner are moving with you.", affected),
			Actions: []string{
				"Check bags, coat pockets, and the vehicle for a small tag",
				"Use the platform's tracker scan to make the tag play a sound",
				"Remove the battery once found, keeping the tag as evidence",
				"Contact local law enforcement if you feel unsafe",
			},
			EstimatedEffort: "15-30 minutes",
		}
	case string(domain.AlertKnownTracker):
		return &domain.Recommendation{
			Priority:    "high",
			Title:       "Identify the Known Tracker",
			Description: fmt.Sprintf("%d recognised tracker model(s) have stayed nearby.", affected),
			Actions: []string{
				"Note the tracker type and when it first appeared",
				"Search belongings shared with other people",
				"Disable the tag following the manufacturer's instructions",
			},
			EstimatedEffort: "30 minutes",
		}
	case string(domain.AlertFollowingDevice):
		return &domain.Recommendation{
			Priority:    "high",
			Title:       "Investigate the Following Device",
			Description: fmt.Sprintf("%d device(s) were seen at several places you visited.", affected),
			Actions: []string{
				"Review the shared locations in this report",
				"Move to a new place and rescan to confirm",
				"Inspect your vehicle, including wheel wells and the boot",
			},
			EstimatedEffort: "30-60 minutes",
		}
	case domain.FindingGPSTracker:
		return &domain.Recommendation{
			Priority:    "critical",
			Title:       "Search for a Cellular GPS Tracker",
			Description: fmt.Sprintf("%d cellular uplink burst(s) coincided with other tracking activity.", affected),
			Actions: []string{
				"Inspect the vehicle's OBD port, underside, and bumpers",
				"Look for hard-wired units near the car battery",
				"Have a professional sweep the vehicle if nothing is found",
			},
			EstimatedEffort: "1-2 hours",
		}
	case domain.FindingSuspiciousHotspot:
		return &domain.Recommendation{
			Priority:    "high",
			Title:       "Check for Hidden Cameras",
			Description: fmt.Sprintf("%d hotspot(s) use names typical of covert cameras.", affected),
			Actions: []string{
				"Look for small lenses in smoke detectors, chargers, and clocks",
				"Use a flashlight to spot lens reflections in a dark room",
				"Avoid joining or trusting the suspicious network",
			},
			EstimatedEffort: "30 minutes",
		}
	case domain.FindingUltrasonicBeacon:
		return &domain.Recommendation{
			Priority:    "medium",
			Title:       "Limit Ultrasonic Cross-Device Tracking",
			Description: fmt.Sprintf("%d ultrasonic beacon(s) were heard alongside radio activity.", affected),
			Actions: []string{
				"Revoke microphone access from apps that do not need it",
				"Uninstall apps that bundle audio-beacon SDKs",
			},
			EstimatedEffort: "15 minutes",
		}
	case domain.FindingCorrelatedActivity:
		return &domain.Recommendation{
			Priority:    "medium",
			Title:       "Review Correlated Activity",
			Description: fmt.Sprintf("%d cluster(s) of activity appeared across several radio domains at once.", affected),
			Actions: []string{
				"Compare the reported times and places with your movements",
				"Rescan at the same location to see if the activity repeats",
			},
			EstimatedEffort: "15 minutes",
		}
	}
	return nil
}

func (re *RecommendationEngine) getGeneralRecommendations() []domain.Recommendation {
	return []domain.Recommendation{
		{
			Priority:    "medium",
			Title:       "Keep Scanning While Travelling",
			Description: "Trackers are easiest to confirm when the same device shows up at several places.",
			Actions: []string{
				"Leave scanning enabled on commutes and trips",
				"Export the report after each trip",
			},
			EstimatedEffort: "Ongoing",
		},
		{
			Priority:    "low",
			Title:       "Enable Platform Tracking Alerts",
			Description: "Phones can warn about unknown trackers travelling with you.",
			Actions: []string{
				"Turn on unknown tracker alerts in the phone settings",
				"Keep Bluetooth and location services enabled",
			},
			EstimatedEffort: "5 minutes",
		},
		{
			Priority:    "low",
			Title:       "Review App Permissions",
			Description: "Location and microphone permissions are common tracking channels.",
			Actions: []string{
				"Remove background location access where not needed",
				"Audit which apps can use the microphone",
			},
			EstimatedEffort: "20 minutes",
		},
	}
}
