package reporting

import (
	"testing"

	"github.com/lcalzada-xor/tailwatch/internal/core/domain"
)

var validPriorities = map[string]bool{"critical": true, "high": true, "medium": true, "low": true}

func checkRecommendation(t *testing.T, i int, rec domain.Recommendation) {
	t.Helper()
	if !validPriorities[rec.Priority] {
		t.Errorf("Recommendation %d has invalid priority %q", i, rec.Priority)
	}
	if rec.Title == "" {
		t.Errorf("Recommendation %d missing title", i)
	}
	if rec.Description == "" {
		t.Errorf("Recommendation %d missing description", i)
	}
	if len(rec.Actions) == 0 {
		t.Errorf("Recommendation %d has no actions", i)
	}
	if rec.EstimatedEffort == "" {
		t.Errorf("Recommendation %d missing estimated effort", i)
	}
}

func TestGenerateRecommendations(t *testing.T) {
	re := NewRecommendationEngine()

	topRisks := []domain.RiskItem{
		{Kind: string(domain.AlertSeparatedTracker), AffectedDevices: 1},
		{Kind: domain.FindingGPSTracker, AffectedDevices: 1},
		{Kind: domain.FindingSuspiciousHotspot, AffectedDevices: 2},
	}

	recommendations := re.GenerateRecommendations(topRisks)
	if len(recommendations) != 3 {
		t.Fatalf("Expected 3 recommendations, got %d", len(recommendations))
	}
	if recommendations[0].Title != "Locate the Separated Tracker" {
		t.Errorf("First recommendation should follow the top risk, got %q", recommendations[0].Title)
	}
	for i, rec := range recommendations {
		checkRecommendation(t, i, rec)
	}
}

func TestGetRecommendationForRisk(t *testing.T) {
	re := NewRecommendationEngine()

	kinds := []string{
		string(domain.AlertSeparatedTracker),
		string(domain.AlertKnownTracker),
		string(domain.AlertFollowingDevice),
		domain.FindingGPSTracker,
		domain.FindingSuspiciousHotspot,
		domain.FindingUltrasonicBeacon,
		domain.FindingCorrelatedActivity,
	}
	for i, kind := range kinds {
		t.Run(kind, func(t *testing.T) {
			rec := re.getRecommendationForRisk(kind, 2)
			if rec == nil {
				t.Fatalf("no recommendation for %s", kind)
			}
			checkRecommendation(t, i, *rec)
		})
	}

	if rec := re.getRecommendationForRisk("UNKNOWN", 1); rec != nil {
		t.Errorf("Expected nil for unknown kind, got %+v", rec)
	}
}

func TestGenerateRecommendationsTopsUpWithGeneral(t *testing.T) {
	re := NewRecommendationEngine()

	recs := re.GenerateRecommendations(nil)
	if len(recs) != 3 {
		t.Fatalf("Expected 3 general recommendations, got %d", len(recs))
	}

	recs = re.GenerateRecommendations([]domain.RiskItem{{Kind: string(domain.AlertFollowingDevice), AffectedDevices: 1}})
	if len(recs) != 3 {
		t.Fatalf("Expected specific plus general recommendations to total 3, got %d", len(recs))
	}
	if recs[0].Title != "Investigate the Following Device" {
		t.Errorf("Specific recommendation should come first, got %q", recs[0].Title)
	}
}

func TestRecommendationLimits(t *testing.T) {
	re := NewRecommendationEngine()

	var risks []domain.RiskItem
	for _, kind := range []string{
		string(domain.AlertSeparatedTracker),
		string(domain.AlertKnownTracker),
		string(domain.AlertFollowingDevice),
		domain.FindingGPSTracker,
		domain.FindingSuspiciousHotspot,
		domain.FindingUltrasonicBeacon,
		domain.FindingCorrelatedActivity,
	} {
		risks = append(risks, domain.RiskItem{Kind: kind, AffectedDevices: 1})
	}

	if recs := re.GenerateRecommendations(risks); len(recs) != maxRecommendations {
		t.Errorf("Expected %d recommendations, got %d", maxRecommendations, len(recs))
	}
}
