package reporting

import (
	"math"
	"strings"
	"testing"

	"github.com/lcalzada-xor/tailwatch/internal/core/domain"
)

func TestCalculateOverallRisk(t *testing.T) {
	rc := NewRiskCalculator()

	tests := []struct {
		name     string
		findings []domain.Finding
		want     float64
	}{
		{"no findings", nil, 0},
		{
			"single critical tracker",
			[]domain.Finding{{Kind: "SEPARATED_TRACKER", SubjectID: "a", ThreatLevel: domain.ThreatCritical}},
			10,
		},
		{
			"two mixed subjects",
			[]domain.Finding{
				{Kind: "FOLLOWING_DEVICE", SubjectID: "a", ThreatLevel: domain.ThreatLow},
				{Kind: "CORRELATED_ACTIVITY", SubjectID: "b", ThreatLevel: domain.ThreatMedium},
			},
			// worst 5, mean 3.75, subject factor 1.125
			(0.7*5 + 0.3*3.75) * 1.125,
		},
		{
			"info only",
			[]domain.Finding{{Kind: "CORRELATED_ACTIVITY", SubjectID: "a", ThreatLevel: domain.ThreatInfo}},
			0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := rc.CalculateOverallRisk(tt.findings)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("CalculateOverallRisk() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCalculateOverallRiskCapped(t *testing.T) {
	rc := NewRiskCalculator()

	var findings []domain.Finding
	for _, id := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"} {
		findings = append(findings, domain.Finding{Kind: "SEPARATED_TRACKER", SubjectID: id, ThreatLevel: domain.ThreatCritical})
	}

	if got := rc.CalculateOverallRisk(findings); got != 10.0 {
		t.Errorf("CalculateOverallRisk() = %v, want capped 10", got)
	}
}

func TestGetRiskLevel(t *testing.T) {
	rc := NewRiskCalculator()

	tests := []struct {
		score    float64
		expected string
	}{
		{0.0, "Low"},
		{3.9, "Low"},
		{4.0, "Medium"},
		{5.9, "Medium"},
		{6.0, "High"},
		{7.9, "High"},
		{8.0, "Critical"},
		{10.0, "Critical"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			result := rc.GetRiskLevel(tt.score)
			if result != tt.expected {
				t.Errorf("GetRiskLevel(%v) = %v, want %v", tt.score, result, tt.expected)
			}
		})
	}
}

func TestCalculateTopRisks(t *testing.T) {
	rc := NewRiskCalculator()

	findings := []domain.Finding{
		{Kind: "SEPARATED_TRACKER", SubjectID: "tag-1", ThreatLevel: domain.ThreatCritical},
		{Kind: "SEPARATED_TRACKER", SubjectID: "tag-2", ThreatLevel: domain.ThreatCritical},
		{Kind: "SEPARATED_TRACKER", SubjectID: "tag-2", ThreatLevel: domain.ThreatCritical},
		{Kind: "FOLLOWING_DEVICE", SubjectID: "dev-1", ThreatLevel: domain.ThreatHigh},
		{Kind: "CORRELATED_ACTIVITY", SubjectID: "geo:1", ThreatLevel: domain.ThreatLow},
		{Kind: "CORRELATED_ACTIVITY", SubjectID: "geo:1", ThreatLevel: domain.ThreatMedium},
	}

	risks := rc.CalculateTopRisks(findings, 5)
	if len(risks) != 3 {
		t.Fatalf("CalculateTopRisks() returned %d risks, want 3", len(risks))
	}

	if risks[0].Kind != "SEPARATED_TRACKER" {
		t.Errorf("Top risk should be SEPARATED_TRACKER, got %v", risks[0].Kind)
	}
	if risks[0].AffectedDevices != 2 {
		t.Errorf("SEPARATED_TRACKER should affect 2 devices, got %d", risks[0].AffectedDevices)
	}
	if risks[2].Kind != "CORRELATED_ACTIVITY" || risks[2].ThreatLevel != domain.ThreatMedium {
		t.Errorf("CORRELATED_ACTIVITY should rank last at its worst level, got %+v", risks[2])
	}

	for i, risk := range risks {
		if risk.Rank != i+1 {
			t.Errorf("Risk at index %d has rank %d, expected %d", i, risk.Rank, i+1)
		}
		if i > 0 && risk.RiskScore > risks[i-1].RiskScore {
			t.Errorf("Risk scores not in descending order: %v > %v", risk.RiskScore, risks[i-1].RiskScore)
		}
	}

	limited := rc.CalculateTopRisks(findings, 2)
	if len(limited) != 2 || limited[1].Rank != 2 {
		t.Errorf("CalculateTopRisks() with limit 2 returned %+v", limited)
	}
}

func TestFindings(t *testing.T) {
	rc := NewRiskCalculator()

	report := domain.IncidentReport{
		Alerts: []domain.UnwantedTrackingAlert{
			{ID: "a1", DeviceID: "dev-1", Type: domain.AlertSeparatedTracker, ThreatLevel: domain.ThreatCritical},
		},
		CorrelatedThreats: []domain.CorrelatedThreat{{
			ID:          "geo:1",
			ThreatLevel: domain.ThreatHigh,
			Detections: []domain.DomainDetection{
				{ID: "d1", Domain: domain.DomainRF, Payload: domain.RFPayload{FrequencyMHz: 1850.2, GPSTracker: true}},
				{ID: "d2", Domain: domain.DomainWiFi, Payload: domain.WiFiPayload{SSID: "SpyCam-1", Pattern: "SpyCam"}},
				{ID: "d3", Domain: domain.DomainUltrasonic},
			},
		}},
	}

	kinds := make(map[string]domain.Finding)
	for _, f := range rc.Findings(report) {
		kinds[f.Kind] = f
	}

	want := []string{
		string(domain.AlertSeparatedTracker),
		domain.FindingCorrelatedActivity,
		domain.FindingGPSTracker,
		domain.FindingSuspiciousHotspot,
	}
	if len(kinds) != len(want) {
		t.Fatalf("Findings() kinds = %v, want %v", kinds, want)
	}
	for _, k := range want {
		if _, ok := kinds[k]; !ok {
			t.Errorf("Findings() missing kind %s", k)
		}
	}
	if kinds[domain.FindingGPSTracker].SubjectID != "geo:1" {
		t.Errorf("GPS finding should point at the threat, got %q", kinds[domain.FindingGPSTracker].SubjectID)
	}
}

func TestImpactAndLikelihood(t *testing.T) {
	rc := NewRiskCalculator()

	for _, level := range []domain.ThreatLevel{domain.ThreatInfo, domain.ThreatLow, domain.ThreatMedium, domain.ThreatHigh, domain.ThreatCritical} {
		if result := rc.getImpactLevel(level); !strings.Contains(result, " - ") {
			t.Errorf("getImpactLevel(%v) = %q", level, result)
		}
	}
	if got := rc.getLikelihoodLevel(1); !strings.HasPrefix(got, "Low") {
		t.Errorf("getLikelihoodLevel(1) = %q", got)
	}
	if got := rc.getLikelihoodLevel(7); !strings.HasPrefix(got, "Very High") {
		t.Errorf("getLikelihoodLevel(7) = %q", got)
	}
}
