package reporting

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lcalzada-xor/tailwatch/internal/core/domain"
)

func TestSummarize(t *testing.T) {
	report := domain.IncidentReport{
		Alerts: []domain.UnwantedTrackingAlert{
			{ID: "a1", DeviceID: "dev-1", Type: domain.AlertSeparatedTracker, ThreatLevel: domain.ThreatCritical},
		},
	}

	NewSummarizer().Summarize(&report)

	assert.Equal(t, 10.0, report.RiskScore)
	assert.Equal(t, "Critical", report.RiskLevel)
	require.Len(t, report.TopRisks, 1)
	assert.Equal(t, string(domain.AlertSeparatedTracker), report.TopRisks[0].Kind)
	require.Len(t, report.Recommendations, 3)
	assert.Equal(t, "critical", report.Recommendations[0].Priority)
}

func TestSummarize_EmptyReport(t *testing.T) {
	var report domain.IncidentReport
	NewSummarizer().Summarize(&report)

	assert.Zero(t, report.RiskScore)
	assert.Equal(t, "Low", report.RiskLevel)
	assert.Empty(t, report.TopRisks)
	assert.Len(t, report.Recommendations, 3)
}
