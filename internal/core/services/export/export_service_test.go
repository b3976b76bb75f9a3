package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lcalzada-xor/tailwatch/internal/core/domain"
	"github.com/lcalzada-xor/tailwatch/internal/geo"
)

var ts = time.Date(2024, 3, 1, 18, 0, 0, 0, time.UTC)

func sampleAlerts() []domain.UnwantedTrackingAlert {
	return []domain.UnwantedTrackingAlert{
		{
			ID:              "a1",
			DeviceID:        "dev-1",
			Address:         "5A:11:22:33:44:55",
			Type:            domain.AlertSeparatedTracker,
			TrackerType:     domain.TrackerAirTag,
			ThreatLevel:     domain.ThreatCritical,
			ThreatScore:     65,
			Title:           "AirTag, with a comma",
			UniqueLocations: 3,
			TrackedDuration: 20 * time.Minute,
			Location:        &geo.Location{Latitude: 51.5007, Longitude: -0.1246},
			Timestamp:       ts,
		},
		{ID: "a2", Type: domain.AlertFollowingDevice, ThreatLevel: domain.ThreatHigh, Timestamp: ts},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
	}{
		{"", FormatJSON},
		{"json", FormatJSON},
		{"CSV", FormatCSV},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	_, err := ParseFormat("xml")
	assert.ErrorIs(t, err, ErrUnknownFormat)

	assert.Equal(t, "text/csv", FormatCSV.ContentType())
	assert.Equal(t, "application/json", FormatJSON.ContentType())
}

func TestExportAlertsCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Alerts(&buf, FormatCSV, sampleAlerts()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, "ID", records[0][0])
	row := records[1]
	assert.Equal(t, "a1", row[0])
	assert.Equal(t, "SEPARATED_TRACKER", row[1])
	assert.Equal(t, "CRITICAL", row[5])
	assert.Equal(t, "1200", row[8])
	assert.Equal(t, "51.500700", row[10])
	assert.Equal(t, "AirTag, with a comma", row[12])

	assert.Equal(t, "", records[2][10], "missing location stays empty")
}

func TestExportAlertsJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Alerts(&buf, FormatJSON, sampleAlerts()))

	var decoded []domain.UnwantedTrackingAlert
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, domain.ThreatCritical, decoded[0].ThreatLevel)
}

func TestExportThreatsCSV(t *testing.T) {
	threats := []domain.CorrelatedThreat{{
		ID:               "geo:51.501,-0.125@1709316000",
		Domains:          []domain.Domain{domain.DomainBLE, domain.DomainRF},
		Detections:       make([]domain.DomainDetection, 2),
		CorrelationScore: 0.95,
		MatchCount:       1,
		ThreatLevel:      domain.ThreatCritical,
		FirstSeen:        ts,
		LastSeen:         ts.Add(4 * time.Second),
		Description:      "BLE + RF activity",
	}}

	var buf bytes.Buffer
	require.NoError(t, Threats(&buf, FormatCSV, threats))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []string{
		"geo:51.501,-0.125@1709316000", "ble+rf", "CRITICAL", "0.95", "1", "2", "false", "0",
		"2024-03-01T18:00:00Z", "2024-03-01T18:00:04Z", "BLE + RF activity",
	}, records[1])
}

func TestExportEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Threats(&buf, FormatCSV, nil))
	assert.Equal(t, "ID,Domains,ThreatLevel,CorrelationScore,MatchCount,Detections,IsFollowing,SharedLocations,FirstSeen,LastSeen,Description\n", buf.String())

	buf.Reset()
	require.NoError(t, Alerts(&buf, FormatJSON, nil))
	assert.Equal(t, "null\n", buf.String())
}
