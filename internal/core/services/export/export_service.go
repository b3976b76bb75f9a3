package export

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/lcalzada-xor/tailwatch/internal/core/domain"
	"github.com/lcalzada-xor/tailwatch/internal/geo"
)

// Format selects the export encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// ErrUnknownFormat is returned for an unsupported export format.
var ErrUnknownFormat = errors.New("unknown export format")

// ParseFormat maps a name to a Format; empty means JSON.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatCSV:
		return FormatCSV, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// ContentType returns the MIME type for the format.
func (f Format) ContentType() string {
	if f == FormatCSV {
		return "text/csv"
	}
	return "application/json"
}

// Alerts writes alerts in the given format.
func Alerts(w io.Writer, f Format, alerts []domain.UnwantedTrackingAlert) error {
	if f == FormatCSV {
		return ExportAlertsCSV(w, alerts)
	}
	return writeJSON(w, alerts)
}

// Threats writes correlated threats in the given format.
func Threats(w io.Writer, f Format, threats []domain.CorrelatedThreat) error {
	if f == FormatCSV {
		return ExportThreatsCSV(w, threats)
	}
	return writeJSON(w, threats)
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// ExportAlertsCSV writes alerts as CSV with headers
func ExportAlertsCSV(w io.Writer, alerts []domain.UnwantedTrackingAlert) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	headers := []string{
		"ID", "Type", "DeviceID", "Address", "TrackerType",
		"ThreatLevel", "ThreatScore", "UniqueLocations", "TrackedSeconds",
		"Timestamp", "Latitude", "Longitude", "Title",
	}
	if err := writer.Write(headers); err != nil {
		return err
	}

	for _, a := range alerts {
		lat, lng := coords(a.Location)
		row := []string{
			a.ID,
			string(a.Type),
			a.DeviceID,
			a.Address,
			string(a.TrackerType),
			a.ThreatLevel.String(),
			fmt.Sprintf("%d", a.ThreatScore),
			fmt.Sprintf("%d", a.UniqueLocations),
			fmt.Sprintf("%.0f", a.TrackedDuration.Seconds()),
			a.Timestamp.Format(time.RFC3339),
			lat,
			lng,
			a.Title,
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// ExportThreatsCSV writes correlated threats as CSV with headers
func ExportThreatsCSV(w io.Writer, threats []domain.CorrelatedThreat) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	headers := []string{
		"ID", "Domains", "ThreatLevel", "CorrelationScore", "MatchCount",
		"Detections", "IsFollowing", "SharedLocations", "FirstSeen", "LastSeen", "Description",
	}
	if err := writer.Write(headers); err != nil {
		return err
	}

	for _, t := range threats {
		domains := make([]string, len(t.Domains))
		for i, d := range t.Domains {
			domains[i] = string(d)
		}
		row := []string{
			t.ID,
			strings.Join(domains, "+"),
			t.ThreatLevel.String(),
			fmt.Sprintf("%.2f", t.CorrelationScore),
			fmt.Sprintf("%d", t.MatchCount),
			fmt.Sprintf("%d", len(t.Detections)),
			fmt.Sprintf("%t", t.IsFollowing),
			fmt.Sprintf("%d", len(t.SharedLocations)),
			t.FirstSeen.Format(time.RFC3339),
			t.LastSeen.Format(time.RFC3339),
			t.Description,
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func coords(l *geo.Location) (lat, lng string) {
	if l == nil {
		return "", ""
	}
	return fmt.Sprintf("%.6f", l.Latitude), fmt.Sprintf("%.6f", l.Longitude)
}
