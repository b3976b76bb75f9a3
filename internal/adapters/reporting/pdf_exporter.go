package reporting

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/lcalzada-xor/tailwatch/internal/core/domain"
	"github.com/lcalzada-xor/tailwatch/internal/core/ports"
)

const maxRows = 20

// PDFExporter renders incident reports as PDF.
type PDFExporter struct{}

// NewPDFExporter creates a new PDF exporter instance
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Export generates a PDF incident report.
func (e *PDFExporter) Export(ctx context.Context, report domain.IncidentReport) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	e.addHeader(pdf, report)
	e.addVerdict(pdf, report)
	e.addStatistics(pdf, report)
	e.addTopRisks(pdf, report)
	e.addAlerts(pdf, report)
	e.addActiveThreats(pdf, report)
	e.addCorrelatedThreats(pdf, report)
	e.addRecommendations(pdf, report)
	e.addFooter(pdf, report)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func (e *PDFExporter) addHeader(pdf *gofpdf.Fpdf, report domain.IncidentReport) {
	title := report.Title
	if title == "" {
		title = "Unwanted Tracking Incident Report"
	}
	pdf.SetFont("Arial", "B", 22)
	pdf.SetTextColor(0, 51, 102)
	pdf.CellFormat(0, 15, title, "", 1, "L", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Arial", "", 10)
	pdf.SetTextColor(120, 120, 120)
	pdf.CellFormat(0, 6, "Generated: "+report.GeneratedAt.Format("2006-01-02 15:04 MST"), "", 1, "L", false, 0, "")
	pdf.Ln(6)
}

// worstLevel is the highest level across every reported item.
func worstLevel(report domain.IncidentReport) domain.ThreatLevel {
	var levels []domain.ThreatLevel
	for _, a := range report.Alerts {
		levels = append(levels, a.ThreatLevel)
	}
	for _, t := range report.ActiveThreats {
		levels = append(levels, t.ThreatLevel)
	}
	for _, t := range report.CorrelatedThreats {
		levels = append(levels, t.ThreatLevel)
	}
	return domain.MaxThreatLevel(levels...)
}

func (e *PDFExporter) addVerdict(pdf *gofpdf.Fpdf, report domain.IncidentReport) {
	level := worstLevel(report)
	r, g, b := levelColor(level)

	pdf.SetFillColor(r, g, b)
	y := pdf.GetY()
	pdf.Rect(20, y, 170, 24, "F")

	pdf.SetFont("Arial", "B", 20)
	pdf.SetTextColor(255, 255, 255)
	pdf.SetXY(25, y+5)
	pdf.CellFormat(80, 14, strings.ToUpper(level.String()), "", 0, "L", false, 0, "")

	pdf.SetFont("Arial", "", 11)
	pdf.SetXY(105, y+5)
	pdf.CellFormat(80, 7, fmt.Sprintf("%d high-risk alerts", report.HighRiskAlerts()), "", 2, "L", false, 0, "")
	if report.RiskLevel != "" {
		pdf.CellFormat(80, 7, fmt.Sprintf("Risk %s (%.1f/10)", report.RiskLevel, report.RiskScore), "", 0, "L", false, 0, "")
	}

	pdf.SetY(y + 30)
}

func levelColor(level domain.ThreatLevel) (r, g, b int) {
	switch level {
	case domain.ThreatCritical:
		return 220, 53, 69
	case domain.ThreatHigh:
		return 255, 149, 0
	case domain.ThreatMedium:
		return 255, 204, 0
	case domain.ThreatLow:
		return 0, 102, 204
	default:
		return 52, 199, 89
	}
}

func sectionTitle(pdf *gofpdf.Fpdf, title string) {
	if pdf.GetY() > 250 {
		pdf.AddPage()
	}
	pdf.SetFont("Arial", "B", 14)
	pdf.SetTextColor(0, 51, 102)
	pdf.CellFormat(0, 10, title, "", 1, "L", false, 0, "")
	pdf.Ln(2)
}

func emptyNote(pdf *gofpdf.Fpdf, text string) {
	pdf.SetFont("Arial", "I", 10)
	pdf.SetTextColor(100, 100, 100)
	pdf.CellFormat(0, 7, text, "", 1, "L", false, 0, "")
	pdf.Ln(5)
}

func (e *PDFExporter) addStatistics(pdf *gofpdf.Fpdf, report domain.IncidentReport) {
	sectionTitle(pdf, "Overview")

	s := report.Stats
	detections := 0
	for _, n := range s.Detections {
		detections += n
	}
	stats := []struct {
		label string
		value int
	}{
		{"BLE Identities", s.TrackedDevices},
		{"Tracker Candidates", s.Trackers},
		{"Suspicious Devices", s.SuspiciousDevices},
		{"Following Devices", s.FollowingDevices},
		{"Alerts", s.Alerts},
		{"Active Threats", s.ActiveThreats},
		{"Correlated Threats", s.CorrelatedThreats},
		{"Retained Detections", detections},
	}

	for i, stat := range stats {
		x := 20.0
		if i%2 == 1 {
			x = 105.0
		}
		pdf.SetXY(x, pdf.GetY())

		pdf.SetFont("Arial", "", 10)
		pdf.SetTextColor(100, 100, 100)
		pdf.CellFormat(50, 7, stat.label+":", "", 0, "L", false, 0, "")

		pdf.SetFont("Arial", "B", 11)
		pdf.SetTextColor(0, 102, 204)
		pdf.CellFormat(35, 7, fmt.Sprintf("%d", stat.value), "", 0, "R", false, 0, "")

		if i%2 == 1 {
			pdf.Ln(7)
		}
	}
	pdf.Ln(8)
}

func tableHeader(pdf *gofpdf.Fpdf, cols []string, widths []float64) {
	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Arial", "B", 9)
	pdf.SetTextColor(60, 60, 60)
	for i, c := range cols {
		ln := 0
		if i == len(cols)-1 {
			ln = 1
		}
		pdf.CellFormat(widths[i], 8, c, "1", ln, "L", true, 0, "")
	}
	pdf.SetFont("Arial", "", 8)
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n-3] + "..."
	}
	return s
}

func (e *PDFExporter) addAlerts(pdf *gofpdf.Fpdf, report domain.IncidentReport) {
	sectionTitle(pdf, "Tracking Alerts")
	if len(report.Alerts) == 0 {
		emptyNote(pdf, "No unwanted tracking alerts raised")
		return
	}

	widths := []float64{30, 35, 20, 25, 60}
	tableHeader(pdf, []string{"Time", "Type", "Level", "Tracker", "Title"}, widths)
	for i, a := range report.Alerts {
		if i >= maxRows {
			break
		}
		r, g, b := levelColor(a.ThreatLevel)
		pdf.SetTextColor(60, 60, 60)
		pdf.CellFormat(widths[0], 7, a.Timestamp.Format("01-02 15:04:05"), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 7, string(a.Type), "1", 0, "L", false, 0, "")
		pdf.SetTextColor(r, g, b)
		pdf.CellFormat(widths[2], 7, a.ThreatLevel.String(), "1", 0, "L", false, 0, "")
		pdf.SetTextColor(60, 60, 60)
		pdf.CellFormat(widths[3], 7, string(a.TrackerType), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[4], 7, truncate(a.Title, 40), "1", 1, "L", false, 0, "")
	}
	pdf.Ln(8)
}

func (e *PDFExporter) addActiveThreats(pdf *gofpdf.Fpdf, report domain.IncidentReport) {
	sectionTitle(pdf, "Active Threats")
	if len(report.ActiveThreats) == 0 {
		emptyNote(pdf, "No trackers currently considered dangerous")
		return
	}

	widths := []float64{40, 25, 20, 20, 25, 40}
	tableHeader(pdf, []string{"Address", "Tracker", "Level", "Score", "Locations", "Last Seen"}, widths)
	for i, t := range report.ActiveThreats {
		if i >= maxRows {
			break
		}
		r, g, b := levelColor(t.ThreatLevel)
		pdf.SetTextColor(60, 60, 60)
		pdf.CellFormat(widths[0], 7, t.Address, "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 7, string(t.TrackerType), "1", 0, "L", false, 0, "")
		pdf.SetTextColor(r, g, b)
		pdf.CellFormat(widths[2], 7, t.ThreatLevel.String(), "1", 0, "L", false, 0, "")
		pdf.SetTextColor(60, 60, 60)
		pdf.CellFormat(widths[3], 7, fmt.Sprintf("%d", t.ThreatScore), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[4], 7, fmt.Sprintf("%d", t.UniqueLocations), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[5], 7, t.LastSeen.Format("01-02 15:04:05"), "1", 1, "L", false, 0, "")
	}
	pdf.Ln(8)
}

func (e *PDFExporter) addCorrelatedThreats(pdf *gofpdf.Fpdf, report domain.IncidentReport) {
	sectionTitle(pdf, "Cross-Domain Correlations")
	if len(report.CorrelatedThreats) == 0 {
		emptyNote(pdf, "No correlated activity across domains")
		return
	}

	for i, t := range report.CorrelatedThreats {
		if i >= maxRows {
			break
		}
		if pdf.GetY() > 260 {
			pdf.AddPage()
		}
		r, g, b := levelColor(t.ThreatLevel)
		pdf.SetFillColor(r, g, b)
		pdf.SetTextColor(255, 255, 255)
		pdf.SetFont("Arial", "B", 9)
		pdf.CellFormat(25, 6, t.ThreatLevel.String(), "", 0, "C", true, 0, "")

		pdf.SetFont("Arial", "B", 10)
		pdf.SetTextColor(0, 51, 102)
		pdf.CellFormat(0, 6, "  "+truncate(t.Description, 80), "", 1, "L", false, 0, "")

		pdf.SetFont("Arial", "", 8)
		pdf.SetTextColor(60, 60, 60)
		for _, ind := range t.Indicators {
			pdf.CellFormat(5, 5, "", "", 0, "L", false, 0, "")
			pdf.CellFormat(0, 5, "- "+truncate(ind, 100), "", 1, "L", false, 0, "")
		}
		pdf.Ln(3)
	}
	pdf.Ln(5)
}

func (e *PDFExporter) addTopRisks(pdf *gofpdf.Fpdf, report domain.IncidentReport) {
	if len(report.TopRisks) == 0 {
		return
	}
	sectionTitle(pdf, "Top Risks")

	widths := []float64{10, 50, 25, 20, 65}
	tableHeader(pdf, []string{"#", "Finding", "Level", "Sources", "Impact"}, widths)
	pdf.SetFont("Arial", "", 8)
	for _, r := range report.TopRisks {
		pdf.SetTextColor(60, 60, 60)
		pdf.CellFormat(widths[0], 6, fmt.Sprintf("%d", r.Rank), "1", 0, "C", false, 0, "")
		pdf.CellFormat(widths[1], 6, r.Kind, "1", 0, "L", false, 0, "")
		cr, cg, cb := levelColor(r.ThreatLevel)
		pdf.SetTextColor(cr, cg, cb)
		pdf.CellFormat(widths[2], 6, r.ThreatLevel.String(), "1", 0, "C", false, 0, "")
		pdf.SetTextColor(60, 60, 60)
		pdf.CellFormat(widths[3], 6, fmt.Sprintf("%d", r.AffectedDevices), "1", 0, "C", false, 0, "")
		pdf.CellFormat(widths[4], 6, truncate(r.Impact, 45), "1", 1, "L", false, 0, "")
	}
	pdf.Ln(5)
}

// addRecommendations prints the ranked recommendations, falling back to the
// distinct hints carried by alerts.
func (e *PDFExporter) addRecommendations(pdf *gofpdf.Fpdf, report domain.IncidentReport) {
	if len(report.Recommendations) > 0 {
		sectionTitle(pdf, "Recommendations")
		for _, rec := range report.Recommendations {
			pdf.SetFont("Arial", "B", 10)
			pdf.SetTextColor(40, 40, 40)
			pdf.CellFormat(0, 6, fmt.Sprintf("[%s] %s", strings.ToUpper(rec.Priority), rec.Title), "", 1, "L", false, 0, "")
			pdf.SetFont("Arial", "", 9)
			pdf.SetTextColor(60, 60, 60)
			pdf.MultiCell(0, 5, rec.Description, "", "L", false)
			for _, a := range rec.Actions {
				pdf.CellFormat(0, 5, "  - "+a, "", 1, "L", false, 0, "")
			}
			pdf.Ln(2)
		}
		return
	}

	seen := make(map[string]bool)
	var recs []string
	for _, a := range report.Alerts {
		for _, r := range a.Recommendations {
			if !seen[r] {
				seen[r] = true
				recs = append(recs, r)
			}
		}
	}
	if len(recs) == 0 {
		return
	}

	sectionTitle(pdf, "Recommendations")
	pdf.SetFont("Arial", "", 9)
	pdf.SetTextColor(60, 60, 60)
	for _, r := range recs {
		pdf.MultiCell(0, 5, "- "+r, "", "L", false)
	}
}

func (e *PDFExporter) addFooter(pdf *gofpdf.Fpdf, report domain.IncidentReport) {
	pdf.SetY(-20)
	pdf.SetDrawColor(200, 200, 200)
	pdf.Line(20, pdf.GetY(), 190, pdf.GetY())
	pdf.Ln(3)

	pdf.SetFont("Arial", "I", 8)
	pdf.SetTextColor(120, 120, 120)
	pdf.CellFormat(0, 5, fmt.Sprintf("Generated by tailwatch | %s", report.GeneratedAt.Format(time.RFC3339)), "", 1, "C", false, 0, "")
}

var _ ports.ReportExporter = (*PDFExporter)(nil)
