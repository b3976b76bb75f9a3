package handlers

import (
	"fmt"
	"log"
	"net/http"

	"github.com/lcalzada-xor/tailwatch/internal/core/domain"
	"github.com/lcalzada-xor/tailwatch/internal/core/ports"
)

// ReportHandler renders the incident report.
type ReportHandler struct {
	Service  ports.TrackingService
	Exporter ports.ReportExporter
	Audit    ports.AuditLogger
}

// NewReportHandler creates a new ReportHandler
func NewReportHandler(service ports.TrackingService, exporter ports.ReportExporter) *ReportHandler {
	return &ReportHandler{Service: service, Exporter: exporter}
}

// HandleGenerateReport streams the current incident report as a PDF.
func (h *ReportHandler) HandleGenerateReport(w http.ResponseWriter, r *http.Request) {
	report := h.Service.Report()
	data, err := h.Exporter.Export(r.Context(), report)
	if err != nil {
		log.Printf("[WEB] Report generation failed: %v", err)
		writeError(w, http.StatusInternalServerError, "report generation failed")
		return
	}

	filename := fmt.Sprintf("tailwatch-incident-%s.pdf", report.GeneratedAt.Format("20060102-150405"))
	recordAudit(r, h.Audit, domain.ActionReportExport, filename,
		fmt.Sprintf("alerts=%d threats=%d risk=%s", len(report.Alerts), len(report.CorrelatedThreats), report.RiskLevel))
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		log.Printf("[WEB] Failed to write report: %v", err)
	}
}
