package handlers

import (
	"bytes"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/lcalzada-xor/tailwatch/internal/core/domain"
	"github.com/lcalzada-xor/tailwatch/internal/core/ports"
	"github.com/lcalzada-xor/tailwatch/internal/core/services/export"
)

// ExportHandler downloads the live alert and correlated-threat feeds.
type ExportHandler struct {
	Service ports.FeedSource
	Audit   ports.AuditLogger
}

// NewExportHandler creates a new ExportHandler
func NewExportHandler(service ports.FeedSource) *ExportHandler {
	return &ExportHandler{Service: service}
}

// HandleExport serves /api/export/{feed}?format=json|csv.
func (h *ExportHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	feed := mux.Vars(r)["feed"]
	var buf bytes.Buffer
	switch feed {
	case "alerts":
		err = export.Alerts(&buf, format, h.Service.Alerts())
	case "threats":
		err = export.Threats(&buf, format, h.Service.CorrelatedThreats())
	default:
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown feed %q", feed))
		return
	}
	if err != nil {
		log.Printf("[WEB] Export of %s failed: %v", feed, err)
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}

	filename := fmt.Sprintf("tailwatch-%s-%s.%s", feed, time.Now().Format("20060102-150405"), format)
	recordAudit(r, h.Audit, domain.ActionDataExport, feed, "format="+string(format))
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		log.Printf("[WEB] Failed to write export: %v", err)
	}
}
