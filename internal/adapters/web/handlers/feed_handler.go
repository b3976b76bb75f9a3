package handlers

import (
	"net/http"

	"github.com/lcalzada-xor/tailwatch/internal/core/domain"
	"github.com/lcalzada-xor/tailwatch/internal/core/ports"
)

const defaultHistoryLimit = 100

// FeedHandler serves the live feeds, statistics and persisted history.
type FeedHandler struct {
	Service ports.TrackingService
	Storage ports.Storage     // optional
	Audit   ports.AuditLogger // optional
}

// NewFeedHandler creates a new FeedHandler. store may be nil.
func NewFeedHandler(service ports.TrackingService, store ports.Storage) *FeedHandler {
	return &FeedHandler{Service: service, Storage: store}
}

func (h *FeedHandler) HandleSuspicious(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Service.SuspiciousDevices())
}

func (h *FeedHandler) HandleFollowing(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Service.FollowingDevices())
}

func (h *FeedHandler) HandleAlerts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Service.Alerts())
}

func (h *FeedHandler) HandleActiveThreats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Service.ActiveThreats())
}

func (h *FeedHandler) HandleCorrelatedThreats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Service.CorrelatedThreats())
}

func (h *FeedHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Service.Stats())
}

// HandleReset clears all in-memory state. Persisted history is kept.
func (h *FeedHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	h.Service.Reset(r.Context())
	recordAudit(r, h.Audit, domain.ActionReset, "engine", "in-memory state cleared")
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// HandleAlertHistory returns persisted alerts, newest first.
func (h *FeedHandler) HandleAlertHistory(w http.ResponseWriter, r *http.Request) {
	if h.Storage == nil {
		writeError(w, http.StatusServiceUnavailable, "persistence disabled")
		return
	}
	alerts, err := h.Storage.ListAlerts(limitParam(r, defaultHistoryLimit))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, alerts)
}

// HandleThreatHistory returns persisted correlated threats, newest first.
func (h *FeedHandler) HandleThreatHistory(w http.ResponseWriter, r *http.Request) {
	if h.Storage == nil {
		writeError(w, http.StatusServiceUnavailable, "persistence disabled")
		return
	}
	threats, err := h.Storage.ListThreats(limitParam(r, defaultHistoryLimit))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, threats)
}

// HandleAuditHistory returns the operator audit trail, newest first.
func (h *FeedHandler) HandleAuditHistory(w http.ResponseWriter, r *http.Request) {
	if h.Audit == nil {
		writeError(w, http.StatusServiceUnavailable, "persistence disabled")
		return
	}
	logs, err := h.Audit.GetLogs(r.Context(), limitParam(r, defaultHistoryLimit))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, logs)
}
