package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"strconv"

	"github.com/lcalzada-xor/tailwatch/internal/core/domain"
	"github.com/lcalzada-xor/tailwatch/internal/core/ports"
	"github.com/lcalzada-xor/tailwatch/internal/core/services/audit"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[WEB] Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusFor maps validation failures to 400 and everything else to 500.
func statusFor(err error) int {
	var verr *domain.ValidationError
	if errors.As(err, &verr) || errors.Is(err, domain.ErrUnknownDomain) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// recordAudit appends an entry to the audit trail when one is configured.
// Failures are logged and never fail the request.
func recordAudit(r *http.Request, a ports.AuditLogger, action domain.AuditAction, target, details string) {
	if a == nil {
		return
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	ctx := audit.WithRemoteAddr(r.Context(), host)
	if err := a.Log(ctx, action, target, details); err != nil {
		log.Printf("[WEB] Failed to record audit entry %s: %v", action, err)
	}
}

// limitParam reads ?limit=, falling back to def.
func limitParam(r *http.Request, def int) int {
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}
