package server

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lcalzada-xor/tailwatch/internal/adapters/web/middleware"
)

// SetupRoutes builds the HTTP API.
func SetupRoutes(s *Server) http.Handler {
	r := mux.NewRouter()
	r.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)

	ingestLimiter := middleware.NewRateLimiter(s.IngestRateLimit, time.Second)

	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/devices/suspicious", s.FeedHandler.HandleSuspicious).Methods(http.MethodGet)
	api.HandleFunc("/devices/following", s.FeedHandler.HandleFollowing).Methods(http.MethodGet)
	api.HandleFunc("/alerts", s.FeedHandler.HandleAlerts).Methods(http.MethodGet)
	api.HandleFunc("/threats/active", s.FeedHandler.HandleActiveThreats).Methods(http.MethodGet)
	api.HandleFunc("/threats/correlated", s.FeedHandler.HandleCorrelatedThreats).Methods(http.MethodGet)
	api.HandleFunc("/stats", s.FeedHandler.HandleStats).Methods(http.MethodGet)
	api.HandleFunc("/reset", s.FeedHandler.HandleReset).Methods(http.MethodPost)

	api.HandleFunc("/history/alerts", s.FeedHandler.HandleAlertHistory).Methods(http.MethodGet)
	api.HandleFunc("/history/threats", s.FeedHandler.HandleThreatHistory).Methods(http.MethodGet)
	api.HandleFunc("/history/audit", s.FeedHandler.HandleAuditHistory).Methods(http.MethodGet)

	api.HandleFunc("/export/{feed}", s.ExportHandler.HandleExport).Methods(http.MethodGet)
	api.HandleFunc("/report.pdf", s.ReportHandler.HandleGenerateReport).Methods(http.MethodGet)

	// Subrouter routes clear a method mismatch on the shared /api prefix, so
	// ingestion sits on the root router after them to answer 405 on GET.
	r.Handle("/api/sightings/{domain}",
		middleware.RateLimitMiddleware(ingestLimiter)(http.HandlerFunc(s.SightingHandler.HandleIngest))).
		Methods(http.MethodPost)

	r.HandleFunc("/ws", s.WSManager.HandleWebSocket)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusMethodNotAllowed)
	_, _ = w.Write([]byte(`{"error":"method not allowed"}` + "\n"))
}
