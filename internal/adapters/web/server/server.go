package server

import (
	"context"
	"log"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/lcalzada-xor/tailwatch/internal/adapters/web/handlers"
	"github.com/lcalzada-xor/tailwatch/internal/adapters/web/websocket"
	"github.com/lcalzada-xor/tailwatch/internal/core/ports"
)

// DefaultIngestRateLimit is the per-host sighting budget per second.
const DefaultIngestRateLimit = 200

// Server handles HTTP and WebSocket connections.
type Server struct {
	Addr            string
	Service         ports.TrackingService
	IngestRateLimit int

	WSManager       *websocket.Manager
	SightingHandler *handlers.SightingHandler
	FeedHandler     *handlers.FeedHandler
	ReportHandler   *handlers.ReportHandler
	ExportHandler   *handlers.ExportHandler
	srv             *http.Server
}

// NewServer creates a new web server. store may be nil when persistence is off.
func NewServer(addr string, service ports.TrackingService, exporter ports.ReportExporter, store ports.Storage, allowedOrigins []string) *Server {
	return &Server{
		Addr:            addr,
		Service:         service,
		IngestRateLimit: DefaultIngestRateLimit,
		WSManager:       websocket.NewManager(service, allowedOrigins),
		SightingHandler: handlers.NewSightingHandler(service),
		FeedHandler:     handlers.NewFeedHandler(service, store),
		ReportHandler:   handlers.NewReportHandler(service, exporter),
		ExportHandler:   handlers.NewExportHandler(service),
	}
}

// EnableAudit records operator actions served by the API and exposes the
// trail under /api/history/audit.
func (s *Server) EnableAudit(a ports.AuditLogger) {
	s.FeedHandler.Audit = a
	s.ReportHandler.Audit = a
	s.ExportHandler.Audit = a
}

// Handler returns the instrumented route tree.
func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(SetupRoutes(s), "tailwatch-server")
}

// Run starts the server and the broadcaster.
func (s *Server) Run(ctx context.Context) error {
	s.WSManager.Start(ctx)

	s.srv = &http.Server{
		Addr:              s.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		log.Println("[WEB] Server shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("[WEB] Shutdown error: %v", err)
		}
	}()

	log.Printf("[WEB] Listening on %s", s.Addr)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
