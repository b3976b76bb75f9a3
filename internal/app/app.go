package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/lcalzada-xor/tailwatch/internal/adapters/reporting"
	"github.com/lcalzada-xor/tailwatch/internal/adapters/sniffer"
	"github.com/lcalzada-xor/tailwatch/internal/adapters/storage"
	"github.com/lcalzada-xor/tailwatch/internal/adapters/vendor"
	webserver "github.com/lcalzada-xor/tailwatch/internal/adapters/web/server"
	"github.com/lcalzada-xor/tailwatch/internal/config"
	"github.com/lcalzada-xor/tailwatch/internal/core/domain"
	"github.com/lcalzada-xor/tailwatch/internal/core/ports"
	"github.com/lcalzada-xor/tailwatch/internal/core/services/audit"
	"github.com/lcalzada-xor/tailwatch/internal/core/services/engine"
	grpcserver "github.com/lcalzada-xor/tailwatch/internal/core/services/grpc"
	"github.com/lcalzada-xor/tailwatch/internal/core/services/persistence"
	"github.com/lcalzada-xor/tailwatch/internal/core/services/signatures"
	"github.com/lcalzada-xor/tailwatch/internal/geo"
	"github.com/lcalzada-xor/tailwatch/internal/mock"
	"github.com/lcalzada-xor/tailwatch/internal/telemetry"
)

// Version is stamped into traces.
var Version = "dev"

const persistenceBuffer = 10000

// Application wires the detection engine to its inputs and outputs.
type Application struct {
	Config      *config.Config
	Engine      *engine.Engine
	Store       *storage.SQLiteAdapter
	Persistence *persistence.Manager
	Audit       *audit.AuditService
	WebServer   *webserver.Server
	GrpcServer  *grpcserver.GrpcServer
	Sniffer     *sniffer.Sniffer
	Vendors     *vendor.Registry
	Simulator   *mock.Simulator

	shutdownTracer func(context.Context) error
}

// New creates a new Application instance and bootstraps its components.
func New(cfg *config.Config) (*Application, error) {
	app := &Application{
		Config: cfg,
	}

	if err := app.bootstrap(); err != nil {
		app.closeStore()
		return nil, fmt.Errorf("application bootstrap failed: %w", err)
	}

	return app, nil
}

func (app *Application) bootstrap() error {
	telemetry.InitMetrics()
	if app.Config.Tracing {
		shutdown, err := telemetry.InitTracer(telemetry.TracerConfig{Version: Version})
		if err != nil {
			return fmt.Errorf("tracer init: %w", err)
		}
		app.shutdownTracer = shutdown
	}

	sigs, err := app.loadSignatures()
	if err != nil {
		return err
	}
	app.Engine = engine.New(sigs)

	var store ports.Storage
	if app.Config.Persistence {
		if err := app.initStorage(); err != nil {
			return err
		}
		store = app.Store
		app.Persistence = persistence.NewManager(app.Store, persistenceBuffer)
		app.Persistence.SetFlushInterval(app.Config.FlushInterval)
	}

	app.WebServer = webserver.NewServer(app.Config.Addr, app.Engine, reporting.NewPDFExporter(), store, app.Config.AllowedOrigins)
	if app.Store != nil {
		app.Audit = audit.NewAuditService(app.Store)
		app.WebServer.EnableAudit(app.Audit)
	}
	if app.Config.GRPCAddr != "" {
		app.GrpcServer = grpcserver.NewGrpcServer()
	}

	loc := geo.NewStaticProvider(app.Config.Latitude, app.Config.Longitude)
	if app.Config.PcapPath != "" || app.Config.Interface != "" {
		if err := app.loadVendors(); err != nil {
			return err
		}
		app.Sniffer = sniffer.New(app.Engine, loc, app.Vendors, app.Config.Debug)
	}

	if app.Config.MockMode() {
		scenario, err := mock.ParseScenario(app.Config.MockScenario)
		if err != nil {
			return err
		}
		app.Simulator = mock.NewSimulator(scenario, loc.GetLocation(), time.Now().UnixNano())
		log.Printf("Mock Mode Active: simulating scenario %q", scenario)
	}

	return nil
}

func (app *Application) loadSignatures() (*signatures.Database, error) {
	if app.Config.SignaturesPath == "" {
		return signatures.Default(), nil
	}
	sigs, err := signatures.LoadFile(app.Config.SignaturesPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load signatures: %w", err)
	}
	log.Printf("Loaded signatures from %s", app.Config.SignaturesPath)
	return sigs, nil
}

func (app *Application) loadVendors() error {
	app.Vendors = vendor.NewRegistry(vendor.DefaultCacheSize)
	if app.Config.OUIPath == "" {
		return nil
	}
	n, err := app.Vendors.LoadFile(app.Config.OUIPath)
	if err != nil {
		return fmt.Errorf("failed to load OUI file: %w", err)
	}
	log.Printf("Loaded %d OUI entries from %s", n, app.Config.OUIPath)
	return nil
}

func (app *Application) initStorage() error {
	if err := os.MkdirAll(filepath.Dir(app.Config.DBPath), 0755); err != nil {
		return fmt.Errorf("failed to create DB directory: %w", err)
	}

	store, err := storage.NewSQLiteAdapter(app.Config.DBPath)
	if err != nil {
		return fmt.Errorf("failed to init storage: %w", err)
	}
	app.Store = store
	return nil
}

// Run starts every component and blocks until ctx is cancelled or one of
// them fails.
func (app *Application) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	slog.Info("Starting tailwatch components...")

	if app.Persistence != nil {
		app.Persistence.Start(ctx)
		app.Persistence.Follow(ctx, app.Engine)
	}

	if app.Audit != nil {
		if err := app.Audit.Log(ctx, domain.ActionStartup, "tailwatch", app.startupDetails()); err != nil {
			slog.Warn("Failed to record startup", "error", err)
		}
	}

	errChan := make(chan error, 4)

	go func() {
		if err := app.WebServer.Run(ctx); err != nil {
			errChan <- fmt.Errorf("web server error: %w", err)
		}
	}()

	if app.GrpcServer != nil {
		go func() {
			if err := app.GrpcServer.ListenAndServe(ctx, app.Config.GRPCAddr); err != nil {
				errChan <- fmt.Errorf("grpc server error: %w", err)
			}
		}()
	}

	if app.Sniffer != nil {
		go app.runCapture(ctx, errChan)
	}

	if app.Simulator != nil {
		go func() {
			if err := app.Simulator.Run(ctx, app.Engine, app.Config.MockInterval); err != nil {
				errChan <- fmt.Errorf("simulator error: %w", err)
			}
		}()
	}

	slog.Info("tailwatch ready. Press Ctrl+C to terminate.")

	var runErr error
	select {
	case <-ctx.Done():
		slog.Info("Termination signal received")
	case runErr = <-errChan:
		slog.Error("Component failed", "error", runErr)
	}
	cancel()

	return errors.Join(runErr, app.cleanup())
}

func (app *Application) startupDetails() string {
	switch {
	case app.Simulator != nil:
		return "source=mock scenario=" + string(app.Simulator.Scenario())
	case app.Config.PcapPath != "":
		return "source=pcap path=" + app.Config.PcapPath
	case app.Config.Interface != "":
		return "source=interface name=" + app.Config.Interface
	}
	return "source=api"
}

func (app *Application) runCapture(ctx context.Context, errChan chan<- error) {
	if app.Config.PcapPath != "" {
		n, err := app.Sniffer.Replay(ctx, app.Config.PcapPath)
		if err != nil {
			errChan <- fmt.Errorf("capture replay error: %w", err)
			return
		}
		slog.Info("Capture replay finished", "path", app.Config.PcapPath, "sightings", n)
		return
	}
	if err := app.Sniffer.Start(ctx, app.Config.Interface); err != nil {
		errChan <- fmt.Errorf("sniffer error: %w", err)
	}
}

func (app *Application) cleanup() error {
	slog.Info("Cleaning up resources...")

	if app.Persistence != nil {
		select {
		case <-app.Persistence.Done():
		case <-time.After(5 * time.Second):
			slog.Warn("Persistence flush timed out")
		}
	}

	var errs []error
	if err := app.closeStore(); err != nil {
		errs = append(errs, fmt.Errorf("close storage: %w", err))
	}
	if app.shutdownTracer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := app.shutdownTracer(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown tracer: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (app *Application) closeStore() error {
	if app.Store == nil {
		return nil
	}
	err := app.Store.Close()
	app.Store = nil
	return err
}
