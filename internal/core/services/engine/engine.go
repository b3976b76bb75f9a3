package engine

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/lcalzada-xor/tailwatch/internal/core/domain"
	"github.com/lcalzada-xor/tailwatch/internal/core/ports"
	"github.com/lcalzada-xor/tailwatch/internal/core/services/correlation"
	"github.com/lcalzada-xor/tailwatch/internal/core/services/identity"
	"github.com/lcalzada-xor/tailwatch/internal/core/services/reporting"
	"github.com/lcalzada-xor/tailwatch/internal/core/services/signatures"
	"github.com/lcalzada-xor/tailwatch/internal/core/services/stream"
	"github.com/lcalzada-xor/tailwatch/internal/core/services/tracking"
	"github.com/lcalzada-xor/tailwatch/internal/telemetry"
)

// Engine fans sightings out to the identity resolver, the unwanted-tracking
// detector and the cross-domain correlator.
type Engine struct {
	resolver   *identity.Resolver
	detector   *tracking.Detector
	correlator *correlation.Correlator
	summarizer *reporting.Summarizer
	tracer     trace.Tracer

	clockMu sync.RWMutex
	clock   func() time.Time
}

// New wires the three analysers around one signature table.
func New(sigs *signatures.Database) *Engine {
	if sigs == nil {
		sigs = signatures.Default()
	}
	return &Engine{
		resolver:   identity.NewResolver(sigs),
		detector:   tracking.NewDetector(sigs),
		correlator: correlation.NewCorrelator(sigs),
		summarizer: reporting.NewSummarizer(),
		tracer:     otel.Tracer("tailwatch/engine"),
		clock:      time.Now,
	}
}

// SetClock overrides the time source used for sightings without a timestamp.
func (e *Engine) SetClock(clock func() time.Time) {
	e.clockMu.Lock()
	defer e.clockMu.Unlock()
	e.clock = clock
}

func (e *Engine) now() time.Time {
	e.clockMu.RLock()
	defer e.clockMu.RUnlock()
	return e.clock()
}

// IngestBLE runs a BLE sighting through every analyser and registers the
// combined verdict with the correlator.
func (e *Engine) IngestBLE(ctx context.Context, s domain.Sighting) domain.BLEResult {
	_, span := e.tracer.Start(ctx, "IngestBLE")
	defer span.End()

	if s.Timestamp.IsZero() {
		s.Timestamp = e.now()
	}
	telemetry.SightingsProcessed.WithLabelValues(string(domain.DomainBLE)).Inc()

	res := domain.BLEResult{
		Analysis: e.resolver.Process(s),
		Tracking: e.detector.Process(s),
	}

	res.Detection, res.Threat = e.correlator.RegisterBLE(s, correlation.BLEContext{
		DeviceID:    res.Analysis.DeviceID,
		TrackerType: res.Tracking.TrackerType,
		Category:    res.Analysis.Category,
		ThreatLevel: domain.MaxThreatLevel(res.Analysis.ThreatLevel, res.Tracking.ThreatLevel),
		IsRotating:  res.Analysis.IsRotatingAddress,
		IsFollowing: res.Analysis.IsFollowing,
		IsSeparated: res.Tracking.IsSeparated,
		Indicators:  mergeIndicators(res.Analysis.Indicators, res.Tracking.Indicators),
	})

	span.SetAttributes(
		attribute.String("ble.address", s.Address),
		attribute.String("ble.device_id", res.Analysis.DeviceID),
		attribute.String("threat.level", res.Detection.ThreatLevel.String()),
		attribute.Bool("tracking.unwanted", res.Tracking.IsUnwantedTracking),
		attribute.Bool("correlated", res.Threat != nil),
	)
	return res
}

// IngestWiFi registers a WiFi sighting with the correlator.
func (e *Engine) IngestWiFi(ctx context.Context, s domain.WiFiSighting) domain.DetectionResult {
	_, span := e.tracer.Start(ctx, "IngestWiFi")
	defer span.End()

	if s.Timestamp.IsZero() {
		s.Timestamp = e.now()
	}
	telemetry.SightingsProcessed.WithLabelValues(string(domain.DomainWiFi)).Inc()

	det, threat := e.correlator.RegisterWiFi(s)
	annotate(span, det, threat)
	return domain.DetectionResult{Detection: det, Threat: threat}
}

// IngestRF registers an RF sighting with the correlator.
func (e *Engine) IngestRF(ctx context.Context, s domain.RFSighting) domain.DetectionResult {
	_, span := e.tracer.Start(ctx, "IngestRF")
	defer span.End()

	if s.Timestamp.IsZero() {
		s.Timestamp = e.now()
	}
	telemetry.SightingsProcessed.WithLabelValues(string(domain.DomainRF)).Inc()

	det, threat := e.correlator.RegisterRF(s)
	annotate(span, det, threat)
	return domain.DetectionResult{Detection: det, Threat: threat}
}

// IngestUltrasonic registers an ultrasonic sighting with the correlator.
func (e *Engine) IngestUltrasonic(ctx context.Context, s domain.UltrasonicSighting) domain.DetectionResult {
	_, span := e.tracer.Start(ctx, "IngestUltrasonic")
	defer span.End()

	if s.Timestamp.IsZero() {
		s.Timestamp = e.now()
	}
	telemetry.SightingsProcessed.WithLabelValues(string(domain.DomainUltrasonic)).Inc()

	det, threat := e.correlator.RegisterUltrasonic(s)
	annotate(span, det, threat)
	return domain.DetectionResult{Detection: det, Threat: threat}
}

func annotate(span trace.Span, det domain.DomainDetection, threat *domain.CorrelatedThreat) {
	span.SetAttributes(
		attribute.String("detection.domain", string(det.Domain)),
		attribute.String("threat.level", det.ThreatLevel.String()),
		attribute.Bool("correlated", threat != nil),
	)
}

func mergeIndicators(lists ...[]string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, l := range lists {
		for _, s := range l {
			if !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
	}
	return out
}

// Reset clears every component and feed.
func (e *Engine) Reset(ctx context.Context) {
	_, span := e.tracer.Start(ctx, "Reset")
	defer span.End()

	e.resolver.Reset()
	e.detector.Reset()
	e.correlator.Reset()
}

// Stats reports component sizes.
func (e *Engine) Stats() domain.EngineStats {
	return domain.EngineStats{
		TrackedDevices:    e.resolver.DeviceCount(),
		Trackers:          e.detector.DeviceCount(),
		Detections:        e.correlator.DetectionCount(),
		SuspiciousDevices: e.resolver.Suspicious().Len(),
		FollowingDevices:  e.resolver.Following().Len(),
		Alerts:            e.detector.Alerts().Len(),
		ActiveThreats:     e.detector.ActiveThreats().Len(),
		CorrelatedThreats: e.correlator.Threats().Len(),
	}
}

// Report assembles an incident report from the current feeds.
func (e *Engine) Report() domain.IncidentReport {
	report := domain.IncidentReport{
		GeneratedAt:       e.now(),
		Title:             "Unwanted Tracking Incident Report",
		Stats:             e.Stats(),
		Alerts:            e.Alerts(),
		ActiveThreats:     e.ActiveThreats(),
		CorrelatedThreats: e.CorrelatedThreats(),
		FollowingDevices:  e.FollowingDevices(),
	}
	e.summarizer.Summarize(&report)
	return report
}

func (e *Engine) SuspiciousDevices() []domain.BleTrackingAnalysis {
	return e.resolver.Suspicious().Snapshot()
}

func (e *Engine) FollowingDevices() []domain.BleTrackingAnalysis {
	return e.resolver.Following().Snapshot()
}

func (e *Engine) Alerts() []domain.UnwantedTrackingAlert {
	return e.detector.Alerts().Snapshot()
}

func (e *Engine) ActiveThreats() []domain.ActiveThreat {
	return e.detector.ActiveThreats().Snapshot()
}

func (e *Engine) CorrelatedThreats() []domain.CorrelatedThreat {
	return e.correlator.Threats().Snapshot()
}

// Subscribe merges every feed into one stream of updates. Each feed first
// delivers its current snapshot. The returned channel is closed after cancel.
func (e *Engine) Subscribe() (<-chan domain.FeedUpdate, func()) {
	out := make(chan domain.FeedUpdate, 8)
	done := make(chan struct{})
	var wg sync.WaitGroup

	cancels := []func(){
		pump(&wg, done, out, e.resolver.Suspicious()),
		pump(&wg, done, out, e.resolver.Following()),
		pump(&wg, done, out, e.detector.Alerts()),
		pump(&wg, done, out, e.detector.ActiveThreats()),
		pump(&wg, done, out, e.correlator.Threats()),
	}

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			for _, c := range cancels {
				c()
			}
			wg.Wait()
			close(out)
		})
	}
	return out, cancel
}

func pump[T any](wg *sync.WaitGroup, done <-chan struct{}, out chan<- domain.FeedUpdate, feed *stream.Feed[T]) func() {
	src, cancel := feed.Subscribe()
	name := domain.FeedName(feed.Name())
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			case items, ok := <-src:
				if !ok {
					return
				}
				select {
				case out <- domain.FeedUpdate{Feed: name, Items: items}:
				case <-done:
					return
				}
			}
		}
	}()
	return cancel
}

var _ ports.TrackingService = (*Engine)(nil)
