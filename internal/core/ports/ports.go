package ports

import (
	"context"

	"github.com/lcalzada-xor/tailwatch/internal/core/domain"
)

// SightingSink accepts sightings from scanners, capture replays and simulators.
type SightingSink interface {
	IngestBLE(ctx context.Context, s domain.Sighting) domain.BLEResult
	IngestWiFi(ctx context.Context, s domain.WiFiSighting) domain.DetectionResult
	IngestRF(ctx context.Context, s domain.RFSighting) domain.DetectionResult
	IngestUltrasonic(ctx context.Context, s domain.UltrasonicSighting) domain.DetectionResult
}

// FeedSource exposes the published result streams.
type FeedSource interface {
	SuspiciousDevices() []domain.BleTrackingAnalysis
	FollowingDevices() []domain.BleTrackingAnalysis
	Alerts() []domain.UnwantedTrackingAlert
	ActiveThreats() []domain.ActiveThreat
	CorrelatedThreats() []domain.CorrelatedThreat

	// Subscribe delivers every feed change until cancel is called.
	Subscribe() (<-chan domain.FeedUpdate, func())
}

// TrackingService is the full core surface consumed by the web adapter.
type TrackingService interface {
	SightingSink
	FeedSource
	Reset(ctx context.Context)
	Stats() domain.EngineStats
	Report() domain.IncidentReport
}

// ReportExporter renders an incident report.
type ReportExporter interface {
	Export(ctx context.Context, report domain.IncidentReport) ([]byte, error)
}

// VendorLookup resolves a hardware address to its manufacturer name.
type VendorLookup interface {
	VendorName(mac string) string
}
