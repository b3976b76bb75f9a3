package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// SightingsProcessed counts sightings ingested per domain
	SightingsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tailwatch",
			Name:      "sightings_processed_total",
			Help:      "Total number of sightings ingested by the engine",
		},
		[]string{"domain"},
	)

	// TrackingAlerts counts unwanted-tracking alerts raised
	TrackingAlerts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tailwatch",
			Name:      "tracking_alerts_total",
			Help:      "Total number of unwanted-tracking alerts raised",
		},
		[]string{"type"},
	)

	// AlertsSuppressed counts alerts swallowed by the per-device cooldown
	AlertsSuppressed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tailwatch",
			Name:      "tracking_alerts_suppressed_total",
			Help:      "Total number of alerts suppressed by the per-device cooldown",
		},
	)

	// CorrelatedThreats counts correlated threat syntheses
	CorrelatedThreats = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tailwatch",
			Name:      "correlated_threats_total",
			Help:      "Total number of correlated threats created or updated",
		},
		[]string{"action"},
	)

	// Evictions counts state dropped by housekeeping
	Evictions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tailwatch",
			Name:      "evictions_total",
			Help:      "Total number of entries evicted from in-memory state",
		},
		[]string{"component", "reason"},
	)

	// TrackedEntities reports the current size of each component's state
	TrackedEntities = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "tailwatch",
			Name:      "tracked_entities",
			Help:      "Current number of tracked devices or detections per component",
		},
		[]string{"component"},
	)

	// Ensure metrics are only registered once
	once sync.Once
)

// InitMetrics registers all metrics with the global Prometheus registry.
// It is idempotent.
func InitMetrics() {
	once.Do(func() {
		prometheus.DefaultRegisterer.Register(SightingsProcessed)
		prometheus.DefaultRegisterer.Register(TrackingAlerts)
		prometheus.DefaultRegisterer.Register(AlertsSuppressed)
		prometheus.DefaultRegisterer.Register(CorrelatedThreats)
		prometheus.DefaultRegisterer.Register(Evictions)
		prometheus.DefaultRegisterer.Register(TrackedEntities)
	})
}
