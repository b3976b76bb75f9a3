package engine

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/lcalzada-xor/tailwatch/internal/core/domain"
	"github.com/lcalzada-xor/tailwatch/internal/core/services/signatures"
	"github.com/lcalzada-xor/tailwatch/internal/geo"
)

var base = time.Date(2024, 3, 1, 18, 0, 0, 0, time.UTC)

func separatedTag(at time.Time) domain.Sighting {
	return domain.Sighting{
		Address:    "5A:11:22:33:44:55",
		Name:       "tag",
		ServiceIDs: []string{"FCB2"},
		RSSI:       -58,
		Location:   &geo.Location{Latitude: 51.5007, Longitude: -0.1246},
		Timestamp:  at,
	}
}

func TestEngine_IngestBLECombinesVerdicts(t *testing.T) {
	e := New(signatures.Default())

	res := e.IngestBLE(context.Background(), separatedTag(base))

	assert.True(t, res.Tracking.IsUnwantedTracking)
	assert.Equal(t, domain.ThreatCritical, res.Tracking.ThreatLevel)
	assert.Equal(t, domain.ThreatCritical, res.Detection.ThreatLevel)
	assert.Equal(t, domain.DomainBLE, res.Detection.Domain)
	assert.Nil(t, res.Threat)

	p, ok := res.Detection.BLE()
	require.True(t, ok)
	assert.True(t, p.IsSeparated)
	assert.Equal(t, res.Analysis.DeviceID, p.DeviceID)
	assert.Contains(t, res.Detection.Indicators, "broadcasting separated-from-owner signal")

	stats := e.Stats()
	assert.Equal(t, 1, stats.TrackedDevices)
	assert.Equal(t, 1, stats.Trackers)
	assert.Equal(t, 1, stats.Detections[domain.DomainBLE])
	assert.Equal(t, 1, stats.Alerts)
	assert.Equal(t, 1, stats.ActiveThreats)
}

func TestEngine_CorrelatesAcrossDomains(t *testing.T) {
	e := New(signatures.Default())
	ctx := context.Background()

	e.IngestBLE(ctx, separatedTag(base))
	res := e.IngestRF(ctx, domain.RFSighting{
		FrequencyMHz: 1850.2,
		RSSI:         -45,
		Protocol:     "LTE",
		Location:     &geo.Location{Latitude: 51.5007, Longitude: -0.1246},
		Timestamp:    base.Add(4 * time.Second),
	})

	require.NotNil(t, res.Threat)
	assert.ElementsMatch(t, []domain.Domain{domain.DomainBLE, domain.DomainRF}, res.Threat.Domains)
	assert.Equal(t, domain.ThreatCritical, res.Threat.ThreatLevel)
	assert.Len(t, e.CorrelatedThreats(), 1)
}

func TestEngine_DefaultTimestamp(t *testing.T) {
	e := New(signatures.Default())
	e.SetClock(func() time.Time { return base })

	res := e.IngestUltrasonic(context.Background(), domain.UltrasonicSighting{FrequencyHz: 20000})
	assert.Equal(t, base, res.Detection.Timestamp)

	ble := e.IngestBLE(context.Background(), domain.Sighting{Address: "12:00:00:00:00:01", Name: "x"})
	assert.Equal(t, base, ble.Analysis.LastSeen)
	assert.Equal(t, base, ble.Detection.Timestamp)
}

func TestEngine_ConcurrentDomainsShareOneIdentity(t *testing.T) {
	e := New(signatures.Default())

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s := separatedTag(base)
			s.Address = fmt.Sprintf("5A:11:22:33:44:%02X", i)
			e.IngestBLE(context.Background(), s)
		}(i)
	}
	wg.Wait()

	stats := e.Stats()
	assert.Equal(t, 1, stats.TrackedDevices)
	assert.Equal(t, 1, stats.Trackers)
	assert.Equal(t, 1, stats.Alerts)
}

func TestEngine_Reset(t *testing.T) {
	e := New(signatures.Default())
	ctx := context.Background()
	e.IngestBLE(ctx, separatedTag(base))
	e.IngestWiFi(ctx, domain.WiFiSighting{MAC: "AA:00:00:00:00:01", SSID: "SpyCam", Timestamp: base.Add(time.Second)})

	e.Reset(ctx)

	stats := e.Stats()
	assert.Zero(t, stats.TrackedDevices)
	assert.Zero(t, stats.Trackers)
	assert.Zero(t, stats.Alerts)
	assert.Zero(t, stats.ActiveThreats)
	assert.Zero(t, stats.CorrelatedThreats)
	for _, n := range stats.Detections {
		assert.Zero(t, n)
	}
}

func TestEngine_RecordsSpans(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	e := New(signatures.Default())
	e.IngestBLE(context.Background(), separatedTag(base))
	e.IngestWiFi(context.Background(), domain.WiFiSighting{MAC: "AA:00:00:00:00:01", Timestamp: base})

	ended := sr.Ended()
	require.Len(t, ended, 2)
	assert.Equal(t, "IngestBLE", ended[0].Name())
	assert.Equal(t, "IngestWiFi", ended[1].Name())
}

func TestEngine_SubscribeMergesFeeds(t *testing.T) {
	e := New(signatures.Default())
	updates, cancel := e.Subscribe()

	initial := make(map[domain.FeedName]bool)
	for len(initial) < 5 {
		select {
		case u := <-updates:
			initial[u.Feed] = true
		case <-time.After(2 * time.Second):
			t.Fatalf("initial snapshots missing, got %v", initial)
		}
	}

	e.IngestBLE(context.Background(), separatedTag(base))

	deadline := time.After(2 * time.Second)
	for {
		select {
		case u := <-updates:
			if u.Feed != domain.FeedAlerts {
				continue
			}
			alerts, ok := u.Items.([]domain.UnwantedTrackingAlert)
			require.True(t, ok)
			if len(alerts) == 1 {
				assert.Equal(t, domain.AlertSeparatedTracker, alerts[0].Type)
				cancel()
				for range updates {
				}
				return
			}
		case <-deadline:
			t.Fatal("alert update not delivered")
		}
	}
}

func TestEngine_Report(t *testing.T) {
	e := New(signatures.Default())
	e.SetClock(func() time.Time { return base.Add(time.Hour) })
	e.IngestBLE(context.Background(), separatedTag(base))

	r := e.Report()
	assert.Equal(t, base.Add(time.Hour), r.GeneratedAt)
	assert.Len(t, r.Alerts, 1)
	assert.Len(t, r.ActiveThreats, 1)
	assert.Equal(t, 1, r.HighRiskAlerts())
	assert.Equal(t, 1, r.Stats.Alerts)
	assert.Equal(t, "Critical", r.RiskLevel)
	require.NotEmpty(t, r.TopRisks)
	assert.Equal(t, string(domain.AlertSeparatedTracker), r.TopRisks[0].Kind)
	assert.NotEmpty(t, r.Recommendations)
}
