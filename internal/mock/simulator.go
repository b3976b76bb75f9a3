package mock

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/lcalzada-xor/tailwatch/internal/core/domain"
	"github.com/lcalzada-xor/tailwatch/internal/core/ports"
	"github.com/lcalzada-xor/tailwatch/internal/geo"
)

// Scenario selects which kinds of activity the simulator produces.
type Scenario string

const (
	// ScenarioBasic is stationary background traffic only.
	ScenarioBasic Scenario = "basic"
	// ScenarioFollowing is a rotating-address tracker that moves with the user.
	ScenarioFollowing Scenario = "following"
	// ScenarioSeparated is a tag broadcasting the separated-from-owner service.
	ScenarioSeparated Scenario = "separated"
	// ScenarioSurveillance is a camera hotspot, a GSM tracker and an audio
	// beacon active at one spot.
	ScenarioSurveillance Scenario = "surveillance"
	// ScenarioAll combines every scenario.
	ScenarioAll Scenario = "all"
)

// Scenarios lists every accepted scenario name.
var Scenarios = []Scenario{ScenarioBasic, ScenarioFollowing, ScenarioSeparated, ScenarioSurveillance, ScenarioAll}

// ParseScenario maps a name to a Scenario, case-insensitively.
func ParseScenario(s string) (Scenario, error) {
	name := Scenario(strings.ToLower(strings.TrimSpace(s)))
	for _, sc := range Scenarios {
		if sc == name {
			return sc, nil
		}
	}
	return "", fmt.Errorf("unknown mock scenario %q", s)
}

const (
	// DefaultInterval is the pause between simulated scan rounds.
	DefaultInterval = 5 * time.Second

	// AddressRotation is the number of rounds a tracker keeps one address.
	AddressRotation = 5

	// walkStep is how far the simulated user moves per round, in degrees.
	walkStepLat = 0.0006
	walkStepLng = 0.0002

	appleCompanyID = 0x004C
)

// Event is one simulated sighting. Exactly one of the sighting pointers is set,
// matching Domain.
type Event struct {
	Domain     domain.Domain
	BLE        *domain.Sighting
	WiFi       *domain.WiFiSighting
	RF         *domain.RFSighting
	Ultrasonic *domain.UltrasonicSighting
}

// Dispatch hands the event to the matching sink method.
func (e Event) Dispatch(ctx context.Context, sink ports.SightingSink) {
	switch e.Domain {
	case domain.DomainBLE:
		sink.IngestBLE(ctx, *e.BLE)
	case domain.DomainWiFi:
		sink.IngestWiFi(ctx, *e.WiFi)
	case domain.DomainRF:
		sink.IngestRF(ctx, *e.RF)
	case domain.DomainUltrasonic:
		sink.IngestUltrasonic(ctx, *e.Ultrasonic)
	}
}

type bleDevice struct {
	address string
	mfr     uint16
	data    []byte
	rssi    int
}

type apDevice struct {
	mac     string
	ssid    string
	channel int
	freq    int
	rssi    int
}

// Simulator replays scripted tracking scenarios as a stream of sightings.
type Simulator struct {
	mu       sync.Mutex
	gen      *Generator
	scenario Scenario
	origin   geo.Location
	step     int

	background []bleDevice
	aps        []apDevice

	trackerAddr string
	trackerData []byte
	tagAddr     string
	cameraMAC   string
}

// NewSimulator creates a simulator for the scenario, starting at origin.
func NewSimulator(scenario Scenario, origin geo.Location, seed int64) *Simulator {
	g := NewGenerator(seed)
	s := &Simulator{
		gen:      g,
		scenario: scenario,
		origin:   origin,
		// Find My offline-finding frame: type 0x12, length 0x19, status, key bytes.
		trackerData: append([]byte{0x12, 0x19, 0x10}, g.Payload(8)...),
		tagAddr:     g.RandomStaticAddress(),
		cameraMAC:   g.GenerateMAC(""),
	}
	for range 4 {
		s.background = append(s.background, bleDevice{
			address: g.GenerateMAC(""),
			mfr:     g.Manufacturer(),
			data:    g.Payload(8),
			rssi:    g.Jitter(-75, 10),
		})
	}
	for range 3 {
		ch, freq := g.Channel()
		s.aps = append(s.aps, apDevice{
			mac:     g.GenerateMAC(""),
			ssid:    g.SSID(),
			channel: ch,
			freq:    freq,
			rssi:    g.Jitter(-65, 15),
		})
	}
	return s
}

// Scenario returns the configured scenario.
func (s *Simulator) Scenario() Scenario { return s.scenario }

// UserLocation is where the simulated user stands at the given round.
func (s *Simulator) UserLocation(step int) geo.Location {
	return geo.Location{
		Latitude:  s.origin.Latitude + float64(step)*walkStepLat,
		Longitude: s.origin.Longitude + float64(step)*walkStepLng,
	}
}

func (s *Simulator) has(sc Scenario) bool {
	return s.scenario == sc || s.scenario == ScenarioAll
}

// Step advances the simulation by one scan round and returns its sightings,
// all stamped with now.
func (s *Simulator) Step(now time.Time) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	step := s.step
	s.step++

	var events []Event
	if s.has(ScenarioBasic) {
		events = append(events, s.backgroundEvents(now)...)
	}
	if s.has(ScenarioFollowing) {
		events = append(events, s.followingEvent(step, now))
	}
	if s.has(ScenarioSeparated) {
		events = append(events, s.separatedEvent(now))
	}
	if s.has(ScenarioSurveillance) {
		events = append(events, s.surveillanceEvents(now)...)
	}
	return events
}

func (s *Simulator) backgroundEvents(now time.Time) []Event {
	events := make([]Event, 0, len(s.background)+len(s.aps))
	for _, d := range s.background {
		mfr := d.mfr
		events = append(events, Event{Domain: domain.DomainBLE, BLE: &domain.Sighting{
			Address:          d.address,
			ManufacturerID:   &mfr,
			ManufacturerData: d.data,
			RSSI:             s.gen.Jitter(d.rssi, 4),
			Location:         locationPtr(s.origin),
			Timestamp:        now,
		}})
	}
	for _, ap := range s.aps {
		events = append(events, Event{Domain: domain.DomainWiFi, WiFi: &domain.WiFiSighting{
			MAC:           ap.mac,
			SSID:          ap.ssid,
			RSSI:          s.gen.Jitter(ap.rssi, 4),
			FrequencyMHz:  ap.freq,
			Channel:       ap.channel,
			IsAccessPoint: true,
			Location:      locationPtr(s.origin),
			Timestamp:     now,
		}})
	}
	return events
}

func (s *Simulator) followingEvent(step int, now time.Time) Event {
	if step%AddressRotation == 0 || s.trackerAddr == "" {
		s.trackerAddr = s.gen.ResolvablePrivateAddress()
	}
	mfr := uint16(appleCompanyID)
	data := make([]byte, len(s.trackerData))
	copy(data, s.trackerData)
	return Event{Domain: domain.DomainBLE, BLE: &domain.Sighting{
		Address:          s.trackerAddr,
		ManufacturerID:   &mfr,
		ManufacturerData: data,
		RSSI:             s.gen.Jitter(-52, 3),
		Location:         locationPtr(s.UserLocation(step)),
		Timestamp:        now,
	}}
}

func (s *Simulator) separatedEvent(now time.Time) Event {
	return Event{Domain: domain.DomainBLE, BLE: &domain.Sighting{
		Address:    s.tagAddr,
		ServiceIDs: []string{"FEED", "FCB2"},
		RSSI:       s.gen.Jitter(-58, 3),
		Location:   locationPtr(s.origin),
		Timestamp:  now,
	}}
}

// surveillanceEvents emits a camera hotspot, a PCS-band burst and an audio
// beacon from the same spot next to the origin.
func (s *Simulator) surveillanceEvents(now time.Time) []Event {
	spot := geo.Location{Latitude: s.origin.Latitude + 0.00005, Longitude: s.origin.Longitude}
	return []Event{
		{Domain: domain.DomainWiFi, WiFi: &domain.WiFiSighting{
			MAC:           s.cameraMAC,
			SSID:          "SpyCam-4F2A",
			RSSI:          s.gen.Jitter(-45, 3),
			FrequencyMHz:  2437,
			Channel:       6,
			IsAccessPoint: true,
			Location:      locationPtr(spot),
			Timestamp:     now,
		}},
		{Domain: domain.DomainRF, RF: &domain.RFSighting{
			FrequencyMHz: 1850.2,
			RSSI:         s.gen.Jitter(-50, 3),
			Modulation:   "GMSK",
			Protocol:     "GSM",
			Location:     locationPtr(spot),
			Timestamp:    now,
		}},
		{Domain: domain.DomainUltrasonic, Ultrasonic: &domain.UltrasonicSighting{
			FrequencyHz: 18500,
			AmplitudeDB: -38,
			Source:      "microphone",
			Location:    locationPtr(spot),
			Timestamp:   now,
		}},
	}
}

// Run emits a round immediately and then every interval until ctx is done.
func (s *Simulator) Run(ctx context.Context, sink ports.SightingSink, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	slog.Info("Simulator started", "scenario", s.scenario, "interval", interval)
	for {
		events := s.Step(time.Now())
		for _, ev := range events {
			if ctx.Err() != nil {
				break
			}
			ev.Dispatch(ctx, sink)
		}
		slog.Debug("Simulated scan round", "events", len(events))

		select {
		case <-ctx.Done():
			slog.Info("Simulator stopped", "scenario", s.scenario)
			return nil
		case <-ticker.C:
		}
	}
}

func locationPtr(l geo.Location) *geo.Location {
	return &l
}
