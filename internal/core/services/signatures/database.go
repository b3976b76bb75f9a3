package signatures

import (
	"bytes"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/lcalzada-xor/tailwatch/internal/core/domain"
)

//go:embed signatures.json
var embedded []byte

// ErrInvalidSignature is returned when a reference entry cannot be used.
var ErrInvalidSignature = errors.New("invalid signature entry")

// Database is the immutable tracker reference table. It is safe for
// concurrent use because nothing mutates it after construction.
type Database struct {
	separation   map[string]struct{}
	ble          []domain.BLESignature
	bleByService map[string][]domain.BLESignature
	rfBands      []domain.RFBand
	ultrasonic   []domain.UltrasonicSignature
	wifi         []domain.WiFiPattern
	patterns     []domain.MultiProtocolPattern
}

type bleEntry struct {
	domain.BLESignature
	DataPrefix string `json:"data_prefix,omitempty"`
}

type document struct {
	SeparationServiceIDs []string                      `json:"separation_service_ids"`
	BLE                  []bleEntry                    `json:"ble"`
	RFBands              []domain.RFBand               `json:"rf_bands"`
	Ultrasonic           []domain.UltrasonicSignature  `json:"ultrasonic"`
	WiFiPatterns         []domain.WiFiPattern          `json:"wifi_patterns"`
	Patterns             []domain.MultiProtocolPattern `json:"patterns"`
}

var (
	defaultOnce sync.Once
	defaultDB   *Database
	defaultErr  error
)

// Default returns the table compiled into the binary.
func Default() *Database {
	defaultOnce.Do(func() {
		defaultDB, defaultErr = Parse(embedded)
	})
	if defaultErr != nil {
		panic(fmt.Sprintf("embedded signature table is invalid: %v", defaultErr))
	}
	return defaultDB
}

// LoadFile builds a table from a JSON document on disk.
func LoadFile(path string) (*Database, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read signature database: %w", err)
	}
	return Parse(data)
}

// Parse builds a table from a JSON document.
func Parse(data []byte) (*Database, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse signature database: %w", err)
	}

	db := &Database{
		separation:   make(map[string]struct{}),
		bleByService: make(map[string][]domain.BLESignature),
		rfBands:      doc.RFBands,
		ultrasonic:   doc.Ultrasonic,
		wifi:         doc.WiFiPatterns,
		patterns:     doc.Patterns,
	}

	for _, id := range doc.SeparationServiceIDs {
		db.separation[NormalizeServiceID(id)] = struct{}{}
	}

	for _, e := range doc.BLE {
		sig := e.BLESignature
		if e.DataPrefix != "" {
			prefix, err := hex.DecodeString(e.DataPrefix)
			if err != nil {
				return nil, fmt.Errorf("%w: %s data prefix: %v", ErrInvalidSignature, sig.Name, err)
			}
			sig.DataPrefix = prefix
		}
		if sig.ManufacturerID == nil && sig.ServiceID == "" {
			return nil, fmt.Errorf("%w: %s has neither manufacturer nor service id", ErrInvalidSignature, sig.Name)
		}
		if sig.TrackerType == "" {
			sig.TrackerType = domain.TrackerUnknown
		}
		if sig.ServiceID != "" {
			sig.ServiceID = NormalizeServiceID(sig.ServiceID)
			db.bleByService[sig.ServiceID] = append(db.bleByService[sig.ServiceID], sig)
		}
		db.ble = append(db.ble, sig)
	}

	for _, p := range db.patterns {
		if p.Bonus <= 0 || p.Bonus > 1 {
			return nil, fmt.Errorf("%w: pattern %s bonus %v", ErrInvalidSignature, p.Name, p.Bonus)
		}
	}

	return db, nil
}

// NormalizeServiceID reduces 16-bit UUIDs in any common spelling ("0xfcb2",
// "FCB2", or the full Bluetooth base UUID) to four upper-case hex digits.
// Other identifiers are returned upper-cased.
func NormalizeServiceID(id string) string {
	s := strings.ToUpper(strings.TrimSpace(id))
	s = strings.TrimPrefix(s, "0X")
	if len(s) == 36 && strings.HasPrefix(s, "0000") && strings.HasSuffix(s, "-0000-1000-8000-00805F9B34FB") {
		return s[4:8]
	}
	return s
}

// IsSeparationService reports whether the id is the "separated from owner" broadcast.
func (db *Database) IsSeparationService(id string) bool {
	_, ok := db.separation[NormalizeServiceID(id)]
	return ok
}

// HasSeparationSignal reports whether any advertised service is the separation broadcast.
func (db *Database) HasSeparationSignal(serviceIDs []string) bool {
	for _, id := range serviceIDs {
		if db.IsSeparationService(id) {
			return true
		}
	}
	return false
}

// MatchBLE returns every signature the sighting satisfies.
func (db *Database) MatchBLE(s domain.Sighting) []domain.BLESignature {
	var matches []domain.BLESignature
	if s.ManufacturerID != nil {
		for _, sig := range db.ble {
			if sig.ManufacturerID == nil || *sig.ManufacturerID != *s.ManufacturerID {
				continue
			}
			if len(sig.DataPrefix) > 0 && !bytes.HasPrefix(s.ManufacturerData, sig.DataPrefix) {
				continue
			}
			matches = append(matches, sig)
		}
	}
	for _, id := range s.ServiceIDs {
		matches = append(matches, db.bleByService[NormalizeServiceID(id)]...)
	}
	return matches
}

// MatchRFBand returns the first band containing the frequency.
func (db *Database) MatchRFBand(mhz float64) (domain.RFBand, bool) {
	for _, b := range db.rfBands {
		if b.Contains(mhz) {
			return b, true
		}
	}
	return domain.RFBand{}, false
}

// MatchUltrasonic returns the first beacon signature containing the frequency.
func (db *Database) MatchUltrasonic(hz float64) (domain.UltrasonicSignature, bool) {
	for _, s := range db.ultrasonic {
		if s.Contains(hz) {
			return s, true
		}
	}
	return domain.UltrasonicSignature{}, false
}

// MatchWiFiSSID returns the pattern whose prefix the SSID starts with.
func (db *Database) MatchWiFiSSID(ssid string) (domain.WiFiPattern, bool) {
	if ssid == "" {
		return domain.WiFiPattern{}, false
	}
	lower := strings.ToLower(ssid)
	for _, p := range db.wifi {
		if strings.HasPrefix(lower, strings.ToLower(p.Prefix)) {
			return p, true
		}
	}
	return domain.WiFiPattern{}, false
}

// PatternsFor returns the multi-protocol patterns covering the domain pair.
func (db *Database) PatternsFor(a, b domain.Domain) []domain.MultiProtocolPattern {
	var out []domain.MultiProtocolPattern
	for _, p := range db.patterns {
		if p.Involves(a, b) {
			out = append(out, p)
		}
	}
	return out
}
