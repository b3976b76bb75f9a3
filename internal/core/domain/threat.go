package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidThreatLevel is returned when a threat level name cannot be parsed.
var ErrInvalidThreatLevel = errors.New("invalid threat level")

// ThreatLevel is an ordered severity scale shared by every analyser.
type ThreatLevel int

const (
	ThreatInfo ThreatLevel = iota
	ThreatLow
	ThreatMedium
	ThreatHigh
	ThreatCritical
)

var threatLevelNames = [...]string{"INFO", "LOW", "MEDIUM", "HIGH", "CRITICAL"}

func (l ThreatLevel) String() string {
	if l < ThreatInfo || l > ThreatCritical {
		return fmt.Sprintf("ThreatLevel(%d)", int(l))
	}
	return threatLevelNames[l]
}

// MarshalText encodes the level by name.
func (l ThreatLevel) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText decodes a level name, case-insensitively.
func (l *ThreatLevel) UnmarshalText(text []byte) error {
	parsed, err := ParseThreatLevel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// ParseThreatLevel resolves a level name such as "high".
func ParseThreatLevel(s string) (ThreatLevel, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for i, n := range threatLevelNames {
		if n == name {
			return ThreatLevel(i), nil
		}
	}
	return ThreatInfo, fmt.Errorf("%w: %q", ErrInvalidThreatLevel, s)
}

// Upgrade returns the next level up, saturating at ThreatCritical.
func (l ThreatLevel) Upgrade() ThreatLevel {
	if l >= ThreatCritical {
		return ThreatCritical
	}
	return l + 1
}

// Adjacent reports whether two levels are exactly one step apart.
func (l ThreatLevel) Adjacent(other ThreatLevel) bool {
	d := int(l) - int(other)
	return d == 1 || d == -1
}

// MaxThreatLevel returns the highest of the given levels.
func MaxThreatLevel(levels ...ThreatLevel) ThreatLevel {
	max := ThreatInfo
	for _, l := range levels {
		if l > max {
			max = l
		}
	}
	return max
}

// ThreatLevelFromScore discretizes an additive point score.
func ThreatLevelFromScore(score int) ThreatLevel {
	switch {
	case score >= 70:
		return ThreatCritical
	case score >= 50:
		return ThreatHigh
	case score >= 30:
		return ThreatMedium
	case score >= 15:
		return ThreatLow
	default:
		return ThreatInfo
	}
}

// TrackerCategory classifies what kind of surveillance device a signal belongs to.
type TrackerCategory string

const (
	CategoryUnknown          TrackerCategory = "unknown"
	CategoryFindMy           TrackerCategory = "find_my_tracker"
	CategorySmartTag         TrackerCategory = "smarttag"
	CategoryTile             TrackerCategory = "tile"
	CategoryGenericTracker   TrackerCategory = "generic_tracker"
	CategoryRetailBeacon     TrackerCategory = "retail_beacon"
	CategoryGPSTracker       TrackerCategory = "gps_tracker"
	CategoryRFTransmitter    TrackerCategory = "rf_transmitter"
	CategoryUltrasonicBeacon TrackerCategory = "ultrasonic_beacon"
	CategorySurveillanceWiFi TrackerCategory = "surveillance_wifi"
)

// TrackerType identifies the tracker ecosystem recognised by the unwanted-tracking detector.
type TrackerType string

const (
	TrackerUnknown  TrackerType = "unknown"
	TrackerAirTag   TrackerType = "airtag"
	TrackerSmartTag TrackerType = "smarttag"
	TrackerTile     TrackerType = "tile"
	TrackerGeneric  TrackerType = "generic"
)

// Recognized reports whether the type names a concrete ecosystem.
func (t TrackerType) Recognized() bool {
	switch t {
	case TrackerAirTag, TrackerSmartTag, TrackerTile:
		return true
	default:
		return false
	}
}
