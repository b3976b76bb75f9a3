package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/lcalzada-xor/tailwatch/internal/geo"
)

// Validation Helpers

var (
	macRegex = regexp.MustCompile(`^([0-9A-Fa-f]{2}[:-]){5}([0-9A-Fa-f]{2})$`)

	ErrInvalidMAC       = errors.New("invalid MAC address format")
	ErrInvalidLocation  = errors.New("coordinates out of range")
	ErrInvalidFrequency = errors.New("frequency must be positive")
	ErrInvalidRSSI      = errors.New("signal strength out of range")
)

// ValidationError wraps validation errors with the invalid value
type ValidationError struct {
	Field string
	Value string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s=%q: %v", e.Field, e.Value, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// IsValidMAC checks if the string is a valid MAC address
func IsValidMAC(mac string) bool {
	return macRegex.MatchString(mac)
}

func validateLocation(loc *geo.Location) error {
	if loc == nil {
		return nil
	}
	if loc.Latitude < -90 || loc.Latitude > 90 || loc.Longitude < -180 || loc.Longitude > 180 {
		return &ValidationError{
			Field: "location",
			Value: fmt.Sprintf("%g,%g", loc.Latitude, loc.Longitude),
			Err:   ErrInvalidLocation,
		}
	}
	return nil
}

func validateRSSI(rssi int) error {
	// 0 means "not reported"
	if rssi < -127 || rssi > 20 {
		return &ValidationError{Field: "rssi", Value: strconv.Itoa(rssi), Err: ErrInvalidRSSI}
	}
	return nil
}

// Validate checks the fields a scanner must supply.
func (s Sighting) Validate() error {
	if !IsValidMAC(s.Address) {
		return &ValidationError{Field: "address", Value: s.Address, Err: ErrInvalidMAC}
	}
	if err := validateRSSI(s.RSSI); err != nil {
		return err
	}
	return validateLocation(s.Location)
}

func (s WiFiSighting) Validate() error {
	if !IsValidMAC(s.MAC) {
		return &ValidationError{Field: "mac", Value: s.MAC, Err: ErrInvalidMAC}
	}
	if err := validateRSSI(s.RSSI); err != nil {
		return err
	}
	return validateLocation(s.Location)
}

func (s RFSighting) Validate() error {
	if s.FrequencyMHz <= 0 {
		return &ValidationError{Field: "frequency_mhz", Value: strconv.FormatFloat(s.FrequencyMHz, 'f', -1, 64), Err: ErrInvalidFrequency}
	}
	if err := validateRSSI(s.RSSI); err != nil {
		return err
	}
	return validateLocation(s.Location)
}

func (s UltrasonicSighting) Validate() error {
	if s.FrequencyHz <= 0 {
		return &ValidationError{Field: "frequency_hz", Value: strconv.FormatFloat(s.FrequencyHz, 'f', -1, 64), Err: ErrInvalidFrequency}
	}
	return validateLocation(s.Location)
}
