package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/lcalzada-xor/tailwatch/internal/core/domain"
	"github.com/lcalzada-xor/tailwatch/internal/core/ports"
)

// SightingHandler ingests sightings posted by scanners.
type SightingHandler struct {
	Sink ports.SightingSink
}

// NewSightingHandler creates a new SightingHandler
func NewSightingHandler(sink ports.SightingSink) *SightingHandler {
	return &SightingHandler{Sink: sink}
}

type validator interface {
	Validate() error
}

func decode[T validator](r *http.Request) (T, error) {
	var s T
	if err := json.NewDecoder(r.Body).Decode(&s); err != nil {
		return s, &domain.ValidationError{Field: "body", Value: "", Err: err}
	}
	if err := s.Validate(); err != nil {
		return s, err
	}
	return s, nil
}

// HandleIngest dispatches POST /api/sightings/{domain}.
func (h *SightingHandler) HandleIngest(w http.ResponseWriter, r *http.Request) {
	d, err := domain.ParseDomain(mux.Vars(r)["domain"])
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	ctx := r.Context()

	var result any
	switch d {
	case domain.DomainBLE:
		s, derr := decode[domain.Sighting](r)
		if derr != nil {
			err = derr
			break
		}
		result = h.Sink.IngestBLE(ctx, s)
	case domain.DomainWiFi:
		s, derr := decode[domain.WiFiSighting](r)
		if derr != nil {
			err = derr
			break
		}
		result = h.Sink.IngestWiFi(ctx, s)
	case domain.DomainRF:
		s, derr := decode[domain.RFSighting](r)
		if derr != nil {
			err = derr
			break
		}
		result = h.Sink.IngestRF(ctx, s)
	case domain.DomainUltrasonic:
		s, derr := decode[domain.UltrasonicSighting](r)
		if derr != nil {
			err = derr
			break
		}
		result = h.Sink.IngestUltrasonic(ctx, s)
	default:
		err = fmt.Errorf("%w: %s", domain.ErrUnknownDomain, d)
	}

	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}
