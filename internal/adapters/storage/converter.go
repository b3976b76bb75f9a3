package storage

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lcalzada-xor/tailwatch/internal/core/domain"
	"github.com/lcalzada-xor/tailwatch/internal/geo"
)

func alertToModel(a domain.UnwantedTrackingAlert) AlertModel {
	recs, _ := json.Marshal(a.Recommendations)
	m := AlertModel{
		ID:              a.ID,
		DeviceID:        a.DeviceID,
		Address:         a.Address,
		Type:            string(a.Type),
		TrackerType:     string(a.TrackerType),
		ThreatLevel:     a.ThreatLevel.String(),
		ThreatScore:     a.ThreatScore,
		Title:           a.Title,
		Description:     a.Description,
		Recommendations: string(recs),
		UniqueLocations: a.UniqueLocations,
		TrackedDuration: int64(a.TrackedDuration),
		Timestamp:       a.Timestamp,
	}
	if a.Location != nil {
		lat, lng := a.Location.Latitude, a.Location.Longitude
		m.Latitude, m.Longitude = &lat, &lng
	}
	return m
}

func alertToDomain(m AlertModel) domain.UnwantedTrackingAlert {
	a := domain.UnwantedTrackingAlert{
		ID:              m.ID,
		DeviceID:        m.DeviceID,
		Address:         m.Address,
		Type:            domain.TrackingAlertType(m.Type),
		TrackerType:     domain.TrackerType(m.TrackerType),
		ThreatScore:     m.ThreatScore,
		Title:           m.Title,
		Description:     m.Description,
		UniqueLocations: m.UniqueLocations,
		TrackedDuration: time.Duration(m.TrackedDuration),
		Timestamp:       m.Timestamp,
	}
	// Rows written by this adapter always carry a valid level.
	a.ThreatLevel, _ = domain.ParseThreatLevel(m.ThreatLevel)
	if m.Recommendations != "" {
		_ = json.Unmarshal([]byte(m.Recommendations), &a.Recommendations)
	}
	if m.Latitude != nil && m.Longitude != nil {
		a.Location = &geo.Location{Latitude: *m.Latitude, Longitude: *m.Longitude}
	}
	return a
}

func threatToModel(t domain.CorrelatedThreat) (ThreatModel, error) {
	infos, err := json.Marshal(t.DomainInfos)
	if err != nil {
		return ThreatModel{}, fmt.Errorf("failed to encode domain infos for %s: %w", t.ID, err)
	}
	indicators, _ := json.Marshal(t.Indicators)
	locations, _ := json.Marshal(t.SharedLocations)

	domains := make([]string, len(t.Domains))
	for i, d := range t.Domains {
		domains[i] = string(d)
	}

	return ThreatModel{
		ID:               t.ID,
		Domains:          strings.Join(domains, ","),
		DomainInfos:      string(infos),
		DetectionCount:   len(t.Detections),
		CorrelationScore: t.CorrelationScore,
		MatchCount:       t.MatchCount,
		ThreatLevel:      t.ThreatLevel.String(),
		Indicators:       string(indicators),
		SharedLocations:  string(locations),
		IsFollowing:      t.IsFollowing,
		Description:      t.Description,
		FirstSeen:        t.FirstSeen,
		LastSeen:         t.LastSeen,
	}, nil
}

func threatToDomain(m ThreatModel) domain.CorrelatedThreat {
	t := domain.CorrelatedThreat{
		ID:               m.ID,
		CorrelationScore: m.CorrelationScore,
		MatchCount:       m.MatchCount,
		IsFollowing:      m.IsFollowing,
		Description:      m.Description,
		FirstSeen:        m.FirstSeen,
		LastSeen:         m.LastSeen,
	}
	t.ThreatLevel, _ = domain.ParseThreatLevel(m.ThreatLevel)
	if m.Domains != "" {
		for _, d := range strings.Split(m.Domains, ",") {
			t.Domains = append(t.Domains, domain.Domain(d))
		}
	}
	_ = json.Unmarshal([]byte(m.DomainInfos), &t.DomainInfos)
	_ = json.Unmarshal([]byte(m.Indicators), &t.Indicators)
	_ = json.Unmarshal([]byte(m.SharedLocations), &t.SharedLocations)
	return t
}
