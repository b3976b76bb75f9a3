package ports

import "github.com/lcalzada-xor/tailwatch/internal/core/domain"

// Storage defines the behavior for data persistence.
type Storage interface {
	// SaveAlertsBatch upserts alerts by ID.
	SaveAlertsBatch(alerts []domain.UnwantedTrackingAlert) error
	// SaveThreatsBatch upserts correlated threats by ID.
	SaveThreatsBatch(threats []domain.CorrelatedThreat) error

	ListAlerts(limit int) ([]domain.UnwantedTrackingAlert, error)
	ListThreats(limit int) ([]domain.CorrelatedThreat, error)

	// Close closes the storage connection.
	Close() error
}
