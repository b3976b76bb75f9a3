package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/lcalzada-xor/tailwatch/internal/core/domain"
	"github.com/lcalzada-xor/tailwatch/internal/core/ports"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"
)

// SQLiteAdapter implements ports.Storage using GORM and SQLite.
type SQLiteAdapter struct {
	db *gorm.DB
}

// AlertModel is the GORM model for unwanted-tracking alerts.
type AlertModel struct {
	ID              string `gorm:"primaryKey"`
	DeviceID        string `gorm:"index"`
	Address         string
	Type            string `gorm:"index"`
	TrackerType     string
	ThreatLevel     string
	ThreatScore     int
	Title           string
	Description     string
	Recommendations string // JSON encoded []string
	UniqueLocations int
	TrackedDuration int64 // nanoseconds
	Latitude        *float64
	Longitude       *float64
	Timestamp       time.Time `gorm:"index"`
}

// ThreatModel is the GORM model for correlated threats. Detections are kept
// as their per-domain summaries.
type ThreatModel struct {
	ID               string `gorm:"primaryKey"`
	Domains          string // comma separated
	DomainInfos      string // JSON encoded []domain.DomainInfo
	DetectionCount   int
	CorrelationScore float64
	MatchCount       int
	ThreatLevel      string `gorm:"index"`
	Indicators       string // JSON encoded []string
	SharedLocations  string // JSON encoded []geo.Location
	IsFollowing      bool
	Description      string
	FirstSeen        time.Time
	LastSeen         time.Time `gorm:"index"`
}

// AuditModel is the GORM model for the operator audit trail.
type AuditModel struct {
	ID        uint   `gorm:"primaryKey"`
	Action    string `gorm:"index"`
	Target    string
	Details   string
	IPAddress string
	Timestamp time.Time `gorm:"index"`
}

// NewSQLiteAdapter initializes the database and migrates schema.
func NewSQLiteAdapter(path string) (*SQLiteAdapter, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}
	if err := db.Use(tracing.NewPlugin()); err != nil {
		return nil, fmt.Errorf("failed to install tracing plugin: %w", err)
	}
	return newAdapter(db)
}

func newAdapter(db *gorm.DB) (*SQLiteAdapter, error) {
	if err := db.AutoMigrate(&AlertModel{}, &ThreatModel{}, &AuditModel{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	db.Exec("CREATE INDEX IF NOT EXISTS idx_alerts_device_time ON alert_models(device_id, timestamp)")
	return &SQLiteAdapter{db: db}, nil
}

// SaveAlertsBatch upserts alerts in a single transaction.
func (a *SQLiteAdapter) SaveAlertsBatch(alerts []domain.UnwantedTrackingAlert) error {
	if len(alerts) == 0 {
		return nil
	}
	models := make([]AlertModel, len(alerts))
	for i, al := range alerts {
		models[i] = alertToModel(al)
	}
	return a.db.Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{UpdateAll: true}).CreateInBatches(models, 100).Error
	})
}

// SaveThreatsBatch upserts correlated threats in a single transaction.
func (a *SQLiteAdapter) SaveThreatsBatch(threats []domain.CorrelatedThreat) error {
	if len(threats) == 0 {
		return nil
	}
	models := make([]ThreatModel, len(threats))
	for i, t := range threats {
		m, err := threatToModel(t)
		if err != nil {
			return err
		}
		models[i] = m
	}
	return a.db.Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{UpdateAll: true}).CreateInBatches(models, 100).Error
	})
}

// ListAlerts returns the most recent alerts, newest first. limit <= 0 means all.
func (a *SQLiteAdapter) ListAlerts(limit int) ([]domain.UnwantedTrackingAlert, error) {
	var models []AlertModel
	q := a.db.Order("timestamp desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]domain.UnwantedTrackingAlert, len(models))
	for i, m := range models {
		out[i] = alertToDomain(m)
	}
	return out, nil
}

// ListThreats returns the most recently updated threats, newest first.
func (a *SQLiteAdapter) ListThreats(limit int) ([]domain.CorrelatedThreat, error) {
	var models []ThreatModel
	q := a.db.Order("last_seen desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]domain.CorrelatedThreat, len(models))
	for i, m := range models {
		out[i] = threatToDomain(m)
	}
	return out, nil
}

func (a *SQLiteAdapter) SaveAuditLog(ctx context.Context, log domain.AuditLog) error {
	m := AuditModel{
		Action:    string(log.Action),
		Target:    log.Target,
		Details:   log.Details,
		IPAddress: log.IPAddress,
		Timestamp: log.Timestamp,
	}
	return a.db.WithContext(ctx).Create(&m).Error
}

// ListAuditLogs returns audit entries newest first. limit <= 0 means all.
func (a *SQLiteAdapter) ListAuditLogs(ctx context.Context, limit int) ([]domain.AuditLog, error) {
	var models []AuditModel
	q := a.db.WithContext(ctx).Order("timestamp desc, id desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]domain.AuditLog, len(models))
	for i, m := range models {
		out[i] = domain.AuditLog{
			ID:        m.ID,
			Action:    domain.AuditAction(m.Action),
			Target:    m.Target,
			Details:   m.Details,
			IPAddress: m.IPAddress,
			Timestamp: m.Timestamp,
		}
	}
	return out, nil
}

func (a *SQLiteAdapter) Close() error {
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ensure interface compliance
var (
	_ ports.Storage         = (*SQLiteAdapter)(nil)
	_ ports.AuditRepository = (*SQLiteAdapter)(nil)
)
