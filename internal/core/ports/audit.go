package ports

import (
	"context"

	"github.com/lcalzada-xor/tailwatch/internal/core/domain"
)

// AuditRepository persists the audit trail.
type AuditRepository interface {
	SaveAuditLog(ctx context.Context, log domain.AuditLog) error
	ListAuditLogs(ctx context.Context, limit int) ([]domain.AuditLog, error)
}

// AuditLogger records operator actions.
type AuditLogger interface {
	Log(ctx context.Context, action domain.AuditAction, target, details string) error
	GetLogs(ctx context.Context, limit int) ([]domain.AuditLog, error)
}
