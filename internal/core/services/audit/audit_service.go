package audit

import (
	"context"

	"github.com/lcalzada-xor/tailwatch/internal/core/domain"
	"github.com/lcalzada-xor/tailwatch/internal/core/ports"
)

type remoteAddrKey struct{}

// WithRemoteAddr attaches the caller's address to ctx for the audit trail.
func WithRemoteAddr(ctx context.Context, addr string) context.Context {
	return context.WithValue(ctx, remoteAddrKey{}, addr)
}

// RemoteAddr returns the address stored by WithRemoteAddr, or "local".
func RemoteAddr(ctx context.Context) string {
	if addr, ok := ctx.Value(remoteAddrKey{}).(string); ok && addr != "" {
		return addr
	}
	return "local"
}

type AuditService struct {
	repo ports.AuditRepository
}

func NewAuditService(repo ports.AuditRepository) *AuditService {
	return &AuditService{repo: repo}
}

func (s *AuditService) Log(ctx context.Context, action domain.AuditAction, target, details string) error {
	entry, err := domain.NewAuditLog(action, target, details, RemoteAddr(ctx))
	if err != nil {
		return err
	}
	return s.repo.SaveAuditLog(ctx, *entry)
}

func (s *AuditService) GetLogs(ctx context.Context, limit int) ([]domain.AuditLog, error) {
	return s.repo.ListAuditLogs(ctx, limit)
}

var _ ports.AuditLogger = (*AuditService)(nil)
