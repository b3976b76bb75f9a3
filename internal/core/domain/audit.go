package domain

import (
	"errors"
	"time"
)

// ErrInvalidAction is returned when an audit entry names an unknown action.
var ErrInvalidAction = errors.New("invalid audit action")

// AuditAction names an operator action worth keeping a trail of.
type AuditAction string

const (
	ActionStartup      AuditAction = "STARTUP"
	ActionReset        AuditAction = "RESET"
	ActionReportExport AuditAction = "REPORT_EXPORT"
	ActionDataExport   AuditAction = "DATA_EXPORT"
	ActionInfo         AuditAction = "INFO"
)

// AuditLog is a record of an action taken on the collected evidence.
type AuditLog struct {
	ID        uint        `json:"id"`
	Action    AuditAction `json:"action"`
	Target    string      `json:"target"`
	Details   string      `json:"details"`
	IPAddress string      `json:"ip_address"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewAuditLog validates the action and stamps the entry with the current time.
func NewAuditLog(action AuditAction, target, details, ip string) (*AuditLog, error) {
	if !isValidAction(action) {
		return nil, ErrInvalidAction
	}
	return &AuditLog{
		Action:    action,
		Target:    target,
		Details:   details,
		IPAddress: ip,
		Timestamp: time.Now().UTC(),
	}, nil
}

func isValidAction(action AuditAction) bool {
	switch action {
	case ActionStartup, ActionReset, ActionReportExport, ActionDataExport, ActionInfo:
		return true
	}
	return false
}
