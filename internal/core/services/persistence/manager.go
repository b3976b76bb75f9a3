package persistence

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/lcalzada-xor/tailwatch/internal/core/domain"
	"github.com/lcalzada-xor/tailwatch/internal/core/ports"
)

const (
	DefaultBatchSize = 100
	DefaultInterval  = 5 * time.Second
)

// Manager handles background batch writing of alerts and correlated threats
// to storage.
type Manager struct {
	storage   ports.Storage
	alertCh   chan domain.UnwantedTrackingAlert
	threatCh  chan domain.CorrelatedThreat
	batchSize int
	interval  time.Duration
	enabled   bool
	mu        sync.RWMutex
	done      chan struct{}
}

// NewManager creates a new manager.
func NewManager(storage ports.Storage, bufferSize int) *Manager {
	return &Manager{
		storage:   storage,
		alertCh:   make(chan domain.UnwantedTrackingAlert, bufferSize),
		threatCh:  make(chan domain.CorrelatedThreat, bufferSize),
		batchSize: DefaultBatchSize,
		interval:  DefaultInterval,
		enabled:   true,
		done:      make(chan struct{}),
	}
}

// PersistAlert queues an alert. It never blocks; a full queue drops it.
func (p *Manager) PersistAlert(a domain.UnwantedTrackingAlert) {
	if !p.IsEnabled() {
		return
	}
	select {
	case p.alertCh <- a:
	default:
		slog.Warn("Persistence queue full, dropping alert", "id", a.ID)
	}
}

// PersistThreat queues a correlated threat. It never blocks.
func (p *Manager) PersistThreat(t domain.CorrelatedThreat) {
	if !p.IsEnabled() {
		return
	}
	select {
	case p.threatCh <- t:
	default:
		slog.Warn("Persistence queue full, dropping threat", "id", t.ID)
	}
}

// SetFlushInterval changes how often buffered entries are written. It must be
// called before Start.
func (p *Manager) SetFlushInterval(d time.Duration) {
	if d > 0 {
		p.interval = d
	}
}

// IsEnabled returns the current persistence status.
func (p *Manager) IsEnabled() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.enabled
}

// SetEnabled toggles persistence.
func (p *Manager) SetEnabled(enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.enabled = enabled
}

// Done is closed once the loop has stopped and flushed its buffers.
func (p *Manager) Done() <-chan struct{} { return p.done }

// Start begins the persistence loop. Cancelling ctx flushes what is buffered.
func (p *Manager) Start(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	alerts := make(map[string]domain.UnwantedTrackingAlert)
	threats := make(map[string]domain.CorrelatedThreat)

	flush := func() {
		p.flush(alerts, threats)
		alerts = make(map[string]domain.UnwantedTrackingAlert)
		threats = make(map[string]domain.CorrelatedThreat)
	}

	go func() {
		defer close(p.done)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				p.drain(alerts, threats)
				flush()
				return
			case a := <-p.alertCh:
				alerts[a.ID] = a
				if len(alerts)+len(threats) >= p.batchSize {
					flush()
				}
			case t := <-p.threatCh:
				threats[t.ID] = t
				if len(alerts)+len(threats) >= p.batchSize {
					flush()
				}
			case <-ticker.C:
				if len(alerts)+len(threats) > 0 {
					flush()
				}
			}
		}
	}()
}

// Follow subscribes to the alert and correlated-threat feeds and queues
// every new or changed entry until ctx is cancelled.
func (p *Manager) Follow(ctx context.Context, src ports.FeedSource) {
	updates, cancel := src.Subscribe()
	go func() {
		defer cancel()
		seenAlerts := make(map[string]bool)
		seenThreats := make(map[string]time.Time)
		for {
			select {
			case <-ctx.Done():
				return
			case u, ok := <-updates:
				if !ok {
					return
				}
				switch items := u.Items.(type) {
				case []domain.UnwantedTrackingAlert:
					next := make(map[string]bool, len(items))
					for _, a := range items {
						next[a.ID] = true
						if !seenAlerts[a.ID] {
							p.PersistAlert(a)
						}
					}
					seenAlerts = next
				case []domain.CorrelatedThreat:
					next := make(map[string]time.Time, len(items))
					for _, t := range items {
						next[t.ID] = t.LastSeen
						if last, ok := seenThreats[t.ID]; !ok || t.LastSeen.After(last) {
							p.PersistThreat(t)
						}
					}
					seenThreats = next
				}
			}
		}
	}()
}

// drain moves whatever is still queued into the buffers.
func (p *Manager) drain(alerts map[string]domain.UnwantedTrackingAlert, threats map[string]domain.CorrelatedThreat) {
	for {
		select {
		case a := <-p.alertCh:
			alerts[a.ID] = a
		case t := <-p.threatCh:
			threats[t.ID] = t
		default:
			return
		}
	}
}

func (p *Manager) flush(alerts map[string]domain.UnwantedTrackingAlert, threats map[string]domain.CorrelatedThreat) {
	p.mu.RLock()
	storage := p.storage
	p.mu.RUnlock()
	if storage == nil {
		return
	}

	if len(alerts) > 0 {
		batch := make([]domain.UnwantedTrackingAlert, 0, len(alerts))
		for _, a := range alerts {
			batch = append(batch, a)
		}
		if err := storage.SaveAlertsBatch(batch); err != nil {
			slog.Error("Failed to batch save alerts", "count", len(batch), "error", err)
		}
	}
	if len(threats) > 0 {
		batch := make([]domain.CorrelatedThreat, 0, len(threats))
		for _, t := range threats {
			batch = append(batch, t)
		}
		if err := storage.SaveThreatsBatch(batch); err != nil {
			slog.Error("Failed to batch save threats", "count", len(batch), "error", err)
		}
	}
}
