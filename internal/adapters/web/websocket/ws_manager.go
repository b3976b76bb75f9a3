package websocket

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	gorilla "github.com/gorilla/websocket"

	"github.com/lcalzada-xor/tailwatch/internal/core/domain"
	"github.com/lcalzada-xor/tailwatch/internal/core/ports"
)

const writeTimeout = 5 * time.Second

// Manager pushes every feed update to connected dashboard clients.
type Manager struct {
	Source         ports.FeedSource
	AllowedOrigins []string

	upgrader gorilla.Upgrader
	clients  map[*gorilla.Conn]bool
	mu       sync.Mutex
}

// NewManager creates a manager. An empty allowlist accepts only requests
// without an Origin header.
func NewManager(source ports.FeedSource, allowedOrigins []string) *Manager {
	m := &Manager{
		Source:         source,
		AllowedOrigins: allowedOrigins,
		clients:        make(map[*gorilla.Conn]bool),
	}
	m.upgrader = gorilla.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     m.checkOrigin,
	}
	return m
}

func (m *Manager) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range m.AllowedOrigins {
		if allowed == "*" || origin == allowed {
			return true
		}
	}
	log.Printf("[WS] Rejected origin: %s", origin)
	return false
}

// Start relays feed updates until ctx is cancelled.
func (m *Manager) Start(ctx context.Context) {
	updates, cancel := m.Source.Subscribe()
	go func() {
		defer cancel()
		for {
			select {
			case <-ctx.Done():
				m.closeAll()
				return
			case u, ok := <-updates:
				if !ok {
					return
				}
				m.broadcast(u)
			}
		}
	}()
}

// ClientCount returns the number of connected clients.
func (m *Manager) ClientCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.clients)
}

// HandleWebSocket upgrades the request and sends the current state of every
// feed before live updates.
func (m *Manager) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("[WS] Upgrade error:", err)
		return
	}

	m.mu.Lock()
	for _, u := range m.snapshot() {
		if err := writeUpdate(conn, u); err != nil {
			m.mu.Unlock()
			conn.Close()
			return
		}
	}
	m.clients[conn] = true
	m.mu.Unlock()
	log.Printf("[WS] Client connected: %s", r.RemoteAddr)

	go func() {
		defer func() {
			m.mu.Lock()
			delete(m.clients, conn)
			m.mu.Unlock()
			conn.Close()
			log.Printf("[WS] Client disconnected: %s", r.RemoteAddr)
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (m *Manager) snapshot() []domain.FeedUpdate {
	return []domain.FeedUpdate{
		{Feed: domain.FeedSuspicious, Items: m.Source.SuspiciousDevices()},
		{Feed: domain.FeedFollowing, Items: m.Source.FollowingDevices()},
		{Feed: domain.FeedAlerts, Items: m.Source.Alerts()},
		{Feed: domain.FeedActiveThreats, Items: m.Source.ActiveThreats()},
		{Feed: domain.FeedCorrelated, Items: m.Source.CorrelatedThreats()},
	}
}

func writeUpdate(conn *gorilla.Conn, u domain.FeedUpdate) error {
	data, err := json.Marshal(u)
	if err != nil {
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteMessage(gorilla.TextMessage, data)
}

func (m *Manager) broadcast(u domain.FeedUpdate) {
	data, err := json.Marshal(u)
	if err != nil {
		log.Println("[WS] JSON marshal error:", err)
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for conn := range m.clients {
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteMessage(gorilla.TextMessage, data); err != nil {
			conn.Close()
			delete(m.clients, conn)
		}
	}
}

func (m *Manager) closeAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for conn := range m.clients {
		conn.WriteControl(gorilla.CloseMessage,
			gorilla.FormatCloseMessage(gorilla.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second))
		conn.Close()
		delete(m.clients, conn)
	}
}
