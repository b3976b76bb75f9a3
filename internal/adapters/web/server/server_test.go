package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorilla "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lcalzada-xor/tailwatch/internal/adapters/reporting"
	"github.com/lcalzada-xor/tailwatch/internal/adapters/web/server"
	"github.com/lcalzada-xor/tailwatch/internal/core/domain"
	"github.com/lcalzada-xor/tailwatch/internal/core/services/engine"
	"github.com/lcalzada-xor/tailwatch/internal/core/services/signatures"
)

const separatedTag = `{"address":"5A:11:22:33:44:55","name":"tag","service_ids":["FCB2"],"rssi":-58,"location":{"lat":51.5007,"lng":-0.1246}}`

type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) SaveAlertsBatch(alerts []domain.UnwantedTrackingAlert) error {
	return m.Called(alerts).Error(0)
}

func (m *MockStorage) SaveThreatsBatch(threats []domain.CorrelatedThreat) error {
	return m.Called(threats).Error(0)
}

func (m *MockStorage) ListAlerts(limit int) ([]domain.UnwantedTrackingAlert, error) {
	args := m.Called(limit)
	return args.Get(0).([]domain.UnwantedTrackingAlert), args.Error(1)
}

func (m *MockStorage) ListThreats(limit int) ([]domain.CorrelatedThreat, error) {
	args := m.Called(limit)
	return args.Get(0).([]domain.CorrelatedThreat), args.Error(1)
}

func (m *MockStorage) Close() error { return nil }

type MockAudit struct {
	mock.Mock
}

func (m *MockAudit) Log(ctx context.Context, action domain.AuditAction, target, details string) error {
	return m.Called(action, target, details).Error(0)
}

func (m *MockAudit) GetLogs(ctx context.Context, limit int) ([]domain.AuditLog, error) {
	args := m.Called(limit)
	return args.Get(0).([]domain.AuditLog), args.Error(1)
}

func setupServer(t *testing.T, store *MockStorage) (*server.Server, *engine.Engine) {
	t.Helper()
	eng := engine.New(signatures.Default())
	var srv *server.Server
	if store != nil {
		srv = server.NewServer(":0", eng, reporting.NewPDFExporter(), store, nil)
	} else {
		srv = server.NewServer(":0", eng, reporting.NewPDFExporter(), nil, nil)
	}
	return srv, eng
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestServer_IngestBLE(t *testing.T) {
	srv, _ := setupServer(t, nil)
	h := srv.Handler()

	rec := do(t, h, http.MethodPost, "/api/sightings/ble", separatedTag)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res struct {
		Analysis domain.BleTrackingAnalysis    `json:"analysis"`
		Tracking domain.UnwantedTrackingResult `json:"tracking"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.NotEmpty(t, res.Analysis.DeviceID)
	assert.True(t, res.Tracking.IsUnwantedTracking)
	assert.Equal(t, domain.ThreatCritical, res.Tracking.ThreatLevel)

	rec = do(t, h, http.MethodGet, "/api/alerts", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var alerts []domain.UnwantedTrackingAlert
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &alerts))
	require.Len(t, alerts, 1)
	assert.Equal(t, domain.AlertSeparatedTracker, alerts[0].Type)

	rec = do(t, h, http.MethodGet, "/api/threats/active", "")
	var active []domain.ActiveThreat
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &active))
	assert.Len(t, active, 1)
}

func TestServer_IngestValidation(t *testing.T) {
	srv, _ := setupServer(t, nil)
	h := srv.Handler()

	tests := []struct {
		name   string
		path   string
		body   string
		status int
	}{
		{"bad mac", "/api/sightings/ble", `{"address":"nope"}`, http.StatusBadRequest},
		{"bad json", "/api/sightings/wifi", `{`, http.StatusBadRequest},
		{"bad frequency", "/api/sightings/rf", `{"freq_mhz":0}`, http.StatusBadRequest},
		{"bad latitude", "/api/sightings/ultrasonic", `{"freq_hz":18500,"location":{"lat":99,"lng":0}}`, http.StatusBadRequest},
		{"unknown domain", "/api/sightings/zigbee", `{}`, http.StatusNotFound},
		{"rf ok", "/api/sightings/rf", `{"freq_mhz":433.92,"rssi":-70}`, http.StatusOK},
		{"wifi ok", "/api/sightings/wifi", `{"mac":"AA:BB:CC:DD:EE:FF","ssid":"HomeNet"}`, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}

	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		rec := do(t, h, method, "/api/sightings/ble", "")
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, method)
		assert.JSONEq(t, `{"error":"method not allowed"}`, rec.Body.String())
	}

	// Read endpoints under /api still resolve after the ingestion route.
	rec := do(t, h, http.MethodGet, "/api/stats", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_StatsAndReset(t *testing.T) {
	srv, _ := setupServer(t, nil)
	h := srv.Handler()
	do(t, h, http.MethodPost, "/api/sightings/ble", separatedTag)

	var stats domain.EngineStats
	rec := do(t, h, http.MethodGet, "/api/stats", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.TrackedDevices)
	assert.Equal(t, 1, stats.Alerts)

	rec = do(t, h, http.MethodPost, "/api/reset", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/stats", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Zero(t, stats.TrackedDevices)
	assert.Zero(t, stats.Alerts)
}

func TestServer_Report(t *testing.T) {
	srv, _ := setupServer(t, nil)
	h := srv.Handler()
	do(t, h, http.MethodPost, "/api/sightings/ble", separatedTag)

	rec := do(t, h, http.MethodGet, "/api/report.pdf", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "tailwatch-incident-")
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")))
}

func TestServer_Export(t *testing.T) {
	srv, _ := setupServer(t, nil)
	h := srv.Handler()
	do(t, h, http.MethodPost, "/api/sightings/ble", separatedTag)

	rec := do(t, h, http.MethodGet, "/api/export/alerts?format=csv", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "tailwatch-alerts-")
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], "SEPARATED_TRACKER")

	rec = do(t, h, http.MethodGet, "/api/export/threats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/api/export/alerts?format=xml", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/api/export/devices", "").Code)
}

func TestServer_History(t *testing.T) {
	srv, _ := setupServer(t, nil)
	rec := do(t, srv.Handler(), http.MethodGet, "/api/history/alerts", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	store := new(MockStorage)
	store.On("ListAlerts", 5).Return([]domain.UnwantedTrackingAlert{{ID: "a1"}}, nil)
	store.On("ListThreats", 100).Return([]domain.CorrelatedThreat(nil), errors.New("disk gone"))
	srv, _ = setupServer(t, store)
	h := srv.Handler()

	rec = do(t, h, http.MethodGet, "/api/history/alerts?limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var alerts []domain.UnwantedTrackingAlert
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &alerts))
	assert.Equal(t, "a1", alerts[0].ID)

	rec = do(t, h, http.MethodGet, "/api/history/threats", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	store.AssertExpectations(t)
}

func TestServer_AuditTrail(t *testing.T) {
	srv, _ := setupServer(t, nil)
	assert.Equal(t, http.StatusServiceUnavailable, do(t, srv.Handler(), http.MethodGet, "/api/history/audit", "").Code)

	a := new(MockAudit)
	a.On("Log", domain.ActionReset, "engine", mock.Anything).Return(nil)
	a.On("Log", domain.ActionDataExport, "alerts", "format=csv").Return(nil)
	a.On("Log", domain.ActionReportExport, mock.MatchedBy(func(name string) bool {
		return strings.HasPrefix(name, "tailwatch-incident-")
	}), mock.Anything).Return(errors.New("disk full"))
	a.On("GetLogs", 100).Return([]domain.AuditLog{{ID: 7, Action: domain.ActionReset, IPAddress: "192.0.2.1"}}, nil)
	srv.EnableAudit(a)
	h := srv.Handler()

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/api/reset", "").Code)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/api/export/alerts?format=csv", "").Code)
	// A failing audit write does not fail the download.
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/api/report.pdf", "").Code)

	rec := do(t, h, http.MethodGet, "/api/history/audit", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var logs []domain.AuditLog
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &logs))
	require.Len(t, logs, 1)
	assert.Equal(t, domain.ActionReset, logs[0].Action)
	a.AssertExpectations(t)
}

func TestServer_Metrics(t *testing.T) {
	srv, _ := setupServer(t, nil)
	rec := do(t, srv.Handler(), http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_WebSocketStreamsFeeds(t *testing.T) {
	srv, _ := setupServer(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	srv.WSManager.Start(ctx)

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	conn, _, err := gorilla.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	type message struct {
		Type    domain.FeedName `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	read := func() message {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		var m message
		require.NoError(t, conn.ReadJSON(&m))
		return m
	}

	initial := make(map[domain.FeedName]bool)
	for i := 0; i < 5; i++ {
		initial[read().Type] = true
	}
	assert.Len(t, initial, 5)

	resp, err := http.Post(ts.URL+"/api/sightings/ble", "application/json", strings.NewReader(separatedTag))
	require.NoError(t, err)
	resp.Body.Close()

	for {
		m := read()
		if m.Type != domain.FeedAlerts {
			continue
		}
		var alerts []domain.UnwantedTrackingAlert
		require.NoError(t, json.Unmarshal(m.Payload, &alerts))
		if len(alerts) == 1 {
			assert.Equal(t, domain.AlertSeparatedTracker, alerts[0].Type)
			return
		}
	}
}

func TestServer_WebSocketRejectsForeignOrigin(t *testing.T) {
	eng := engine.New(signatures.Default())
	srv := server.NewServer(":0", eng, reporting.NewPDFExporter(), nil, []string{"http://localhost:8080"})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	header := http.Header{"Origin": []string{"http://evil.example"}}
	_, resp, err := gorilla.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
