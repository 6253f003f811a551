package server_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/lcalzada-xor/netrack/internal/adapters/web/middleware"
	"github.com/lcalzada-xor/netrack/internal/adapters/web/server"
	"github.com/lcalzada-xor/netrack/internal/adapters/web/session"
	"github.com/lcalzada-xor/netrack/internal/core/domain"
	"github.com/lcalzada-xor/netrack/internal/core/services/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// MockStorage implements ports.Storage
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) SaveNetworksBatch(ctx context.Context, networks []domain.TrackedNetwork) error {
	return m.Called(ctx, networks).Error(0)
}

func (m *MockStorage) GetNetwork(ctx context.Context, bssid domain.MAC) (*domain.TrackedNetwork, error) {
	args := m.Called(ctx, bssid)
	n, _ := args.Get(0).(*domain.TrackedNetwork)
	return n, args.Error(1)
}

func (m *MockStorage) GetAllNetworks(ctx context.Context) ([]domain.TrackedNetwork, error) {
	args := m.Called(ctx)
	n, _ := args.Get(0).([]domain.TrackedNetwork)
	return n, args.Error(1)
}

func (m *MockStorage) History(ctx context.Context, bssid domain.MAC, since time.Time) ([]domain.NetworkSnapshot, error) {
	args := m.Called(ctx, bssid, since)
	s, _ := args.Get(0).([]domain.NetworkSnapshot)
	return s, args.Error(1)
}

func (m *MockStorage) Close() error { return nil }

// stubTracker implements ports.Tracker over fixed slices
type stubTracker struct {
	networks []domain.TrackedNetwork
	clients  []domain.TrackedClient
}

func (s *stubTracker) ProcessFrame(context.Context, domain.Frame) bool { return false }
func (s *stubTracker) Network(bssid domain.MAC) (domain.TrackedNetwork, bool) {
	for _, n := range s.networks {
		if n.BSSID == bssid {
			return n, true
		}
	}
	return domain.TrackedNetwork{}, false
}
func (s *stubTracker) Networks() []domain.TrackedNetwork { return s.networks }
func (s *stubTracker) Clients() []domain.TrackedClient   { return s.clients }
func (s *stubTracker) DrainDirty() ([]domain.TrackedNetwork, []domain.TrackedClient) {
	return nil, nil
}
func (s *stubTracker) Prune(context.Context, time.Duration) []domain.MAC { return nil }
func (s *stubTracker) Count() int                                       { return len(s.networks) }

type stubNotices []domain.Notice

func (n stubNotices) Recent() []domain.Notice { return n }

type stubFlusher struct {
	failed []string
	calls  int
}

func (f *stubFlusher) FlushNow(context.Context) []string {
	f.calls++
	return f.failed
}

var (
	apMAC     = domain.MustParseMAC("00:11:22:33:44:01")
	goneMAC   = domain.MustParseMAC("00:11:22:33:44:99")
	clientMAC = domain.MustParseMAC("66:77:88:99:AA:BB")
)

type fixture struct {
	handler http.Handler
	storage *MockStorage
	flusher *stubFlusher
}

func setupServer(t *testing.T, creds middleware.Credentials) fixture {
	t.Helper()

	net := domain.NewTrackedNetwork(apMAC)
	net.SSID = "HomeNet"
	net.Channel = 11
	cl := domain.NewTrackedClient(domain.ClientKey{BSSID: apMAC, MAC: clientMAC})

	tracker := &stubTracker{
		networks: []domain.TrackedNetwork{*net},
		clients:  []domain.TrackedClient{*cl},
	}
	storage := new(MockStorage)
	flusher := &stubFlusher{}

	srv := server.NewServer(":0", creds, server.Deps{
		Tracker:  tracker,
		Storage:  storage,
		Notices:  stubNotices{{Severity: domain.SeverityInfo, Text: "Loaded 3 SSIDs"}},
		Flusher:  flusher,
		Sessions: session.NewManager(tracker, protocol.NewRegistry(), session.Config{}),
	})
	return fixture{handler: srv.Handler(), storage: storage, flusher: flusher}
}

func do(h http.Handler, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestServer_ListNetworks(t *testing.T) {
	f := setupServer(t, middleware.Credentials{})

	rec := do(f.handler, http.MethodGet, "/api/networks")
	require.Equal(t, http.StatusOK, rec.Code)

	var body []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body, 1)
	assert.Equal(t, "HomeNet", body[0]["ssid"])
	assert.Equal(t, "HomeNet", body[0]["display_ssid"])
	assert.Equal(t, true, body[0]["live"])
}

func TestServer_ListStoredNetworks(t *testing.T) {
	f := setupServer(t, middleware.Credentials{})
	stored := domain.NewTrackedNetwork(goneMAC)
	f.storage.On("GetAllNetworks", mock.Anything).Return([]domain.TrackedNetwork{*stored}, nil)

	rec := do(f.handler, http.MethodGet, "/api/networks?source=stored")
	require.Equal(t, http.StatusOK, rec.Code)

	var body []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body, 1)
	assert.Equal(t, false, body[0]["live"])
	f.storage.AssertExpectations(t)
}

func TestServer_GetNetwork(t *testing.T) {
	f := setupServer(t, middleware.Credentials{})
	stored := domain.NewTrackedNetwork(goneMAC)
	stored.SSID = "OldNet"
	f.storage.On("GetNetwork", mock.Anything, goneMAC).Return(stored, nil)
	f.storage.On("GetNetwork", mock.Anything, mock.Anything).Return(nil, domain.ErrNetworkNotFound)

	tests := []struct {
		name   string
		target string
		want   int
		ssid   string
	}{
		{"live", "/api/networks/" + apMAC.String(), http.StatusOK, "HomeNet"},
		{"stored fallback", "/api/networks/" + goneMAC.String(), http.StatusOK, "OldNet"},
		{"unknown", "/api/networks/00:00:00:00:00:42", http.StatusNotFound, ""},
		{"bad address", "/api/networks/not-a-mac", http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(f.handler, http.MethodGet, tt.target)
			assert.Equal(t, tt.want, rec.Code)
			if tt.ssid != "" {
				var body map[string]any
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
				assert.Equal(t, tt.ssid, body["ssid"])
			}
		})
	}
}

func TestServer_GetNetworkStorageError(t *testing.T) {
	f := setupServer(t, middleware.Credentials{})
	f.storage.On("GetNetwork", mock.Anything, goneMAC).Return(nil, errors.New("disk I/O error"))

	rec := do(f.handler, http.MethodGet, "/api/networks/"+goneMAC.String())
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestServer_ClientsAndNotices(t *testing.T) {
	f := setupServer(t, middleware.Credentials{})

	rec := do(f.handler, http.MethodGet, "/api/clients")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"mac":"`+clientMAC.String()+`"`)

	rec = do(f.handler, http.MethodGet, "/api/clients?bssid="+goneMAC.String())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())

	rec = do(f.handler, http.MethodGet, "/api/notices")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Loaded 3 SSIDs")
}

func TestServer_History(t *testing.T) {
	f := setupServer(t, middleware.Credentials{})
	snaps := []domain.NetworkSnapshot{{BSSID: apMAC, SSID: "HomeNet", Channel: 11}}
	f.storage.On("History", mock.Anything, apMAC, mock.AnythingOfType("time.Time")).Return(snaps, nil)

	rec := do(f.handler, http.MethodGet, "/api/history?bssid="+apMAC.String()+"&since=2h")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"channel":11`)

	rec = do(f.handler, http.MethodGet, "/api/history")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(f.handler, http.MethodGet, "/api/history?bssid="+apMAC.String()+"&since=yesterday")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_Report(t *testing.T) {
	f := setupServer(t, middleware.Credentials{})

	rec := do(f.handler, http.MethodGet, "/api/report.pdf")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "%PDF"))
}

func TestServer_FlushCaches(t *testing.T) {
	f := setupServer(t, middleware.Credentials{})

	rec := do(f.handler, http.MethodPost, "/api/caches/flush")
	assert.Equal(t, http.StatusOK, rec.Code)

	f.flusher.failed = []string{"ip"}
	rec = do(f.handler, http.MethodPost, "/api/caches/flush")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ip"`)
	assert.Equal(t, 2, f.flusher.calls)

	rec = do(f.handler, http.MethodGet, "/api/caches/flush")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestServer_BasicAuth(t *testing.T) {
	hashed, err := bcrypt.GenerateFromPassword([]byte("changeit"), bcrypt.MinCost)
	require.NoError(t, err)
	f := setupServer(t, middleware.Credentials{User: "admin", PasswordHash: string(hashed)})

	for _, target := range []string{"/api/networks", "/metrics", "/ws"} {
		rec := do(f.handler, http.MethodGet, target)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, target)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/networks", nil)
	req.SetBasicAuth("admin", "changeit")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, http.StatusOK, do(f.handler, http.MethodGet, "/healthz").Code, "health stays public")
}
