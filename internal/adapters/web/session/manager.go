package session

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/lcalzada-xor/netrack/internal/core/domain"
	"github.com/lcalzada-xor/netrack/internal/core/ports"
	"github.com/lcalzada-xor/netrack/internal/core/services/protocol"
	"github.com/lcalzada-xor/netrack/internal/telemetry"
)

const (
	defaultPushInterval = time.Second
	defaultSendBuffer   = 1024
	writeWait           = 5 * time.Second
)

// Config tunes the push transport.
type Config struct {
	PushInterval time.Duration
	Policy       protocol.CacheHitPolicy
	// AllowedOrigins lists browser origins accepted on upgrade. When empty
	// only same-host origins are accepted.
	AllowedOrigins []string
	// SendBuffer is the per-session outbound queue length. A consumer that
	// falls this far behind is disconnected.
	SendBuffer int
}

// Manager owns the consumer sessions and fans tracker changes out to them.
type Manager struct {
	tracker  ports.Tracker
	registry *protocol.Registry
	cfg      Config
	upgrader websocket.Upgrader

	// AfterDrain, when set, receives every non-empty batch of networks taken
	// off the dirty list by a sweep.
	AfterDrain func([]domain.TrackedNetwork)

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates a session manager.
func NewManager(tracker ports.Tracker, registry *protocol.Registry, cfg Config) *Manager {
	if cfg.PushInterval <= 0 {
		cfg.PushInterval = defaultPushInterval
	}
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = defaultSendBuffer
	}
	m := &Manager{
		tracker:  tracker,
		registry: registry,
		cfg:      cfg,
		sessions: make(map[string]*Session),
	}
	m.upgrader = websocket.Upgrader{
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
	if len(m.cfg.AllowedOrigins) == 0 {
		u, err := url.Parse(origin)
		if err == nil && strings.EqualFold(u.Host, r.Host) {
			return true
		}
	} else if slices.Contains(m.cfg.AllowedOrigins, origin) {
		return true
	}
	slog.Warn("WebSocket: rejected origin", "origin", origin)
	return false
}

// HandleWebSocket upgrades the request and serves one consumer until it
// disconnects.
func (m *Manager) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("WebSocket: upgrade failed", "error", err)
		return
	}

	s := m.open(conn)
	slog.Info("WebSocket connected", "session", s.ID, "remote", r.RemoteAddr)

	go s.writePump()
	go func() {
		defer m.close(s)
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			for _, line := range strings.Split(string(msg), "\n") {
				if strings.TrimSpace(line) == "" {
					continue
				}
				m.Execute(s, line)
			}
		}
	}()
}

// open registers a session with every required protocol enabled.
func (m *Manager) open(conn *websocket.Conn) *Session {
	s := newSession(uuid.NewString(), conn, m.cfg.SendBuffer)
	for _, p := range m.registry.Required() {
		fields, _ := p.ParseFields("*")
		s.enable(p.Name, fields)
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	telemetry.ProtocolSessions.Inc()
	return s
}

func (m *Manager) close(s *Session) {
	m.mu.Lock()
	_, ok := m.sessions[s.ID]
	delete(m.sessions, s.ID)
	m.mu.Unlock()

	s.close()
	if ok {
		telemetry.ProtocolSessions.Dec()
		slog.Info("WebSocket disconnected", "session", s.ID)
	}
}

func (m *Manager) snapshot() []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	return out
}

// Count returns the number of connected sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Execute runs one command line for s and queues the replies.
func (m *Manager) Execute(s *Session, line string) {
	cmd, err := protocol.ParseCommand(line)
	if err != nil {
		s.queue(protocol.Error(cmd.ID, err))
		return
	}

	switch cmd.Verb {
	case protocol.VerbProtocols:
		s.queue(protocol.Protocols(m.registry.Names()))
	case protocol.VerbCapability:
		p, err := m.registry.Lookup(cmd.Protocol)
		if err != nil {
			s.queue(protocol.Error(cmd.ID, err))
			return
		}
		s.queue(protocol.Capability(p))
	case protocol.VerbEnable:
		p, err := m.registry.Lookup(cmd.Protocol)
		if err != nil {
			s.queue(protocol.Error(cmd.ID, err))
			return
		}
		fields, err := p.ParseFields(cmd.Fields)
		if err != nil {
			s.queue(protocol.Error(cmd.ID, err))
			return
		}
		s.enable(p.Name, fields)
		m.dump(s, p.Name)
	case protocol.VerbRemove:
		p, err := m.registry.Lookup(cmd.Protocol)
		if err != nil {
			s.queue(protocol.Error(cmd.ID, err))
			return
		}
		if p.Required {
			s.queue(protocol.Error(cmd.ID, fmt.Errorf("protocol %s cannot be removed", p.Name)))
			return
		}
		s.disable(p.Name)
	}
	s.queue(protocol.Ack(cmd.ID))
}

// dump sends the current table of a freshly enabled protocol.
func (m *Manager) dump(s *Session, proto string) {
	switch proto {
	case protocol.ProtoNetwork:
		for _, n := range m.tracker.Networks() {
			m.pushNetwork(s, &n)
		}
	case protocol.ProtoClient:
		for _, c := range m.tracker.Clients() {
			m.pushClient(s, &c)
		}
	}
}

// Start runs the push sweep until ctx is cancelled, then disconnects every
// consumer.
func (m *Manager) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(m.cfg.PushInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				m.Close()
				return
			case <-ticker.C:
				m.Sweep()
			}
		}
	}()
}

// Sweep drains the tracker's dirty records and pushes them to every session
// that enabled the matching protocol.
func (m *Manager) Sweep() {
	nets, clients := m.tracker.DrainDirty()
	if len(nets) > 0 && m.AfterDrain != nil {
		m.AfterDrain(nets)
	}
	if len(nets) == 0 && len(clients) == 0 {
		return
	}

	for _, s := range m.snapshot() {
		for i := range nets {
			m.pushNetwork(s, &nets[i])
		}
		for i := range clients {
			m.pushClient(s, &clients[i])
		}
	}
}

func (m *Manager) pushNetwork(s *Session, n *domain.TrackedNetwork) {
	fields, ok := s.fieldsFor(protocol.ProtoNetwork)
	if !ok {
		return
	}
	// every record gets its own cache, values never leak between records
	line, err := protocol.SerializeNetwork(n, fields, protocol.NewFieldCache(), m.cfg.Policy)
	if err != nil {
		slog.Error("Serialize network failed", "bssid", n.BSSID, "error", err)
		return
	}
	s.push(protocol.ProtoNetwork, line)
}

func (m *Manager) pushClient(s *Session, c *domain.TrackedClient) {
	fields, ok := s.fieldsFor(protocol.ProtoClient)
	if !ok {
		return
	}
	line, err := protocol.ClientToData(c).Serialize(fields)
	if err != nil {
		slog.Error("Serialize client failed", "mac", c.MAC, "error", err)
		return
	}
	s.push(protocol.ProtoClient, line)
}

// PushNotice forwards a message bus notice on STATUS.
func (m *Manager) PushNotice(n domain.Notice) {
	record := protocol.NoticeToData(n)
	for _, s := range m.snapshot() {
		fields, ok := s.fieldsFor(protocol.ProtoStatus)
		if !ok {
			continue
		}
		line, err := record.Serialize(fields)
		if err != nil {
			continue
		}
		s.push(protocol.ProtoStatus, line)
	}
}

// OnNetworkAdded implements tracker.NetworkObserver. New networks are dirty
// and go out with the next sweep.
func (m *Manager) OnNetworkAdded(context.Context, domain.TrackedNetwork) {}

// OnNetworkRemoved implements tracker.NetworkObserver by pushing REMOVE.
func (m *Manager) OnNetworkRemoved(_ context.Context, bssid domain.MAC) {
	data := protocol.RemoveToData(bssid)
	for _, s := range m.snapshot() {
		fields, ok := s.fieldsFor(protocol.ProtoRemove)
		if !ok {
			continue
		}
		line, _ := protocol.SerializeRemove(data, fields)
		s.push(protocol.ProtoRemove, line)
	}
}

// Close disconnects every session.
func (m *Manager) Close() {
	for _, s := range m.snapshot() {
		m.close(s)
	}
}
