package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/lcalzada-xor/netrack/internal/core/services/protocol"
	"github.com/lcalzada-xor/netrack/internal/telemetry"
)

// Session is one connected consumer and the protocols it enabled.
type Session struct {
	ID string

	conn *websocket.Conn
	send chan string
	done chan struct{}
	once sync.Once

	mu      sync.Mutex
	enabled map[string][]int
}

func newSession(id string, conn *websocket.Conn, buffer int) *Session {
	return &Session{
		ID:      id,
		conn:    conn,
		send:    make(chan string, buffer),
		done:    make(chan struct{}),
		enabled: make(map[string][]int),
	}
}

func (s *Session) enable(proto string, fields []int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled[proto] = fields
}

func (s *Session) disable(proto string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.enabled, proto)
}

func (s *Session) fieldsFor(proto string) ([]int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.enabled[proto]
	return f, ok
}

func (s *Session) push(proto, payload string) {
	if s.queue(protocol.Push(proto, payload)) {
		telemetry.ProtocolPushes.WithLabelValues(proto).Inc()
	}
}

// queue never blocks. A full queue means the consumer stopped reading and
// the session is closed.
func (s *Session) queue(line string) bool {
	select {
	case <-s.done:
		return false
	default:
	}

	select {
	case s.send <- line:
		return true
	default:
		slog.Warn("WebSocket: consumer too slow, dropping session", "session", s.ID)
		s.close()
		return false
	}
}

func (s *Session) close() {
	s.once.Do(func() {
		close(s.done)
		if s.conn != nil {
			s.conn.Close()
		}
	})
}

func (s *Session) writePump() {
	for {
		select {
		case <-s.done:
			return
		case line := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, []byte(line)); err != nil {
				s.close()
				return
			}
		}
	}
}
