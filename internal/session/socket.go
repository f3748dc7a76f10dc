package session

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	nonCriticalCap = 32
)

type outboundMsg struct {
	event   string
	payload any
}

// socket owns one live connection's outbound delivery. Send never blocks
// the caller — the room's writer must not stall on a slow peer — and
// separates critical events (queued without bound, per spec.md's "never
// drop sync_state/users_list/..." rule) from best-effort ones (a small
// ring that silently drops the oldest entry on overflow, matching the
// `select { default: }` drop pattern seen across the retrieved room/hub
// implementations).
type socket struct {
	conn *websocket.Conn

	mu          sync.Mutex
	critical    []outboundMsg
	nonCritical []outboundMsg
	closed      bool
	closeOnce   sync.Once
	wake        chan struct{}
	done        chan struct{}
}

func newSocket(conn *websocket.Conn) *socket {
	return &socket{
		conn: conn,
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// Send implements room.Outbox.
func (s *socket) Send(event string, payload any) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if isCritical(event) {
		s.critical = append(s.critical, outboundMsg{event, payload})
	} else {
		if len(s.nonCritical) >= nonCriticalCap {
			s.nonCritical = s.nonCritical[1:]
		}
		s.nonCritical = append(s.nonCritical, outboundMsg{event, payload})
	}
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *socket) drain() ([]outboundMsg, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.critical) == 0 && len(s.nonCritical) == 0 {
		return nil, s.closed
	}
	out := make([]outboundMsg, 0, len(s.critical)+len(s.nonCritical))
	out = append(out, s.critical...)
	out = append(out, s.nonCritical...)
	s.critical = nil
	s.nonCritical = nil
	return out, s.closed
}

func (s *socket) markClosed() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.closeOnce.Do(func() { close(s.done) })
}

func mustMarshal(v any) json.RawMessage {
	raw, err := json.Marshal(v)
	if err != nil {
		log.Printf("[session] failed to marshal outbound payload: %v", err)
		return json.RawMessage("null")
	}
	return raw
}

// writePump drains queued messages onto the wire and pings on idle,
// following the read/write-pump split used by every gorilla/websocket
// server in the retrieved corpus (goatee's hub, memoNexus's desktop
// websocket hub).
func (s *socket) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case <-s.wake:
			s.flush()
		case <-s.done:
			s.flush()
			return
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *socket) flush() {
	msgs, _ := s.drain()
	for _, m := range msgs {
		s.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := s.conn.WriteJSON(Envelope{Event: m.event, Payload: mustMarshal(m.payload)}); err != nil {
			return
		}
	}
}
