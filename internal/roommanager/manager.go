// Package roommanager is the process-wide directory of rooms and
// sessions: admission, capacity, routing, and idle-room reaping.
package roommanager

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"canvasroom/internal/config"
	"canvasroom/internal/room"
)

// JoinOutcome mirrors the ack shape spec.md §6 requires for join_room:
// either a populated success case, or Reason set to a short failure code.
type JoinOutcome struct {
	OK           bool
	Reason       string
	UserID       string
	User         *room.Session
	RoomSnapshot room.Snapshot
}

// Manager is the RoomManager component: {rooms, sessions}; member colors
// are assigned by each room from its own membership. Every
// session referenced by a room's membership is also indexed in sessions,
// and vice versa — join/leave/reap all maintain that invariant.
type Manager struct {
	cfg config.Config

	mu       sync.RWMutex
	rooms    map[string]*room.Room
	sessions map[room.ConnHandle]*room.Session

	pending map[string]*time.Timer // roomID -> scheduled empty-room delete

	startedAt time.Time
	stopReap  chan struct{}
}

// New creates a manager bound to cfg. Call StartReaper to begin the
// periodic idle-room sweep.
func New(cfg config.Config) *Manager {
	return &Manager{
		cfg:       cfg,
		rooms:     make(map[string]*room.Room),
		sessions:  make(map[room.ConnHandle]*room.Session),
		pending:   make(map[string]*time.Timer),
		startedAt: time.Now(),
		stopReap:  make(chan struct{}),
	}
}

func newUserID() string {
	return fmt.Sprintf("user_%d_%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}

// Join admits conn into roomID, lazily creating the room on first join.
// name is optional; an empty string draws a whimsical placeholder.
func (m *Manager) Join(conn room.ConnHandle, roomID, name string) JoinOutcome {
	m.mu.Lock()
	r, ok := m.rooms[roomID]
	if !ok {
		r = room.New(roomID, m.cfg.MaxUsersPerRoom, m.cfg.MaxOperations)
		m.rooms[roomID] = r
		log.Printf("[roommanager] room %s created", roomID)
	}
	if t, scheduled := m.pending[roomID]; scheduled {
		t.Stop()
		delete(m.pending, roomID)
	}
	m.mu.Unlock()

	if name == "" {
		name = whimsicalName()
	}
	session := &room.Session{
		ID:           newUserID(),
		ConnHandle:   conn,
		DisplayName:  name,
		RoomID:       roomID,
		JoinedAt:     time.Now(),
		LastActivity: time.Now(),
	}

	if err := r.AddMember(session); err != nil {
		return JoinOutcome{OK: false, Reason: room.ErrRoomFull.Kind}
	}

	m.mu.Lock()
	m.sessions[conn] = session
	m.mu.Unlock()

	return JoinOutcome{
		OK:           true,
		UserID:       session.ID,
		User:         session,
		RoomSnapshot: r.Log.Snapshot(),
	}
}

// Leave removes conn's session from both indices. If its room becomes
// empty, a deletion check is scheduled after the configured grace period;
// a rejoin before then cancels the pending delete via Join above.
func (m *Manager) Leave(conn room.ConnHandle) (*room.Session, *room.Room, bool) {
	m.mu.Lock()
	session, ok := m.sessions[conn]
	if !ok {
		m.mu.Unlock()
		return nil, nil, false
	}
	delete(m.sessions, conn)
	r := m.rooms[session.RoomID]
	m.mu.Unlock()

	if r == nil {
		return session, nil, true
	}
	r.RemoveMember(session.ID)

	if r.IsEmpty() {
		m.scheduleEmptyRoomCheck(r.ID)
	}
	return session, r, true
}

func (m *Manager) scheduleEmptyRoomCheck(roomID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.pending[roomID]; exists {
		return
	}
	m.pending[roomID] = time.AfterFunc(m.cfg.EmptyRoomGrace, func() {
		m.maybeDeleteEmptyRoom(roomID)
	})
}

func (m *Manager) maybeDeleteEmptyRoom(roomID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pending, roomID)

	r, ok := m.rooms[roomID]
	if !ok {
		return
	}
	if !r.IsEmpty() {
		return
	}
	if time.Since(r.LastActivity()) < m.cfg.EmptyRoomGrace {
		return
	}
	m.deleteRoomLocked(r)
}

// deleteRoomLocked removes a room and every session it still references.
// Callers must hold m.mu.
func (m *Manager) deleteRoomLocked(r *room.Room) {
	for _, s := range r.Members() {
		delete(m.sessions, s.ConnHandle)
	}
	delete(m.rooms, r.ID)
	log.Printf("[roommanager] room %s deleted", r.ID)
}

// Room looks up a room by id without creating it.
func (m *Manager) Room(roomID string) (*room.Room, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[roomID]
	return r, ok
}

// Session resolves the session bound to a connection handle.
func (m *Manager) Session(conn room.ConnHandle) (*room.Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[conn]
	return s, ok
}

// Touch bumps both the session's and its room's activity clocks.
func (m *Manager) Touch(conn room.ConnHandle) {
	m.mu.RLock()
	session, ok := m.sessions[conn]
	var r *room.Room
	if ok {
		r = m.rooms[session.RoomID]
	}
	m.mu.RUnlock()
	if !ok {
		return
	}
	session.LastActivity = time.Now()
	if r != nil {
		r.Touch()
	}
}

// BroadcastToRoom fans event out to roomID's membership, excluding
// excludeConn if non-empty. A silent no-op if the room no longer exists —
// straggling broadcasts against a just-reaped room must never surface as
// failures.
func (m *Manager) BroadcastToRoom(roomID, event string, payload any, excludeConn room.ConnHandle) {
	r, ok := m.Room(roomID)
	if !ok {
		return
	}
	r.Broadcast(event, payload, excludeConn)
}

// BroadcastToAll fans event out to every room's membership.
func (m *Manager) BroadcastToAll(event string, payload any, excludeConn room.ConnHandle) {
	m.mu.RLock()
	rooms := make([]*room.Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		rooms = append(rooms, r)
	}
	m.mu.RUnlock()
	for _, r := range rooms {
		r.Broadcast(event, payload, excludeConn)
	}
}

// StartReaper launches the periodic sweep described in spec.md §4.D: any
// room empty for >= EmptyRoomGrace, or idle (by LastActivity) for >=
// IdleRoomTimeout regardless of membership, is deleted. Call Stop to end
// it.
func (m *Manager) StartReaper() {
	ticker := time.NewTicker(m.cfg.RoomReapInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.reapOnce()
			case <-m.stopReap:
				return
			}
		}
	}()
}

// Stop ends the reaper goroutine. Safe to call once.
func (m *Manager) Stop() {
	close(m.stopReap)
}

func (m *Manager) reapOnce() {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for _, r := range m.rooms {
		idleFor := now.Sub(r.LastActivity())
		switch {
		case r.IsEmpty() && idleFor >= m.cfg.EmptyRoomGrace:
			m.deleteRoomLocked(r)
		case idleFor >= m.cfg.IdleRoomTimeout:
			// Stale-session sweep: deletes even inhabited rooms, matching
			// the original app's behavior of treating a long-idle room as
			// abandoned regardless of who's still connected.
			m.deleteRoomLocked(r)
		}
	}
}

// RoomStat is one room's entry in Stats.
type RoomStat struct {
	ID         string `json:"id"`
	Members    int    `json:"members"`
	Operations int    `json:"operations"`
	AgeSeconds int64  `json:"ageSeconds"`
}

// Stats is the payload behind GET /health and GET /stats.
type Stats struct {
	RoomCount    int        `json:"roomCount"`
	SessionCount int        `json:"sessionCount"`
	UptimeSeconds int64     `json:"uptimeSeconds"`
	Rooms        []RoomStat `json:"rooms"`
}

func (m *Manager) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rooms := make([]RoomStat, 0, len(m.rooms))
	for _, r := range m.rooms {
		rooms = append(rooms, RoomStat{
			ID:         r.ID,
			Members:    r.Size(),
			Operations: r.Log.Len(),
			AgeSeconds: int64(time.Since(r.CreatedAt()).Seconds()),
		})
	}
	return Stats{
		RoomCount:     len(m.rooms),
		SessionCount:  len(m.sessions),
		UptimeSeconds: int64(time.Since(m.startedAt).Seconds()),
		Rooms:         rooms,
	}
}
