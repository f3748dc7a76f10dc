package room

import (
	"sync"
	"time"
)

// Room binds one operation log to a membership set, a color palette
// assignment domain, and an activity clock. All membership mutation is
// serialized through r.mu; broadcast iterates a snapshot taken under that
// lock so a concurrent join or leave during fan-out can never invalidate
// the iteration.
type Room struct {
	ID       string
	Log      *OperationLog
	MaxUsers int

	mu           sync.RWMutex
	membership   map[string]*Session // userID -> session
	byConn       map[ConnHandle]string
	createdAt    time.Time
	lastActivity time.Time
}

// New creates an empty room with a fresh operation log.
func New(id string, maxUsers, maxOperations int) *Room {
	now := time.Now()
	return &Room{
		ID:           id,
		Log:          NewOperationLog(id, maxOperations),
		MaxUsers:     maxUsers,
		membership:   make(map[string]*Session),
		byConn:       make(map[ConnHandle]string),
		createdAt:    now,
		lastActivity: now,
	}
}

// AddMember admits session into the room, assigning it a palette color
// derived from current membership. Fails with ErrRoomFull once
// |membership| == MaxUsers.
func (r *Room) AddMember(session *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.membership) >= r.MaxUsers {
		return ErrRoomFull
	}
	session.Color = assignColor(r.membership)
	r.membership[session.ID] = session
	r.byConn[session.ConnHandle] = session.ID
	r.lastActivity = time.Now()
	return nil
}

// RemoveMember evicts a member by userID, returning the removed session
// (or nil if it was not present). The freed color becomes implicitly
// available on the next AddMember since colors are derived from
// membership, not tracked in a separate free-list.
func (r *Room) RemoveMember(userID string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.membership[userID]
	if !ok {
		return nil
	}
	delete(r.membership, userID)
	delete(r.byConn, session.ConnHandle)
	r.lastActivity = time.Now()
	return session
}

// MemberByConn resolves a userID from an active connection handle.
func (r *Room) MemberByConn(conn ConnHandle) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	userID, ok := r.byConn[conn]
	if !ok {
		return nil, false
	}
	s, ok := r.membership[userID]
	return s, ok
}

// Member looks up a session by userID.
func (r *Room) Member(userID string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.membership[userID]
	return s, ok
}

// Members returns a snapshot slice of the current membership, safe to
// range over after the lock is released.
func (r *Room) Members() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Session, 0, len(r.membership))
	for _, s := range r.membership {
		out = append(out, s)
	}
	return out
}

// Size reports the current membership count.
func (r *Room) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.membership)
}

// Broadcast fans event out to every member's Outbox except excludeConn (an
// empty ConnHandle excludes nobody). It always operates on a membership
// snapshot taken under lock, so it never blocks on a slow peer while
// holding the room lock.
func (r *Room) Broadcast(event string, payload any, excludeConn ConnHandle) {
	for _, s := range r.Members() {
		if excludeConn != "" && s.ConnHandle == excludeConn {
			continue
		}
		if s.Outbox != nil {
			s.Outbox.Send(event, payload)
		}
	}
}

// Touch bumps the room's activity clock. Called on any member-originated
// event, including ones that don't mutate the log (cursor moves).
func (r *Room) Touch() {
	r.mu.Lock()
	r.lastActivity = time.Now()
	r.mu.Unlock()
}

// LastActivity reports the room's most recent activity timestamp.
func (r *Room) LastActivity() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastActivity
}

// CreatedAt reports room creation time.
func (r *Room) CreatedAt() time.Time {
	return r.createdAt
}

// IsEmpty reports whether the room currently has no members.
func (r *Room) IsEmpty() bool {
	return r.Size() == 0
}
