package room

import (
	"time"

	"canvasroom/internal/canvas"
	"canvasroom/internal/vectorclock"
)

// OperationType distinguishes the two kinds of durable canvas mutation.
type OperationType string

const (
	OpStroke OperationType = "stroke"
	OpClear  OperationType = "clear"
)

// OperationState is the only field on an Operation that mutates after
// append. It flips active<->undone via Undo/Redo; it is never removed.
type OperationState string

const (
	StateActive OperationState = "active"
	StateUndone OperationState = "undone"
)

// Operation is an immutable-except-for-state event in a room's log.
type Operation struct {
	ID          string            `json:"id"`
	Type        OperationType     `json:"type"`
	Stroke      *canvas.Stroke    `json:"stroke,omitempty"`
	Clear       *canvas.ClearData `json:"clear,omitempty"`
	UserID      string            `json:"userId"`
	State       OperationState    `json:"state"`
	VectorClock vectorclock.Clock `json:"vectorClock"`
	Timestamp   int64             `json:"timestamp"`

	UndoneBy  string `json:"undoneBy,omitempty"`
	UndoneAt  int64  `json:"undoneAt,omitempty"`
	RedoneBy  string `json:"redoneBy,omitempty"`
	RedoneAt  int64  `json:"redoneAt,omitempty"`
}

// CausalClock and CausalTimestamp satisfy vectorclock.Event so the log can
// hand its operations straight to vectorclock.SortEvents.
func (o *Operation) CausalClock() vectorclock.Clock { return o.VectorClock }
func (o *Operation) CausalTimestamp() int64         { return o.Timestamp }

// clone returns a deep-enough copy safe to hand to callers outside the
// log's lock — the Stroke pointer is copied by value, never shared.
func (o *Operation) clone() *Operation {
	cp := *o
	cp.VectorClock = o.VectorClock.Snapshot()
	if o.Stroke != nil {
		s := *o.Stroke
		s.Points = append([]canvas.Point(nil), o.Stroke.Points...)
		cp.Stroke = &s
	}
	if o.Clear != nil {
		c := *o.Clear
		cp.Clear = &c
	}
	return &cp
}

// Session is the server-side binding between a connection and a room
// membership. It exists from a successful join to disconnect.
type Session struct {
	ID           string
	ConnHandle   ConnHandle
	DisplayName  string
	Color        string
	RoomID       string
	JoinedAt     time.Time
	LastActivity time.Time

	// Outbox delivers a broadcast event to this session's connection. It is
	// assigned by the session dispatcher when the socket is registered and
	// is nil-checked by Room.Broadcast so a session mid-teardown never
	// panics a broadcaster.
	Outbox Outbox
}

// ConnHandle is an opaque per-connection identifier. The room and
// room-manager packages never interpret it; only the session dispatcher
// that minted it knows what transport it maps to.
type ConnHandle string

// Outbox is the narrow interface Room.Broadcast needs from a transport
// connection. Keeping it this small lets internal/room stay free of any
// websocket import.
type Outbox interface {
	Send(event string, payload any)
}
