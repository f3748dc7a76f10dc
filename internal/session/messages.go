package session

import (
	"encoding/json"

	"canvasroom/internal/canvas"
	"canvasroom/internal/room"
)

// Envelope is the tagged wire message every event, in either direction,
// travels in: {event, payload}. This is the typed replacement spec.md §9
// calls for in place of the original's free-form, string-keyed objects.
type Envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Inbound (client -> server) payloads.

type JoinRoomPayload struct {
	RoomID   string `json:"roomId"`
	Username string `json:"username,omitempty"`
}

type DrawStartPayload struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Color string  `json:"color"`
	Width int     `json:"width"`
	Tool  string  `json:"tool"`
}

type DrawBatchPayload struct {
	Points    []canvas.Point `json:"points"`
	Timestamp int64          `json:"timestamp"`
}

type DrawEndPayload struct {
	Stroke    canvas.Stroke `json:"stroke"`
	Timestamp int64         `json:"timestamp"`
}

type UndoPayload struct {
	OperationID string `json:"operationId,omitempty"`
}

type RedoPayload struct {
	OperationID string `json:"operationId,omitempty"`
}

type CursorMovePayload struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// UserView is the read-only presence projection sent to clients — never
// the full Session, which carries the connection handle and outbox.
type UserView struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

func viewOf(s *room.Session) UserView {
	return UserView{ID: s.ID, Name: s.DisplayName, Color: s.Color}
}

// RoomInfo is the small room descriptor returned in the join ack.
type RoomInfo struct {
	ID string `json:"id"`
}

// Outbound (server -> client) payloads.

type JoinAckPayload struct {
	Success bool     `json:"success"`
	UserID  string   `json:"userId,omitempty"`
	User    UserView `json:"user,omitempty"`
	Room    RoomInfo `json:"room,omitempty"`
	Error   string   `json:"error,omitempty"`
}

type UserJoinedPayload struct {
	User UserView `json:"user"`
}

type UserLeftPayload struct {
	User UserView `json:"user"`
}

type UsersListPayload struct {
	Users []UserView `json:"users"`
}

type RemoteDrawBatchPayload struct {
	UserID    string         `json:"userId"`
	Points    []canvas.Point `json:"points"`
	Color     string         `json:"color,omitempty"`
	Width     int            `json:"width,omitempty"`
	Tool      string         `json:"tool,omitempty"`
	Timestamp int64          `json:"timestamp"`
}

type RemoteDrawEndPayload struct {
	UserID      string        `json:"userId"`
	Stroke      canvas.Stroke `json:"stroke"`
	OperationID string        `json:"operationId"`
	Timestamp   int64         `json:"timestamp"`
}

type RemoteUndoRedoPayload struct {
	UserID      string `json:"userId"`
	OperationID string `json:"operationId"`
	Timestamp   int64  `json:"timestamp"`
}

type RemoteClearPayload struct {
	UserID    string `json:"userId"`
	Timestamp int64  `json:"timestamp"`
}

type RemoteCursorPayload struct {
	UserID    string  `json:"userId"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Timestamp int64   `json:"timestamp"`
}

type SyncStatePayload struct {
	Operations []*room.Operation `json:"operations"`
	Timestamp  int64             `json:"timestamp"`
}

type ErrorPayload struct {
	Code string `json:"code,omitempty"`
	Msg  string `json:"msg"`
}

// Event names, matching spec.md §6 exactly.
const (
	EventJoinRoom     = "join_room"
	EventDrawStart    = "draw_start"
	EventDrawBatch    = "draw_batch"
	EventDrawEnd      = "draw_end"
	EventUndo         = "undo"
	EventRedo         = "redo"
	EventClearCanvas  = "clear_canvas"
	EventCursorMove   = "cursor_move"

	EventUserJoined      = "user_joined"
	EventUserLeft        = "user_left"
	EventUsersList       = "users_list"
	EventRemoteDrawBatch = "remote_draw_batch"
	EventRemoteDrawEnd   = "remote_draw_end"
	EventRemoteUndo      = "remote_undo"
	EventRemoteRedo      = "remote_redo"
	EventRemoteClear     = "remote_clear"
	EventRemoteCursor    = "remote_cursor"
	EventSyncState       = "sync_state"
	EventJoinAck         = "join_ack"
	EventError           = "error"
)

// criticalEvents must never be dropped under backpressure. Everything
// else (remote_draw_batch, remote_cursor) is best-effort.
var criticalEvents = map[string]bool{
	EventSyncState:       true,
	EventUsersList:       true,
	EventRemoteDrawEnd:   true,
	EventRemoteUndo:      true,
	EventRemoteRedo:      true,
	EventRemoteClear:     true,
	EventUserJoined:      true,
	EventUserLeft:        true,
	EventJoinAck:         true,
	EventError:           true,
}

func isCritical(event string) bool {
	return criticalEvents[event]
}
