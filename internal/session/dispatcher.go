// Package session implements the per-connection message loop that
// translates wire messages into room mutations and broadcasts — the
// SessionDispatcher component of spec.md §4.E.
package session

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"canvasroom/internal/canvas"
	"canvasroom/internal/room"
	"canvasroom/internal/roommanager"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Dispatcher owns the WebSocket upgrade endpoint and the per-connection
// read loop. It holds no per-room state of its own — everything mutable
// lives behind the Manager.
type Dispatcher struct {
	manager *roommanager.Manager
}

func NewDispatcher(m *roommanager.Manager) *Dispatcher {
	return &Dispatcher{manager: m}
}

// ServeHTTP upgrades the request to a WebSocket and runs its message loop
// until the peer disconnects.
func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[session] upgrade failed: %v", err)
		return
	}
	d.handleConn(conn)
}

func (d *Dispatcher) handleConn(conn *websocket.Conn) {
	handle := room.ConnHandle(uuid.NewString())
	sock := newSocket(conn)

	// An unexpected panic here kills only this connection, never the
	// process — the room's other members keep running.
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("[session] recovered panic on connection %s: %v", handle, rec)
		}
		d.disconnect(handle, sock)
	}()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go sock.writePump()
	d.readLoop(handle, sock, conn)
}

func (d *Dispatcher) readLoop(handle room.ConnHandle, sock *socket, conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			log.Printf("[session] malformed envelope: %v", err)
			continue
		}
		d.dispatch(handle, sock, env)
	}
}

func (d *Dispatcher) dispatch(handle room.ConnHandle, sock *socket, env Envelope) {
	switch env.Event {
	case EventJoinRoom:
		d.handleJoinRoom(handle, sock, env.Payload)
	case EventDrawStart:
		d.handleDrawStart(handle, env.Payload)
	case EventDrawBatch:
		d.handleDrawBatch(handle, env.Payload)
	case EventDrawEnd:
		d.handleDrawEnd(handle, env.Payload)
	case EventUndo:
		d.handleUndo(handle, env.Payload)
	case EventRedo:
		d.handleRedo(handle, env.Payload)
	case EventClearCanvas:
		d.handleClearCanvas(handle)
	case EventCursorMove:
		d.handleCursorMove(handle, env.Payload)
	default:
		log.Printf("[session] unknown event %q", env.Event)
	}
}

// sessionAndRoom resolves the acting session and its room, touching both
// activity clocks. Returns ok=false for a stale or unknown connection —
// the resource-error case spec.md §7 says to ignore silently.
func (d *Dispatcher) sessionAndRoom(handle room.ConnHandle) (*room.Session, *room.Room, bool) {
	s, ok := d.manager.Session(handle)
	if !ok {
		return nil, nil, false
	}
	d.manager.Touch(handle)
	r, ok := d.manager.Room(s.RoomID)
	if !ok {
		return nil, nil, false
	}
	return s, r, true
}

func (d *Dispatcher) handleJoinRoom(handle room.ConnHandle, sock *socket, raw json.RawMessage) {
	var payload JoinRoomPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		sock.Send(EventJoinAck, JoinAckPayload{Success: false, Error: "bad_request"})
		return
	}

	if _, already := d.manager.Session(handle); already {
		sock.Send(EventJoinAck, JoinAckPayload{Success: false, Error: "already_joined"})
		return
	}

	outcome := d.manager.Join(handle, payload.RoomID, payload.Username)
	if !outcome.OK {
		sock.Send(EventJoinAck, JoinAckPayload{Success: false, Error: outcome.Reason})
		return
	}

	session := outcome.User
	session.Outbox = sock

	sock.Send(EventJoinAck, JoinAckPayload{
		Success: true,
		UserID:  outcome.UserID,
		User:    viewOf(session),
		Room:    RoomInfo{ID: payload.RoomID},
	})

	r, ok := d.manager.Room(payload.RoomID)
	if !ok {
		return
	}

	r.Broadcast(EventUserJoined, UserJoinedPayload{User: viewOf(session)}, handle)

	members := r.Members()
	views := make([]UserView, 0, len(members))
	for _, m := range members {
		views = append(views, viewOf(m))
	}
	sock.Send(EventUsersList, UsersListPayload{Users: views})

	if r.Log.Len() > 0 {
		snap := r.Log.Snapshot()
		sock.Send(EventSyncState, SyncStatePayload{
			Operations: snap.Operations,
			Timestamp:  time.Now().UnixMilli(),
		})
	}
}

func (d *Dispatcher) handleDrawStart(handle room.ConnHandle, raw json.RawMessage) {
	session, r, ok := d.sessionAndRoom(handle)
	if !ok {
		return
	}
	var payload DrawStartPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return
	}
	r.Broadcast(EventRemoteDrawBatch, RemoteDrawBatchPayload{
		UserID:    session.ID,
		Points:    []canvas.Point{{X: payload.X, Y: payload.Y}},
		Color:     payload.Color,
		Width:     payload.Width,
		Tool:      payload.Tool,
		Timestamp: time.Now().UnixMilli(),
	}, handle)
}

func (d *Dispatcher) handleDrawBatch(handle room.ConnHandle, raw json.RawMessage) {
	session, r, ok := d.sessionAndRoom(handle)
	if !ok {
		return
	}
	var payload DrawBatchPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return
	}
	r.Broadcast(EventRemoteDrawBatch, RemoteDrawBatchPayload{
		UserID:    session.ID,
		Points:    payload.Points,
		Timestamp: payload.Timestamp,
	}, handle)
}

func (d *Dispatcher) handleDrawEnd(handle room.ConnHandle, raw json.RawMessage) {
	session, r, ok := d.sessionAndRoom(handle)
	if !ok {
		return
	}
	var payload DrawEndPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return
	}
	op, err := r.Log.AppendStroke(session.ID, payload.Stroke)
	if err != nil {
		log.Printf("[session] rejected stroke from %s: %v", session.ID, err)
		return
	}
	r.Broadcast(EventRemoteDrawEnd, RemoteDrawEndPayload{
		UserID:      session.ID,
		Stroke:      payload.Stroke,
		OperationID: op.ID,
		Timestamp:   payload.Timestamp,
	}, handle)
}

func (d *Dispatcher) handleUndo(handle room.ConnHandle, raw json.RawMessage) {
	session, r, ok := d.sessionAndRoom(handle)
	if !ok {
		return
	}
	var payload UndoPayload
	json.Unmarshal(raw, &payload)

	operationID := payload.OperationID
	if operationID == "" {
		op, found := r.Log.LastActive()
		if !found {
			return
		}
		operationID = op.ID
	}

	result, err := r.Log.Undo(operationID, session.ID)
	if err != nil {
		return // not_found / already_undone: silent no-op, no broadcast
	}
	r.Broadcast(EventRemoteUndo, RemoteUndoRedoPayload{
		UserID:      session.ID,
		OperationID: result.ID,
		Timestamp:   time.Now().UnixMilli(),
	}, "")
}

func (d *Dispatcher) handleRedo(handle room.ConnHandle, raw json.RawMessage) {
	session, r, ok := d.sessionAndRoom(handle)
	if !ok {
		return
	}
	var payload RedoPayload
	json.Unmarshal(raw, &payload)

	operationID := payload.OperationID
	if operationID == "" {
		op, found := r.Log.LastUndone()
		if !found {
			return
		}
		operationID = op.ID
	}

	result, err := r.Log.Redo(operationID, session.ID)
	if err != nil {
		return
	}
	r.Broadcast(EventRemoteRedo, RemoteUndoRedoPayload{
		UserID:      session.ID,
		OperationID: result.ID,
		Timestamp:   time.Now().UnixMilli(),
	}, "")
}

func (d *Dispatcher) handleClearCanvas(handle room.ConnHandle) {
	session, r, ok := d.sessionAndRoom(handle)
	if !ok {
		return
	}
	op := r.Log.Clear(session.ID)
	r.Broadcast(EventRemoteClear, RemoteClearPayload{
		UserID:    session.ID,
		Timestamp: op.Timestamp,
	}, "")
}

func (d *Dispatcher) handleCursorMove(handle room.ConnHandle, raw json.RawMessage) {
	session, r, ok := d.sessionAndRoom(handle)
	if !ok {
		return
	}
	var payload CursorMovePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return
	}
	r.Broadcast(EventRemoteCursor, RemoteCursorPayload{
		UserID:    session.ID,
		X:         payload.X,
		Y:         payload.Y,
		Timestamp: time.Now().UnixMilli(),
	}, handle)
}

func (d *Dispatcher) disconnect(handle room.ConnHandle, sock *socket) {
	sock.markClosed()

	session, r, ok := d.manager.Leave(handle)
	if !ok || r == nil {
		return
	}

	r.Broadcast(EventUserLeft, UserLeftPayload{User: viewOf(session)}, "")

	members := r.Members()
	views := make([]UserView, 0, len(members))
	for _, m := range members {
		views = append(views, viewOf(m))
	}
	r.Broadcast(EventUsersList, UsersListPayload{Users: views}, "")
}
