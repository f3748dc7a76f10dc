package session_test

import (
	"encoding/json"
	"net/http/httptest"
	"reflect"
	"runtime/debug"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"canvasroom/internal/canvas"
	"canvasroom/internal/config"
	"canvasroom/internal/roommanager"
	"canvasroom/internal/session"
)

func fatal(t *testing.T, v ...interface{}) {
	debug.PrintStack()
	t.Fatal(v...)
}

func fatalf(t *testing.T, format string, v ...interface{}) {
	debug.PrintStack()
	t.Fatalf(format, v...)
}

func ok(t *testing.T, err error) {
	if err != nil {
		fatal(t, err)
	}
}

func eq(t *testing.T, got, want interface{}) {
	if !reflect.DeepEqual(got, want) {
		fatalf(t, "got %v, want %v", got, want)
	}
}

type testClient struct {
	t    *testing.T
	conn *websocket.Conn
}

func dial(t *testing.T, url string) *testClient {
	wsURL := "ws" + strings.TrimPrefix(url, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	ok(t, err)
	return &testClient{t: t, conn: conn}
}

func (c *testClient) send(event string, payload any) {
	raw, err := json.Marshal(payload)
	ok(c.t, err)
	ok(c.t, c.conn.WriteJSON(session.Envelope{Event: event, Payload: raw}))
}

// next reads envelopes until it finds one matching wantEvent, ignoring any
// others (e.g. a users_list a joiner doesn't care about yet) up to a short
// deadline.
func (c *testClient) next(wantEvent string) session.Envelope {
	c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		var env session.Envelope
		if err := c.conn.ReadJSON(&env); err != nil {
			fatalf(c.t, "waiting for %q: %v", wantEvent, err)
		}
		if env.Event == wantEvent {
			return env
		}
	}
}

func newHarness(t *testing.T) (*httptest.Server, *roommanager.Manager) {
	cfg := config.Config{
		Port:             "0",
		MaxUsersPerRoom:  5,
		MaxOperations:    100,
		EmptyRoomGrace:   time.Hour,
		IdleRoomTimeout:  time.Hour,
		RoomReapInterval: time.Hour,
	}
	manager := roommanager.New(cfg)
	dispatcher := session.NewDispatcher(manager)
	srv := httptest.NewServer(dispatcher)
	t.Cleanup(srv.Close)
	return srv, manager
}

func TestJoinRoomAcksSuccess(t *testing.T) {
	srv, _ := newHarness(t)
	c := dial(t, srv.URL)
	defer c.conn.Close()

	c.send(session.EventJoinRoom, session.JoinRoomPayload{RoomID: "room-1", Username: "Alice"})

	ack := c.next(session.EventJoinAck)
	var payload session.JoinAckPayload
	ok(t, json.Unmarshal(ack.Payload, &payload))
	if !payload.Success {
		fatalf(t, "expected join to succeed, got error %q", payload.Error)
	}
	eq(t, payload.User.Name, "Alice")
}

func TestSecondJoinerSeesFirstAndReceivesUsersList(t *testing.T) {
	srv, _ := newHarness(t)
	a := dial(t, srv.URL)
	defer a.conn.Close()
	a.send(session.EventJoinRoom, session.JoinRoomPayload{RoomID: "room-1", Username: "Alice"})
	a.next(session.EventJoinAck)

	b := dial(t, srv.URL)
	defer b.conn.Close()
	b.send(session.EventJoinRoom, session.JoinRoomPayload{RoomID: "room-1", Username: "Bob"})
	b.next(session.EventJoinAck)

	joined := a.next(session.EventUserJoined)
	var jp session.UserJoinedPayload
	ok(t, json.Unmarshal(joined.Payload, &jp))
	eq(t, jp.User.Name, "Bob")

	list := b.next(session.EventUsersList)
	var lp session.UsersListPayload
	ok(t, json.Unmarshal(list.Payload, &lp))
	eq(t, len(lp.Users), 2)
}

func TestDrawEndBroadcastsToOtherMembersOnly(t *testing.T) {
	srv, _ := newHarness(t)
	a := dial(t, srv.URL)
	defer a.conn.Close()
	a.send(session.EventJoinRoom, session.JoinRoomPayload{RoomID: "room-1", Username: "Alice"})
	a.next(session.EventJoinAck)

	b := dial(t, srv.URL)
	defer b.conn.Close()
	b.send(session.EventJoinRoom, session.JoinRoomPayload{RoomID: "room-1", Username: "Bob"})
	b.next(session.EventJoinAck)
	a.next(session.EventUserJoined)

	stroke := canvas.Stroke{
		Points: []canvas.Point{{X: 1, Y: 1}, {X: 2, Y: 2}},
		Color:  "#00ff00",
		Width:  3,
		Tool:   canvas.ToolBrush,
	}
	b.send(session.EventDrawEnd, session.DrawEndPayload{Stroke: stroke})

	drawEnd := a.next(session.EventRemoteDrawEnd)
	var dp session.RemoteDrawEndPayload
	ok(t, json.Unmarshal(drawEnd.Payload, &dp))
	eq(t, dp.Stroke.Color, "#00ff00")
}

func TestUndoWithoutOperationIDResolvesLastActive(t *testing.T) {
	srv, _ := newHarness(t)
	a := dial(t, srv.URL)
	defer a.conn.Close()
	a.send(session.EventJoinRoom, session.JoinRoomPayload{RoomID: "room-1", Username: "Alice"})
	a.next(session.EventJoinAck)

	b := dial(t, srv.URL)
	defer b.conn.Close()
	b.send(session.EventJoinRoom, session.JoinRoomPayload{RoomID: "room-1", Username: "Bob"})
	b.next(session.EventJoinAck)

	stroke := canvas.Stroke{
		Points: []canvas.Point{{X: 1, Y: 1}, {X: 2, Y: 2}},
		Color:  "#0000ff",
		Width:  2,
		Tool:   canvas.ToolBrush,
	}
	a.send(session.EventDrawEnd, session.DrawEndPayload{Stroke: stroke})
	// remote_draw_end skips the sender, so the peer observes the new operation.
	drawEnd := b.next(session.EventRemoteDrawEnd)
	var dp session.RemoteDrawEndPayload
	ok(t, json.Unmarshal(drawEnd.Payload, &dp))

	a.send(session.EventUndo, session.UndoPayload{})
	undo := a.next(session.EventRemoteUndo)
	var up session.RemoteUndoRedoPayload
	ok(t, json.Unmarshal(undo.Payload, &up))
	if up.OperationID == "" {
		fatal(t, "expected a resolved operation id")
	}
	eq(t, up.OperationID, dp.OperationID)
}

func TestJoinFailsWhenRoomAtCapacity(t *testing.T) {
	cfg := config.Config{
		Port:             "0",
		MaxUsersPerRoom:  1,
		MaxOperations:    100,
		EmptyRoomGrace:   time.Hour,
		IdleRoomTimeout:  time.Hour,
		RoomReapInterval: time.Hour,
	}
	manager := roommanager.New(cfg)
	dispatcher := session.NewDispatcher(manager)
	srv := httptest.NewServer(dispatcher)
	defer srv.Close()

	a := dial(t, srv.URL)
	defer a.conn.Close()
	a.send(session.EventJoinRoom, session.JoinRoomPayload{RoomID: "room-1", Username: "Alice"})
	a.next(session.EventJoinAck)

	b := dial(t, srv.URL)
	defer b.conn.Close()
	b.send(session.EventJoinRoom, session.JoinRoomPayload{RoomID: "room-1", Username: "Bob"})
	ack := b.next(session.EventJoinAck)
	var payload session.JoinAckPayload
	ok(t, json.Unmarshal(ack.Payload, &payload))
	if payload.Success {
		fatal(t, "expected join to fail at capacity")
	}
	eq(t, payload.Error, "room_full")
}
