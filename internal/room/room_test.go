package room_test

import (
	"testing"

	"canvasroom/internal/room"
)

type fakeOutbox struct {
	sent []string
}

func (f *fakeOutbox) Send(event string, payload any) {
	f.sent = append(f.sent, event)
}

func newSession(id string, conn room.ConnHandle) *room.Session {
	return &room.Session{ID: id, ConnHandle: conn, DisplayName: id, Outbox: &fakeOutbox{}}
}

func TestAddMemberAssignsDistinctColors(t *testing.T) {
	r := room.New("r1", 10, 100)
	a := newSession("alice", "conn-a")
	b := newSession("bob", "conn-b")
	ok(t, r.AddMember(a))
	ok(t, r.AddMember(b))
	neq(t, a.Color, b.Color)
	if a.Color == "" || b.Color == "" {
		fatal(t, "expected non-empty assigned colors")
	}
}

func TestAddMemberFailsAtCapacity(t *testing.T) {
	r := room.New("r1", 1, 100)
	ok(t, r.AddMember(newSession("alice", "conn-a")))
	err := r.AddMember(newSession("bob", "conn-b"))
	if !room.IsOpError(err, room.ErrRoomFull.Kind) {
		fatalf(t, "expected ErrRoomFull, got %v", err)
	}
}

func TestRemoveMemberFreesSlot(t *testing.T) {
	r := room.New("r1", 1, 100)
	a := newSession("alice", "conn-a")
	ok(t, r.AddMember(a))
	removed := r.RemoveMember("alice")
	eq(t, removed.ID, "alice")
	ok(t, r.AddMember(newSession("bob", "conn-b")))
}

func TestBroadcastExcludesGivenConn(t *testing.T) {
	r := room.New("r1", 10, 100)
	a := newSession("alice", "conn-a")
	b := newSession("bob", "conn-b")
	ok(t, r.AddMember(a))
	ok(t, r.AddMember(b))

	r.Broadcast("cursor_move", nil, "conn-a")

	eq(t, len(a.Outbox.(*fakeOutbox).sent), 0)
	eq(t, len(b.Outbox.(*fakeOutbox).sent), 1)
}

func TestBroadcastEmptyExcludeReachesEveryone(t *testing.T) {
	r := room.New("r1", 10, 100)
	a := newSession("alice", "conn-a")
	b := newSession("bob", "conn-b")
	ok(t, r.AddMember(a))
	ok(t, r.AddMember(b))

	r.Broadcast("remote_undo", nil, "")

	eq(t, len(a.Outbox.(*fakeOutbox).sent), 1)
	eq(t, len(b.Outbox.(*fakeOutbox).sent), 1)
}

func TestIsEmpty(t *testing.T) {
	r := room.New("r1", 10, 100)
	if !r.IsEmpty() {
		fatal(t, "expected new room to be empty")
	}
	ok(t, r.AddMember(newSession("alice", "conn-a")))
	if r.IsEmpty() {
		fatal(t, "expected room with a member to be non-empty")
	}
}
