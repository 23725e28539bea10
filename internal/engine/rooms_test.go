package engine

import (
	"testing"

	"github.com/frontline-chat/frontline/internal/protocol/wire"
	"github.com/frontline-chat/frontline/internal/testutil/testlog"
)

func roomSession(id int, port int) (*Session, *fakeTransport) {
	tr := newFakeTransport(port)
	s := newSession(id, nil)
	s.bind(tr, false)
	return s, tr
}

func TestRoomsCreateIsIdempotent(t *testing.T) {
	testlog.Start(t)

	rooms := NewRooms()
	if !rooms.Create(7) {
		t.Fatalf("first create failed")
	}
	if rooms.Create(7) {
		t.Fatalf("duplicate create should be a no-op")
	}
	if rooms.Len() != 1 {
		t.Fatalf("len=%d, want 1", rooms.Len())
	}
}

func TestRoomsRemoveUnknownIsNoOp(t *testing.T) {
	testlog.Start(t)

	rooms := NewRooms()
	if rooms.Remove(99) {
		t.Fatalf("removing unknown room reported success")
	}
}

func TestRoomsJoinLeave(t *testing.T) {
	testlog.Start(t)

	rooms := NewRooms()
	rooms.Create(1)
	s, _ := roomSession(0, 40000)
	s.Login("alice")

	if rooms.Join(s, 2) {
		t.Fatalf("join to unknown room succeeded")
	}
	if !rooms.Join(s, 1) {
		t.Fatalf("join failed")
	}
	if s.RoomNo() != 1 {
		t.Fatalf("roomNo=%d, want 1", s.RoomNo())
	}
	if got := len(rooms.Members(1)); got != 1 {
		t.Fatalf("members=%d, want 1", got)
	}

	rooms.Leave(s)
	if s.RoomNo() != NoRoom {
		t.Fatalf("roomNo=%d after leave, want %d", s.RoomNo(), NoRoom)
	}
	if got := len(rooms.Members(1)); got != 0 {
		t.Fatalf("members=%d after leave, want 0", got)
	}
	// Leaving twice must not panic or touch anything.
	rooms.Leave(s)
}

func TestRoomsBroadcastReachesAllMembers(t *testing.T) {
	testlog.Start(t)

	rooms := NewRooms()
	rooms.Create(5)
	a, trA := roomSession(0, 40001)
	b, trB := roomSession(1, 40002)
	rooms.Join(a, 5)
	rooms.Join(b, 5)

	frame := wire.CFFrame(wire.CFHeader{Type: wire.MsgChatBroadcast, State: wire.StateSuccess}, []byte("hi"))
	if sent := rooms.Broadcast(5, frame); sent != 2 {
		t.Fatalf("broadcast reached %d members, want 2", sent)
	}
	if len(trA.frames()) != 1 || len(trB.frames()) != 1 {
		t.Fatalf("frames: a=%d b=%d, want 1 each", len(trA.frames()), len(trB.frames()))
	}
}

func TestRoomsBroadcastSkipsDeadMember(t *testing.T) {
	testlog.Start(t)

	rooms := NewRooms()
	rooms.Create(5)
	a, trA := roomSession(0, 40003)
	b, trB := roomSession(1, 40004)
	rooms.Join(a, 5)
	rooms.Join(b, 5)
	trB.fail()

	frame := wire.CFFrame(wire.CFHeader{Type: wire.MsgChatBroadcast, State: wire.StateSuccess}, []byte("hi"))
	if sent := rooms.Broadcast(5, frame); sent != 1 {
		t.Fatalf("broadcast reached %d members, want 1", sent)
	}
	if len(trA.frames()) != 1 {
		t.Fatalf("live member did not receive the frame")
	}
}

func TestRoomsRemoveClearsMembership(t *testing.T) {
	testlog.Start(t)

	rooms := NewRooms()
	rooms.Create(3)
	s, _ := roomSession(0, 40005)
	rooms.Join(s, 3)

	if !rooms.Remove(3) {
		t.Fatalf("remove failed")
	}
	if s.RoomNo() != NoRoom {
		t.Fatalf("member kept roomNo=%d after room removal", s.RoomNo())
	}
}

func TestRoomsReset(t *testing.T) {
	testlog.Start(t)

	rooms := NewRooms()
	rooms.Create(1)
	rooms.Create(2)
	s, _ := roomSession(0, 40006)
	rooms.Join(s, 1)

	rooms.Reset()
	if rooms.Len() != 0 {
		t.Fatalf("len=%d after reset, want 0", rooms.Len())
	}
	if s.RoomNo() != NoRoom {
		t.Fatalf("member kept roomNo=%d after reset", s.RoomNo())
	}
}
