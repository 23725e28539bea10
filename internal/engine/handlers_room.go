package engine

import (
	"github.com/rs/zerolog/log"

	"github.com/frontline-chat/frontline/internal/protocol/wire"
)

// roomFail answers a room request locally with FAIL without involving the
// backend.
func (e *Engine) roomFail(s *Session, t wire.MsgType, body []byte) bool {
	no := NoRoom
	if req, err := wire.DecodeCFRoomRequest(body); err == nil {
		no = req.RoomNo
	}
	ack := wire.EncodeRoomAck(wire.RoomAck{RoomNo: no})
	_ = s.sendCF(wire.CFHeader{Type: t, State: wire.StateFail, Length: int32(len(ack))}, ack)
	return true
}

// cfRoomRequest relays create, join and list requests for logged-in clients.
func (e *Engine) cfRoomRequest(s *Session, h wire.CFHeader, body []byte) bool {
	if !s.LoggedIn() {
		return e.roomFail(s, h.Type, body)
	}
	return e.relayToBackend(s, h.Type, h.State, body)
}

// cfRoomLeave tells the room the member is going before the backend confirms,
// so the leaver still sees its own notice, then relays the request.
func (e *Engine) cfRoomLeave(s *Session, h wire.CFHeader, body []byte) bool {
	if !s.LoggedIn() || !s.InRoom() {
		return e.roomFail(s, wire.MsgRoomLeave, body)
	}
	no := s.RoomNo()
	notice, err := wire.EncodeFBRoomRequest(wire.FBRoomRequest{ID: s.UserID(), RoomNo: no})
	if err == nil {
		frame := wire.CFFrame(wire.CFHeader{Type: wire.MsgRoomLeave, State: wire.StateSuccess}, notice)
		e.rooms.Broadcast(no, frame)
	}
	return e.relayToBackend(s, wire.MsgRoomLeave, h.State, body)
}

// fbRoomCreate registers the room number the backend allocated, then relays
// the verdict to the requesting client.
func (e *Engine) fbRoomCreate(_ *Session, h wire.FBHeader, body []byte) bool {
	if h.State == wire.StateSuccess {
		if ack, err := wire.DecodeRoomAck(body); err == nil {
			e.rooms.Create(ack.RoomNo)
		}
	}
	return e.fbRelayResponse(nil, h, body)
}

// fbRoomJoin files the client into the room on success. The join notice goes
// out before the member list grows, so the joiner does not receive its own
// notice. A FAIL carrying a handoff body means the room lives on another
// instance; it is relayed untouched.
func (e *Engine) fbRoomJoin(_ *Session, h wire.FBHeader, body []byte) bool {
	c := e.clientFor(h)
	if c == nil {
		return true
	}
	if h.State == wire.StateSuccess {
		ack, err := wire.DecodeRoomAck(body)
		if err != nil {
			log.Error().Err(err).Msg("malformed room join ack from backend")
			return true
		}
		notice, err := wire.EncodeFBRoomRequest(wire.FBRoomRequest{ID: c.UserID(), RoomNo: ack.RoomNo})
		if err == nil {
			frame := wire.CFFrame(wire.CFHeader{Type: wire.MsgRoomJoin, State: wire.StateSuccess}, notice)
			e.rooms.Broadcast(ack.RoomNo, frame)
		}
		e.rooms.Join(c, ack.RoomNo)
	}
	_ = c.sendCF(wire.CFHeader{Type: wire.MsgRoomJoin, State: h.State, Length: int32(len(body))}, body)
	return true
}

// fbRoomLeave removes the member once the backend confirms.
func (e *Engine) fbRoomLeave(_ *Session, h wire.FBHeader, body []byte) bool {
	c := e.clientFor(h)
	if c == nil {
		return true
	}
	if h.State == wire.StateSuccess {
		e.rooms.Leave(c)
	}
	_ = c.sendCF(wire.CFHeader{Type: wire.MsgRoomLeave, State: h.State, Length: int32(len(body))}, body)
	return true
}

// fbRoomDelete drops a room the backend dissolved. Nobody is told; members
// have already left or will find out on their next request.
func (e *Engine) fbRoomDelete(_ *Session, h wire.FBHeader, body []byte) bool {
	if h.State != wire.StateSuccess {
		return true
	}
	ack, err := wire.DecodeRoomAck(body)
	if err != nil {
		log.Error().Err(err).Msg("malformed room delete from backend")
		return true
	}
	if !e.rooms.Remove(ack.RoomNo) {
		log.Warn().Int32("room", ack.RoomNo).Msg("delete for unknown room")
	}
	return true
}
