package engine

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/frontline-chat/frontline/internal/observability"
	"github.com/frontline-chat/frontline/internal/protocol/wire"
)

// cfChat fans a chat line out to the sender's room, sender included, and
// tells the backend one more message went through. The body is the raw
// message text.
func (e *Engine) cfChat(s *Session, _ wire.CFHeader, body []byte) bool {
	if !s.InRoom() {
		_ = s.sendCF(wire.CFHeader{Type: wire.MsgChatFromClient, State: wire.StateFail}, nil)
		return true
	}
	bc, err := wire.EncodeChatBroadcast(wire.ChatBroadcast{
		ID:      s.UserID(),
		SentAt:  time.Now(),
		Message: body,
	})
	if err != nil {
		log.Error().Err(err).Int("session", s.id).Msg("encode chat broadcast")
		return true
	}
	frame := wire.CFFrame(wire.CFHeader{Type: wire.MsgChatBroadcast, State: wire.StateSuccess}, bc)
	e.rooms.Broadcast(s.RoomNo(), frame)
	observability.BroadcastsTotal.Inc()

	count, err := wire.EncodeChatCount(wire.ChatCount{ID: s.UserID()})
	if err != nil {
		return true
	}
	return e.relayToBackend(s, wire.MsgChatCount, wire.StateRequest, count)
}
