package engine

import (
	"github.com/rs/zerolog/log"

	"github.com/frontline-chat/frontline/internal/protocol/wire"
)

// cfRelayAccount forwards account traffic (id check, signup, password change,
// delete, login) to the backend unchanged, stamped with the session id.
func (e *Engine) cfRelayAccount(s *Session, h wire.CFHeader, body []byte) bool {
	return e.relayToBackend(s, h.Type, h.State, body)
}

// fbRelayResponse relays a backend response body verbatim to the client the
// header addresses.
func (e *Engine) fbRelayResponse(_ *Session, h wire.FBHeader, body []byte) bool {
	c := e.clientFor(h)
	if c == nil {
		return true
	}
	_ = c.sendCF(wire.CFHeader{Type: h.Type, State: h.State, Length: int32(len(body))}, body)
	return true
}

// fbLoginResponse handles the backend's login verdict. On success the client
// session takes the authenticated id and receives the handoff details
// telling it where to connect for chat.
func (e *Engine) fbLoginResponse(s *Session, h wire.FBHeader, body []byte) bool {
	c := e.clientFor(h)
	if c == nil {
		return true
	}
	if h.State != wire.StateSuccess {
		_ = c.sendCF(wire.CFHeader{Type: wire.MsgLogin, State: h.State, Length: int32(len(body))}, body)
		return true
	}
	resp, err := wire.DecodeFBLoginResponse(body)
	if err != nil {
		log.Error().Err(err).Int32("session", h.SessionID).Msg("malformed login response from backend")
		return true
	}
	c.Login(resp.ID)
	out, err := wire.EncodeCFLoginResponse(wire.CFLoginResponse{Handoff: resp.Handoff})
	if err != nil {
		log.Error().Err(err).Msg("encode login handoff")
		return true
	}
	_ = c.sendCF(wire.CFHeader{Type: wire.MsgLogin, State: wire.StateSuccess, Length: int32(len(out))}, out)
	log.Info().Str("id", resp.ID).Int("session", c.ID()).Msg("login relayed")
	return true
}

// cfLogout relays the client's logout request.
func (e *Engine) cfLogout(s *Session, h wire.CFHeader, body []byte) bool {
	return e.relayToBackend(s, wire.MsgLogout, h.State, body)
}

// fbLogoutResponse clears the client's identity on success. A member leaving
// the tier also leaves its room.
func (e *Engine) fbLogoutResponse(_ *Session, h wire.FBHeader, body []byte) bool {
	c := e.clientFor(h)
	if c == nil {
		return true
	}
	if h.State == wire.StateSuccess {
		e.rooms.Leave(c)
		c.Logout()
	}
	_ = c.sendCF(wire.CFHeader{Type: wire.MsgLogout, State: h.State, Length: int32(len(body))}, body)
	return true
}
