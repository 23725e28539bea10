package engine

import (
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/frontline-chat/frontline/internal/observability"
	"github.com/frontline-chat/frontline/internal/protocol/wire"
)

// Role selects which half of the relay tier this process is: the login tier
// fronts account traffic, the chat tier fronts rooms and messages.
type Role string

const (
	RoleLogin Role = "login"
	RoleChat  Role = "chat"
)

func (r Role) Valid() bool {
	return r == RoleLogin || r == RoleChat
}

// undefinedLimit is how many consecutive unknown message types a peer may
// send; one more cuts the connection. The login tier is stricter; a client
// talking to it has almost no legitimate vocabulary.
func (r Role) undefinedLimit() int {
	if r == RoleLogin {
		return 2
	}
	return 3
}

type cfHandler func(*Engine, *Session, wire.CFHeader, []byte) bool

type fbHandler func(*Engine, *Session, wire.FBHeader, []byte) bool

func cfHandlers(role Role) map[wire.MsgType]cfHandler {
	h := map[wire.MsgType]cfHandler{
		wire.MsgHealthCheck: (*Engine).cfHealthCheck,
	}
	switch role {
	case RoleLogin:
		h[wire.MsgIDDup] = (*Engine).cfRelayAccount
		h[wire.MsgSignup] = (*Engine).cfRelayAccount
		h[wire.MsgChangePassword] = (*Engine).cfRelayAccount
		h[wire.MsgDeleteID] = (*Engine).cfRelayAccount
		h[wire.MsgLogin] = (*Engine).cfRelayAccount
		h[wire.MsgAgentQuit] = (*Engine).cfAgentQuit
	case RoleChat:
		h[wire.MsgLogout] = (*Engine).cfLogout
		h[wire.MsgRoomCreate] = (*Engine).cfRoomRequest
		h[wire.MsgRoomLeave] = (*Engine).cfRoomLeave
		h[wire.MsgRoomJoin] = (*Engine).cfRoomRequest
		h[wire.MsgRoomList] = (*Engine).cfRoomRequest
		h[wire.MsgConnectionPass] = (*Engine).cfConnectionPass
		h[wire.MsgChatFromClient] = (*Engine).cfChat
	}
	return h
}

func fbHandlers(role Role) map[wire.MsgType]fbHandler {
	h := map[wire.MsgType]fbHandler{
		wire.MsgHealthCheck:    (*Engine).fbHealthCheck,
		wire.MsgConnectionInfo: (*Engine).fbConnectionInfo,
		wire.MsgKillRequest:    (*Engine).fbKillRequest,
	}
	switch role {
	case RoleLogin:
		h[wire.MsgIDDup] = (*Engine).fbRelayResponse
		h[wire.MsgSignup] = (*Engine).fbRelayResponse
		h[wire.MsgChangePassword] = (*Engine).fbRelayResponse
		h[wire.MsgDeleteID] = (*Engine).fbRelayResponse
		h[wire.MsgLogin] = (*Engine).fbLoginResponse
	case RoleChat:
		h[wire.MsgLogout] = (*Engine).fbLogoutResponse
		h[wire.MsgRoomCreate] = (*Engine).fbRoomCreate
		h[wire.MsgRoomLeave] = (*Engine).fbRoomLeave
		h[wire.MsgRoomJoin] = (*Engine).fbRoomJoin
		h[wire.MsgRoomList] = (*Engine).fbRelayResponse
		h[wire.MsgRoomDelete] = (*Engine).fbRoomDelete
		h[wire.MsgCookieRun] = (*Engine).fbCookieRun
	}
	return h
}

func typeLabel(t wire.MsgType) string {
	return strconv.Itoa(int(t))
}

// dispatchCF routes one client frame. Returns false when the session must
// stop reading.
func (e *Engine) dispatchCF(s *Session, h wire.CFHeader, body []byte) bool {
	fn, ok := e.cf[h.Type]
	if !ok {
		return e.undefinedStrike(s, uint16(h.Type))
	}
	s.clearUndefined()
	observability.MessagesTotal.WithLabelValues("in", typeLabel(h.Type)).Inc()
	return fn(e, s, h, body)
}

// dispatchFB routes one backend frame.
func (e *Engine) dispatchFB(s *Session, h wire.FBHeader, body []byte) bool {
	fn, ok := e.fb[h.Type]
	if !ok {
		return e.undefinedStrike(s, uint16(h.Type))
	}
	s.clearUndefined()
	observability.MessagesTotal.WithLabelValues("in", typeLabel(h.Type)).Inc()
	return fn(e, s, h, body)
}

func (e *Engine) undefinedStrike(s *Session, msgType uint16) bool {
	s.mu.Lock()
	s.undefined++
	count := s.undefined
	s.mu.Unlock()
	if count > e.role.undefinedLimit() {
		log.Warn().
			Int("session", s.id).
			Uint16("type", msgType).
			Int("count", count).
			Msg("undefined message limit reached, closing session")
		s.Close()
		return false
	}
	log.Warn().Int("session", s.id).Uint16("type", msgType).Msg("undefined message type")
	return true
}

// relayToBackend stamps the sender's session id onto a frame and forwards it
// over the backend link. Without a backend the frame is dropped; client
// sessions are torn down on backend loss anyway.
func (e *Engine) relayToBackend(s *Session, t wire.MsgType, state wire.State, body []byte) bool {
	b := e.reg.Backend()
	if b == nil {
		log.Warn().Int("session", s.id).Uint16("type", uint16(t)).Msg("backend down, dropping relay")
		return true
	}
	h := wire.FBHeader{Type: t, State: state, Length: int32(len(body)), SessionID: int32(s.id)}
	if err := b.sendFB(h, body); err != nil {
		return true
	}
	observability.MessagesTotal.WithLabelValues("out", typeLabel(t)).Inc()
	return true
}

// clientFor resolves the session a backend response is addressed to. Late
// responses for released slots resolve to nil and are dropped by callers.
func (e *Engine) clientFor(h wire.FBHeader) *Session {
	s := e.reg.Get(int(h.SessionID))
	if s == nil || s.IsBackend() {
		log.Warn().Int32("session", h.SessionID).Uint16("type", uint16(h.Type)).Msg("response for unknown session dropped")
		return nil
	}
	return s
}
