package engine

import (
	"net"

	"github.com/rs/zerolog/log"

	"github.com/frontline-chat/frontline/internal/observability"
	"github.com/frontline-chat/frontline/internal/protocol/wire"
)

// cfHealthCheck answers a client probe. A SUCCESS is the reply to one of our
// own probes; the receive loop already reset the liveness clock.
func (e *Engine) cfHealthCheck(s *Session, h wire.CFHeader, _ []byte) bool {
	if h.State == wire.StateRequest {
		_ = s.sendCF(wire.CFHeader{Type: wire.MsgHealthCheck, State: wire.StateSuccess}, nil)
	}
	return true
}

// fbHealthCheck answers the backend's probe over the backend link.
func (e *Engine) fbHealthCheck(s *Session, h wire.FBHeader, _ []byte) bool {
	if h.State == wire.StateRequest {
		_ = s.sendFB(wire.FBHeader{Type: wire.MsgHealthCheck, State: wire.StateSuccess}, nil)
	}
	return true
}

// cfConnectionPass lets a handed-off client resume its identity on this
// instance. The cookie is consumed either way, and the backend hears the
// outcome.
func (e *Engine) cfConnectionPass(s *Session, _ wire.CFHeader, body []byte) bool {
	req, err := wire.DecodeCookieBody(body)
	if err != nil {
		log.Warn().Err(err).Int("session", s.id).Msg("malformed connection pass")
		_ = s.sendCF(wire.CFHeader{Type: wire.MsgConnectionPass, State: wire.StateFail}, nil)
		return true
	}
	state := wire.StateFail
	if e.jar.Validate(req.ID, req.Cookie) {
		s.Login(req.ID)
		state = wire.StateSuccess
		observability.CookiesValidated.WithLabelValues("ok").Inc()
		log.Info().Str("id", req.ID).Int("session", s.id).Msg("handoff accepted")
	} else {
		observability.CookiesValidated.WithLabelValues("fail").Inc()
		log.Warn().Str("id", req.ID).Int("session", s.id).Msg("handoff rejected")
	}
	_ = s.sendCF(wire.CFHeader{Type: wire.MsgConnectionPass, State: state}, nil)
	return e.relayToBackend(s, wire.MsgCookieRun, state, body)
}

// fbCookieRun stores a cookie the backend issued for an inbound handoff.
func (e *Engine) fbCookieRun(s *Session, h wire.FBHeader, body []byte) bool {
	if h.State != wire.StateRequest {
		return true
	}
	req, err := wire.DecodeCookieBody(body)
	if err != nil {
		log.Error().Err(err).Msg("malformed cookie run from backend")
		return true
	}
	if err := e.jar.Issue(req.ID, req.Cookie); err != nil {
		log.Error().Err(err).Str("id", req.ID).Msg("cookie rejected")
		_ = s.sendFB(wire.FBHeader{Type: wire.MsgCookieRun, State: wire.StateFail}, nil)
		return true
	}
	observability.CookiesIssued.Inc()
	_ = s.sendFB(wire.FBHeader{Type: wire.MsgCookieRun, State: wire.StateSuccess}, nil)
	return true
}

// fbConnectionInfo reports this instance's client-facing endpoint.
func (e *Engine) fbConnectionInfo(s *Session, h wire.FBHeader, _ []byte) bool {
	if h.State != wire.StateRequest {
		return true
	}
	body, err := wire.EncodeConnectionInfo(wire.ConnectionInfo{
		Addr:     e.cfg.AdvertiseAddr,
		Port:     e.cfg.AdvertisePort,
		Protocol: e.cfg.Mode,
	})
	if err != nil {
		log.Error().Err(err).Msg("encode connection info")
		return true
	}
	_ = s.sendFB(wire.FBHeader{Type: wire.MsgConnectionInfo, State: wire.StateSuccess, Length: int32(len(body))}, body)
	return true
}

// cfAgentQuit shuts the process down, but only for connections from the
// local host.
func (e *Engine) cfAgentQuit(s *Session, _ wire.CFHeader, _ []byte) bool {
	host, _, err := net.SplitHostPort(s.Remote())
	if err != nil || !net.ParseIP(host).IsLoopback() {
		log.Warn().Str("remote", s.Remote()).Msg("agent quit refused for non-loopback origin")
		return true
	}
	log.Info().Str("remote", s.Remote()).Msg("agent quit accepted")
	e.Shutdown()
	return false
}

// fbKillRequest is the backend telling this instance to exit.
func (e *Engine) fbKillRequest(_ *Session, _ wire.FBHeader, _ []byte) bool {
	log.Info().Msg("kill request from backend")
	e.Shutdown()
	return false
}
