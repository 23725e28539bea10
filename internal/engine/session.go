package engine

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/frontline-chat/frontline/internal/protocol/wire"
)

// NoRoom marks a session that has not joined a chat room.
const NoRoom int32 = -1

// SessionInfo is a read-only view of one session, for the admin surface.
type SessionInfo struct {
	ID       int    `json:"id"`
	UserID   string `json:"user_id,omitempty"`
	Remote   string `json:"remote"`
	Backend  bool   `json:"backend,omitempty"`
	RoomNo   int32  `json:"room_no"`
	LoggedIn bool   `json:"logged_in"`
}

// Session is one connection's slot: the transport, the login/room state the
// relay tracks for it, and the liveness counters the scanner drives. Slots
// are pooled; bind attaches a transport and reset returns the slot.
type Session struct {
	id  int
	eng *Engine

	mu         sync.Mutex
	tr         Transport
	isBackend  bool
	userID     string
	loggedIn   bool
	roomNo     int32
	remote     string
	lastActive time.Time
	probeSent  bool
	missCount  int
	undefined  int
	closed     bool
}

func newSession(id int, eng *Engine) *Session {
	return &Session{id: id, eng: eng, roomNo: NoRoom}
}

func (s *Session) bind(tr Transport, isBackend bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tr = tr
	s.isBackend = isBackend
	s.userID = ""
	s.loggedIn = false
	s.roomNo = NoRoom
	s.remote = tr.RemoteAddr().String()
	s.lastActive = time.Now()
	s.probeSent = false
	s.missCount = 0
	s.undefined = 0
	s.closed = false
}

func (s *Session) ID() int { return s.id }

func (s *Session) IsBackend() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isBackend
}

func (s *Session) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

func (s *Session) Remote() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remote
}

func (s *Session) Mode() wire.Protocol {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tr == nil {
		return 0
	}
	return s.tr.Mode()
}

// Login records the authenticated user id for this connection.
func (s *Session) Login(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userID = userID
	s.loggedIn = true
}

// Logout clears the authenticated state. Room membership is handled by the
// room registry, not here.
func (s *Session) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userID = ""
	s.loggedIn = false
}

func (s *Session) LoggedIn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loggedIn
}

func (s *Session) RoomNo() int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roomNo
}

func (s *Session) setRoom(no int32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roomNo = no
}

func (s *Session) InRoom() bool {
	return s.RoomNo() != NoRoom
}

// clearUndefined resets the consecutive-unknown-type counter. Called on
// every recognized message, so only an unbroken run of garbage trips the
// breaker.
func (s *Session) clearUndefined() {
	s.mu.Lock()
	s.undefined = 0
	s.mu.Unlock()
}

// touch resets the liveness clock after any inbound traffic.
func (s *Session) touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActive = time.Now()
	s.probeSent = false
	s.missCount = 0
}

// liveness reports the scanner's view of this session.
func (s *Session) liveness() (probeSent bool, lastActive time.Time, misses int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.probeSent, s.lastActive, s.missCount
}

// missStrike records one unanswered probe and rearms the probe timer.
func (s *Session) missStrike(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.missCount++
	s.lastActive = now
	return s.missCount
}

// probe marks a health check outstanding and sends it.
func (s *Session) probe(now time.Time) {
	s.mu.Lock()
	s.probeSent = true
	s.lastActive = now
	backend := s.isBackend
	s.mu.Unlock()
	if backend {
		_ = s.sendFB(wire.FBHeader{Type: wire.MsgHealthCheck, State: wire.StateRequest}, nil)
		return
	}
	_ = s.sendCF(wire.CFHeader{Type: wire.MsgHealthCheck, State: wire.StateRequest}, nil)
}

func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close marks the session dead and closes the transport. Safe to call more
// than once.
func (s *Session) Close() {
	s.mu.Lock()
	tr := s.tr
	was := s.closed
	s.closed = true
	s.mu.Unlock()
	if !was && tr != nil {
		_ = tr.Close()
	}
}

// Info snapshots the session for the admin surface.
func (s *Session) Info() SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SessionInfo{
		ID:       s.id,
		UserID:   s.userID,
		Remote:   s.remote,
		Backend:  s.isBackend,
		RoomNo:   s.roomNo,
		LoggedIn: s.loggedIn,
	}
}

// send writes a complete frame. A failed write kills the session; the reader
// side will observe the closed transport and unwind.
func (s *Session) send(frame []byte) error {
	s.mu.Lock()
	tr := s.tr
	closed := s.closed
	s.mu.Unlock()
	if closed || tr == nil {
		return wire.ErrClosed
	}
	if err := tr.Send(frame); err != nil {
		log.Warn().Err(err).Int("session", s.id).Msg("send failed, closing session")
		s.Close()
		return err
	}
	return nil
}

func (s *Session) sendCF(h wire.CFHeader, body []byte) error {
	return s.send(wire.CFFrame(h, body))
}

func (s *Session) sendFB(h wire.FBHeader, body []byte) error {
	return s.send(wire.FBFrame(h, body))
}

// run is the per-connection receive loop: read a frame, dispatch it, repeat
// until the peer goes away or the undefined-message breaker trips. It owns
// releasing the slot on exit.
func (s *Session) run() {
	defer s.eng.release(s)

	r := transportReader{tr: s.tr}
	if s.IsBackend() {
		for {
			h, body, err := wire.ReadFBFrame(r)
			if err != nil {
				log.Info().Err(err).Int("session", s.id).Msg("backend link closed")
				return
			}
			s.touch()
			if !s.eng.dispatchFB(s, h, body) {
				return
			}
		}
	}
	for {
		h, body, err := wire.ReadCFFrame(r)
		if err != nil {
			log.Debug().Err(err).Int("session", s.id).Str("remote", s.Remote()).Msg("client session closed")
			return
		}
		s.touch()
		if !s.eng.dispatchCF(s, h, body) {
			return
		}
	}
}
