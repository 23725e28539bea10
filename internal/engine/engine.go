package engine

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/frontline-chat/frontline/internal/observability"
	"github.com/frontline-chat/frontline/internal/protocol/wire"
)

const (
	DefaultIdleTimeout  = 30 * time.Second
	DefaultProbeTimeout = 5 * time.Second
	DefaultMaxMisses    = 3
	DefaultScanEvery    = time.Second
)

// Config carries everything the relay needs to run one instance.
type Config struct {
	Role Role

	// ListenAddr is the client-facing endpoint; Mode picks raw TCP or
	// WebSocket for it.
	ListenAddr string
	Mode       wire.Protocol

	// AdvertiseAddr/AdvertisePort are what the backend hands to clients in
	// login responses, which may differ from the bind address.
	AdvertiseAddr string
	AdvertisePort int32

	BackendAddr string
	Backoff     BackoffConfig

	MaxSessions int
	CookieTTL   time.Duration

	IdleTimeout  time.Duration
	ProbeTimeout time.Duration
	MaxMisses    int
	ScanEvery    time.Duration
}

func (c *Config) applyDefaults() {
	if c.MaxSessions <= 0 {
		c.MaxSessions = 1000
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = DefaultIdleTimeout
	}
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = DefaultProbeTimeout
	}
	if c.MaxMisses <= 0 {
		c.MaxMisses = DefaultMaxMisses
	}
	if c.ScanEvery <= 0 {
		c.ScanEvery = DefaultScanEvery
	}
	if c.Backoff.InitialDelay <= 0 {
		c.Backoff = DefaultBackoff()
	}
}

func (c Config) validate() error {
	if !c.Role.Valid() {
		return fmt.Errorf("engine: unknown role %q", c.Role)
	}
	if c.Mode != wire.ProtoTCP && c.Mode != wire.ProtoWeb {
		return fmt.Errorf("engine: unknown transport mode %d", c.Mode)
	}
	if c.ListenAddr == "" {
		return errors.New("engine: listen address required")
	}
	if c.BackendAddr == "" {
		return errors.New("engine: backend address required")
	}
	return nil
}

// Engine is one relay instance: the session registry, the room registry, the
// cookie jar, the backend link supervisor and the client acceptor, glued by
// the per-role dispatch tables.
type Engine struct {
	cfg      Config
	role     Role
	instance string

	reg   *Registry
	rooms *Rooms
	jar   *CookieJar
	cf    map[wire.MsgType]cfHandler
	fb    map[wire.MsgType]fbHandler

	backendUp atomic.Bool

	mu     sync.Mutex
	cancel context.CancelFunc
}

func New(cfg Config) (*Engine, error) {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		cfg:      cfg,
		role:     cfg.Role,
		instance: uuid.NewString()[:8],
		rooms:    NewRooms(),
		jar:      NewCookieJar(cfg.CookieTTL),
		cf:       cfHandlers(cfg.Role),
		fb:       fbHandlers(cfg.Role),
	}
	e.reg = NewRegistry(e, cfg.MaxSessions)
	return e, nil
}

func (e *Engine) Instance() string    { return e.instance }
func (e *Engine) Role() Role          { return e.role }
func (e *Engine) Registry() *Registry { return e.reg }
func (e *Engine) Rooms() *Rooms       { return e.rooms }
func (e *Engine) Jar() *CookieJar     { return e.jar }

// BackendUp reports whether the backend link is currently bound.
func (e *Engine) BackendUp() bool {
	return e.backendUp.Load()
}

func (e *Engine) setBackendUp(up bool) {
	e.backendUp.Store(up)
}

// Run serves until ctx is done or Shutdown is called. It owns the client
// listener, the backend supervisor and the liveness scanner.
func (e *Engine) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	e.mu.Lock()
	e.cancel = cancel
	e.mu.Unlock()
	defer cancel()

	observability.RegisterMetrics()
	log.Info().
		Str("instance", e.instance).
		Str("role", string(e.role)).
		Str("listen", e.cfg.ListenAddr).
		Str("backend", e.cfg.BackendAddr).
		Int("max_sessions", e.cfg.MaxSessions).
		Msg("relay starting")

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		e.superviseBackend(ctx)
	}()
	go func() {
		defer wg.Done()
		e.scanLoop(ctx)
	}()

	var err error
	if e.cfg.Mode == wire.ProtoWeb {
		err = e.serveWS(ctx)
	} else {
		err = e.serveTCP(ctx)
	}

	cancel()
	wg.Wait()
	for _, s := range e.reg.Sessions() {
		s.Close()
	}
	log.Info().Str("instance", e.instance).Msg("relay stopped")
	return err
}

// Shutdown asks a running engine to stop. Safe from any goroutine.
func (e *Engine) Shutdown() {
	e.mu.Lock()
	cancel := e.cancel
	e.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (e *Engine) serveTCP(ctx context.Context) error {
	ln, err := net.Listen("tcp", e.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("engine: listen %s: %w", e.cfg.ListenAddr, err)
	}
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Warn().Err(err).Msg("accept failed")
			continue
		}
		e.admit(NewTCPTransport(conn))
	}
}

// admit binds an accepted transport to a session slot, or turns it away.
func (e *Engine) admit(tr Transport) {
	if !e.backendUp.Load() {
		observability.SessionsRejected.WithLabelValues("backend_down").Inc()
		log.Warn().Str("remote", tr.RemoteAddr().String()).Msg("rejecting client, backend down")
		_ = tr.Close()
		return
	}
	s, err := e.reg.Acquire(tr, false)
	if err != nil {
		observability.SessionsRejected.WithLabelValues("capacity").Inc()
		log.Warn().Str("remote", tr.RemoteAddr().String()).Msg("rejecting client, pool exhausted")
		_ = tr.Close()
		return
	}
	observability.SessionsActive.Set(float64(e.reg.Len()))
	log.Debug().Int("session", s.ID()).Str("remote", s.Remote()).Msg("client admitted")
	go s.run()
}

// release is the single teardown path a session's receive loop runs on exit:
// synthesize a logout toward the backend, leave the room, free the slot.
func (e *Engine) release(s *Session) {
	if s.IsBackend() {
		// The supervisor owns backend teardown.
		return
	}
	if s.LoggedIn() {
		e.relayToBackend(s, wire.MsgLogout, wire.StateRequest, nil)
	}
	e.rooms.Leave(s)
	s.Logout()
	s.Close()
	e.reg.Remove(s)
	observability.SessionsActive.Set(float64(e.reg.Len()))
	log.Debug().Int("session", s.ID()).Msg("session released")
}

// scanLoop drives liveness: probe idle peers, strike unanswered probes, kill
// the dead, and sweep expired cookies while it is at it.
func (e *Engine) scanLoop(ctx context.Context) {
	ticker := time.NewTicker(e.cfg.ScanEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			e.scanOnce(now)
		}
	}
}

func (e *Engine) scanOnce(now time.Time) {
	for _, s := range e.reg.Sessions() {
		if s.Closed() {
			continue
		}
		probeSent, lastActive, misses := s.liveness()
		if probeSent {
			if now.Sub(lastActive) < e.cfg.ProbeTimeout {
				continue
			}
			if s.IsBackend() {
				log.Warn().Msg("backend probe unanswered, cutting link")
				s.Close()
				continue
			}
			if misses >= e.cfg.MaxMisses {
				log.Info().Int("session", s.ID()).Int("misses", misses).Msg("client timed out")
				s.Close()
				continue
			}
			s.missStrike(now)
			continue
		}
		if now.Sub(lastActive) >= e.cfg.IdleTimeout {
			s.probe(now)
		}
	}
	if n := e.jar.SweepExpired(); n > 0 {
		log.Debug().Int("count", n).Msg("expired cookies swept")
	}
}
