package engine

import (
	"context"
	"math"
	"math/rand"
	"net"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/frontline-chat/frontline/internal/observability"
)

// BackoffConfig shapes the delay between backend reconnect attempts. The
// zero multiplier means a fixed delay.
type BackoffConfig struct {
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	Jitter       bool
}

func DefaultBackoff() BackoffConfig {
	return BackoffConfig{InitialDelay: time.Second}
}

// NextBackoffDelay returns the retry delay for attempt N (1-based).
func NextBackoffDelay(cfg BackoffConfig, attempt int, rng *rand.Rand) time.Duration {
	if attempt <= 1 {
		return cfg.InitialDelay
	}
	if cfg.InitialDelay <= 0 {
		return 0
	}
	if cfg.Multiplier < 1.0 {
		cfg.Multiplier = 1.0
	}
	delay := float64(cfg.InitialDelay) * math.Pow(cfg.Multiplier, float64(attempt-1))
	if cfg.MaxDelay > 0 && delay > float64(cfg.MaxDelay) {
		delay = float64(cfg.MaxDelay)
	}
	if cfg.Jitter {
		f := 0.5
		if rng != nil {
			f = 0.5 + rng.Float64()
		}
		delay = delay * f
	}
	return time.Duration(delay)
}

// superviseBackend keeps the single backend link alive for the life of the
// engine. Each pass dials, runs the link's receive loop to completion, then
// tears down all dependent state and tries again. It never gives up; only
// engine shutdown stops it.
func (e *Engine) superviseBackend(ctx context.Context) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	attempt := 0
	for {
		attempt++
		conn, err := e.dialBackend(ctx)
		if err != nil {
			observability.BackendReconnects.Inc()
			delay := NextBackoffDelay(e.cfg.Backoff, attempt, rng)
			log.Warn().Err(err).
				Str("backend", e.cfg.BackendAddr).
				Int("attempt", attempt).
				Dur("retry_in", delay).
				Msg("backend dial failed")
			if !sleepCtx(ctx, delay) {
				return
			}
			continue
		}

		s, err := e.reg.Acquire(NewTCPTransport(conn), true)
		if err != nil {
			_ = conn.Close()
			log.Error().Err(err).Msg("no slot for backend link")
			if !sleepCtx(ctx, e.cfg.Backoff.InitialDelay) {
				return
			}
			continue
		}

		attempt = 0
		e.setBackendUp(true)
		log.Info().Str("backend", e.cfg.BackendAddr).Int("session", s.ID()).Msg("backend link up")

		s.run()

		e.setBackendUp(false)
		e.reg.Remove(s)
		e.resetForBackendLoss()
		if ctx.Err() != nil {
			return
		}
		log.Warn().Str("backend", e.cfg.BackendAddr).Msg("backend link lost")
	}
}

func (e *Engine) dialBackend(ctx context.Context) (net.Conn, error) {
	var d net.Dialer
	return d.DialContext(ctx, "tcp", e.cfg.BackendAddr)
}

// resetForBackendLoss drops every client session and empties the rooms. A
// restarted backend knows nothing about our session ids, so keeping clients
// around would relay responses to the wrong people.
func (e *Engine) resetForBackendLoss() {
	e.rooms.Reset()
	e.reg.Reset()
}

// sleepCtx waits for d or for cancellation, reporting false on cancel.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		select {
		case <-ctx.Done():
			return false
		default:
			return true
		}
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
