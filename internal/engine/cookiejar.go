package engine

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultCookieTTL is how long an issued handoff cookie stays valid.
const DefaultCookieTTL = 10 * time.Minute

var ErrCookieArgs = errors.New("engine: cookie needs a user id and a nonzero value")

type cookieEntry struct {
	cookie   int32
	expireAt time.Time
}

// CookieInfo is a read-only view of one stored cookie, for the admin surface.
type CookieInfo struct {
	ID       string    `json:"id"`
	ExpireAt time.Time `json:"expire_at"`
}

// CookieJar stores single-use handoff credentials keyed by user id. The login
// role issues a cookie when it hands a client to the chat tier; the chat role
// validates it on arrival. Validation consumes the entry whether or not it
// matches.
type CookieJar struct {
	mu      sync.Mutex
	entries map[string]cookieEntry
	ttl     time.Duration
	now     func() time.Time
}

func NewCookieJar(ttl time.Duration) *CookieJar {
	if ttl <= 0 {
		ttl = DefaultCookieTTL
	}
	return &CookieJar{
		entries: make(map[string]cookieEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Issue stores a cookie for id, replacing any previous one.
func (j *CookieJar) Issue(id string, cookie int32) error {
	if id == "" || cookie == 0 {
		return ErrCookieArgs
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries[id] = cookieEntry{cookie: cookie, expireAt: j.now().Add(j.ttl)}
	return nil
}

// Validate reports whether id presented its issued cookie before it expired.
// The entry is removed on every real attempt, so a cookie is good for one
// try; malformed arguments are refused before storage is touched and do not
// burn a pending handoff.
func (j *CookieJar) Validate(id string, cookie int32) bool {
	if id == "" || cookie == 0 {
		return false
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	e, ok := j.entries[id]
	if !ok {
		return false
	}
	delete(j.entries, id)
	if j.now().After(e.expireAt) || j.now().Equal(e.expireAt) {
		log.Debug().Str("id", id).Msg("cookie expired")
		return false
	}
	return e.cookie == cookie
}

// SweepExpired drops entries past their deadline and returns how many went.
func (j *CookieJar) SweepExpired() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	now := j.now()
	n := 0
	for id, e := range j.entries {
		if !now.Before(e.expireAt) {
			delete(j.entries, id)
			n++
		}
	}
	return n
}

func (j *CookieJar) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.entries)
}

// List snapshots the stored cookies without their values.
func (j *CookieJar) List() []CookieInfo {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]CookieInfo, 0, len(j.entries))
	for id, e := range j.entries {
		out = append(out, CookieInfo{ID: id, ExpireAt: e.expireAt})
	}
	return out
}
