package engine

import (
	"errors"
	"sort"
	"sync"
)

var ErrPoolExhausted = errors.New("engine: session pool exhausted")

// Registry owns the session slots. Capacity is fixed at construction; ids
// come from a free list that always hands out the smallest available number,
// so a freed slot's id is reused before fresh ones are minted.
type Registry struct {
	eng *Engine

	mu       sync.Mutex
	capacity int
	live     map[int]*Session
	freeIDs  []int
	backend  *Session
}

func NewRegistry(eng *Engine, capacity int) *Registry {
	if capacity <= 0 {
		capacity = 1
	}
	return &Registry{
		eng:      eng,
		capacity: capacity,
		live:     make(map[int]*Session, capacity),
		freeIDs:  []int{0},
	}
}

// Acquire binds a transport to a fresh session slot. The backend link is a
// session like any other, but the registry remembers which one it is.
func (r *Registry) Acquire(tr Transport, isBackend bool) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.live) >= r.capacity {
		return nil, ErrPoolExhausted
	}
	id := r.freeIDs[0]
	r.freeIDs = r.freeIDs[1:]
	if len(r.freeIDs) == 0 {
		r.freeIDs = append(r.freeIDs, id+1)
	}
	s := newSession(id, r.eng)
	s.bind(tr, isBackend)
	r.live[id] = s
	if isBackend {
		r.backend = s
	}
	return s, nil
}

// Remove releases a slot and returns its id to the free list.
func (r *Registry) Remove(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.live[s.id] != s {
		return
	}
	delete(r.live, s.id)
	if r.backend == s {
		r.backend = nil
	}
	r.freeIDs = append(r.freeIDs, s.id)
	sort.Ints(r.freeIDs)
}

func (r *Registry) Get(id int) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.live[id]
}

// Backend returns the backend link session, or nil when it is down.
func (r *Registry) Backend() *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.backend
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.live)
}

func (r *Registry) Cap() int {
	return r.capacity
}

// Sessions snapshots the live set so callers can walk it without the lock.
func (r *Registry) Sessions() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Session, 0, len(r.live))
	for _, s := range r.live {
		out = append(out, s)
	}
	return out
}

// Reset closes every client session and empties the registry. The backend
// slot is left alone; the supervisor manages that link itself.
func (r *Registry) Reset() {
	r.mu.Lock()
	victims := make([]*Session, 0, len(r.live))
	for _, s := range r.live {
		if s == r.backend {
			continue
		}
		victims = append(victims, s)
	}
	r.mu.Unlock()
	for _, s := range victims {
		s.Close()
	}
}

// Snapshot lists live sessions for the admin surface.
func (r *Registry) Snapshot() []SessionInfo {
	out := make([]SessionInfo, 0)
	for _, s := range r.Sessions() {
		out = append(out, s.Info())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
