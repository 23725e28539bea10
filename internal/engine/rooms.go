package engine

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// RoomInfo is a read-only view of one room, for the admin surface.
type RoomInfo struct {
	No      int32    `json:"no"`
	Members []string `json:"members"`
}

// Rooms tracks which sessions sit in which chat room. Room lifecycle is
// driven by the backend: it tells the relay which room numbers exist, and the
// relay only files sessions into them.
type Rooms struct {
	mu    sync.Mutex
	rooms map[int32][]*Session
}

func NewRooms() *Rooms {
	return &Rooms{rooms: make(map[int32][]*Session)}
}

// Create registers a room number. Creating a room that already exists is a
// logged no-op.
func (r *Rooms) Create(no int32) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rooms[no]; ok {
		log.Warn().Int32("room", no).Msg("room already exists")
		return false
	}
	r.rooms[no] = nil
	return true
}

// Remove drops a room and forgets its member list. Removing an unknown room
// is a no-op.
func (r *Rooms) Remove(no int32) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	members, ok := r.rooms[no]
	if !ok {
		return false
	}
	for _, s := range members {
		s.setRoom(NoRoom)
	}
	delete(r.rooms, no)
	return true
}

func (r *Rooms) Exists(no int32) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.rooms[no]
	return ok
}

// Join files a session into a room. The session must not already be in one.
func (r *Rooms) Join(s *Session, no int32) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	members, ok := r.rooms[no]
	if !ok {
		log.Warn().Int32("room", no).Msg("join to unknown room")
		return false
	}
	r.rooms[no] = append(members, s)
	s.setRoom(no)
	return true
}

// Leave takes a session out of whatever room it is in.
func (r *Rooms) Leave(s *Session) {
	no := s.RoomNo()
	if no == NoRoom {
		return
	}
	r.mu.Lock()
	members, ok := r.rooms[no]
	if ok {
		for i, m := range members {
			if m == s {
				r.rooms[no] = append(members[:i], members[i+1:]...)
				break
			}
		}
	}
	r.mu.Unlock()
	s.setRoom(NoRoom)
}

// Members snapshots a room's member list. Senders work from the snapshot, so
// joins and leaves racing a broadcast do not corrupt the walk.
func (r *Rooms) Members(no int32) []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	members := r.rooms[no]
	out := make([]*Session, len(members))
	copy(out, members)
	return out
}

// Broadcast sends a complete frame to every current member of a room. A dead
// recipient is skipped; its own receive loop handles teardown.
func (r *Rooms) Broadcast(no int32, frame []byte) int {
	sent := 0
	for _, m := range r.Members(no) {
		if err := m.send(frame); err != nil {
			log.Warn().Err(err).Int("session", m.ID()).Int32("room", no).Msg("broadcast recipient dropped")
			continue
		}
		sent++
	}
	return sent
}

// Reset empties every room, for backend loss.
func (r *Rooms) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for no, members := range r.rooms {
		for _, s := range members {
			s.setRoom(NoRoom)
		}
		delete(r.rooms, no)
	}
}

func (r *Rooms) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms)
}

// Snapshot lists rooms and member user ids for the admin surface.
func (r *Rooms) Snapshot() []RoomInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]RoomInfo, 0, len(r.rooms))
	for no, members := range r.rooms {
		info := RoomInfo{No: no, Members: make([]string, 0, len(members))}
		for _, s := range members {
			info.Members = append(info.Members, s.UserID())
		}
		out = append(out, info)
	}
	return out
}
