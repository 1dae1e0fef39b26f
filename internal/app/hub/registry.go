package hub

import (
	"context"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"
)

// Sender delivers one encoded frame to a connected gateway client.
type Sender interface {
	TrySend(data []byte) error
}

type entry struct {
	Room     string
	Username string
	Sender   Sender
	Cancel   context.CancelFunc
}

// Snapshot is a point-in-time view of one registered connection.
type Snapshot struct {
	SID      string
	Room     string
	Username string
	Sender   Sender
}

// Registry tracks gateway connections and the room each one joined.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*entry
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*entry)}
}

func (r *Registry) Bind(sid string, s Sender, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sid] = &entry{Sender: s, Cancel: cancel}
	log.Info().Str("module", "hub.registry").Str("sid", sid).Msg("bound connection")
}

func (r *Registry) Unbind(sid string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sid)
	log.Info().Str("module", "hub.registry").Str("sid", sid).Msg("unbound connection")
}

// Join moves sid into room. It reports false for unknown connections.
func (r *Registry) Join(sid, room, username string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[sid]
	if !ok {
		return false
	}
	e.Room = room
	if username != "" {
		e.Username = username
	}
	log.Info().Str("module", "hub.registry").Str("sid", sid).Str("room", room).Msg("joined room")
	return true
}

func (r *Registry) Leave(sid string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.sessions[sid]; ok {
		e.Room = ""
		log.Info().Str("module", "hub.registry").Str("sid", sid).Msg("left room")
	}
}

func (r *Registry) RoomOf(sid string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[sid]
	if !ok || e.Room == "" {
		return "", false
	}
	return e.Room, true
}

// Mates returns the other connections in the room of sid.
func (r *Registry) Mates(sid string) []Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	self, ok := r.sessions[sid]
	if !ok || self.Room == "" {
		return nil
	}
	out := make([]Snapshot, 0, len(r.sessions))
	for other, e := range r.sessions {
		if other == sid || e.Room != self.Room {
			continue
		}
		out = append(out, Snapshot{SID: other, Room: e.Room, Username: e.Username, Sender: e.Sender})
	}
	return out
}

// Rooms returns member counts per joined room.
func (r *Registry) Rooms() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]int)
	for _, e := range r.sessions {
		if e.Room != "" {
			out[e.Room]++
		}
	}
	return out
}

func (r *Registry) SIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.sessions))
	for sid := range r.sessions {
		out = append(out, sid)
	}
	sort.Strings(out)
	return out
}

// Cancel stops the connection of sid.
func (r *Registry) Cancel(sid string) bool {
	r.mu.RLock()
	e, ok := r.sessions[sid]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	if e.Cancel != nil {
		e.Cancel()
	}
	log.Info().Str("module", "hub.registry").Str("sid", sid).Msg("canceled connection")
	return true
}
