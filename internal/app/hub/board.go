// Package hub keeps the server side state: the store-and-forward signal
// board, the activity directory and the registry of gateway connections.
package hub

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/pttstar/internal/core"
	"github.com/dkeye/pttstar/internal/domain"
)

const DefaultRoomCapacity = 512

var (
	ErrEmptyRoom    = errors.New("empty room key")
	ErrEmptyContent = errors.New("empty signal content")
)

type RoomInfo struct {
	Room        domain.RoomKey
	SignalCount int
	LastSignal  int64
}

type roomLog struct {
	signals []core.StoredSignal
}

// Board is an in-memory signal store. Timestamps are unix milliseconds,
// strictly increasing across the whole board.
type Board struct {
	capacity int
	now      func() time.Time

	mu    sync.RWMutex
	last  int64
	rooms map[domain.RoomKey]*roomLog
}

var _ core.SignalStore = (*Board)(nil)

func NewBoard(capacity int) *Board {
	if capacity <= 0 {
		capacity = DefaultRoomCapacity
	}
	return &Board{
		capacity: capacity,
		now:      time.Now,
		rooms:    make(map[domain.RoomKey]*roomLog),
	}
}

// Post appends content to room and returns its timestamp. Only the newest
// capacity signals of a room are kept.
func (b *Board) Post(room domain.RoomKey, content string) (int64, error) {
	if room == "" {
		return 0, ErrEmptyRoom
	}
	if content == "" {
		return 0, ErrEmptyContent
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	ts := max(b.now().UnixMilli(), b.last+1)
	b.last = ts

	rl, ok := b.rooms[room]
	if !ok {
		rl = &roomLog{}
		b.rooms[room] = rl
		log.Info().Str("module", "hub.board").Str("room", string(room)).Msg("room opened")
	}
	rl.signals = append(rl.signals, core.StoredSignal{Content: content, Timestamp: ts})
	if over := len(rl.signals) - b.capacity; over > 0 {
		rl.signals = append(rl.signals[:0:0], rl.signals[over:]...)
	}
	return ts, nil
}

// Since returns the signals of room with a timestamp greater than ts,
// oldest first.
func (b *Board) Since(room domain.RoomKey, ts int64) []core.StoredSignal {
	b.mu.RLock()
	defer b.mu.RUnlock()
	rl, ok := b.rooms[room]
	if !ok {
		return []core.StoredSignal{}
	}
	i := sort.Search(len(rl.signals), func(i int) bool { return rl.signals[i].Timestamp > ts })
	out := make([]core.StoredSignal, len(rl.signals)-i)
	copy(out, rl.signals[i:])
	return out
}

// Latest returns the newest timestamp of room, or zero.
func (b *Board) Latest(room domain.RoomKey) int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	rl, ok := b.rooms[room]
	if !ok || len(rl.signals) == 0 {
		return 0
	}
	return rl.signals[len(rl.signals)-1].Timestamp
}

func (b *Board) List() []RoomInfo {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]RoomInfo, 0, len(b.rooms))
	for room, rl := range b.rooms {
		info := RoomInfo{Room: room, SignalCount: len(rl.signals)}
		if n := len(rl.signals); n > 0 {
			info.LastSignal = rl.signals[n-1].Timestamp
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Room < out[j].Room })
	return out
}

// Prune drops rooms with no signal newer than cutoff.
func (b *Board) Prune(cutoff time.Time) int {
	limit := cutoff.UnixMilli()
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for room, rl := range b.rooms {
		if len(rl.signals) == 0 || rl.signals[len(rl.signals)-1].Timestamp < limit {
			delete(b.rooms, room)
			n++
		}
	}
	if n > 0 {
		log.Info().Str("module", "hub.board").Int("rooms", n).Msg("pruned idle rooms")
	}
	return n
}

func (b *Board) PostSignal(_ context.Context, room domain.RoomKey, content string) error {
	_, err := b.Post(room, content)
	return err
}

func (b *Board) Head(_ context.Context, room domain.RoomKey) (int64, error) {
	return b.Latest(room), nil
}

func (b *Board) FetchSince(_ context.Context, room domain.RoomKey, ts int64) ([]core.StoredSignal, error) {
	return b.Since(room, ts), nil
}
