package relay

import (
	"sync"
	"time"
)

type joinKey struct {
	addr string
	room string
}

// JoinLimiter bounds how often one client address may join the same room.
// History outlives the socket, so a client that keeps reconnecting into a
// room is throttled as well.
type JoinLimiter struct {
	mu       sync.Mutex
	history  map[joinKey][]time.Time
	limit    int
	interval time.Duration
	now      func() time.Time
}

func NewJoinLimiter(limit int, interval time.Duration) *JoinLimiter {
	return &JoinLimiter{
		history:  make(map[joinKey][]time.Time),
		limit:    limit,
		interval: interval,
		now:      time.Now,
	}
}

// Allow records a join of addr into room unless the window is full.
func (l *JoinLimiter) Allow(addr, room string) bool {
	if l.limit <= 0 {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	key := joinKey{addr: addr, room: room}
	now := l.now()
	fresh := l.recent(l.history[key], now)
	if len(fresh) >= l.limit {
		l.history[key] = fresh
		return false
	}
	l.history[key] = append(fresh, now)
	return true
}

// Prune drops keys whose window has fully elapsed and returns how many.
func (l *JoinLimiter) Prune() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	n := 0
	for key, attempts := range l.history {
		fresh := l.recent(attempts, now)
		if len(fresh) == 0 {
			delete(l.history, key)
			n++
			continue
		}
		l.history[key] = fresh
	}
	return n
}

func (l *JoinLimiter) recent(attempts []time.Time, now time.Time) []time.Time {
	windowStart := now.Add(-l.interval)
	fresh := attempts[:0]
	for _, t := range attempts {
		if t.After(windowStart) {
			fresh = append(fresh, t)
		}
	}
	return fresh
}
