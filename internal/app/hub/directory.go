package hub

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/pttstar/internal/core"
	"github.com/dkeye/pttstar/internal/domain"
)

const DefaultDirectorySize = 200

var ErrMissingCallsign = errors.New("activity without callsign")

// Directory remembers the most recent transmit activity, newest last.
type Directory struct {
	mu    sync.RWMutex
	ring  []domain.Activity
	next  int
	count int
}

var _ core.ActivityReporter = (*Directory)(nil)

func NewDirectory(size int) *Directory {
	if size <= 0 {
		size = DefaultDirectorySize
	}
	return &Directory{ring: make([]domain.Activity, size)}
}

func (d *Directory) Record(a domain.Activity) error {
	if a.Callsign == "" {
		return ErrMissingCallsign
	}
	if a.At.IsZero() {
		a.At = time.Now().UTC()
	}
	d.mu.Lock()
	d.ring[d.next] = a
	d.next = (d.next + 1) % len(d.ring)
	d.count = min(d.count+1, len(d.ring))
	d.mu.Unlock()

	log.Info().
		Str("module", "hub.directory").
		Str("callsign", a.Callsign).
		Str("network", a.Network).
		Str("talkgroup", a.Talkgroup).
		Msg("activity")
	return nil
}

// Recent returns up to limit entries, newest first. limit <= 0 means all.
func (d *Directory) Recent(limit int) []domain.Activity {
	d.mu.RLock()
	defer d.mu.RUnlock()
	n := d.count
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]domain.Activity, 0, n)
	for i := 1; i <= n; i++ {
		idx := (d.next - i + len(d.ring)) % len(d.ring)
		out = append(out, d.ring[idx])
	}
	return out
}

func (d *Directory) ReportActivity(_ context.Context, a domain.Activity) error {
	return d.Record(a)
}
