// Package meter turns the local capture into a 0..100 input level.
package meter

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/pttstar/internal/core"
)

const (
	DefaultInterval = 16 * time.Millisecond
	DefaultWindow   = 1024
)

type Option func(*Meter)

func WithInterval(d time.Duration) Option {
	return func(m *Meter) {
		if d > 0 {
			m.interval = d
		}
	}
}

// WithWindow sets how many of the latest samples each reading covers.
func WithWindow(n int) Option {
	return func(m *Meter) {
		if n > 0 {
			m.window = n
		}
	}
}

// WithListener is called from the sampling goroutine after every reading.
func WithListener(fn func(level int)) Option {
	return func(m *Meter) { m.listener = fn }
}

type Meter struct {
	source   core.PCMSource
	interval time.Duration
	window   int
	listener func(int)

	level atomic.Int32

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func New(source core.PCMSource, opts ...Option) *Meter {
	m := &Meter{
		source:   source,
		interval: DefaultInterval,
		window:   DefaultWindow,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Level computes the meter reading of one window of 16-bit samples.
func Level(samples []int16) int {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		v := float64(s)
		sum += v * v
	}
	rms := math.Sqrt(sum / float64(len(samples)))
	level := math.Round(rms / 32768 * math.Sqrt2 * 100)
	return int(max(0, min(100, level)))
}

// Enable opens the PCM stream and starts sampling. Cancelling ctx has the
// same effect as Disable.
func (m *Meter) Enable(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.done != nil {
		return nil
	}
	stream, err := m.source.OpenPCM(ctx)
	if err != nil {
		return err
	}
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	m.cancel = cancel
	m.done = done
	go m.run(runCtx, stream, done)
	log.Debug().Str("module", "meter").Dur("interval", m.interval).Msg("enabled")
	return nil
}

// Disable stops sampling and releases the stream before returning.
func (m *Meter) Disable() {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Active reports whether the meter currently holds a stream.
func (m *Meter) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.done != nil
}

func (m *Meter) Level() int { return int(m.level.Load()) }

func (m *Meter) run(ctx context.Context, stream core.PCMStream, done chan struct{}) {
	defer func() {
		if err := stream.Close(); err != nil {
			log.Warn().Str("module", "meter").Err(err).Msg("stream close failed")
		}
		m.level.Store(0)
		m.mu.Lock()
		if m.done == done {
			m.done = nil
			m.cancel = nil
		}
		m.mu.Unlock()
		close(done)
	}()

	buf := make([]int16, m.window)
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n := stream.Snapshot(buf)
			lvl := Level(buf[:n])
			m.level.Store(int32(lvl))
			if m.listener != nil {
				m.listener(lvl)
			}
		}
	}
}
