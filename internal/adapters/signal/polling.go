package signal

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/pttstar/internal/core"
	"github.com/dkeye/pttstar/internal/domain"
)

const (
	DefaultPollInterval = time.Second
	outboxSize          = 64
)

// PollingTransport exchanges signaling messages through a remote
// store-and-forward SignalStore. One fetch is issued per tick; the interval
// is fixed for the lifetime of the transport.
type PollingTransport struct {
	store    core.SignalStore
	room     domain.RoomKey
	self     string
	interval time.Duration
	logger   zerolog.Logger

	// mark is the high-water timestamp; only the poll loop writes it.
	mark   atomic.Int64
	outbox chan string

	mu        sync.Mutex
	started   bool
	closed    bool
	cancel    context.CancelFunc
	onMessage func(core.SignalMessage)

	wg sync.WaitGroup
}

var _ core.SignalTransport = (*PollingTransport)(nil)

func NewPollingTransport(store core.SignalStore, room domain.RoomKey, self string, interval time.Duration) *PollingTransport {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &PollingTransport{
		store:    store,
		room:     room,
		self:     self,
		interval: interval,
		outbox:   make(chan string, outboxSize),
		logger:   log.With().Str("module", "signal.polling").Str("room", string(room)).Str("sid", self).Logger(),
	}
}

func (p *PollingTransport) OnMessage(fn func(core.SignalMessage)) {
	p.mu.Lock()
	p.onMessage = fn
	p.mu.Unlock()
}

// OnError is accepted for interface parity; store failures are never fatal.
func (p *PollingTransport) OnError(func(error)) {}

// Mark returns the current high-water mark.
func (p *PollingTransport) Mark() int64 { return p.mark.Load() }

// Open starts the poll timer and the ordered send queue. It does no I/O.
func (p *PollingTransport) Open(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	if p.started {
		return nil
	}
	p.started = true
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.wg.Add(2)
	go p.pollLoop(ctx)
	go p.sendLoop(ctx)
	p.logger.Info().Dur("interval", p.interval).Msg("polling started")
	return nil
}

// Send queues msg for posting. Posts happen in Send order.
func (p *PollingTransport) Send(msg core.SignalMessage) error {
	if msg.From == "" {
		msg.From = p.self
	}
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	select {
	case p.outbox <- string(b):
		return nil
	default:
		return ErrBackpressure
	}
}

func (p *PollingTransport) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.onMessage = nil
	if p.cancel != nil {
		p.cancel()
	}
	p.mu.Unlock()

	p.wg.Wait()
	p.logger.Info().Int64("mark", p.Mark()).Msg("polling stopped")
	return nil
}

func (p *PollingTransport) pollLoop(ctx context.Context) {
	defer p.wg.Done()
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = p.pollOnce(ctx)
		}
	}
}

// pollOnce runs one fetch cycle. Signals are handled in the order the store
// returned them; the mark moves to the largest timestamp seen, and signals at
// or below the mark the cycle started with are treated as duplicates. A
// failed fetch leaves the mark untouched.
func (p *PollingTransport) pollOnce(ctx context.Context) error {
	start := p.mark.Load()
	signals, err := p.store.FetchSince(ctx, p.room, start)
	if err != nil {
		if ctx.Err() == nil {
			p.logger.Warn().Err(err).Int64("since", start).Msg("fetch failed")
		}
		return err
	}

	high := start
	for _, s := range signals {
		if s.Timestamp <= start {
			p.logger.Debug().Int64("ts", s.Timestamp).Msg("duplicate signal skipped")
			continue
		}
		if s.Timestamp > high {
			high = s.Timestamp
		}
		var msg core.SignalMessage
		if err := json.Unmarshal([]byte(s.Content), &msg); err != nil {
			p.logger.Warn().Err(err).Int64("ts", s.Timestamp).Msg("bad signal dropped")
			continue
		}
		if msg.From != "" && msg.From == p.self {
			continue
		}
		msg.Timestamp = s.Timestamp
		p.dispatch(msg)
	}
	p.mark.Store(high)
	return nil
}

func (p *PollingTransport) dispatch(msg core.SignalMessage) {
	p.mu.Lock()
	fn := p.onMessage
	p.mu.Unlock()
	if fn != nil {
		fn(msg)
	}
}

func (p *PollingTransport) sendLoop(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case content := <-p.outbox:
			if err := p.store.PostSignal(ctx, p.room, content); err != nil && ctx.Err() == nil {
				p.logger.Warn().Err(err).Msg("post failed")
			}
		}
	}
}
