// Package ptt drives one push-to-talk session: it picks a signaling
// transport, negotiates the peer connection and keys the local capture on
// and off.
package ptt

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/pttstar/internal/core"
	"github.com/dkeye/pttstar/internal/domain"
)

const (
	eventQueueSize  = 64
	maxPendingICE   = 64
	activityTimeout = 5 * time.Second
)

// Deps are the collaborators a Manager drives. Playback and Reporter are
// optional.
type Deps struct {
	Transports TransportFactory
	Media      core.MediaFactory
	Capture    core.CaptureDevice
	Playback   core.PlaybackSink
	Reporter   core.ActivityReporter
	// Profile returns the operator identity used for activity reports.
	Profile func() domain.Profile
}

// Manager owns at most one session at a time. All state transitions happen
// on a single loop goroutine; public methods post commands to it and wait
// for the result.
type Manager struct {
	deps     Deps
	listener func(State)
	logger   zerolog.Logger

	events chan event
	done   chan struct{}

	stateMu sync.RWMutex
	state   State

	// owned by the loop
	gen  uint64
	sess *session
	tx   core.CaptureStream
}

func NewManager(deps Deps, opts ...Option) *Manager {
	m := &Manager{
		deps:   deps,
		events: make(chan event, eventQueueSize),
		done:   make(chan struct{}),
		logger: log.With().Str("module", "ptt").Logger(),
	}
	for _, opt := range opts {
		opt(m)
	}
	go m.loop()
	return m
}

// State returns the latest published snapshot.
func (m *Manager) State() State {
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()
	return m.state
}

// JoinRoom starts a session for cfg. It returns once the handshake is under
// way; progress is observable through State and the state listener.
func (m *Manager) JoinRoom(ctx context.Context, cfg domain.ConnectionConfig) error {
	if cfg == nil {
		return ErrNoConnection
	}
	return m.call(ctx, event{kind: evJoin, cfg: cfg})
}

// LeaveRoom releases every session resource. Safe in any phase.
func (m *Manager) LeaveRoom() error {
	return m.call(context.Background(), event{kind: evLeave})
}

func (m *Manager) StartTransmit(ctx context.Context) error {
	return m.call(ctx, event{kind: evStartTransmit, ctx: ctx})
}

// StopTransmit is a no-op when not transmitting.
func (m *Manager) StopTransmit() error {
	return m.call(context.Background(), event{kind: evStopTransmit})
}

// Close leaves the room and stops the event loop. Later calls on m return
// ErrClosed.
func (m *Manager) Close() error {
	return m.call(context.Background(), event{kind: evClose})
}

func (m *Manager) call(ctx context.Context, ev event) error {
	ev.reply = make(chan error, 1)
	select {
	case m.events <- ev:
	case <-m.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-ev.reply:
		return err
	case <-m.done:
		// The loop replies before it exits.
		select {
		case err := <-ev.reply:
			return err
		default:
			return ErrClosed
		}
	}
}

// post delivers a session callback to the loop unless the session or the
// manager is already gone.
func (m *Manager) post(s *session, ev event) {
	ev.gen = s.gen
	select {
	case m.events <- ev:
	case <-s.ctx.Done():
	case <-m.done:
	}
}

func (m *Manager) loop() {
	defer close(m.done)
	for ev := range m.events {
		if ev.kind.isCommand() {
			err := m.handleCommand(ev)
			ev.reply <- err
			if ev.kind == evClose {
				m.logger.Info().Msg("manager closed")
				return
			}
			continue
		}
		if m.sess == nil || ev.gen != m.sess.gen {
			m.logger.Debug().Stringer("kind", ev.kind).Uint64("gen", ev.gen).Msg("stale event dropped")
			continue
		}
		m.handle(m.sess, ev)
	}
}

func (m *Manager) handleCommand(ev event) error {
	switch ev.kind {
	case evJoin:
		return m.join(ev.cfg)
	case evLeave:
		m.leave()
		return nil
	case evStartTransmit:
		return m.startTransmit(ev.ctx)
	case evStopTransmit:
		m.stopTransmit()
		return nil
	case evClose:
		m.leave()
		return nil
	}
	return nil
}

func (m *Manager) handle(s *session, ev event) {
	switch ev.kind {
	case evTransportOpened:
		m.transportOpened(s, ev)
	case evTransportError:
		m.fail(s, "signaling lost: "+ev.err.Error())
	case evSignal:
		m.handleSignal(s, ev.msg)
	case evLocalCandidate, evRemoteTrack, evPeerState:
		if ev.pc != s.pc {
			s.logger.Debug().Stringer("kind", ev.kind).Msg("replaced peer connection event dropped")
			return
		}
		switch ev.kind {
		case evLocalCandidate:
			m.sendCandidate(s, ev.candidate)
		case evRemoteTrack:
			m.attachRemote(s, ev)
		default:
			m.handlePeerState(s, ev.peer)
		}
	}
}

// update applies fn to the published state and notifies the listener.
func (m *Manager) update(fn func(*State)) {
	m.stateMu.Lock()
	fn(&m.state)
	st := m.state
	m.stateMu.Unlock()
	if m.listener != nil {
		m.listener(st)
	}
}
