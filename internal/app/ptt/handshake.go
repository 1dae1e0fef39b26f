package ptt

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"

	"github.com/dkeye/pttstar/internal/core"
	"github.com/dkeye/pttstar/internal/domain"
)

type session struct {
	gen    uint64
	ctx    context.Context
	cancel context.CancelFunc
	sid    string
	cfg    domain.ConnectionConfig
	kind   TransportKind
	logger zerolog.Logger

	transport core.SignalTransport
	pc        core.MediaConnection
	pending   []core.SignalMessage
	playback  []io.Closer

	// since is the room head at join; older polled signals belong to
	// earlier sessions.
	since int64
	// peer is the remote session id once a description was exchanged with
	// it. Signals from anyone else are dropped from then on.
	peer string
}

func (m *Manager) join(cfg domain.ConnectionConfig) error {
	if st := m.State(); st.Phase != PhaseDisconnected {
		return fmt.Errorf("%w: phase %s", ErrAlreadyJoined, st.Phase)
	}

	m.gen++
	ctx, cancel := context.WithCancel(context.Background())
	room := domain.RoomKeyFor(cfg)
	kind := SelectTransport(cfg)
	s := &session{
		gen:    m.gen,
		ctx:    ctx,
		cancel: cancel,
		sid:    uuid.NewString(),
		cfg:    cfg,
		kind:   kind,
	}
	s.logger = m.logger.With().
		Str("room", string(room)).
		Str("sid", s.sid).
		Str("transport", string(kind)).
		Logger()
	m.sess = s

	m.update(func(st *State) {
		*st = State{
			Phase:     PhaseConnecting,
			RoomKey:   room,
			RoomLabel: domain.RoomLabelFor(cfg),
			Transport: kind,
		}
	})
	s.logger.Info().Str("label", domain.RoomLabelFor(cfg)).Msg("joining")

	pc, err := m.newPeer(s)
	if err != nil {
		m.fail(s, "peer connection: "+err.Error())
		return fmt.Errorf("create peer connection: %w", err)
	}
	s.pc = pc

	t := newTransport(m.deps.Transports, kind, cfg, s.sid)
	s.transport = t
	t.OnMessage(func(msg core.SignalMessage) {
		m.post(s, event{kind: evSignal, msg: msg})
	})
	t.OnError(func(err error) {
		m.post(s, event{kind: evTransportError, err: err})
	})

	// Both the gateway dial and the polling head lookup do I/O; keep them
	// off the loop.
	go func() {
		ev := event{kind: evTransportOpened}
		if kind == TransportGateway {
			ev.err = t.Open(ctx)
		} else {
			ev.since = m.pollingOffset(s, room)
		}
		m.post(s, ev)
	}()
	return nil
}

// newPeer builds a started peer connection whose callbacks are tagged with
// it, so events of a replaced connection can be told apart.
func (m *Manager) newPeer(s *session) (core.MediaConnection, error) {
	pc, err := m.deps.Media.NewConnection(s.sid)
	if err != nil {
		return nil, err
	}
	pc.OnICECandidate(func(c webrtc.ICECandidateInit) {
		m.post(s, event{kind: evLocalCandidate, pc: pc, candidate: c})
	})
	pc.OnTrack(func(t *webrtc.TrackRemote) {
		m.post(s, event{kind: evRemoteTrack, pc: pc, track: t})
	})
	pc.OnStateChange(func(ps core.PeerState) {
		m.post(s, event{kind: evPeerState, pc: pc, peer: ps})
	})
	if err := pc.Start(s.ctx); err != nil {
		pc.Close()
		return nil, err
	}
	return pc, nil
}

// pollingOffset looks up the room head. Without it the session starts from
// zero and may see signals of earlier sessions.
func (m *Manager) pollingOffset(s *session, room domain.RoomKey) int64 {
	ts, err := m.deps.Transports.PollingOffset(s.ctx, room)
	if err != nil {
		if s.ctx.Err() == nil {
			s.logger.Warn().Err(err).Msg("room head unavailable, reading from the start")
		}
		return 0
	}
	return ts
}

func (m *Manager) transportOpened(s *session, ev event) {
	if ev.err != nil {
		m.fail(s, "signaling unavailable: "+ev.err.Error())
		return
	}
	if s.kind == TransportPolling {
		s.since = ev.since
		if err := s.transport.Open(s.ctx); err != nil {
			m.fail(s, "signaling unavailable: "+err.Error())
			return
		}
		s.logger.Info().Int64("since", s.since).Msg("polling open")
	} else {
		s.logger.Info().Msg("gateway open")
	}
	m.sendOffer(s)
}

func (m *Manager) sendOffer(s *session) {
	offer, err := s.pc.CreateOffer()
	if err != nil {
		m.fail(s, "create offer: "+err.Error())
		return
	}
	if err := s.transport.Send(core.SignalMessage{Kind: core.SignalOffer, SDP: offer.SDP}); err != nil {
		m.fail(s, "send offer: "+err.Error())
		return
	}
	s.logger.Debug().Msg("offer sent")
}

// repeatOffer sends the pending local offer again. The description carries
// the candidates gathered so far, which a peer that joined late never saw.
func (m *Manager) repeatOffer(s *session) {
	local := s.pc.LocalDescription()
	if local == nil || local.Type != webrtc.SDPTypeOffer {
		return
	}
	if err := s.transport.Send(core.SignalMessage{Kind: core.SignalOffer, SDP: local.SDP}); err != nil {
		m.fail(s, "send offer: "+err.Error())
		return
	}
	s.logger.Debug().Msg("offer repeated")
}

func (m *Manager) sendCandidate(s *session, c webrtc.ICECandidateInit) {
	if err := s.transport.Send(core.SignalMessage{Kind: core.SignalCandidate, Candidate: &c}); err != nil {
		s.logger.Warn().Err(err).Msg("send candidate failed")
	}
}

func (m *Manager) handleSignal(s *session, msg core.SignalMessage) {
	if msg.Timestamp != 0 && msg.Timestamp <= s.since {
		s.logger.Debug().Int64("ts", msg.Timestamp).Str("kind", string(msg.Kind)).Msg("signal from before join dropped")
		return
	}
	if !s.fromPeer(msg.From) {
		s.logger.Debug().Str("from", msg.From).Str("kind", string(msg.Kind)).Msg("signal from another session dropped")
		return
	}
	switch msg.Kind {
	case core.SignalOffer:
		m.handleOffer(s, msg)
	case core.SignalAnswer:
		if st := s.pc.SignalingState(); st != webrtc.SignalingStateHaveLocalOffer {
			s.logger.Info().Str("signaling_state", st.String()).Msg("answer ignored")
			return
		}
		err := s.pc.ApplyAnswer(webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: msg.SDP})
		if err != nil {
			m.fail(s, "apply answer: "+err.Error())
			return
		}
		s.bindPeer(msg.From)
		s.logger.Debug().Str("from", msg.From).Msg("answer applied")
		m.flushCandidates(s)
	case core.SignalCandidate:
		m.handleRemoteCandidate(s, msg)
	default:
		s.logger.Warn().Str("kind", string(msg.Kind)).Msg("unknown signal dropped")
	}
}

// polite reports whether this side yields in an offer collision. The side
// with the lexically smaller session id is polite; an anonymous peer always
// wins.
func (s *session) polite(peer string) bool {
	return peer == "" || s.sid < peer
}

// fromPeer reports whether a signal sent by from belongs to this session's
// negotiation. Anonymous senders are always accepted.
func (s *session) fromPeer(from string) bool {
	return s.peer == "" || from == "" || from == s.peer
}

func (s *session) bindPeer(from string) {
	if s.peer != "" || from == "" {
		return
	}
	s.peer = from
	s.logger.Info().Str("peer", from).Msg("peer bound")
}

func (m *Manager) handleOffer(s *session, msg core.SignalMessage) {
	// The audio transceiver is negotiated once; later offers would be
	// renegotiations, which sessions never start.
	if s.pc.HasRemoteDescription() {
		s.logger.Info().Str("from", msg.From).Msg("offer after negotiation ignored")
		return
	}
	if s.pc.SignalingState() == webrtc.SignalingStateHaveLocalOffer {
		if !s.polite(msg.From) {
			s.logger.Info().Str("from", msg.From).Msg("colliding offer ignored")
			m.repeatOffer(s)
			return
		}
		s.logger.Info().Str("from", msg.From).Msg("offer collision, replacing peer connection")
		if err := m.replacePeer(s); err != nil {
			m.fail(s, "replace peer connection: "+err.Error())
			return
		}
	}
	answer, err := s.pc.ApplyOffer(webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: msg.SDP})
	if err != nil {
		m.fail(s, "apply offer: "+err.Error())
		return
	}
	s.bindPeer(msg.From)
	m.flushCandidates(s)
	if err := s.transport.Send(core.SignalMessage{Kind: core.SignalAnswer, SDP: answer.SDP}); err != nil {
		m.fail(s, "send answer: "+err.Error())
		return
	}
	s.logger.Debug().Str("from", msg.From).Msg("answer sent")
}

// replacePeer drops the connection holding our unanswered offer and starts a
// fresh one that can take the remote offer.
func (m *Manager) replacePeer(s *session) error {
	pc, err := m.newPeer(s)
	if err != nil {
		return err
	}
	old := s.pc
	s.pc = pc
	// Close reports the closed state through the old callbacks, which post
	// back into this loop.
	go old.Close()
	return nil
}

func (m *Manager) handleRemoteCandidate(s *session, msg core.SignalMessage) {
	if msg.Candidate == nil {
		s.logger.Warn().Msg("empty candidate dropped")
		return
	}
	if !s.pc.HasRemoteDescription() {
		if len(s.pending) >= maxPendingICE {
			s.logger.Warn().Int("queued", len(s.pending)).Msg("candidate queue full, dropped")
			return
		}
		s.pending = append(s.pending, msg)
		return
	}
	if err := s.pc.AddICECandidate(*msg.Candidate); err != nil {
		s.logger.Warn().Err(err).Msg("add candidate failed")
	}
}

func (m *Manager) flushCandidates(s *session) {
	pending := s.pending
	s.pending = nil
	n := 0
	for _, msg := range pending {
		if !s.fromPeer(msg.From) {
			continue
		}
		if err := s.pc.AddICECandidate(*msg.Candidate); err != nil {
			s.logger.Warn().Err(err).Msg("add queued candidate failed")
		}
		n++
	}
	if n > 0 {
		s.logger.Debug().Int("count", n).Msg("queued candidates flushed")
	}
}

func (m *Manager) handlePeerState(s *session, ps core.PeerState) {
	s.logger.Debug().Stringer("peer_state", ps).Msg("peer state")
	switch ps {
	case core.PeerConnected:
		if m.State().Phase == PhaseConnecting {
			m.update(func(st *State) { st.Phase = PhaseConnected })
			s.logger.Info().Msg("connected")
		}
	case core.PeerDisconnected, core.PeerFailed:
		m.fail(s, "peer connection "+ps.String())
	case core.PeerClosed:
		m.fail(s, "peer connection closed unexpectedly")
	}
}

func (m *Manager) attachRemote(s *session, ev event) {
	if m.deps.Playback != nil {
		closer, err := m.deps.Playback.Attach(s.ctx, ev.track)
		if err != nil {
			s.logger.Warn().Err(err).Msg("playback attach failed")
		} else {
			s.playback = append(s.playback, closer)
		}
	}
	if ev.track != nil {
		s.logger.Info().Str("codec", ev.track.Codec().MimeType).Msg("receiving remote audio")
	}
	m.update(func(st *State) { st.Receiving = true })
}

// fail moves the session into PhaseError and releases everything it holds.
// The error phase is kept until LeaveRoom.
func (m *Manager) fail(s *session, reason string) {
	s.logger.Error().Str("reason", reason).Msg("session failed")
	m.stopTransmit()
	m.teardown(s)
	m.update(func(st *State) {
		st.Phase = PhaseError
		st.Err = reason
		st.Transmitting = false
		st.Receiving = false
	})
}

func (m *Manager) teardown(s *session) {
	if m.sess == s {
		m.sess = nil
	}
	s.cancel()
	if s.transport != nil {
		if err := s.transport.Close(); err != nil {
			s.logger.Debug().Err(err).Msg("transport close")
		}
	}
	if s.pc != nil {
		s.pc.Close()
	}
	for _, c := range s.playback {
		_ = c.Close()
	}
	s.playback = nil
	s.pending = nil
}

func (m *Manager) leave() {
	m.stopTransmit()
	if s := m.sess; s != nil {
		m.teardown(s)
		s.logger.Info().Msg("left")
	}
	if m.State() != (State{}) {
		m.update(func(st *State) { *st = State{} })
	}
}
