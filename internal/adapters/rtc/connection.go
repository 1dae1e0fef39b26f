package rtc

import (
	"context"
	"errors"
	"sync"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/pttstar/internal/core"
)

var ErrTrackNotAttached = errors.New("track not attached")

// Connection adapts a pion PeerConnection to core.MediaConnection. It carries
// one pre-negotiated sendrecv audio transceiver so that transmit can start and
// stop without renegotiation.
type Connection struct {
	pc     *webrtc.PeerConnection
	sid    string
	audio  *webrtc.RTPSender
	cancel context.CancelFunc

	mu      sync.Mutex
	current webrtc.TrackLocal
	extra   map[webrtc.TrackLocal]*webrtc.RTPSender

	onICE   func(webrtc.ICECandidateInit)
	onTrack func(*webrtc.TrackRemote)
	onState func(core.PeerState)
}

var _ core.MediaConnection = (*Connection)(nil)

func newConnection(pc *webrtc.PeerConnection, sid string) (*Connection, error) {
	tr, err := pc.AddTransceiverFromKind(webrtc.RTPCodecTypeAudio, webrtc.RTPTransceiverInit{
		Direction: webrtc.RTPTransceiverDirectionSendrecv,
	})
	if err != nil {
		_ = pc.Close()
		return nil, err
	}
	// The transceiver starts with a silent placeholder track; current stays
	// nil until a capture track replaces it.
	return &Connection{
		pc:    pc,
		sid:   sid,
		audio: tr.Sender(),
		extra: make(map[webrtc.TrackLocal]*webrtc.RTPSender),
	}, nil
}

func (c *Connection) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	c.pc.OnICEConnectionStateChange(func(s webrtc.ICEConnectionState) {
		log.Info().Str("module", "rtc").Str("sid", c.sid).Str("ice_state", s.String()).Msg("ICE state")
		switch s {
		case webrtc.ICEConnectionStateChecking:
			c.emit(core.PeerChecking)
		case webrtc.ICEConnectionStateConnected, webrtc.ICEConnectionStateCompleted:
			c.emit(core.PeerConnected)
		case webrtc.ICEConnectionStateDisconnected:
			c.emit(core.PeerDisconnected)
		case webrtc.ICEConnectionStateFailed:
			c.emit(core.PeerFailed)
		}
	})

	c.pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		log.Info().Str("module", "rtc").Str("sid", c.sid).Str("peer_connection_state", s.String()).Msg("Peer state")
		switch s {
		case webrtc.PeerConnectionStateFailed:
			c.emit(core.PeerFailed)
		case webrtc.PeerConnectionStateClosed:
			cancel()
			c.emit(core.PeerClosed)
		}
	})

	c.pc.OnICECandidate(func(cand *webrtc.ICECandidate) {
		if cand != nil && c.onICE != nil {
			c.onICE(cand.ToJSON())
		}
	})

	c.pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		log.Info().
			Str("module", "rtc").
			Str("sid", c.sid).
			Str("kind", track.Kind().String()).
			Str("track_id", track.ID()).
			Str("stream_id", track.StreamID()).
			Msg("OnTrack received")
		if c.onTrack != nil {
			c.onTrack(track)
		}
	})

	// RTCP has to be drained for the interceptors to run.
	go drainRTCP(ctx, c.audio)
	return nil
}

func drainRTCP(ctx context.Context, sender *webrtc.RTPSender) {
	buf := make([]byte, 1500)
	for {
		if ctx.Err() != nil {
			return
		}
		if _, _, err := sender.Read(buf); err != nil {
			return
		}
	}
}

func (c *Connection) emit(s core.PeerState) {
	if c.onState != nil {
		c.onState(s)
	}
}

func (c *Connection) CreateOffer() (webrtc.SessionDescription, error) {
	offer, err := c.pc.CreateOffer(nil)
	if err != nil {
		return webrtc.SessionDescription{}, err
	}
	if err := c.pc.SetLocalDescription(offer); err != nil {
		return webrtc.SessionDescription{}, err
	}
	return offer, nil
}

func (c *Connection) ApplyOffer(offer webrtc.SessionDescription) (webrtc.SessionDescription, error) {
	if err := c.pc.SetRemoteDescription(offer); err != nil {
		return webrtc.SessionDescription{}, err
	}
	answer, err := c.pc.CreateAnswer(nil)
	if err != nil {
		return webrtc.SessionDescription{}, err
	}
	if err := c.pc.SetLocalDescription(answer); err != nil {
		return webrtc.SessionDescription{}, err
	}
	return answer, nil
}

func (c *Connection) ApplyAnswer(answer webrtc.SessionDescription) error {
	return c.pc.SetRemoteDescription(answer)
}

func (c *Connection) LocalDescription() *webrtc.SessionDescription {
	return c.pc.LocalDescription()
}

func (c *Connection) SignalingState() webrtc.SignalingState {
	return c.pc.SignalingState()
}

func (c *Connection) HasRemoteDescription() bool {
	return c.pc.RemoteDescription() != nil
}

func (c *Connection) AddICECandidate(ci webrtc.ICECandidateInit) error {
	return c.pc.AddICECandidate(ci)
}

// AttachTrack puts the first track on the negotiated audio sender. Further
// tracks are added as new senders and only flow after a renegotiation.
func (c *Connection) AttachTrack(track webrtc.TrackLocal) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		if err := c.audio.ReplaceTrack(track); err != nil {
			return err
		}
		c.current = track
		return nil
	}
	sender, err := c.pc.AddTrack(track)
	if err != nil {
		return err
	}
	log.Warn().Str("module", "rtc").Str("sid", c.sid).Str("track_id", track.ID()).Msg("extra track added, needs renegotiation")
	c.extra[track] = sender
	return nil
}

func (c *Connection) DetachTrack(track webrtc.TrackLocal) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == track {
		c.current = nil
		return c.audio.ReplaceTrack(nil)
	}
	sender, ok := c.extra[track]
	if !ok {
		return ErrTrackNotAttached
	}
	delete(c.extra, track)
	return c.pc.RemoveTrack(sender)
}

func (c *Connection) Close() {
	if c.cancel != nil {
		c.cancel()
	}
	if err := c.pc.Close(); err != nil {
		log.Error().Err(err).Str("module", "rtc").Str("sid", c.sid).Msg("close error")
	} else {
		log.Info().Str("module", "rtc").Str("sid", c.sid).Msg("closed")
	}
}

func (c *Connection) OnICECandidate(fn func(webrtc.ICECandidateInit)) {
	c.onICE = fn
}

// OnTrack sets application-level callback for remote tracks.
func (c *Connection) OnTrack(fn func(*webrtc.TrackRemote)) { c.onTrack = fn }

// OnStateChange sets the callback for reduced connectivity state changes.
func (c *Connection) OnStateChange(fn func(core.PeerState)) { c.onState = fn }
