package ptt

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/dkeye/pttstar/internal/core"
	"github.com/dkeye/pttstar/internal/domain"
)

type fakeTransport struct {
	mu        sync.Mutex
	kind      TransportKind
	openErr   error
	blockOpen bool
	opened    bool
	closed    bool
	sent      []core.SignalMessage
	onMessage func(core.SignalMessage)
	onError   func(error)
}

func (t *fakeTransport) Open(ctx context.Context) error {
	if t.blockOpen {
		<-ctx.Done()
		return ctx.Err()
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.openErr != nil {
		return t.openErr
	}
	t.opened = true
	return nil
}

func (t *fakeTransport) Send(msg core.SignalMessage) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.sent = append(t.sent, msg)
	return nil
}

func (t *fakeTransport) OnMessage(fn func(core.SignalMessage)) {
	t.mu.Lock()
	t.onMessage = fn
	t.mu.Unlock()
}

func (t *fakeTransport) OnError(fn func(error)) {
	t.mu.Lock()
	t.onError = fn
	t.mu.Unlock()
}

func (t *fakeTransport) Close() error {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
	return nil
}

func (t *fakeTransport) deliver(msg core.SignalMessage) {
	t.mu.Lock()
	fn := t.onMessage
	t.mu.Unlock()
	fn(msg)
}

func (t *fakeTransport) failAsync(err error) {
	t.mu.Lock()
	fn := t.onError
	t.mu.Unlock()
	fn(err)
}

func (t *fakeTransport) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

func (t *fakeTransport) isOpened() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.opened
}

func (t *fakeTransport) sentAt(i int) core.SignalMessage {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sent[i]
}

func (t *fakeTransport) sentKinds() []core.SignalKind {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]core.SignalKind, 0, len(t.sent))
	for _, m := range t.sent {
		out = append(out, m.Kind)
	}
	return out
}

type fakeTransports struct {
	mu        sync.Mutex
	next      *fakeTransport
	built     []*fakeTransport
	gateways  []domain.GatewayConfig
	rooms     []domain.RoomKey
	offset    int64
	offsetErr error
}

func (f *fakeTransports) take(kind TransportKind) *fakeTransport {
	t := f.next
	f.next = nil
	if t == nil {
		t = &fakeTransport{}
	}
	t.kind = kind
	f.built = append(f.built, t)
	return t
}

func (f *fakeTransports) Gateway(cfg domain.GatewayConfig, _ string) core.SignalTransport {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gateways = append(f.gateways, cfg)
	return f.take(TransportGateway)
}

func (f *fakeTransports) Polling(room domain.RoomKey, _ string) core.SignalTransport {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rooms = append(f.rooms, room)
	return f.take(TransportPolling)
}

func (f *fakeTransports) PollingOffset(context.Context, domain.RoomKey) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.offset, f.offsetErr
}

func (f *fakeTransports) last() *fakeTransport {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.built) == 0 {
		return nil
	}
	return f.built[len(f.built)-1]
}

type fakePC struct {
	mu         sync.Mutex
	sigState   webrtc.SignalingState
	remote     bool
	closed     bool
	started    bool
	candidates []webrtc.ICECandidateInit
	attached   []webrtc.TrackLocal
	attachErr  error

	onICE   func(webrtc.ICECandidateInit)
	onTrack func(*webrtc.TrackRemote)
	onState func(core.PeerState)
}

func (p *fakePC) Start(context.Context) error {
	p.mu.Lock()
	p.started = true
	p.sigState = webrtc.SignalingStateStable
	p.mu.Unlock()
	return nil
}

func (p *fakePC) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
}

func (p *fakePC) CreateOffer() (webrtc.SessionDescription, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sigState = webrtc.SignalingStateHaveLocalOffer
	return webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: "local-offer"}, nil
}

func (p *fakePC) ApplyOffer(webrtc.SessionDescription) (webrtc.SessionDescription, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sigState != webrtc.SignalingStateStable {
		return webrtc.SessionDescription{}, errors.New("offer in wrong state")
	}
	p.remote = true
	return webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: "local-answer"}, nil
}

func (p *fakePC) ApplyAnswer(webrtc.SessionDescription) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.remote = true
	p.sigState = webrtc.SignalingStateStable
	return nil
}

func (p *fakePC) LocalDescription() *webrtc.SessionDescription {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sigState != webrtc.SignalingStateHaveLocalOffer {
		return nil
	}
	return &webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: "local-offer+candidates"}
}

func (p *fakePC) SignalingState() webrtc.SignalingState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sigState
}

func (p *fakePC) HasRemoteDescription() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.remote
}

func (p *fakePC) AddICECandidate(c webrtc.ICECandidateInit) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.candidates = append(p.candidates, c)
	return nil
}

func (p *fakePC) AttachTrack(t webrtc.TrackLocal) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.attachErr != nil {
		return p.attachErr
	}
	p.attached = append(p.attached, t)
	return nil
}

func (p *fakePC) DetachTrack(t webrtc.TrackLocal) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, a := range p.attached {
		if a == t {
			p.attached = append(p.attached[:i], p.attached[i+1:]...)
			return nil
		}
	}
	return errors.New("not attached")
}

func (p *fakePC) OnICECandidate(fn func(webrtc.ICECandidateInit)) { p.onICE = fn }
func (p *fakePC) OnTrack(fn func(*webrtc.TrackRemote))          { p.onTrack = fn }
func (p *fakePC) OnStateChange(fn func(core.PeerState))          { p.onState = fn }

func (p *fakePC) emit(ps core.PeerState) { p.onState(ps) }

func (p *fakePC) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *fakePC) addedCandidates() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.candidates)
}

func (p *fakePC) attachedCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.attached)
}

type fakeMedia struct {
	mu    sync.Mutex
	conns []*fakePC
	err   error
}

func (f *fakeMedia) NewConnection(string) (core.MediaConnection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	pc := &fakePC{}
	f.conns = append(f.conns, pc)
	return pc, nil
}

func (f *fakeMedia) last() *fakePC {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.conns[len(f.conns)-1]
}

func (f *fakeMedia) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.conns)
}

type fakeTrack struct{ webrtc.TrackLocal }

type fakeStream struct {
	tracks []webrtc.TrackLocal
	mu     sync.Mutex
	closed bool
}

func (s *fakeStream) Tracks() []webrtc.TrackLocal { return s.tracks }

func (s *fakeStream) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *fakeStream) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

type fakeCapture struct {
	mu      sync.Mutex
	err     error
	opens   int
	streams []*fakeStream
}

func (c *fakeCapture) Open(context.Context) (core.CaptureStream, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.opens++
	if c.err != nil {
		return nil, c.err
	}
	s := &fakeStream{tracks: []webrtc.TrackLocal{&fakeTrack{}}}
	c.streams = append(c.streams, s)
	return s, nil
}

func (c *fakeCapture) openCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opens
}

type fakePlayback struct {
	mu      sync.Mutex
	closers int
}

func (p *fakePlayback) Attach(context.Context, *webrtc.TrackRemote) (io.Closer, error) {
	p.mu.Lock()
	p.closers++
	p.mu.Unlock()
	return io.NopCloser(nil), nil
}
