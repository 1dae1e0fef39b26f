package core

import (
	"context"
	"io"

	"github.com/pion/webrtc/v4"
)

type MediaConnection interface {
	// Start wires the underlying callbacks and binds the connection lifetime to ctx.
	Start(ctx context.Context) error
	// Close should stop all underlying media resources.
	Close()
	// CreateOffer creates an offer and applies it as the local description.
	CreateOffer() (webrtc.SessionDescription, error)
	// ApplyOffer applies a remote offer and returns the applied local answer.
	ApplyOffer(webrtc.SessionDescription) (webrtc.SessionDescription, error)
	ApplyAnswer(webrtc.SessionDescription) error
	// LocalDescription returns the applied local description including the
	// candidates gathered so far, or nil.
	LocalDescription() *webrtc.SessionDescription
	SignalingState() webrtc.SignalingState
	HasRemoteDescription() bool
	// AddICECandidate applies a remote ICE candidate.
	AddICECandidate(webrtc.ICECandidateInit) error
	// AttachTrack starts sending a local track on the pre-negotiated audio sender.
	AttachTrack(webrtc.TrackLocal) error
	DetachTrack(webrtc.TrackLocal) error
	// OnICECandidate sets a callback for newly gathered local ICE candidates.
	OnICECandidate(func(webrtc.ICECandidateInit))
	// OnTrack sets a callback that will be invoked when a new remote track arrives.
	OnTrack(func(*webrtc.TrackRemote))
	OnStateChange(func(PeerState))
}

// MediaFactory builds one MediaConnection per session.
type MediaFactory interface {
	NewConnection(sid string) (MediaConnection, error)
}

// CaptureStream is a held capture device. Closing it releases the device.
type CaptureStream interface {
	Tracks() []webrtc.TrackLocal
	Close() error
}

type CaptureDevice interface {
	Open(ctx context.Context) (CaptureStream, error)
}

// PlaybackSink renders a remote track until the returned closer is closed.
type PlaybackSink interface {
	Attach(ctx context.Context, track *webrtc.TrackRemote) (io.Closer, error)
}

// PCMStream exposes the most recent window of captured samples.
type PCMStream interface {
	// Snapshot copies up to len(buf) of the latest samples into buf.
	Snapshot(buf []int16) int
	Close() error
}

type PCMSource interface {
	OpenPCM(ctx context.Context) (PCMStream, error)
}
