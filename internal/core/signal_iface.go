package core

import (
	"context"

	"github.com/pion/webrtc/v4"
)

type SignalKind string

const (
	SignalOffer     SignalKind = "offer"
	SignalAnswer    SignalKind = "answer"
	SignalCandidate SignalKind = "ice-candidate"
)

// SignalMessage is one offer, answer or ICE candidate exchanged out-of-band.
type SignalMessage struct {
	Kind      SignalKind               `json:"type"`
	SDP       string                   `json:"sdp,omitempty"`
	Candidate *webrtc.ICECandidateInit `json:"candidate,omitempty"`
	From      string                   `json:"from,omitempty"`
	// Timestamp is only set by the polling transport.
	Timestamp int64 `json:"-"`
}

// SignalTransport carries signaling messages for exactly one session.
// Handlers must be registered before Open.
type SignalTransport interface {
	Open(ctx context.Context) error
	Send(msg SignalMessage) error
	OnMessage(func(SignalMessage))
	// OnError reports a transport failure that happened after Open returned.
	OnError(func(error))
	Close() error
}
