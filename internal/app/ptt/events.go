package ptt

import (
	"context"

	"github.com/pion/webrtc/v4"

	"github.com/dkeye/pttstar/internal/core"
	"github.com/dkeye/pttstar/internal/domain"
)

type eventKind int

const (
	// commands
	evJoin eventKind = iota
	evLeave
	evStartTransmit
	evStopTransmit
	evClose

	// session callbacks
	evTransportOpened
	evTransportError
	evSignal
	evLocalCandidate
	evRemoteTrack
	evPeerState
)

func (k eventKind) String() string {
	switch k {
	case evJoin:
		return "join"
	case evLeave:
		return "leave"
	case evStartTransmit:
		return "start_transmit"
	case evStopTransmit:
		return "stop_transmit"
	case evClose:
		return "close"
	case evTransportOpened:
		return "transport_opened"
	case evTransportError:
		return "transport_error"
	case evSignal:
		return "signal"
	case evLocalCandidate:
		return "local_candidate"
	case evRemoteTrack:
		return "remote_track"
	case evPeerState:
		return "peer_state"
	}
	return "unknown"
}

type event struct {
	kind eventKind
	// gen is the session generation a callback event belongs to. Commands
	// carry zero.
	gen uint64

	ctx       context.Context
	cfg       domain.ConnectionConfig
	err       error
	msg       core.SignalMessage
	candidate webrtc.ICECandidateInit
	track     *webrtc.TrackRemote
	peer      core.PeerState
	// pc is the peer connection a media callback came from.
	pc core.MediaConnection
	// since is the room head a polling session starts after.
	since int64

	reply chan error
}

func (k eventKind) isCommand() bool { return k <= evClose }
