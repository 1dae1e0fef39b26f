package ptt

import "github.com/dkeye/pttstar/internal/domain"

type Phase int

const (
	PhaseDisconnected Phase = iota
	PhaseConnecting
	PhaseConnected
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseDisconnected:
		return "disconnected"
	case PhaseConnecting:
		return "connecting"
	case PhaseConnected:
		return "connected"
	case PhaseError:
		return "error"
	}
	return "unknown"
}

// State is a snapshot of the session as seen by the UI.
type State struct {
	Phase        Phase
	Transmitting bool
	Receiving    bool
	// Err is the human readable reason of PhaseError, empty otherwise.
	Err       string
	RoomKey   domain.RoomKey
	RoomLabel string
	Transport TransportKind
}

type Option func(*Manager)

// WithStateListener registers fn to be called from the event loop after
// every state change. fn must not call back into the Manager synchronously.
func WithStateListener(fn func(State)) Option {
	return func(m *Manager) { m.listener = fn }
}
