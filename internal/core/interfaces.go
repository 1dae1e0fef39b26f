package core

import "github.com/dkeye/pttstar/internal/domain"

// ConfigSource hands out read-only snapshots of the persisted preferences.
type ConfigSource interface {
	Connection() (domain.ConnectionConfig, error)
	Profile() domain.Profile
}

// PeerState is the connectivity state of a media connection, reduced to what
// the session manager acts on.
type PeerState int

const (
	PeerNew PeerState = iota
	PeerChecking
	PeerConnected
	PeerDisconnected
	PeerFailed
	PeerClosed
)

func (s PeerState) String() string {
	switch s {
	case PeerNew:
		return "new"
	case PeerChecking:
		return "checking"
	case PeerConnected:
		return "connected"
	case PeerDisconnected:
		return "disconnected"
	case PeerFailed:
		return "failed"
	case PeerClosed:
		return "closed"
	}
	return "unknown"
}
