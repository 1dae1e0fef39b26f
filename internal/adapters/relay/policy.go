package relay

import "github.com/dkeye/pttstar/internal/app/hub"

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	KickMember
)

// Policy decides what happens to a room mate whose send queue is full.
type Policy interface {
	OnBackPressure(room string, mate hub.Snapshot) BackpressureAction
}

type SimplePolicy struct{}

func (SimplePolicy) OnBackPressure(string, hub.Snapshot) BackpressureAction {
	return KickMember
}
