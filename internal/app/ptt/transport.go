package ptt

import (
	"context"

	"github.com/dkeye/pttstar/internal/adapters/signal"
	"github.com/dkeye/pttstar/internal/core"
	"github.com/dkeye/pttstar/internal/domain"
)

type TransportKind string

const (
	TransportNone    TransportKind = ""
	TransportPolling TransportKind = "polling"
	TransportGateway TransportKind = "gateway"
)

// TransportFactory builds a fresh signaling transport per session.
type TransportFactory interface {
	Gateway(cfg domain.GatewayConfig, self string) core.SignalTransport
	Polling(room domain.RoomKey, self string) core.SignalTransport
	// PollingOffset returns the newest timestamp already stored for room.
	PollingOffset(ctx context.Context, room domain.RoomKey) (int64, error)
}

// SelectTransport picks the gateway only for gateway-mediated configurations
// that carry a usable gateway URL.
func SelectTransport(cfg domain.ConnectionConfig) TransportKind {
	gw, ok := cfg.(domain.GatewayConfig)
	if !ok {
		return TransportPolling
	}
	if _, err := signal.GatewaySocketURL(gw.GatewayURL); err != nil {
		return TransportPolling
	}
	return TransportGateway
}

func newTransport(f TransportFactory, kind TransportKind, cfg domain.ConnectionConfig, self string) core.SignalTransport {
	if kind == TransportGateway {
		return f.Gateway(cfg.(domain.GatewayConfig), self)
	}
	return f.Polling(domain.RoomKeyFor(cfg), self)
}
