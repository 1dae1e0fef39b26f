package signal

import (
	"context"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dkeye/pttstar/internal/core"
	"github.com/dkeye/pttstar/internal/domain"
)

// Factory builds a fresh transport for each session.
type Factory struct {
	Store        core.SignalStore
	PollInterval time.Duration
	Dialer       *websocket.Dialer
}

func (f Factory) Gateway(cfg domain.GatewayConfig, self string) core.SignalTransport {
	return NewGatewayTransport(cfg, self, f.Dialer)
}

func (f Factory) Polling(room domain.RoomKey, self string) core.SignalTransport {
	return NewPollingTransport(f.Store, room, self, f.PollInterval)
}

// PollingOffset reports the newest signal already stored for room. Signals at
// or below it predate the caller's session.
func (f Factory) PollingOffset(ctx context.Context, room domain.RoomKey) (int64, error) {
	return f.Store.Head(ctx, room)
}
