package signal

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/pttstar/internal/core"
	"github.com/dkeye/pttstar/internal/domain"
)

const (
	writeWait     = 5 * time.Second
	sendQueueSize = 32
)

// GatewayTransport exchanges signaling frames over a persistent websocket to
// a signaling gateway.
type GatewayTransport struct {
	cfg    domain.GatewayConfig
	self   string
	dialer *websocket.Dialer
	logger zerolog.Logger

	// writeMu serializes socket writes; mu only guards state.
	writeMu sync.Mutex

	mu        sync.Mutex
	conn      *websocket.Conn
	send      chan []byte
	open      bool
	closed    bool
	cancel    context.CancelFunc
	onMessage func(core.SignalMessage)
	onError   func(error)

	wg sync.WaitGroup
}

var _ core.SignalTransport = (*GatewayTransport)(nil)

func NewGatewayTransport(cfg domain.GatewayConfig, self string, dialer *websocket.Dialer) *GatewayTransport {
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	return &GatewayTransport{
		cfg:    cfg,
		self:   self,
		dialer: dialer,
		send:   make(chan []byte, sendQueueSize),
		logger: log.With().Str("module", "signal.gateway").Str("sid", self).Logger(),
	}
}

func (g *GatewayTransport) OnMessage(fn func(core.SignalMessage)) {
	g.mu.Lock()
	g.onMessage = fn
	g.mu.Unlock()
}

func (g *GatewayTransport) OnError(fn func(error)) {
	g.mu.Lock()
	g.onError = fn
	g.mu.Unlock()
}

// Open dials the gateway and, when the configuration carries token, room or
// username, writes the join frame before anything else can be sent.
func (g *GatewayTransport) Open(ctx context.Context) error {
	target, err := GatewaySocketURL(g.cfg.GatewayURL)
	if err != nil {
		return err
	}
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return ErrClosed
	}
	g.mu.Unlock()

	g.logger.Info().Str("url", target).Msg("dialing gateway")
	conn, resp, err := g.dialer.DialContext(ctx, target, nil)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("%w: %s: %v", ErrGatewayOpen, resp.Status, err)
		}
		return fmt.Errorf("%w: %v", ErrGatewayOpen, err)
	}

	if join := joinFrame(g.cfg); join != nil {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(join); err != nil {
			_ = conn.Close()
			return fmt.Errorf("%w: join: %v", ErrGatewayOpen, err)
		}
		g.logger.Info().Str("room", join.Room).Msg("join sent")
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		_ = conn.Close()
		return ErrClosed
	}
	pumpCtx, cancel := context.WithCancel(context.Background())
	g.conn = conn
	g.cancel = cancel
	g.open = true
	g.wg.Add(2)
	go g.writePump(pumpCtx, conn)
	go g.readPump(pumpCtx, conn)
	return nil
}

// Send queues msg while the socket is open; otherwise it is dropped.
func (g *GatewayTransport) Send(msg core.SignalMessage) error {
	if msg.From == "" {
		msg.From = g.self
	}
	b, err := json.Marshal(frameFromMessage(msg, g.cfg.Room, g.cfg.Username))
	if err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.open {
		g.logger.Debug().Str("kind", string(msg.Kind)).Msg("send while closed, dropped")
		return nil
	}
	select {
	case g.send <- b:
		return nil
	default:
		return ErrBackpressure
	}
}

func (g *GatewayTransport) Close() error {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return nil
	}
	g.closed = true
	g.open = false
	g.onMessage = nil
	g.onError = nil
	if g.cancel != nil {
		g.cancel()
	}
	conn := g.conn
	g.mu.Unlock()

	var err error
	if conn != nil {
		g.writeMu.Lock()
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "leave"))
		g.writeMu.Unlock()
		err = conn.Close()
	}

	g.wg.Wait()
	g.logger.Info().Msg("closed")
	return err
}

func (g *GatewayTransport) writePump(ctx context.Context, conn *websocket.Conn) {
	defer g.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case data := <-g.send:
			g.mu.Lock()
			open := g.open
			g.mu.Unlock()
			if !open {
				return
			}
			g.writeMu.Lock()
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			err := conn.WriteMessage(websocket.TextMessage, data)
			g.writeMu.Unlock()
			if err != nil {
				g.logger.Error().Err(err).Msg("writePump write error")
				g.fail(err)
				return
			}
		}
	}
}

func (g *GatewayTransport) readPump(ctx context.Context, conn *websocket.Conn) {
	defer g.wg.Done()
	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				g.logger.Error().Err(err).Msg("readPump read error")
				g.fail(err)
			}
			return
		}
		if mt != websocket.TextMessage {
			continue
		}
		g.dispatch(data)
	}
}

func (g *GatewayTransport) dispatch(data []byte) {
	var f gatewayFrame
	if err := json.Unmarshal(data, &f); err != nil {
		g.logger.Warn().Err(err).Msg("bad json, frame dropped")
		return
	}
	msg, ok := f.message()
	if !ok {
		g.logger.Debug().Str("type", f.Type).Msg("ignored frame")
		return
	}
	g.mu.Lock()
	fn := g.onMessage
	g.mu.Unlock()
	if fn != nil {
		fn(msg)
	}
}

// fail reports the first asynchronous failure and stops accepting sends.
func (g *GatewayTransport) fail(err error) {
	g.mu.Lock()
	if !g.open {
		g.mu.Unlock()
		return
	}
	g.open = false
	fn := g.onError
	g.mu.Unlock()
	if fn != nil {
		fn(fmt.Errorf("gateway connection lost: %w", err))
	}
}
