// Package relay is the server end of the gateway signaling protocol: it
// binds websocket clients to rooms and forwards offers, answers and ICE
// candidates between room mates.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/pttstar/internal/app/hub"
)

const (
	DefaultRoom       = "lobby"
	DefaultReadLimit  = 32768
	DefaultPingPeriod = 54 * time.Second
	sendQueueSize     = 32
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrConnClosed   = errors.New("connection closed")
)

type Controller struct {
	Registry *hub.Registry
	Limiter  *JoinLimiter
	Policy   Policy
	// JoinToken, when set, must be presented in every join frame.
	JoinToken  string
	ReadLimit  int64
	PingPeriod time.Duration
}

func NewController(reg *hub.Registry, limiter *JoinLimiter) *Controller {
	return &Controller{
		Registry:   reg,
		Limiter:    limiter,
		Policy:     SimplePolicy{},
		ReadLimit:  DefaultReadLimit,
		PingPeriod: DefaultPingPeriod,
	}
}

type wsConn struct {
	conn *websocket.Conn
	send chan []byte
	// addr is the client address joins are rate limited by.
	addr string

	mu     sync.RWMutex
	closed bool
}

var _ hub.Sender = (*wsConn)(nil)

func (c *wsConn) TrySend(f []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrConnClosed
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *wsConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleSignal upgrades the request and serves the connection until the
// client goes away or ctx is cancelled.
func (ctl *Controller) HandleSignal(ctx context.Context, c *gin.Context) {
	sid := c.GetString("client_token")
	if sid == "" {
		sid = uuid.NewString()
	}
	// A browser may hold several sockets under one cookie.
	sid = sid + "/" + uuid.NewString()[:8]
	log.Info().Str("module", "relay").Str("sid", sid).Msg("new WS connection")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "relay").Msg("ws upgrade")
		return
	}

	conn := &wsConn{
		conn: ws,
		send: make(chan []byte, sendQueueSize),
		addr: c.ClientIP(),
	}
	ctx, cancel := context.WithCancel(ctx)
	ctl.Registry.Bind(sid, conn, cancel)

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, cancel, sid, conn)
}

// BroadcastFrom sends v to every room mate of sid and returns how many
// accepted it.
func (ctl *Controller) BroadcastFrom(sid string, v any) int {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "relay").Msg("broadcast marshal")
		return 0
	}
	n := 0
	for _, mate := range ctl.Registry.Mates(sid) {
		err := mate.Sender.TrySend(b)
		if err == nil {
			n++
			continue
		}
		log.Warn().Err(err).Str("module", "relay").Str("dst_sid", mate.SID).Msg("relay send dropped")
		if errors.Is(err, ErrBackpressure) && ctl.Policy != nil &&
			ctl.Policy.OnBackPressure(mate.Room, mate) == KickMember {
			ctl.Registry.Cancel(mate.SID)
		}
	}
	return n
}
