package signal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/pttstar/internal/core"
	"github.com/dkeye/pttstar/internal/domain"
)

// fakeGateway accepts sockets on DefaultSignalPath and exposes what it reads.
type fakeGateway struct {
	srv    *httptest.Server
	frames chan map[string]any
	conns  chan *websocket.Conn
}

func newFakeGateway(t *testing.T) *fakeGateway {
	t.Helper()
	g := &fakeGateway{
		frames: make(chan map[string]any, 16),
		conns:  make(chan *websocket.Conn, 1),
	}
	up := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	mux := http.NewServeMux()
	mux.HandleFunc(DefaultSignalPath, func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		g.conns <- conn
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var f map[string]any
			if json.Unmarshal(data, &f) == nil {
				g.frames <- f
			}
		}
	})
	g.srv = httptest.NewServer(mux)
	t.Cleanup(g.srv.Close)
	return g
}

func (g *fakeGateway) next(t *testing.T) map[string]any {
	t.Helper()
	select {
	case f := <-g.frames:
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("no frame received")
		return nil
	}
}

func (g *fakeGateway) conn(t *testing.T) *websocket.Conn {
	t.Helper()
	select {
	case c := <-g.conns:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("no connection")
		return nil
	}
}

func TestGatewaySocketURL(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"https://gw.example.com", "wss://gw.example.com/signal"},
		{"http://gw.example.com:8080/", "ws://gw.example.com:8080/signal"},
		{"wss://gw.example.com/custom/ws", "wss://gw.example.com/custom/ws"},
		{"gw.example.com", "wss://gw.example.com/signal"},
		{" HTTPS://gw.example.com ", "wss://gw.example.com/signal"},
	}
	for _, c := range cases {
		got, err := GatewaySocketURL(c.in)
		require.NoError(t, err, c.in)
		assert.Equal(t, c.want, got, c.in)
	}

	for _, bad := range []string{"", "   ", "ftp://gw.example.com", "https://"} {
		_, err := GatewaySocketURL(bad)
		assert.ErrorIs(t, err, ErrInvalidGatewayURL, bad)
	}
}

func TestGatewayJoinPrecedesOffer(t *testing.T) {
	gw := newFakeGateway(t)
	cfg := domain.GatewayConfig{Mode: domain.ModeDMR, Reflector: "BM", GatewayURL: gw.srv.URL, Room: "R1"}
	tr := NewGatewayTransport(cfg, "me", nil)
	t.Cleanup(func() { _ = tr.Close() })

	require.NoError(t, tr.Open(context.Background()))
	require.NoError(t, tr.Send(core.SignalMessage{Kind: core.SignalOffer, SDP: "v=0"}))

	join := gw.next(t)
	assert.Equal(t, "join", join["type"])
	assert.Equal(t, "R1", join["room"])
	assert.NotContains(t, join, "token")
	assert.NotContains(t, join, "username")

	offer := gw.next(t)
	assert.Equal(t, "offer", offer["type"])
	assert.Equal(t, "v=0", offer["sdp"])
	assert.Equal(t, "R1", offer["room"])

	select {
	case f := <-gw.frames:
		t.Fatalf("unexpected extra frame %v", f)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestGatewayNoJoinWithoutMetadata(t *testing.T) {
	gw := newFakeGateway(t)
	cfg := domain.GatewayConfig{Mode: domain.ModeYSF, Reflector: "AmericaLink", GatewayURL: gw.srv.URL}
	tr := NewGatewayTransport(cfg, "me", nil)
	t.Cleanup(func() { _ = tr.Close() })

	require.NoError(t, tr.Open(context.Background()))
	require.NoError(t, tr.Send(core.SignalMessage{
		Kind:      core.SignalCandidate,
		Candidate: &webrtc.ICECandidateInit{Candidate: "candidate:1"},
	}))

	f := gw.next(t)
	assert.Equal(t, "ice-candidate", f["type"])
	cand, ok := f["candidate"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "candidate:1", cand["candidate"])
}

func TestGatewayDropsUnparseableFrames(t *testing.T) {
	gw := newFakeGateway(t)
	tr := NewGatewayTransport(domain.GatewayConfig{GatewayURL: gw.srv.URL}, "me", nil)
	t.Cleanup(func() { _ = tr.Close() })

	got := make(chan core.SignalMessage, 4)
	tr.OnMessage(func(m core.SignalMessage) { got <- m })
	require.NoError(t, tr.Open(context.Background()))

	server := gw.conn(t)
	require.NoError(t, server.WriteMessage(websocket.TextMessage, []byte("{garbage")))
	require.NoError(t, server.WriteMessage(websocket.TextMessage, []byte(`{"type":"presence","user":"x"}`)))
	require.NoError(t, server.WriteMessage(websocket.TextMessage, []byte(`{"type":"answer","sdp":"v=0","from":"peer"}`)))

	select {
	case m := <-got:
		assert.Equal(t, core.SignalAnswer, m.Kind)
		assert.Equal(t, "peer", m.From)
	case <-time.After(2 * time.Second):
		t.Fatal("answer not dispatched")
	}

	require.NoError(t, tr.Send(core.SignalMessage{Kind: core.SignalOffer, SDP: "v=0"}))
	assert.Equal(t, "offer", gw.next(t)["type"], "socket survives bad frames")
}

func TestGatewayOpenFailureIsReturned(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	t.Cleanup(srv.Close)

	tr := NewGatewayTransport(domain.GatewayConfig{GatewayURL: srv.URL, Token: "t"}, "me", nil)
	err := tr.Open(context.Background())
	assert.ErrorIs(t, err, ErrGatewayOpen)

	bad := NewGatewayTransport(domain.GatewayConfig{GatewayURL: "ftp://x"}, "me", nil)
	assert.ErrorIs(t, bad.Open(context.Background()), ErrInvalidGatewayURL)
}

func TestGatewaySendWhileClosedIsDropped(t *testing.T) {
	gw := newFakeGateway(t)
	tr := NewGatewayTransport(domain.GatewayConfig{GatewayURL: gw.srv.URL}, "me", nil)

	assert.NoError(t, tr.Send(core.SignalMessage{Kind: core.SignalOffer, SDP: "early"}))
	require.NoError(t, tr.Open(context.Background()))
	require.NoError(t, tr.Close())
	assert.NoError(t, tr.Send(core.SignalMessage{Kind: core.SignalOffer, SDP: "late"}))
	assert.ErrorIs(t, tr.Open(context.Background()), ErrClosed)

	select {
	case f := <-gw.frames:
		t.Fatalf("unexpected frame %v", f)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestGatewayRemoteCloseReportsError(t *testing.T) {
	gw := newFakeGateway(t)
	tr := NewGatewayTransport(domain.GatewayConfig{GatewayURL: gw.srv.URL}, "me", nil)
	t.Cleanup(func() { _ = tr.Close() })

	errs := make(chan error, 2)
	tr.OnError(func(err error) { errs <- err })
	require.NoError(t, tr.Open(context.Background()))

	require.NoError(t, gw.conn(t).Close())
	select {
	case err := <-errs:
		assert.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("remote close not reported")
	}
}

func TestGatewayOpenHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	tr := NewGatewayTransport(domain.GatewayConfig{GatewayURL: "https://gw.example.invalid"}, "me", nil)
	assert.ErrorIs(t, tr.Open(ctx), ErrGatewayOpen)
}

func TestSendDoesNotWaitForSocketWrites(t *testing.T) {
	gw := newFakeGateway(t)
	tr := NewGatewayTransport(domain.GatewayConfig{GatewayURL: gw.srv.URL}, "me", nil)
	t.Cleanup(func() { _ = tr.Close() })
	require.NoError(t, tr.Open(context.Background()))

	// Stall the socket writer the way a slow peer would.
	tr.writeMu.Lock()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for range 3 {
			_ = tr.Send(core.SignalMessage{Kind: core.SignalOffer, SDP: "v=0"})
		}
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("send blocked behind a pending write")
	}
	tr.writeMu.Unlock()

	for range 3 {
		assert.Equal(t, "offer", gw.next(t)["type"])
	}
}
