package relay

import (
	"crypto/subtle"

	"github.com/rs/zerolog/log"
)

// roomFor picks the room a join frame binds to: the explicit room, else one
// derived from the reflector and talkgroup, else DefaultRoom.
func roomFor(f frame) string {
	if f.Room != "" {
		return f.Room
	}
	if f.Reflector != "" {
		tg := f.Talkgroup
		if tg == "" {
			tg = "default"
		}
		return f.Mode + ":" + f.Reflector + ":" + tg
	}
	return DefaultRoom
}

func (ctl *Controller) handleJoin(sid string, conn *wsConn, f frame) {
	if ctl.JoinToken != "" && subtle.ConstantTimeCompare([]byte(f.Token), []byte(ctl.JoinToken)) != 1 {
		log.Warn().Str("module", "relay").Str("sid", sid).Msg("join rejected: bad token")
		ctl.sendError(conn, "unauthorized")
		return
	}
	room := roomFor(f)
	if ctl.Limiter != nil && !ctl.Limiter.Allow(conn.addr, room) {
		log.Warn().Str("module", "relay").Str("sid", sid).Str("addr", conn.addr).Str("room", room).Msg("join rate limited")
		ctl.sendError(conn, "rate_limited")
		return
	}

	if !ctl.Registry.Join(sid, room, f.Username) {
		ctl.sendError(conn, "not_registered")
		return
	}
	log.Info().Str("module", "relay").Str("sid", sid).Str("room", room).Msg("join")

	peers := len(ctl.Registry.Mates(sid))
	ctl.sendJSON(conn, frame{Type: frameJoined, Room: room, Peers: &peers})
}

// handleLeave leaves the current room; the socket stays open.
func (ctl *Controller) handleLeave(sid string, conn *wsConn) {
	log.Info().Str("module", "relay").Str("sid", sid).Msg("leave")
	ctl.Registry.Leave(sid)
	ctl.sendJSON(conn, frame{Type: frameLeft})
}
