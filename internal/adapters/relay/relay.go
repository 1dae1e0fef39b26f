package relay

import "github.com/rs/zerolog/log"

// handleRelay forwards offers, answers and candidates to every room mate.
// Sockets that never joined are bound to DefaultRoom first.
func (ctl *Controller) handleRelay(sid string, conn *wsConn, f frame) {
	if _, ok := ctl.Registry.RoomOf(sid); !ok {
		ctl.Registry.Join(sid, DefaultRoom, "")
	}
	if f.Type == frameCandidateAlt {
		f.Type = frameCandidate
	}
	if (f.Type == frameOffer || f.Type == frameAnswer) && f.SDP == "" {
		ctl.sendError(conn, "missing_sdp")
		return
	}
	if f.Type == frameCandidate && f.Candidate == nil {
		ctl.sendError(conn, "missing_candidate")
		return
	}
	if f.From == "" {
		f.From = sid
	}
	f.Token = ""

	n := ctl.BroadcastFrom(sid, f)
	log.Debug().Str("module", "relay").Str("sid", sid).Str("type", f.Type).Int("peers", n).Msg("relayed")
}
