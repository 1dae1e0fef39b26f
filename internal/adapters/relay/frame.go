package relay

import "github.com/pion/webrtc/v4"

const (
	frameJoin         = "join"
	frameLeave        = "leave"
	framePing         = "ping"
	framePong         = "pong"
	frameWhoAmI       = "whoami"
	frameOffer        = "offer"
	frameAnswer       = "answer"
	frameCandidate    = "ice-candidate"
	frameCandidateAlt = "candidate"
	frameJoined       = "joined"
	frameLeft         = "left"
	frameError        = "error"
)

type frame struct {
	Type      string                   `json:"type"`
	Token     string                   `json:"token,omitempty"`
	Room      string                   `json:"room,omitempty"`
	Username  string                   `json:"username,omitempty"`
	SDP       string                   `json:"sdp,omitempty"`
	Candidate *webrtc.ICECandidateInit `json:"candidate,omitempty"`
	From      string                   `json:"from,omitempty"`
	Error     string                   `json:"error,omitempty"`

	Mode      string `json:"mode,omitempty"`
	Reflector string `json:"reflector,omitempty"`
	Talkgroup string `json:"talkgroup,omitempty"`
	Peers     *int   `json:"peers,omitempty"`
}
