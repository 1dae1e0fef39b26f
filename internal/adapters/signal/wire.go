package signal

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/pion/webrtc/v4"

	"github.com/dkeye/pttstar/internal/core"
	"github.com/dkeye/pttstar/internal/domain"
)

const (
	DefaultSignalPath = "/signal"

	frameJoin = "join"
)

// gatewayFrame is the JSON text frame spoken with the signaling gateway.
type gatewayFrame struct {
	Type      string                   `json:"type"`
	Token     string                   `json:"token,omitempty"`
	Room      string                   `json:"room,omitempty"`
	Username  string                   `json:"username,omitempty"`
	SDP       string                   `json:"sdp,omitempty"`
	Candidate *webrtc.ICECandidateInit `json:"candidate,omitempty"`
	From      string                   `json:"from,omitempty"`

	Mode            string `json:"mode,omitempty"`
	Reflector       string `json:"reflector,omitempty"`
	Talkgroup       string `json:"talkgroup,omitempty"`
	RegistrationID  string `json:"registration_id,omitempty"`
	SecondaryID     string `json:"secondary_id,omitempty"`
	HotspotPassword string `json:"hotspot_password,omitempty"`
}

// joinFrame returns the join frame for cfg, or nil when the gateway gets none.
func joinFrame(cfg domain.GatewayConfig) *gatewayFrame {
	if !cfg.HasJoinMetadata() {
		return nil
	}
	return &gatewayFrame{
		Type:            frameJoin,
		Token:           cfg.Token,
		Room:            cfg.Room,
		Username:        cfg.Username,
		Mode:            string(cfg.Mode),
		Reflector:       strings.TrimSpace(cfg.Reflector),
		Talkgroup:       strings.TrimSpace(cfg.Talkgroup),
		RegistrationID:  cfg.RegistrationID,
		SecondaryID:     cfg.SecondaryID,
		HotspotPassword: cfg.HotspotPassword,
	}
}

func frameFromMessage(msg core.SignalMessage, room, username string) gatewayFrame {
	return gatewayFrame{
		Type:      string(msg.Kind),
		SDP:       msg.SDP,
		Candidate: msg.Candidate,
		From:      msg.From,
		Room:      room,
		Username:  username,
	}
}

// message converts an inbound frame; ok is false for types the session ignores.
func (f gatewayFrame) message() (core.SignalMessage, bool) {
	switch k := core.SignalKind(f.Type); k {
	case core.SignalOffer, core.SignalAnswer:
		return core.SignalMessage{Kind: k, SDP: f.SDP, From: f.From}, true
	case core.SignalCandidate:
		if f.Candidate == nil {
			return core.SignalMessage{}, false
		}
		return core.SignalMessage{Kind: k, Candidate: f.Candidate, From: f.From}, true
	}
	return core.SignalMessage{}, false
}

// GatewaySocketURL turns a user supplied gateway address into the websocket
// URL to dial: http(s) becomes ws(s), a missing scheme means wss, and an empty
// path gets DefaultSignalPath.
func GatewaySocketURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrInvalidGatewayURL
	}
	if !strings.Contains(raw, "://") {
		raw = "wss://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidGatewayURL, err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
		u.Scheme = strings.ToLower(u.Scheme)
	default:
		return "", fmt.Errorf("%w: scheme %q", ErrInvalidGatewayURL, u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: missing host", ErrInvalidGatewayURL)
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = DefaultSignalPath
	}
	return u.String(), nil
}
