package domain

import (
	"errors"
	"fmt"
	"strings"
)

type (
	RoomKey string
	Mode    string
	Kind    string
)

const (
	ModeDMR   Mode = "dmr"
	ModeYSF   Mode = "ysf"
	ModeP25   Mode = "p25"
	ModeNXDN  Mode = "nxdn"
	ModeDStar Mode = "dstar"
	ModeM17   Mode = "m17"
)

const (
	KindGateway   Kind = "gateway"
	KindDirect    Kind = "direct"
	KindDirectory Kind = "directory"
)

const DefaultTalkgroup = "default"

var (
	ErrUnknownConnectionKind = errors.New("unknown connection kind")
	ErrUnknownMode           = errors.New("unknown mode")
	ErrMissingReflector      = errors.New("reflector is required")
	ErrMissingHost           = errors.New("host is required")
	ErrMissingAddress        = errors.New("network address is required")
	ErrMissingTalkgroup      = errors.New("talkgroup id is required")
)

// ConnectionConfig is one of GatewayConfig, DirectDialConfig or DirectoryConfig.
// The set is closed; switch on the concrete type.
type ConnectionConfig interface {
	Kind() Kind
	RoomKey() RoomKey
	Label() string
	isConnection()
}

func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	switch m {
	case ModeDMR, ModeYSF, ModeP25, ModeNXDN, ModeDStar, ModeM17:
		return m, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// GatewayConfig reaches a digital-voice reflector through a signaling gateway.
type GatewayConfig struct {
	Mode       Mode
	Reflector  string
	Talkgroup  string
	GatewayURL string

	Token    string
	Room     string
	Username string

	RegistrationID  string
	SecondaryID     string
	HotspotPassword string
	NumericID       *uint32
}

func (GatewayConfig) Kind() Kind    { return KindGateway }
func (GatewayConfig) isConnection() {}

func (c GatewayConfig) talkgroup() string {
	if tg := strings.TrimSpace(c.Talkgroup); tg != "" {
		return tg
	}
	return DefaultTalkgroup
}

func (c GatewayConfig) RoomKey() RoomKey {
	mode := strings.ToLower(strings.TrimSpace(string(c.Mode)))
	return RoomKey(fmt.Sprintf("dv:%s:%s:%s", mode, NormalizeAddress(c.Reflector), c.talkgroup()))
}

func (c GatewayConfig) Label() string {
	return fmt.Sprintf("%s: %s TG %s", strings.ToUpper(string(c.Mode)), strings.TrimSpace(c.Reflector), c.talkgroup())
}

// HasJoinMetadata reports whether the gateway expects a join frame.
func (c GatewayConfig) HasJoinMetadata() bool {
	return c.Token != "" || c.Room != "" || c.Username != ""
}

// DirectDialConfig dials an IAX node directly.
type DirectDialConfig struct {
	Host     string
	Username string
	Password string
	NodeID   *uint32
	Codec    string
}

func (DirectDialConfig) Kind() Kind    { return KindDirect }
func (DirectDialConfig) isConnection() {}

func (c DirectDialConfig) RoomKey() RoomKey {
	return RoomKey("iax:" + NormalizeAddress(c.Host))
}

func (c DirectDialConfig) Label() string {
	return "IAX: " + strings.TrimSpace(c.Host)
}

// DirectoryConfig selects a network and talkgroup from a directory listing.
type DirectoryConfig struct {
	NetworkLabel   string
	NetworkAddress string
	TalkgroupID    string
	TalkgroupName  string
}

func (DirectoryConfig) Kind() Kind    { return KindDirectory }
func (DirectoryConfig) isConnection() {}

func (c DirectoryConfig) RoomKey() RoomKey {
	return RoomKey(fmt.Sprintf("dir:%s:%s", NormalizeAddress(c.NetworkAddress), strings.TrimSpace(c.TalkgroupID)))
}

func (c DirectoryConfig) Label() string {
	tg := strings.TrimSpace(c.TalkgroupName)
	if tg == "" {
		tg = strings.TrimSpace(c.TalkgroupID)
	}
	return fmt.Sprintf("%s: %s", strings.TrimSpace(c.NetworkLabel), tg)
}

func RoomKeyFor(cfg ConnectionConfig) RoomKey { return cfg.RoomKey() }

func RoomLabelFor(cfg ConnectionConfig) string { return cfg.Label() }

// Network resolves the network name reported with transmit activity.
func Network(cfg ConnectionConfig) string {
	switch c := cfg.(type) {
	case GatewayConfig:
		return strings.TrimSpace(c.Reflector)
	case DirectDialConfig:
		return strings.TrimSpace(c.Host)
	case DirectoryConfig:
		if l := strings.TrimSpace(c.NetworkLabel); l != "" {
			return l
		}
		return strings.TrimSpace(c.NetworkAddress)
	}
	return ""
}

// Talkgroup resolves the talkgroup reported with transmit activity.
func Talkgroup(cfg ConnectionConfig) string {
	switch c := cfg.(type) {
	case GatewayConfig:
		return c.talkgroup()
	case DirectDialConfig:
		if c.NodeID != nil {
			return fmt.Sprint(*c.NodeID)
		}
	case DirectoryConfig:
		if n := strings.TrimSpace(c.TalkgroupName); n != "" {
			return n
		}
		return strings.TrimSpace(c.TalkgroupID)
	}
	return ""
}

// ConfiguredNumericID returns an id set on the configuration itself, if any.
func ConfiguredNumericID(cfg ConnectionConfig) *uint32 {
	switch c := cfg.(type) {
	case GatewayConfig:
		return c.NumericID
	case DirectDialConfig:
		return c.NodeID
	}
	return nil
}

// RawConnection is the persisted shape of a connection: a kind plus the union
// of every variant's fields.
type RawConnection struct {
	Kind string `mapstructure:"kind"`

	Mode            string `mapstructure:"mode"`
	Reflector       string `mapstructure:"reflector"`
	Talkgroup       string `mapstructure:"talkgroup"`
	GatewayURL      string `mapstructure:"gateway_url"`
	Token           string `mapstructure:"token"`
	Room            string `mapstructure:"room"`
	Username        string `mapstructure:"username"`
	RegistrationID  string `mapstructure:"registration_id"`
	SecondaryID     string `mapstructure:"secondary_id"`
	HotspotPassword string `mapstructure:"hotspot_password"`
	NumericID       uint32 `mapstructure:"numeric_id"`

	Host     string `mapstructure:"host"`
	Password string `mapstructure:"password"`
	NodeID   uint32 `mapstructure:"node_id"`
	Codec    string `mapstructure:"codec"`

	NetworkLabel   string `mapstructure:"network_label"`
	NetworkAddress string `mapstructure:"network_address"`
	TalkgroupID    string `mapstructure:"talkgroup_id"`
	TalkgroupName  string `mapstructure:"talkgroup_name"`
}

func optionalID(v uint32) *uint32 {
	if v == 0 {
		return nil
	}
	return &v
}

// Build validates the raw fields and returns the active variant.
func (r RawConnection) Build() (ConnectionConfig, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(r.Kind))) {
	case KindGateway:
		mode, err := ParseMode(r.Mode)
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(r.Reflector) == "" {
			return nil, ErrMissingReflector
		}
		return GatewayConfig{
			Mode:            mode,
			Reflector:       r.Reflector,
			Talkgroup:       r.Talkgroup,
			GatewayURL:      strings.TrimSpace(r.GatewayURL),
			Token:           r.Token,
			Room:            r.Room,
			Username:        r.Username,
			RegistrationID:  r.RegistrationID,
			SecondaryID:     r.SecondaryID,
			HotspotPassword: r.HotspotPassword,
			NumericID:       optionalID(r.NumericID),
		}, nil
	case KindDirect:
		if strings.TrimSpace(r.Host) == "" {
			return nil, ErrMissingHost
		}
		return DirectDialConfig{
			Host:     r.Host,
			Username: r.Username,
			Password: r.Password,
			NodeID:   optionalID(r.NodeID),
			Codec:    strings.ToLower(strings.TrimSpace(r.Codec)),
		}, nil
	case KindDirectory:
		if strings.TrimSpace(r.NetworkAddress) == "" {
			return nil, ErrMissingAddress
		}
		if strings.TrimSpace(r.TalkgroupID) == "" {
			return nil, ErrMissingTalkgroup
		}
		return DirectoryConfig{
			NetworkLabel:   r.NetworkLabel,
			NetworkAddress: r.NetworkAddress,
			TalkgroupID:    r.TalkgroupID,
			TalkgroupName:  r.TalkgroupName,
		}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownConnectionKind, r.Kind)
}
