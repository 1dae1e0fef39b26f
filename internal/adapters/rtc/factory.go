package rtc

import (
	"fmt"
	"strings"

	"github.com/pion/interceptor"
	"github.com/pion/webrtc/v4"

	"github.com/dkeye/pttstar/internal/core"
)

// DefaultICEServers is the fixed set of public STUN servers used for
// connectivity establishment.
var DefaultICEServers = []string{
	"stun:stun.l.google.com:19302",
	"stun:stun1.l.google.com:19302",
}

func DefaultWebRTCConfig(urls []string) webrtc.Configuration {
	if len(urls) == 0 {
		urls = DefaultICEServers
	}
	return webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{
			{
				URLs: urls,
			},
		},
	}
}

// Factory builds peer connections sharing one configured webrtc.API.
type Factory struct {
	api *webrtc.API
	cfg webrtc.Configuration
}

var _ core.MediaFactory = (*Factory)(nil)

type factoryOptions struct {
	loopback bool
}

type Option func(*factoryOptions)

// WithLoopback restricts gathering to UDP4 host candidates on the loopback
// interface and drops the STUN servers. Both peers must run on this host.
func WithLoopback() Option {
	return func(o *factoryOptions) { o.loopback = true }
}

func NewFactory(iceServers []string, opts ...Option) (*Factory, error) {
	var o factoryOptions
	for _, opt := range opts {
		opt(&o)
	}

	m := &webrtc.MediaEngine{}
	if err := m.RegisterDefaultCodecs(); err != nil {
		return nil, fmt.Errorf("register codecs: %w", err)
	}
	ir := &interceptor.Registry{}
	if err := webrtc.RegisterDefaultInterceptors(m, ir); err != nil {
		return nil, fmt.Errorf("register interceptors: %w", err)
	}
	se := webrtc.SettingEngine{}
	se.LoggerFactory = zerologFactory{}
	cfg := DefaultWebRTCConfig(iceServers)
	if o.loopback {
		se.SetIncludeLoopbackCandidate(true)
		se.SetNetworkTypes([]webrtc.NetworkType{webrtc.NetworkTypeUDP4})
		se.SetInterfaceFilter(func(name string) bool { return strings.HasPrefix(name, "lo") })
		cfg = webrtc.Configuration{}
	}

	api := webrtc.NewAPI(
		webrtc.WithMediaEngine(m),
		webrtc.WithInterceptorRegistry(ir),
		webrtc.WithSettingEngine(se),
	)
	return &Factory{api: api, cfg: cfg}, nil
}

func (f *Factory) NewConnection(sid string) (core.MediaConnection, error) {
	pc, err := f.api.NewPeerConnection(f.cfg)
	if err != nil {
		return nil, err
	}
	return newConnection(pc, sid)
}
