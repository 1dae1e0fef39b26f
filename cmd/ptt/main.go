// Command ptt joins the configured room. Enter toggles the transmitter,
// "m" toggles the input meter and "q" quits.
package main

import (
	"bufio"
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/dkeye/pttstar/internal/adapters/directory"
	"github.com/dkeye/pttstar/internal/adapters/media"
	"github.com/dkeye/pttstar/internal/adapters/rtc"
	sig "github.com/dkeye/pttstar/internal/adapters/signal"
	"github.com/dkeye/pttstar/internal/adapters/store"
	"github.com/dkeye/pttstar/internal/app/meter"
	"github.com/dkeye/pttstar/internal/app/ptt"
	"github.com/dkeye/pttstar/internal/config"
	"github.com/dkeye/pttstar/internal/core"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	fs := pflag.NewFlagSet("ptt", pflag.ExitOnError)
	fs.String("config", config.FileName(), "path to the YAML config file")
	fs.String("log-level", "info", "log level")
	fs.String("store-url", "", "signal hub base URL")
	fs.String("directory-url", "", "activity directory base URL (defaults to the store URL)")
	fs.String("capture-file", "", "Ogg/Opus file used as the microphone")
	fs.String("record-dir", "", "directory for received audio")
	fs.String("profile.callsign", "", "operator callsign")
	fs.String("connection.kind", "", "gateway, direct or directory")
	fs.String("connection.host", "", "direct dial host[:port]")
	fs.String("connection.gateway_url", "", "signaling gateway URL")
	_ = fs.Parse(os.Args[1:])

	config.SetupLogger("info")
	cfg, err := config.LoadClient(fs)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	config.SetupLogger(cfg.LogLevel)

	src := config.NewSource(*cfg)
	conn, err := src.Connection()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid connection")
	}

	factory, err := rtc.NewFactory(cfg.ICEServers)
	if err != nil {
		log.Fatal().Err(err).Msg("webrtc setup")
	}
	dirURL := cfg.DirectoryURL
	if dirURL == "" {
		dirURL = cfg.StoreURL
	}

	var reporter core.ActivityReporter
	if dirURL != "" {
		reporter = directory.NewClient(dirURL, cfg.HTTPTimeout)
	}
	mgr := ptt.NewManager(ptt.Deps{
		Transports: sig.Factory{
			Store:        store.NewClient(cfg.StoreURL, cfg.HTTPTimeout),
			PollInterval: cfg.PollInterval,
		},
		Media:    factory,
		Capture:  media.OggCapture{Path: cfg.CaptureFile},
		Playback: media.OggRecorder{Dir: cfg.RecordDir},
		Reporter: reporter,
		Profile:  src.Profile,
	}, ptt.WithStateListener(func(s ptt.State) {
		ev := log.Info().
			Str("module", "cli").
			Stringer("phase", s.Phase).
			Bool("tx", s.Transmitting).
			Bool("rx", s.Receiving).
			Str("room", s.RoomLabel)
		if s.Err != "" {
			ev = ev.Str("error", s.Err)
		}
		ev.Msg("state")
	}))

	lvl := meter.New(media.ToneSource{Amplitude: 12000})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return mgr.JoinRoom(gctx, conn)
	})
	g.Go(func() error {
		lines := make(chan string)
		go func() {
			sc := bufio.NewScanner(os.Stdin)
			for sc.Scan() {
				lines <- strings.TrimSpace(sc.Text())
			}
			close(lines)
		}()
		for {
			select {
			case <-gctx.Done():
				return nil
			case line, ok := <-lines:
				if !ok {
					cancel()
					return nil
				}
				handleLine(gctx, cancel, mgr, lvl, line)
			}
		}
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("session error")
	}
	lvl.Disable()
	if err := mgr.Close(); err != nil {
		log.Warn().Err(err).Msg("close")
	}
}

func handleLine(ctx context.Context, quit context.CancelFunc, mgr *ptt.Manager, lvl *meter.Meter, line string) {
	switch line {
	case "q", "quit":
		quit()
	case "m", "meter":
		if lvl.Active() {
			log.Info().Str("module", "cli").Int("level", lvl.Level()).Msg("input level")
			lvl.Disable()
			return
		}
		if err := lvl.Enable(ctx); err != nil {
			log.Warn().Err(err).Msg("meter")
		}
	default:
		if mgr.State().Transmitting {
			if err := mgr.StopTransmit(); err != nil {
				log.Warn().Err(err).Msg("stop transmit")
			}
			return
		}
		if err := mgr.StartTransmit(ctx); err != nil {
			log.Warn().Err(err).Msg("start transmit")
		}
	}
}
