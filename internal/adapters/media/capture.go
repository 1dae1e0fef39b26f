// Package media holds file and synthetic stand-ins for the audio devices.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"
	"github.com/pion/webrtc/v4/pkg/media/oggreader"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/pttstar/internal/core"
)

const (
	opusClockRate = 48000
	pageInterval  = 20 * time.Millisecond
)

var ErrNoCaptureFile = errors.New("capture file not configured")

var opusCapability = webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus, ClockRate: opusClockRate, Channels: 2}

// OggCapture plays an Ogg/Opus file as if it were a microphone, looping at
// the end of the file.
type OggCapture struct {
	Path string
}

var _ core.CaptureDevice = OggCapture{}

func (c OggCapture) Open(ctx context.Context) (core.CaptureStream, error) {
	if c.Path == "" {
		return nil, ErrNoCaptureFile
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(c.Path)
	if err != nil {
		return nil, err
	}
	reader, header, err := oggreader.NewWith(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("read ogg header: %w", err)
	}
	track, err := webrtc.NewTrackLocalStaticSample(opusCapability, "audio", "ptt-"+uuid.NewString())
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	s := &oggStream{file: f, track: track, cancel: cancel}
	s.wg.Add(1)
	go s.pump(runCtx, reader)
	log.Info().
		Str("module", "media").
		Str("file", c.Path).
		Uint8("channels", header.Channels).
		Uint32("sample_rate", header.SampleRate).
		Msg("capture opened")
	return s, nil
}

type oggStream struct {
	file   *os.File
	track  *webrtc.TrackLocalStaticSample
	cancel context.CancelFunc
	once   sync.Once
	wg     sync.WaitGroup
}

func (s *oggStream) Tracks() []webrtc.TrackLocal { return []webrtc.TrackLocal{s.track} }

func (s *oggStream) Close() error {
	var err error
	s.once.Do(func() {
		s.cancel()
		s.wg.Wait()
		err = s.file.Close()
	})
	return err
}

// pump writes one Ogg page per tick, timing each sample by the page granule.
func (s *oggStream) pump(ctx context.Context, reader *oggreader.OggReader) {
	defer s.wg.Done()
	ticker := time.NewTicker(pageInterval)
	defer ticker.Stop()

	var lastGranule uint64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		page, header, err := reader.ParseNextPage()
		if errors.Is(err, io.EOF) {
			if reader, err = s.rewind(); err != nil {
				log.Error().Str("module", "media").Err(err).Msg("capture rewind failed")
				return
			}
			lastGranule = 0
			continue
		}
		if err != nil {
			log.Error().Str("module", "media").Err(err).Msg("capture read failed")
			return
		}
		if header.GranulePosition <= lastGranule {
			// header pages carry no audio
			continue
		}
		samples := header.GranulePosition - lastGranule
		lastGranule = header.GranulePosition
		d := time.Duration(samples) * time.Second / opusClockRate
		if err := s.track.WriteSample(media.Sample{Data: page, Duration: d}); err != nil {
			log.Warn().Str("module", "media").Err(err).Msg("write sample failed")
		}
	}
}

func (s *oggStream) rewind() (*oggreader.OggReader, error) {
	if _, err := s.file.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	reader, _, err := oggreader.NewWith(s.file)
	return reader, err
}
