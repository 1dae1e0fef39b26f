package media

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pion/interceptor"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media/oggwriter"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/pttstar/internal/core"
)

type rtpReader interface {
	ReadRTP() (*rtp.Packet, interceptor.Attributes, error)
}

type rtpWriter interface {
	WriteRTP(*rtp.Packet) error
	Close() error
}

// OggRecorder stands in for a speaker: every remote track is written to its
// own Ogg file under Dir.
type OggRecorder struct {
	Dir string
}

var _ core.PlaybackSink = OggRecorder{}

func (r OggRecorder) Attach(ctx context.Context, track *webrtc.TrackRemote) (io.Closer, error) {
	if err := os.MkdirAll(r.Dir, 0o755); err != nil {
		return nil, err
	}
	name := fmt.Sprintf("%s-%s.ogg", time.Now().UTC().Format("20060102T150405"), track.ID())
	path := filepath.Join(r.Dir, name)
	channels := track.Codec().Channels
	if channels == 0 {
		channels = 2
	}
	w, err := oggwriter.New(path, opusClockRate, channels)
	if err != nil {
		return nil, err
	}
	log.Info().Str("module", "media").Str("file", path).Msg("recording remote track")
	rec := newRecording(ctx, track, w)
	rec.unblock = func() { _ = track.SetReadDeadline(time.Now()) }
	return rec, nil
}

type recording struct {
	cancel  context.CancelFunc
	unblock func()
	w       rtpWriter
	done    chan struct{}
	once    sync.Once
	packets int
}

func newRecording(ctx context.Context, src rtpReader, w rtpWriter) *recording {
	ctx, cancel := context.WithCancel(ctx)
	rec := &recording{cancel: cancel, w: w, done: make(chan struct{})}
	go rec.loop(ctx, src)
	return rec
}

func (r *recording) loop(ctx context.Context, src rtpReader) {
	defer close(r.done)
	for {
		if ctx.Err() != nil {
			return
		}
		pkt, _, err := src.ReadRTP()
		if err != nil {
			if ctx.Err() == nil && err != io.EOF {
				log.Warn().Str("module", "media").Err(err).Msg("recording read failed")
			}
			return
		}
		if err := r.w.WriteRTP(pkt); err != nil {
			log.Warn().Str("module", "media").Err(err).Msg("recording write failed")
			return
		}
		r.packets++
	}
}

// Close stops the recording and finalizes the file.
func (r *recording) Close() error {
	var err error
	r.once.Do(func() {
		r.cancel()
		if r.unblock != nil {
			r.unblock()
		}
		<-r.done
		err = r.w.Close()
		log.Debug().Str("module", "media").Int("packets", r.packets).Msg("recording closed")
	})
	return err
}
