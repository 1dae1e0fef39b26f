package media

import (
	"context"
	"math"
	"time"

	"github.com/dkeye/pttstar/internal/core"
)

// ToneSource is a PCM source producing a steady sine wave.
type ToneSource struct {
	Frequency  float64
	Amplitude  int16
	SampleRate int
}

var _ core.PCMSource = ToneSource{}

func (t ToneSource) OpenPCM(ctx context.Context) (core.PCMStream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if t.SampleRate <= 0 {
		t.SampleRate = opusClockRate
	}
	if t.Frequency <= 0 {
		t.Frequency = 440
	}
	return &toneStream{tone: t, start: time.Now()}, nil
}

type toneStream struct {
	tone  ToneSource
	start time.Time
}

// Snapshot fills buf with the samples that end at the current instant.
func (s *toneStream) Snapshot(buf []int16) int {
	rate := float64(s.tone.SampleRate)
	end := time.Since(s.start).Seconds() * rate
	first := end - float64(len(buf))
	for i := range buf {
		phase := 2 * math.Pi * s.tone.Frequency * (first + float64(i)) / rate
		buf[i] = int16(float64(s.tone.Amplitude) * math.Sin(phase))
	}
	return len(buf)
}

func (s *toneStream) Close() error { return nil }
