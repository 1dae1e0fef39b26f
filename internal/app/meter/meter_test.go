package meter

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/pttstar/internal/core"
)

type constStream struct {
	value  int16
	mu     sync.Mutex
	closed bool
}

func (s *constStream) Snapshot(buf []int16) int {
	for i := range buf {
		v := s.value
		if i%2 == 1 {
			v = -v
		}
		buf[i] = v
	}
	return len(buf)
}

func (s *constStream) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *constStream) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

type fakeSource struct {
	stream *constStream
	err    error
	opens  int
}

func (f *fakeSource) OpenPCM(context.Context) (core.PCMStream, error) {
	f.opens++
	if f.err != nil {
		return nil, f.err
	}
	return f.stream, nil
}

func TestLevel(t *testing.T) {
	assert.Zero(t, Level(nil))
	assert.Zero(t, Level(make([]int16, 64)))

	sine := make([]int16, 4800)
	for i := range sine {
		sine[i] = int16(16384 * math.Sin(2*math.Pi*float64(i)/48))
	}
	assert.Equal(t, 50, Level(sine))

	loud := []int16{math.MaxInt16, math.MinInt16, math.MaxInt16, math.MinInt16}
	assert.Equal(t, 100, Level(loud), "clamped")
}

func TestEnableSamplesAndDisableReleases(t *testing.T) {
	src := &fakeSource{stream: &constStream{value: 8192}}
	levels := make(chan int, 64)
	m := New(src, WithInterval(2*time.Millisecond), WithWindow(256), WithListener(func(l int) {
		select {
		case levels <- l:
		default:
		}
	}))

	require.NoError(t, m.Enable(context.Background()))
	require.NoError(t, m.Enable(context.Background()), "enable is idempotent")
	assert.Equal(t, 1, src.opens)
	assert.True(t, m.Active())

	select {
	case l := <-levels:
		assert.Equal(t, 35, l)
	case <-time.After(time.Second):
		t.Fatal("no reading")
	}
	assert.Equal(t, 35, m.Level())

	m.Disable()
	assert.False(t, m.Active())
	assert.True(t, src.stream.isClosed())
	assert.Zero(t, m.Level())
	m.Disable()
}

func TestCancelledContextReleasesStream(t *testing.T) {
	src := &fakeSource{stream: &constStream{value: 100}}
	m := New(src, WithInterval(time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, m.Enable(ctx))
	cancel()

	require.Eventually(t, func() bool { return !m.Active() }, time.Second, time.Millisecond)
	assert.True(t, src.stream.isClosed())

	require.NoError(t, m.Enable(context.Background()), "can be enabled again")
	m.Disable()
}

func TestEnableFailure(t *testing.T) {
	m := New(&fakeSource{err: errors.New("no device")})
	assert.Error(t, m.Enable(context.Background()))
	assert.False(t, m.Active())
}
