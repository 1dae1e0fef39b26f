package signal

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/dkeye/pttstar/internal/core"
	"github.com/dkeye/pttstar/internal/core/mocks"
	"github.com/dkeye/pttstar/internal/domain"
)

const testRoom = domain.RoomKey("iax:example.com:4569")

func stored(t *testing.T, ts int64, msg core.SignalMessage) core.StoredSignal {
	t.Helper()
	b, err := json.Marshal(msg)
	require.NoError(t, err)
	return core.StoredSignal{Content: string(b), Timestamp: ts}
}

type recorder struct {
	mu   sync.Mutex
	msgs []core.SignalMessage
}

func (r *recorder) handle(m core.SignalMessage) {
	r.mu.Lock()
	r.msgs = append(r.msgs, m)
	r.mu.Unlock()
}

func (r *recorder) timestamps() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]int64, 0, len(r.msgs))
	for _, m := range r.msgs {
		out = append(out, m.Timestamp)
	}
	return out
}

func TestPollOnceMarkIsMaxOfBatch(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockSignalStore(ctrl)
	p := NewPollingTransport(store, testRoom, "me", time.Hour)
	rec := &recorder{}
	p.OnMessage(rec.handle)

	gomock.InOrder(
		store.EXPECT().FetchSince(gomock.Any(), testRoom, int64(0)).Return([]core.StoredSignal{
			stored(t, 5, core.SignalMessage{Kind: core.SignalOffer, SDP: "v=0", From: "peer"}),
			stored(t, 3, core.SignalMessage{Kind: core.SignalCandidate, Candidate: &webrtc.ICECandidateInit{Candidate: "c1"}, From: "peer"}),
			stored(t, 9, core.SignalMessage{Kind: core.SignalCandidate, Candidate: &webrtc.ICECandidateInit{Candidate: "c2"}, From: "peer"}),
		}, nil),
		store.EXPECT().FetchSince(gomock.Any(), testRoom, int64(9)).Return(nil, nil),
	)

	require.NoError(t, p.pollOnce(context.Background()))
	assert.Equal(t, []int64{5, 3, 9}, rec.timestamps(), "processed in the order received")
	assert.Equal(t, int64(9), p.Mark())

	require.NoError(t, p.pollOnce(context.Background()))
	assert.Equal(t, int64(9), p.Mark())
}

func TestPollOnceFailureLeavesMark(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockSignalStore(ctrl)
	p := NewPollingTransport(store, testRoom, "me", time.Hour)
	p.OnMessage(func(core.SignalMessage) {})

	boom := errors.New("store unavailable")
	gomock.InOrder(
		store.EXPECT().FetchSince(gomock.Any(), testRoom, int64(0)).Return([]core.StoredSignal{
			stored(t, 4, core.SignalMessage{Kind: core.SignalAnswer, SDP: "v=0", From: "peer"}),
		}, nil),
		store.EXPECT().FetchSince(gomock.Any(), testRoom, int64(4)).Return(nil, boom),
		store.EXPECT().FetchSince(gomock.Any(), testRoom, int64(4)).Return(nil, nil),
	)

	require.NoError(t, p.pollOnce(context.Background()))
	assert.ErrorIs(t, p.pollOnce(context.Background()), boom)
	assert.Equal(t, int64(4), p.Mark())
	require.NoError(t, p.pollOnce(context.Background()))
}

func TestPollOnceSkipsDuplicatesEchoesAndGarbage(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockSignalStore(ctrl)
	p := NewPollingTransport(store, testRoom, "me", time.Hour)
	rec := &recorder{}
	p.OnMessage(rec.handle)

	gomock.InOrder(
		store.EXPECT().FetchSince(gomock.Any(), testRoom, int64(0)).Return([]core.StoredSignal{
			stored(t, 10, core.SignalMessage{Kind: core.SignalOffer, SDP: "v=0", From: "peer"}),
		}, nil),
		store.EXPECT().FetchSince(gomock.Any(), testRoom, int64(10)).Return([]core.StoredSignal{
			stored(t, 10, core.SignalMessage{Kind: core.SignalOffer, SDP: "v=0", From: "peer"}),
			stored(t, 12, core.SignalMessage{Kind: core.SignalOffer, SDP: "v=0", From: "me"}),
			{Content: "{not json", Timestamp: 11},
		}, nil),
	)

	require.NoError(t, p.pollOnce(context.Background()))
	require.NoError(t, p.pollOnce(context.Background()))
	assert.Equal(t, []int64{10}, rec.timestamps())
	assert.Equal(t, int64(12), p.Mark())
}

func TestPollLoopKeepsTickingAfterFailures(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockSignalStore(ctrl)
	p := NewPollingTransport(store, testRoom, "me", 5*time.Millisecond)

	var calls atomic.Int32
	store.EXPECT().FetchSince(gomock.Any(), testRoom, int64(0)).DoAndReturn(
		func(context.Context, domain.RoomKey, int64) ([]core.StoredSignal, error) {
			calls.Add(1)
			return nil, errors.New("timeout")
		}).AnyTimes()

	require.NoError(t, p.Open(context.Background()))
	require.Eventually(t, func() bool { return calls.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, int64(0), p.Mark())

	require.NoError(t, p.Close())
	after := calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, calls.Load(), "no fetches after Close")
}

func TestSendPostsEnvelopesInOrder(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockSignalStore(ctrl)
	p := NewPollingTransport(store, testRoom, "me", time.Hour)

	var mu sync.Mutex
	var posted []core.SignalMessage
	store.EXPECT().PostSignal(gomock.Any(), testRoom, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ domain.RoomKey, content string) error {
			var m core.SignalMessage
			if err := json.Unmarshal([]byte(content), &m); err != nil {
				return err
			}
			mu.Lock()
			posted = append(posted, m)
			mu.Unlock()
			return errors.New("ignored by the transport")
		}).Times(2)

	require.NoError(t, p.Open(context.Background()))
	require.NoError(t, p.Send(core.SignalMessage{Kind: core.SignalOffer, SDP: "v=0"}))
	require.NoError(t, p.Send(core.SignalMessage{Kind: core.SignalCandidate, Candidate: &webrtc.ICECandidateInit{Candidate: "c"}}))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(posted) == 2
	}, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, p.Close())

	assert.Equal(t, core.SignalOffer, posted[0].Kind)
	assert.Equal(t, "me", posted[0].From)
	assert.Equal(t, core.SignalCandidate, posted[1].Kind)
	assert.Equal(t, "c", posted[1].Candidate.Candidate)
	assert.Equal(t, int64(0), p.Mark(), "sending does not move the mark")

	assert.NoError(t, p.Send(core.SignalMessage{Kind: core.SignalOffer}), "send after close is dropped")
	assert.ErrorIs(t, p.Open(context.Background()), ErrClosed)
}
