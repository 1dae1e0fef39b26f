package core

//go:generate mockgen -source=remote_iface.go -destination=mocks/mock_remote.go -package=mocks

import (
	"context"

	"github.com/dkeye/pttstar/internal/domain"
)

// StoredSignal is a signaling envelope as kept by the remote store.
type StoredSignal struct {
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
}

// SignalStore is the store-and-forward backend of the polling transport.
type SignalStore interface {
	PostSignal(ctx context.Context, room domain.RoomKey, content string) error
	// FetchSince returns the signals of room newer than ts, oldest first.
	FetchSince(ctx context.Context, room domain.RoomKey, ts int64) ([]StoredSignal, error)
	// Head returns the newest timestamp stored for room, zero when empty.
	Head(ctx context.Context, room domain.RoomKey) (int64, error)
}

// ActivityReporter publishes who is transmitting where. Best effort.
type ActivityReporter interface {
	ReportActivity(ctx context.Context, a domain.Activity) error
}
