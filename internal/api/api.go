// Package api holds the JSON bodies shared by the hub server and its clients.
package api

import "github.com/dkeye/pttstar/internal/core"

const (
	PathRooms    = "/api/rooms"
	PathActivity = "/api/activity"
	PathSignal   = "/signal"
	PathWSSignal = "/api/ws/signal"
)

type PostSignalRequest struct {
	Content string `json:"content"`
}

type PostSignalResponse struct {
	Timestamp int64 `json:"timestamp"`
}

type SignalsResponse struct {
	Signals []core.StoredSignal `json:"signals"`
}

type HeadResponse struct {
	Timestamp int64 `json:"timestamp"`
}

type RoomSummary struct {
	Room        string `json:"room"`
	SignalCount int    `json:"signal_count"`
	LastSignal  int64  `json:"last_signal"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func SignalsPath(room string) string {
	return PathRooms + "/" + room + "/signals"
}

func HeadPath(room string) string {
	return PathRooms + "/" + room + "/head"
}
