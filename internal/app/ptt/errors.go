package ptt

import "errors"

var (
	ErrNotConnected        = errors.New("not connected")
	ErrAlreadyTransmitting = errors.New("already transmitting")
	ErrAlreadyJoined       = errors.New("session already active")
	ErrCapture             = errors.New("capture device unavailable")
	ErrClosed              = errors.New("session manager closed")
	ErrNoConnection        = errors.New("no connection configuration")
)
