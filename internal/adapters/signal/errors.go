package signal

import "errors"

var (
	ErrClosed            = errors.New("transport closed")
	ErrBackpressure      = errors.New("backpressure")
	ErrGatewayOpen       = errors.New("gateway open failed")
	ErrInvalidGatewayURL = errors.New("invalid gateway url")
)
