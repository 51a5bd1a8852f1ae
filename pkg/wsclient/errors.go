package wsclient

import "errors"

var (
	// ErrConnectionClosed is returned when the socket for a pending
	// request/response call or subscribe handshake closes before a
	// matching frame arrives (spec §4.6).
	ErrConnectionClosed = errors.New("wsclient: connection closed")

	// ErrTimeout is returned when a caller-supplied context expires
	// while a request/response call is still pending (spec §5:
	// "on expiry the pending wait fails with timeout and the socket is
	// closed").
	ErrTimeout = errors.New("wsclient: timed out waiting for response")
)
