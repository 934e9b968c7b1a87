package session

import (
	"context"
	"errors"
	"fmt"
)

// Session termination kinds. Relay.Run wraps the error that ended a call
// in one of these.
var (
	ErrTransport = errors.New("transport error")
	ErrDecode    = errors.New("decode error")
)

var (
	ErrStreamIDAlreadySet = errors.New("stream sid already set")
	ErrMaxSessions        = errors.New("maximum sessions reached")
	ErrSessionClosed      = errors.New("session closed")

	// errStreamStopped ends a call normally after Twilio's stop event.
	errStreamStopped = errors.New("stream stopped")
)

func transportError(leg string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrTransport, leg, err)
}

func decodeError(leg string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrDecode, leg, err)
}

// EndReason names how a session ended, for logs and metrics.
func EndReason(err error) string {
	switch {
	case err == nil, errors.Is(err, errStreamStopped):
		return "stopped"
	case errors.Is(err, ErrDecode):
		return "decode"
	case errors.Is(err, ErrTransport):
		return "transport"
	case errors.Is(err, ErrSessionClosed), errors.Is(err, context.Canceled):
		return "shutdown"
	default:
		return "error"
	}
}
