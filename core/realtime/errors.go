package realtime

import (
	"errors"
	"fmt"
)

var (
	ErrConnectionTimeout = errors.New("realtime: connection timed out")
	ErrPrematureClose    = errors.New("realtime: connection closed before the session completed")
	ErrCancelled         = errors.New("realtime: session cancelled")
)

// TransportError wraps a socket level failure.
type TransportError struct {
	Cause error
}

func (e *TransportError) Error() string { return "realtime: transport error: " + e.Cause.Error() }
func (e *TransportError) Unwrap() error { return e.Cause }

// ServerError is a failure reported by the server through an error event.
type ServerError struct {
	Code    string
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("realtime: server error %s: %s", e.Code, e.Message)
}

// InvalidStateError is returned when an operation is attempted in a state
// that does not allow it, including while another caller is already waiting
// on the session.
type InvalidStateError struct {
	Attempted string
	Current   State
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("realtime: cannot %s while session is %s", e.Attempted, e.Current)
}

// CloseError is returned by a Conn when the peer closed the socket.
type CloseError struct {
	Code   int
	Reason string
}

func (e *CloseError) Error() string {
	return fmt.Sprintf("socket closed with code %d: %s", e.Code, e.Reason)
}

func prematureClose(closeErr *CloseError) error {
	return fmt.Errorf("%w (code %d: %s)", ErrPrematureClose, closeErr.Code, closeErr.Reason)
}
