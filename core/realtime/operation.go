package realtime

import "github.com/koscakluka/ema-realtime/core/realtime/protocol"

// Operation is the part of a session that differs between recognition and
// synthesis: the configuration it sends, the domain events it consumes and
// the result it produces.
type Operation[R any] interface {
	// Name identifies the operation in logs, traces and metrics.
	Name() string
	// SessionUpdate is sent as soon as the socket opens.
	SessionUpdate() protocol.ClientEvent
	// HandleEvent consumes a domain event received while the session is
	// running or finishing. It reports done when the event ends the
	// operation, after which the session finishes itself. A non nil error
	// fails the session.
	HandleEvent(ev protocol.Event) (done bool, err error)
	// Result returns what has been accumulated so far. It is called once,
	// when the session resolves successfully, and must be safe to call
	// concurrently with HandleEvent.
	Result() R
}
