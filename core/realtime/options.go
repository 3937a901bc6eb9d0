package realtime

import (
	"log/slog"
	"time"

	"github.com/koscakluka/ema-realtime/core/realtime/protocol"
)

const (
	DefaultConnectTimeout = 30 * time.Second
	DefaultReadyTimeout   = 10 * time.Second
	DefaultFinishTimeout  = 10 * time.Second
)

type SessionOptions struct {
	Transport Transport
	// ConnectTimeout bounds the time between Connect and the socket opening.
	// It only covers the dial.
	ConnectTimeout time.Duration
	// ReadyTimeout bounds the wait for session.created once the socket is
	// open. Connect fails with ErrConnectionTimeout when it fires.
	ReadyTimeout time.Duration
	// FinishTimeout bounds the wait for session.finished once the session is
	// finishing. When it fires the session resolves with the partial result.
	FinishTimeout time.Duration
	Logger        *slog.Logger

	// EventCallback is called with every decoded server event, in arrival
	// order, before the session acts on it.
	EventCallback func(protocol.Event)
	// StateCallback is called on every state transition while the session
	// holds its lock. It must not call back into the session.
	StateCallback func(from, to State)
}

type Option func(*SessionOptions)

func defaultSessionOptions() SessionOptions {
	return SessionOptions{
		Transport:      &WebsocketTransport{},
		ConnectTimeout: DefaultConnectTimeout,
		ReadyTimeout:   DefaultReadyTimeout,
		FinishTimeout:  DefaultFinishTimeout,
		Logger:         logger,
	}
}

func WithTransport(transport Transport) Option {
	return func(o *SessionOptions) {
		if transport != nil {
			o.Transport = transport
		}
	}
}

func WithConnectTimeout(timeout time.Duration) Option {
	return func(o *SessionOptions) {
		if timeout > 0 {
			o.ConnectTimeout = timeout
		}
	}
}

func WithReadyTimeout(timeout time.Duration) Option {
	return func(o *SessionOptions) {
		if timeout > 0 {
			o.ReadyTimeout = timeout
		}
	}
}

func WithFinishTimeout(timeout time.Duration) Option {
	return func(o *SessionOptions) {
		if timeout > 0 {
			o.FinishTimeout = timeout
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(o *SessionOptions) {
		if l != nil {
			o.Logger = l
		}
	}
}

func WithEventCallback(callback func(protocol.Event)) Option {
	return func(o *SessionOptions) { o.EventCallback = callback }
}

func WithStateCallback(callback func(from, to State)) Option {
	return func(o *SessionOptions) { o.StateCallback = callback }
}
