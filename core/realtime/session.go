package realtime

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/koscakluka/ema-realtime/core/realtime/endpoint"
	"github.com/koscakluka/ema-realtime/core/realtime/protocol"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Session drives a single realtime operation over one socket.
//
// A session is connected at most once. Server events are processed by a
// single read goroutine in arrival order and the session resolves exactly
// once, with the operation's result or with the first failure observed.
type Session[R any] struct {
	endpoint endpoint.Endpoint
	op       Operation[R]
	options  SessionOptions

	mu          sync.Mutex
	state       State
	sessionID   string
	conn        Conn
	used        bool
	waiting     bool
	cancelDial  context.CancelFunc
	readyTimer  *time.Timer
	finishTimer *time.Timer

	writeMu sync.Mutex

	ready  *pending[struct{}]
	result *pending[R]
}

func NewSession[R any](ep endpoint.Endpoint, op Operation[R], opts ...Option) *Session[R] {
	options := defaultSessionOptions()
	for _, opt := range opts {
		opt(&options)
	}

	return &Session[R]{
		endpoint: ep,
		op:       op,
		options:  options,
		ready:    newPending[struct{}](),
		result:   newPending[R](),
	}
}

func (s *Session[R]) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SessionID returns the id assigned by the server, or an empty string before
// session.created has been received.
func (s *Session[R]) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

// Err returns the error the session failed with, or nil while it is pending
// or if it succeeded.
func (s *Session[R]) Err() error {
	if !s.result.isResolved() {
		return nil
	}
	_, err := s.result.wait(context.Background())
	return err
}

// Connect opens the socket, sends the session configuration and returns once
// the server has created the session.
func (s *Session[R]) Connect(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "connect realtime session",
		trace.WithAttributes(attribute.String("realtime.operation", s.op.Name())))
	defer span.End()

	if err := s.connect(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	span.SetAttributes(attribute.String("realtime.session_id", s.SessionID()))
	return nil
}

func (s *Session[R]) connect(ctx context.Context) error {
	s.mu.Lock()
	if s.used || s.state != StateDisconnected {
		state := s.state
		s.mu.Unlock()
		return &InvalidStateError{Attempted: "connect", Current: state}
	}
	s.used = true
	dialCtx, cancelDial := context.WithTimeout(ctx, s.options.ConnectTimeout)
	s.cancelDial = cancelDial
	s.setStateLocked(StateConnecting)
	s.mu.Unlock()

	conn, err := s.options.Transport.Dial(dialCtx, s.endpoint.URL, s.endpoint.Header)
	timedOut := errors.Is(dialCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil
	cancelDial()

	s.mu.Lock()
	s.cancelDial = nil
	if s.state != StateConnecting {
		// Disconnect won the race against the dial
		s.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
		return ErrCancelled
	}
	if err != nil {
		switch {
		case timedOut:
			err = ErrConnectionTimeout
		case ctx.Err() != nil:
			err = ctx.Err()
		default:
			err = &TransportError{Cause: err}
		}
		s.failLocked(err)
		s.mu.Unlock()
		return err
	}
	s.conn = conn
	s.setStateLocked(StateConnected)
	s.readyTimer = time.AfterFunc(s.options.ReadyTimeout, func() { s.onReadyTimeout(conn) })
	s.mu.Unlock()

	go s.readLoop(conn)

	if err := s.write(conn, s.op.SessionUpdate()); err != nil {
		s.fail(conn, &TransportError{Cause: err})
	}

	if _, err := s.ready.wait(ctx); err != nil {
		if ctx.Err() != nil && !s.ready.isResolved() {
			s.Disconnect()
			return ctx.Err()
		}
		return err
	}
	return nil
}

// Send writes a client event. It is only legal while the session is running.
func (s *Session[R]) Send(ev protocol.ClientEvent) error {
	s.mu.Lock()
	if s.state != StateRunning {
		state := s.state
		s.mu.Unlock()
		return &InvalidStateError{Attempted: "send " + string(protocol.TypeOf(ev)), Current: state}
	}
	conn := s.conn
	s.mu.Unlock()

	if err := s.write(conn, ev); err != nil {
		transportErr := &TransportError{Cause: err}
		s.fail(conn, transportErr)
		return transportErr
	}
	return nil
}

// Commit writes a commit event. Outside of the running state the commit is
// dropped with a warning instead of failing.
func (s *Session[R]) Commit(ev protocol.ClientEvent) error {
	if state := s.State(); state != StateRunning {
		s.options.Logger.Warn("ignoring commit outside of a running session",
			"operation", s.op.Name(), "type", protocol.TypeOf(ev), "state", state.String())
		return nil
	}
	if err := s.Send(ev); err != nil {
		var stateErr *InvalidStateError
		if errors.As(err, &stateErr) {
			s.options.Logger.Warn("ignoring commit outside of a running session",
				"operation", s.op.Name(), "type", protocol.TypeOf(ev), "state", stateErr.Current.String())
			return nil
		}
		return err
	}
	return nil
}

// Finish tells the server no more input follows and waits for the result.
// If the session already started finishing on its own, or has resolved,
// Finish only waits for or returns that resolution.
func (s *Session[R]) Finish(ctx context.Context) (R, error) {
	ctx, span := tracer.Start(ctx, "finish realtime session",
		trace.WithAttributes(attribute.String("realtime.operation", s.op.Name())))
	defer span.End()

	var zero R
	s.mu.Lock()
	if s.waiting {
		state := s.state
		s.mu.Unlock()
		return zero, s.recordSpanError(span, &InvalidStateError{Attempted: "finish", Current: state})
	}
	var conn Conn
	var started bool
	switch {
	case s.result.isResolved():
	case s.state == StateRunning:
		conn = s.conn
		started = s.beginFinishLocked(conn)
	case s.state == StateFinishing, s.state == StateClosed:
	default:
		state := s.state
		s.mu.Unlock()
		return zero, s.recordSpanError(span, &InvalidStateError{Attempted: "finish", Current: state})
	}
	s.waiting = true
	s.mu.Unlock()
	defer s.stopWaiting()

	if started {
		if err := s.write(conn, protocol.FinishSession()); err != nil {
			s.fail(conn, &TransportError{Cause: err})
		}
	}

	value, err := s.await(ctx)
	return value, s.recordSpanError(span, err)
}

// Wait waits for the session to resolve without finishing it. It is used by
// operations that finish on their own once the server reports completion.
// Once the session has resolved, Wait returns that resolution in any state.
func (s *Session[R]) Wait(ctx context.Context) (R, error) {
	var zero R
	s.mu.Lock()
	if s.waiting {
		state := s.state
		s.mu.Unlock()
		return zero, &InvalidStateError{Attempted: "wait", Current: state}
	}
	switch {
	case s.result.isResolved():
	case s.state == StateRunning, s.state == StateFinishing, s.state == StateClosed:
	default:
		state := s.state
		s.mu.Unlock()
		return zero, &InvalidStateError{Attempted: "wait", Current: state}
	}
	s.waiting = true
	s.mu.Unlock()
	defer s.stopWaiting()

	return s.await(ctx)
}

// Disconnect force closes the socket and returns the session to the
// disconnected state. A still pending result is rejected with ErrCancelled.
// It is safe to call at any time and more than once.
func (s *Session[R]) Disconnect() {
	s.mu.Lock()
	if s.cancelDial != nil {
		s.cancelDial()
	}
	closing := s.detachLocked()
	s.setStateLocked(StateDisconnected)
	if s.used {
		var zero R
		s.resolveLocked(zero, ErrCancelled)
	}
	s.mu.Unlock()

	closeConn(closing)
}

func (s *Session[R]) await(ctx context.Context) (R, error) {
	value, err := s.result.wait(ctx)
	if err != nil && ctx.Err() != nil && !s.result.isResolved() {
		s.Disconnect()
		return value, ctx.Err()
	}
	return value, err
}

func (s *Session[R]) stopWaiting() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.waiting = false
}

func (s *Session[R]) readLoop(conn Conn) {
	for {
		frame, err := conn.ReadMessage()
		if err != nil {
			s.handleReadError(conn, err)
			return
		}

		ev, err := protocol.Decode(frame)
		if err != nil {
			s.options.Logger.Warn("skipping malformed realtime frame",
				"operation", s.op.Name(), "error", err)
			continue
		}
		s.dispatch(conn, ev)
	}
}

func (s *Session[R]) handleReadError(conn Conn, err error) {
	s.mu.Lock()
	if s.conn != conn {
		s.mu.Unlock()
		return
	}
	var closing Conn
	var closeErr *CloseError
	switch {
	case errors.As(err, &closeErr) && s.state == StateFinishing:
		closing = s.completeLocked("socket closed while finishing")
	case errors.As(err, &closeErr):
		closing = s.failLocked(prematureClose(closeErr))
	default:
		closing = s.failLocked(&TransportError{Cause: err})
	}
	s.mu.Unlock()

	closeConn(closing)
}

func (s *Session[R]) dispatch(conn Conn, ev protocol.Event) {
	s.mu.Lock()
	if s.conn != conn || s.result.isResolved() {
		s.mu.Unlock()
		return
	}
	state := s.state
	s.mu.Unlock()

	if s.options.EventCallback != nil {
		s.options.EventCallback(ev)
	}

	switch e := ev.(type) {
	case *protocol.SessionCreated:
		s.onSessionCreated(conn, e)
	case *protocol.SessionUpdated:
		s.options.Logger.Debug("realtime session updated", "operation", s.op.Name(), "session_id", e.Session.ID)
	case *protocol.SessionFinished:
		s.withConn(conn, func() Conn { return s.completeLocked("session finished") })
	case *protocol.Error:
		s.fail(conn, &ServerError{Code: e.Error.Code, Message: e.Error.Message})
	case *protocol.Unknown:
		s.options.Logger.Debug("ignoring unknown realtime event", "operation", s.op.Name(), "type", e.Type())
	default:
		if state != StateRunning && state != StateFinishing {
			s.options.Logger.Debug("ignoring realtime event outside of a running session",
				"operation", s.op.Name(), "type", ev.Type(), "state", state.String())
			return
		}
		done, err := s.op.HandleEvent(ev)
		if err != nil {
			s.fail(conn, err)
			return
		}
		if done {
			s.finishOnTerminalEvent(conn, ev.Type())
		}
	}
}

func (s *Session[R]) onSessionCreated(conn Conn, ev *protocol.SessionCreated) {
	s.mu.Lock()
	if s.conn != conn {
		s.mu.Unlock()
		return
	}
	if s.state != StateConnected {
		s.mu.Unlock()
		s.options.Logger.Debug("ignoring repeated session.created", "operation", s.op.Name(), "session_id", ev.Session.ID)
		return
	}
	if s.sessionID == "" {
		s.sessionID = ev.Session.ID
	}
	s.stopReadyTimerLocked()
	s.setStateLocked(StateRunning)
	s.mu.Unlock()

	s.ready.resolve(struct{}{}, nil)
}

func (s *Session[R]) onReadyTimeout(conn Conn) {
	s.mu.Lock()
	if s.conn != conn || s.state != StateConnected {
		s.mu.Unlock()
		return
	}
	s.options.Logger.Warn("realtime session was not created in time",
		"operation", s.op.Name(), "timeout", s.options.ReadyTimeout)
	closing := s.failLocked(ErrConnectionTimeout)
	s.mu.Unlock()

	closeConn(closing)
}

func (s *Session[R]) stopReadyTimerLocked() {
	if s.readyTimer != nil {
		s.readyTimer.Stop()
		s.readyTimer = nil
	}
}

func (s *Session[R]) finishOnTerminalEvent(conn Conn, eventType protocol.EventType) {
	s.mu.Lock()
	if s.conn != conn {
		s.mu.Unlock()
		return
	}
	started := s.beginFinishLocked(conn)
	s.mu.Unlock()

	if !started {
		return
	}
	s.options.Logger.Debug("finishing realtime session after terminal event",
		"operation", s.op.Name(), "type", eventType)
	if err := s.write(conn, protocol.FinishSession()); err != nil {
		s.fail(conn, &TransportError{Cause: err})
	}
}

func (s *Session[R]) beginFinishLocked(conn Conn) bool {
	if s.state != StateRunning {
		return false
	}
	s.setStateLocked(StateFinishing)
	s.finishTimer = time.AfterFunc(s.options.FinishTimeout, func() { s.onFinishTimeout(conn) })
	return true
}

func (s *Session[R]) onFinishTimeout(conn Conn) {
	s.mu.Lock()
	if s.conn != conn || s.state != StateFinishing {
		s.mu.Unlock()
		return
	}
	s.options.Logger.Warn("realtime session finish was not confirmed in time, resolving with partial result",
		"operation", s.op.Name(), "session_id", s.sessionID, "timeout", s.options.FinishTimeout)
	closing := s.completeLocked("finish timeout")
	s.mu.Unlock()

	closeConn(closing)
}

// fail resolves the session with err unless conn is no longer the session's
// socket.
func (s *Session[R]) fail(conn Conn, err error) {
	s.withConn(conn, func() Conn { return s.failLocked(err) })
}

func (s *Session[R]) withConn(conn Conn, fn func() Conn) {
	s.mu.Lock()
	if s.conn != conn {
		s.mu.Unlock()
		return
	}
	closing := fn()
	s.mu.Unlock()

	closeConn(closing)
}

// failLocked resolves the session with err and returns the socket the caller
// must close once the lock is released.
func (s *Session[R]) failLocked(err error) Conn {
	if s.result.isResolved() {
		return nil
	}
	switch s.state {
	case StateConnecting, StateConnected:
		s.setStateLocked(StateDisconnected)
	case StateRunning, StateFinishing:
		s.setStateLocked(StateClosed)
	default:
		return nil
	}

	var zero R
	closing := s.detachLocked()
	s.resolveLocked(zero, err)
	return closing
}

// completeLocked resolves the session with the operation's result. A running
// session passes through finishing so that closed is only ever reached from
// finishing on success.
func (s *Session[R]) completeLocked(reason string) Conn {
	if s.result.isResolved() {
		return nil
	}
	if s.state == StateRunning {
		s.setStateLocked(StateFinishing)
	}
	if s.state != StateFinishing {
		return nil
	}
	s.setStateLocked(StateClosed)

	closing := s.detachLocked()
	s.options.Logger.Debug("realtime session completed",
		"operation", s.op.Name(), "session_id", s.sessionID, "reason", reason)
	s.resolveLocked(s.op.Result(), nil)
	return closing
}

func (s *Session[R]) detachLocked() Conn {
	s.stopReadyTimerLocked()
	if s.finishTimer != nil {
		s.finishTimer.Stop()
		s.finishTimer = nil
	}
	conn := s.conn
	s.conn = nil
	return conn
}

func (s *Session[R]) resolveLocked(value R, err error) {
	if !s.result.resolve(value, err) {
		return
	}
	if err != nil {
		s.ready.resolve(struct{}{}, err)
		s.options.Logger.Debug("realtime session failed",
			"operation", s.op.Name(), "session_id", s.sessionID, "error", err)
	}
	sessionOutcomes.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("operation", s.op.Name()),
		attribute.String("outcome", Outcome(err)),
	))
}

func (s *Session[R]) setStateLocked(next State) {
	prev := s.state
	if prev == next {
		return
	}
	if !CanTransition(prev, next) {
		s.options.Logger.Error("illegal realtime state transition",
			"operation", s.op.Name(), "from", prev.String(), "to", next.String())
	}
	s.state = next
	if s.options.StateCallback != nil {
		s.options.StateCallback(prev, next)
	}
}

func (s *Session[R]) write(conn Conn, ev protocol.ClientEvent) error {
	data, err := protocol.Encode(ev)
	if err != nil {
		return err
	}
	if conn == nil {
		return fmt.Errorf("connection closed")
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return conn.WriteMessage(data)
}

func (s *Session[R]) recordSpanError(span trace.Span, err error) error {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func closeConn(conn Conn) {
	if conn != nil {
		_ = conn.Close() // Nothing left to report to once the session resolved
	}
}

// Outcome classifies a session resolution for metrics and logs.
func Outcome(err error) string {
	var serverErr *ServerError
	var transportErr *TransportError
	var stateErr *InvalidStateError
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrCancelled), errors.Is(err, context.Canceled):
		return "cancelled"
	case errors.Is(err, ErrConnectionTimeout), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, ErrPrematureClose):
		return "premature_close"
	case errors.As(err, &serverErr):
		return "server_error"
	case errors.As(err, &transportErr):
		return "transport_error"
	case errors.As(err, &stateErr):
		return "invalid_state"
	default:
		return "error"
	}
}
