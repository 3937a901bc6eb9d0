// Package realtimetest provides a scripted in-memory transport for testing
// code built on realtime sessions without a network.
package realtimetest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/koscakluka/ema-realtime/core/realtime"
	"github.com/koscakluka/ema-realtime/core/realtime/protocol"
)

// Timeout bounds every wait performed by the helpers in this package.
var Timeout = 2 * time.Second

var ErrClosed = errors.New("realtimetest: connection closed")

type Dial struct {
	URL    string
	Header http.Header
}

// Transport hands every dialed connection to the test as a *Server.
type Transport struct {
	// DialErr, when set, fails every dial.
	DialErr error
	// Block makes Dial wait until its context is done.
	Block bool

	servers chan *Server

	mu    sync.Mutex
	dials []Dial
}

func NewTransport() *Transport {
	return &Transport{servers: make(chan *Server, 8)}
}

func (t *Transport) Dial(ctx context.Context, url string, header http.Header) (realtime.Conn, error) {
	t.mu.Lock()
	t.dials = append(t.dials, Dial{URL: url, Header: header.Clone()})
	t.mu.Unlock()

	if t.Block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if t.DialErr != nil {
		return nil, t.DialErr
	}

	srv := newServer()
	t.servers <- srv
	return srv.conn, nil
}

func (t *Transport) Dials() []Dial {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Dial(nil), t.dials...)
}

// NextServer returns the server side of the next dialed connection.
func (t *Transport) NextServer(tb testing.TB) *Server {
	tb.Helper()
	select {
	case srv := <-t.servers:
		return srv
	case <-time.After(Timeout):
		tb.Fatalf("expected a connection to be dialed")
		return nil
	}
}

type frame struct {
	data []byte
	err  error
}

// Server is the scripted peer of a dialed connection.
type Server struct {
	conn *conn
}

func newServer() *Server {
	return &Server{conn: &conn{
		toClient:   make(chan frame, 64),
		fromClient: make(chan []byte, 1024),
		closed:     make(chan struct{}),
	}}
}

// Next returns the next frame written by the client.
func (s *Server) Next(tb testing.TB) []byte {
	tb.Helper()
	select {
	case data := <-s.conn.fromClient:
		return data
	case <-time.After(Timeout):
		tb.Fatalf("expected the client to send a frame")
		return nil
	}
}

// Expect reads the next client frame, checks its type and returns it decoded
// into a generic map.
func (s *Server) Expect(tb testing.TB, eventType protocol.EventType) map[string]any {
	tb.Helper()
	data := s.Next(tb)
	var msg map[string]any
	if err := json.Unmarshal(data, &msg); err != nil {
		tb.Fatalf("expected client frame to be json, got %q: %v", data, err)
	}
	if msg["type"] != string(eventType) {
		tb.Fatalf("expected client to send %s, got %v", eventType, msg["type"])
	}
	return msg
}

// ExpectNothing fails if the client sends a frame within d.
func (s *Server) ExpectNothing(tb testing.TB, d time.Duration) {
	tb.Helper()
	select {
	case data := <-s.conn.fromClient:
		tb.Fatalf("expected no client frame, got %s", data)
	case <-time.After(d):
	}
}

// Accept consumes the session.update and answers with session.created.
func (s *Server) Accept(tb testing.TB, sessionID string) map[string]any {
	tb.Helper()
	update := s.Expect(tb, protocol.TypeSessionUpdate)
	s.SendJSON(tb, map[string]any{
		"event_id": "event_created",
		"type":     protocol.TypeSessionCreated,
		"session":  map[string]any{"id": sessionID},
	})
	return update
}

func (s *Server) SendJSON(tb testing.TB, v any) {
	tb.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		tb.Fatalf("failed to marshal server event: %v", err)
	}
	s.SendRaw(data)
}

func (s *Server) SendRaw(data []byte) {
	s.push(frame{data: data})
}

// Close closes the socket from the server side with the given close code.
func (s *Server) Close(code int, reason string) {
	s.push(frame{err: &realtime.CloseError{Code: code, Reason: reason}})
}

// Fail breaks the socket with a transport error.
func (s *Server) Fail(err error) {
	s.push(frame{err: err})
}

// Closed is closed once the client closes the connection.
func (s *Server) Closed() <-chan struct{} {
	return s.conn.closed
}

func (s *Server) WaitClosed(tb testing.TB) {
	tb.Helper()
	select {
	case <-s.conn.closed:
	case <-time.After(Timeout):
		tb.Fatalf("expected the client to close the connection")
	}
}

func (s *Server) push(f frame) {
	select {
	case s.conn.toClient <- f:
	case <-s.conn.closed:
	}
}

type conn struct {
	toClient   chan frame
	fromClient chan []byte

	closeOnce sync.Once
	closed    chan struct{}
}

func (c *conn) ReadMessage() ([]byte, error) {
	select {
	case f := <-c.toClient:
		return f.data, f.err
	case <-c.closed:
		return nil, ErrClosed
	}
}

func (c *conn) WriteMessage(data []byte) error {
	select {
	case <-c.closed:
		return ErrClosed
	default:
	}
	select {
	case c.fromClient <- append([]byte(nil), data...):
		return nil
	case <-c.closed:
		return ErrClosed
	}
}

func (c *conn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}
