package realtime

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Transport opens session sockets. A successful Dial is the socket's open
// event.
type Transport interface {
	Dial(ctx context.Context, url string, header http.Header) (Conn, error)
}

// Conn is a duplex text frame socket. ReadMessage returns a *CloseError once
// the peer closes the socket; any other error is a transport failure.
// WriteMessage may be called concurrently with ReadMessage but not with
// itself.
type Conn interface {
	ReadMessage() ([]byte, error)
	WriteMessage(data []byte) error
	Close() error
}

const closeWriteTimeout = time.Second

// WebsocketTransport dials sockets with gorilla/websocket.
type WebsocketTransport struct {
	Dialer *websocket.Dialer
}

func (t *WebsocketTransport) Dial(ctx context.Context, url string, header http.Header) (Conn, error) {
	dialer := t.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	conn, resp, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("failed to open websocket (status %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("failed to open websocket: %w", err)
	}
	return &websocketConn{ws: conn}, nil
}

type websocketConn struct {
	ws *websocket.Conn

	closeOnce sync.Once
	closeErr  error
}

func (c *websocketConn) ReadMessage() ([]byte, error) {
	_, data, err := c.ws.ReadMessage()
	if err != nil {
		var closeErr *websocket.CloseError
		if errors.As(err, &closeErr) {
			return nil, &CloseError{Code: closeErr.Code, Reason: closeErr.Text}
		}
		return nil, err
	}
	return data, nil
}

func (c *websocketConn) WriteMessage(data []byte) error {
	if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("failed to write to websocket: %w", err)
	}
	return nil
}

// Close sends a normal closure frame and closes the underlying connection
// regardless of whether the frame could be sent.
func (c *websocketConn) Close() error {
	c.closeOnce.Do(func() {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		writeErr := c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeWriteTimeout))
		if errors.Is(writeErr, websocket.ErrCloseSent) {
			writeErr = nil
		}
		if err := c.ws.Close(); err != nil {
			c.closeErr = fmt.Errorf("failed to close websocket: %w", errors.Join(writeErr, err))
		}
	})
	return c.closeErr
}
