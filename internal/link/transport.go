package link

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// Conn is the subset of *websocket.Conn the client uses.
type Conn interface {
	ReadMessage() (messageType int, data []byte, err error)
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Transport opens connections to the gateway.
type Transport interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// WSTransport dials with gorilla/websocket.
type WSTransport struct {
	Dialer *websocket.Dialer
	Header http.Header
}

// NewWSTransport returns a transport whose handshake is bounded by
// handshakeTimeout.
func NewWSTransport(handshakeTimeout time.Duration) *WSTransport {
	return &WSTransport{
		Dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: handshakeTimeout,
		},
	}
}

func (t *WSTransport) Dial(ctx context.Context, url string) (Conn, error) {
	dialer := t.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	conn, resp, err := dialer.DialContext(ctx, url, t.Header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: status %d: %w", url, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return conn, nil
}

// closeNormally sends a normal close frame and closes the connection.
func closeNormally(conn Conn, timeout time.Duration, reason string) error {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
	werr := conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(timeout))
	cerr := conn.Close()
	if werr != nil && werr != websocket.ErrCloseSent {
		return werr
	}
	return cerr
}
