package link

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"

	"github.com/gorilla/websocket"
)

var (
	// ErrNotConnected is logged when a send is attempted outside Connected.
	// Callers only ever see it as a false return from Send.
	ErrNotConnected = errors.New("link: not connected")

	// ErrReconnectExhausted is terminal. The client stays Disconnected until
	// Connect is called again.
	ErrReconnectExhausted = errors.New("link: reconnect attempts exhausted")
)

// TransportError reports a dial, read or write failure, or a close frame
// from the peer. Code is the WebSocket close code; failures that never saw a
// close frame are reported as websocket.CloseAbnormalClosure.
type TransportError struct {
	Op   string
	Code int
	Err  error
}

func (e *TransportError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("link: %s: close %d", e.Op, e.Code)
	}
	return fmt.Sprintf("link: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Normal reports whether the peer closed the connection on purpose.
func (e *TransportError) Normal() bool {
	return e.Code == websocket.CloseNormalClosure
}

// Temporary reports whether the underlying failure looks transient. It only
// affects logging; reconnect scheduling is driven by the close code.
func (e *TransportError) Temporary() bool {
	err := e.Err
	if err == nil {
		return !e.Normal()
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return !dnsErr.IsNotFound
	}

	return errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) ||
		websocket.IsCloseError(err, websocket.CloseAbnormalClosure, websocket.CloseGoingAway)
}

// RemoteError is an error frame sent by the gateway.
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string {
	return "link: remote error: " + e.Message
}

// closeCode extracts the close code from a read error. Anything other than a
// close frame is treated as an abnormal closure.
func closeCode(err error) int {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return websocket.CloseAbnormalClosure
}

var errNotObject = errors.New("frame is not a json object")
