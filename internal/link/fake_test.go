package link

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/ufogalaxy/devicelink/pkg/protocol"
)

const waitFor = 2 * time.Second
const tick = 5 * time.Millisecond

type inboundFrame struct {
	messageType int
	data        []byte
	err         error
}

// fakeConn is an in-memory Conn. Tests push frames with deliver and read what
// the client wrote with frames.
type fakeConn struct {
	inbound chan inboundFrame
	closed  chan struct{}
	once    sync.Once

	mu        sync.Mutex
	written   [][]byte
	closeCode int
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		inbound: make(chan inboundFrame, 16),
		closed:  make(chan struct{}),
	}
}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case fr := <-f.inbound:
		return fr.messageType, fr.data, fr.err
	case <-f.closed:
		return 0, nil, net.ErrClosed
	}
}

func (f *fakeConn) WriteMessage(messageType int, data []byte) error {
	select {
	case <-f.closed:
		return net.ErrClosed
	default:
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.written = append(f.written, append([]byte(nil), data...))
	return nil
}

func (f *fakeConn) WriteControl(messageType int, data []byte, _ time.Time) error {
	if messageType == websocket.CloseMessage && len(data) >= 2 {
		f.mu.Lock()
		f.closeCode = int(data[0])<<8 | int(data[1])
		f.mu.Unlock()
	}
	return nil
}

func (f *fakeConn) SetWriteDeadline(time.Time) error { return nil }

func (f *fakeConn) Close() error {
	f.once.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeConn) deliverText(s string) {
	f.inbound <- inboundFrame{messageType: websocket.TextMessage, data: []byte(s)}
}

// closeWith simulates the peer closing with code.
func (f *fakeConn) closeWith(code int) {
	f.inbound <- inboundFrame{err: &websocket.CloseError{Code: code}}
}

func (f *fakeConn) frames(t *testing.T) []protocol.WireEnvelope {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]protocol.WireEnvelope, 0, len(f.written))
	for _, data := range f.written {
		var w protocol.WireEnvelope
		require.NoError(t, json.Unmarshal(data, &w))
		out = append(out, w)
	}
	return out
}

func (f *fakeConn) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.written)
}

func (f *fakeConn) sentCloseCode() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closeCode
}

var errDialRefused = errors.New("connection refused")

// fakeTransport hands out fakeConns, or fails while failing is set.
type fakeTransport struct {
	mu      sync.Mutex
	dials   int
	failing bool
	conns   []*fakeConn
}

func (t *fakeTransport) Dial(ctx context.Context, _ string) (Conn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.dials++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if t.failing {
		return nil, errDialRefused
	}
	c := newFakeConn()
	t.conns = append(t.conns, c)
	return c, nil
}

func (t *fakeTransport) setFailing(v bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failing = v
}

func (t *fakeTransport) dialCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dials
}

func (t *fakeTransport) conn(i int) *fakeConn {
	t.mu.Lock()
	defer t.mu.Unlock()
	if i >= len(t.conns) {
		return nil
	}
	return t.conns[i]
}

func (t *fakeTransport) connCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.conns)
}

// fakeTimer never fires on its own; tests fire it explicitly.
type fakeTimer struct {
	mu      sync.Mutex
	delay   time.Duration
	fn      func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// fire runs the callback unless the timer was stopped. It must not be called
// while holding the client lock, which tests never do.
func (t *fakeTimer) fire() bool {
	t.mu.Lock()
	if t.stopped || t.fired {
		t.mu.Unlock()
		return false
	}
	t.fired = true
	t.mu.Unlock()

	t.fn()
	return true
}

type fakeClock struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (c *fakeClock) afterFunc(d time.Duration, f func()) timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{delay: d, fn: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) delays() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]time.Duration, len(c.timers))
	for i, t := range c.timers {
		out[i] = t.delay
	}
	return out
}

func (c *fakeClock) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

func (c *fakeClock) last() *fakeTimer {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.timers) == 0 {
		return nil
	}
	return c.timers[len(c.timers)-1]
}

type commandEvent struct {
	action  string
	payload map[string]any
}

// recorder is a Handler that remembers every event.
type recorder struct {
	mu           sync.Mutex
	connected    int
	disconnected []error
	messages     []string
	errs         []error
	commands     []commandEvent
}

func (r *recorder) OnConnected() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connected++
}

func (r *recorder) OnDisconnected(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.disconnected = append(r.disconnected, err)
}

func (r *recorder) OnMessage(content string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, content)
}

func (r *recorder) OnError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func (r *recorder) OnCommand(action string, payload map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = append(r.commands, commandEvent{action: action, payload: payload})
}

func (r *recorder) connectedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.connected
}

func (r *recorder) disconnects() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.disconnected...)
}

func (r *recorder) messageList() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.messages...)
}

func (r *recorder) errorList() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.errs...)
}

func (r *recorder) commandList() []commandEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]commandEvent(nil), r.commands...)
}
