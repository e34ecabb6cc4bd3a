package link

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ufogalaxy/devicelink/internal/adapters/id"
	"github.com/ufogalaxy/devicelink/pkg/protocol"
)

const tracerName = "github.com/ufogalaxy/devicelink/internal/link"

// Client maintains one persistent link between a device and the gateway. All
// state transitions happen under mu; events are delivered to the Handler
// after mu is released.
type Client struct {
	cfg       Config
	handler   safeHandler
	transport Transport
	logger    *slog.Logger
	observer  Observer
	tracer    trace.Tracer
	afterFunc afterFunc

	ctx    context.Context
	cancel context.CancelFunc
	wg     *tracker

	mu          sync.Mutex
	state       State
	epoch       uint64 // bumped on every dial and every caller disconnect
	closed      bool
	conn        Conn
	connDone    chan struct{}
	outbound    chan outboundFrame
	dialCancel  context.CancelFunc
	registered  bool
	connectedAt time.Time
	timer       timer
	reconnector *Reconnector
	heartbeat   *Heartbeat

	counters counters
}

type outboundFrame struct {
	kind string
	data []byte
}

// New creates a client. It does not connect; call Connect.
func New(cfg *Config, h Handler, opts ...Option) *Client {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	conf := cfg.withDefaults()
	if conf.DeviceID == "" {
		conf.DeviceID = conf.Device.DeviceID
	}
	if conf.DeviceID == "" {
		conf.DeviceID = id.NewDeviceID()
	}
	conf.Device.DeviceID = conf.DeviceID

	if h == nil {
		h = HandlerFuncs{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		cfg:         conf,
		logger:      slog.Default(),
		observer:    nopObserver{},
		tracer:      otel.Tracer(tracerName),
		afterFunc:   realAfterFunc,
		wg:          newTracker(),
		ctx:         ctx,
		cancel:      cancel,
		reconnector: NewReconnector(conf.ReconnectBaseDelay, conf.MaxReconnectAttempts),
		heartbeat:   NewHeartbeat(conf.HeartbeatInterval),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.transport == nil {
		c.transport = NewWSTransport(conf.HandshakeTimeout)
	}
	c.handler = safeHandler{h: h, logger: c.logger, tracker: c.wg}
	return c
}

// Connect starts connecting and returns the resulting state. It is a no-op
// while Connecting or Connected. From Reconnecting it cancels the pending
// timer and dials immediately. A caller-initiated connect always starts a
// fresh attempt budget.
func (c *Client) Connect() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		c.logger.Warn("link: connect on closed client")
		return c.state
	}

	switch c.state {
	case Connecting, Connected, Closing:
		return c.state
	case Reconnecting:
		c.cancelTimerLocked()
	}

	c.reconnector.Reset()
	c.dialLocked()
	return c.state
}

// Disconnect closes the connection with a normal close code. No reconnect is
// scheduled and any pending one is cancelled.
func (c *Client) Disconnect() {
	c.mu.Lock()
	if c.state == Disconnected || c.state == Closing {
		c.mu.Unlock()
		return
	}
	wasConnected := c.state == Connected
	c.epoch++
	epoch := c.epoch
	conn := c.teardownLocked()
	c.setStateLocked(Closing)
	c.mu.Unlock()

	if conn != nil {
		if err := closeNormally(conn, c.cfg.WriteTimeout, "client disconnect"); err != nil {
			c.logger.Debug("link: close handshake failed", "error", err)
		}
	}

	c.mu.Lock()
	if c.epoch == epoch && c.state == Closing {
		c.setStateLocked(Disconnected)
	}
	c.mu.Unlock()

	c.logger.Info("link: disconnected", "device_id", c.cfg.DeviceID)
	if wasConnected {
		// The caller's goroutine is not tracked, so it must not be parked.
		c.handler.untracked().OnDisconnected(nil)
	}
}

// Close disconnects and waits for every goroutine owned by the client. The
// client cannot be reconnected afterwards. Close may be called from a
// handler; the goroutine running that handler is not waited for and exits
// once the handler returns.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.Disconnect()
	c.cancel()
	c.heartbeat.Wait()
	c.wg.Wait()
	return nil
}

func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ReconnectAttempts returns the number of reconnects since the last
// successful connection.
func (c *Client) ReconnectAttempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reconnector.Attempts()
}

// Registered reports whether the gateway acknowledged registration on the
// current connection.
func (c *Client) Registered() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.registered
}

func (c *Client) DeviceID() string {
	return c.cfg.DeviceID
}

func (c *Client) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		State:             c.state,
		DeviceID:          c.cfg.DeviceID,
		Registered:        c.registered,
		ReconnectAttempts: c.reconnector.Attempts(),
		MessagesQueued:    c.counters.queued.Load(),
		MessagesSent:      c.counters.sent.Load(),
		MessagesReceived:  c.counters.received.Load(),
		Errors:            c.counters.errors.Load(),
		Connections:       c.counters.connections.Load(),
		ConnectedAt:       c.connectedAt,
	}
}

// Send queues a wire frame for transmission. It returns false when the client
// is not Connected or the send queue is full; true only means the frame was
// accepted, not delivered. Missing device id, message id and timestamp are
// filled in.
func (c *Client) Send(frame *protocol.WireEnvelope) bool {
	if frame == nil {
		return false
	}
	f := *frame

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Connected {
		c.logger.Debug("link: send dropped", "type", f.Type, "state", c.state, "error", ErrNotConnected)
		return false
	}
	if f.DeviceID == "" {
		f.DeviceID = c.cfg.DeviceID
	}
	if f.MessageID == "" {
		f.MessageID = id.NewShortID()
	}
	if f.Timestamp == 0 {
		f.Timestamp = time.Now().UnixMilli()
	}
	return c.enqueueLocked(&f)
}

// SendCommand sends a command frame with a custom action.
func (c *Client) SendCommand(action string, payload map[string]any) bool {
	return c.Send(protocol.NewWireCommand(c.cfg.DeviceID, action, payload))
}

// SendChat sends a chat message to the gateway.
func (c *Client) SendChat(content string) bool {
	return c.Send(protocol.NewWireChat(c.cfg.DeviceID, content))
}

// SendEnvelope sends a canonical envelope as a JSON text frame.
func (c *Client) SendEnvelope(env *protocol.MessageEnvelope) bool {
	if env == nil {
		return false
	}
	e := *env

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Connected {
		c.logger.Debug("link: send dropped", "type", e.Type, "state", c.state, "error", ErrNotConnected)
		return false
	}
	if e.DeviceID == "" {
		e.DeviceID = c.cfg.DeviceID
	}
	data, err := e.Encode()
	if err != nil {
		c.logger.Error("link: failed to encode envelope", "type", e.Type, "error", err)
		return false
	}
	return c.enqueueRawLocked(string(e.Type), data)
}

func (c *Client) dialLocked() {
	c.epoch++
	epoch := c.epoch
	attempt := c.reconnector.Attempts()

	ctx, cancel := context.WithCancel(c.ctx)
	c.dialCancel = cancel
	c.setStateLocked(Connecting)

	c.wg.Add(1)
	go c.dial(ctx, cancel, epoch, attempt)
}

// dial opens the transport and, on success, becomes the read loop of the new
// connection.
func (c *Client) dial(ctx context.Context, cancel context.CancelFunc, epoch uint64, attempt int) {
	defer c.wg.Done()
	defer cancel()

	ctx, span := c.tracer.Start(ctx, "link.dial", trace.WithAttributes(
		attribute.String("link.url", c.cfg.URL),
		attribute.String("link.device_id", c.cfg.DeviceID),
		attribute.Int("link.attempt", attempt),
	))

	c.logger.Info("link: connecting", "url", c.cfg.URL, "attempt", attempt)

	start := time.Now()
	dialCtx, dialCancel := context.WithTimeout(ctx, c.cfg.HandshakeTimeout)
	conn, err := c.transport.Dial(dialCtx, c.cfg.URL)
	dialCancel()
	c.observer.DialFinished(time.Since(start), err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "dial failed")
		span.End()
		c.fail(epoch, Connecting, &TransportError{Op: "dial", Code: websocket.CloseAbnormalClosure, Err: err})
		return
	}

	dispatcher, ok := c.open(epoch, conn)
	if !ok {
		span.SetStatus(codes.Error, "superseded")
		span.End()
		conn.Close()
		return
	}
	span.SetStatus(codes.Ok, "")
	span.End()

	c.handler.OnConnected()
	c.readLoop(epoch, conn, dispatcher)
}

// open performs the Connecting -> Connected transition. The registration
// frame is queued before anything else can be.
func (c *Client) open(epoch uint64, conn Conn) (*Dispatcher, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.epoch != epoch || c.state != Connecting {
		return nil, false
	}

	done := make(chan struct{})
	out := make(chan outboundFrame, c.cfg.SendQueueSize)
	c.conn = conn
	c.connDone = done
	c.outbound = out
	c.dialCancel = nil
	c.registered = false
	c.connectedAt = time.Now()
	c.reconnector.Reset()
	c.counters.connections.Add(1)
	c.setStateLocked(Connected)

	c.enqueueLocked(protocol.NewWireRegister(c.cfg.Device))
	c.heartbeat.Start(func() { c.beat(epoch) })

	c.wg.Add(1)
	go c.writePump(epoch, conn, out, done)

	c.logger.Info("link: connected", "url", c.cfg.URL, "device_id", c.cfg.DeviceID)
	return NewDispatcher(c.handler, c.logger, func(string) { c.confirmRegistration(epoch) }), true
}

func (c *Client) readLoop(epoch uint64, conn Conn, dispatcher *Dispatcher) {
	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure) && c.current(epoch) {
				c.logger.Warn("link: read error", "error", err)
			}
			c.fail(epoch, Connected, &TransportError{Op: "read", Code: closeCode(err), Err: err})
			return
		}
		if !c.current(epoch) {
			return
		}

		c.counters.received.Add(1)
		ev := dispatcher.Dispatch(messageType, data)
		c.observer.FrameReceived(ev.Kind)
		if ev.Kind == EventError {
			c.counters.errors.Add(1)
		}
	}
}

func (c *Client) writePump(epoch uint64, conn Conn, out <-chan outboundFrame, done <-chan struct{}) {
	defer c.wg.Done()

	for {
		select {
		case <-done:
			return
		case f := <-out:
			if err := conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout)); err != nil {
				c.fail(epoch, Connected, &TransportError{Op: "write", Code: websocket.CloseAbnormalClosure, Err: err})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, f.data); err != nil {
				c.fail(epoch, Connected, &TransportError{Op: "write", Code: websocket.CloseAbnormalClosure, Err: err})
				return
			}
			c.counters.sent.Add(1)
			c.observer.FrameSent(f.kind)
		}
	}
}

// fail handles the end of a connection or a failed dial. Calls from a
// connection that is no longer current are ignored.
func (c *Client) fail(epoch uint64, from State, terr *TransportError) {
	c.mu.Lock()
	if c.epoch != epoch || c.state != from {
		c.mu.Unlock()
		return
	}

	wasConnected := c.state == Connected
	conn := c.teardownLocked()

	var (
		notify    error
		exhausted bool
		delay     time.Duration
	)
	if terr.Normal() {
		c.setStateLocked(Disconnected)
	} else {
		c.counters.errors.Add(1)
		notify = terr

		var ok bool
		if !c.closed {
			delay, ok = c.reconnector.Next()
		}
		if ok {
			c.scheduleLocked(delay)
		} else {
			exhausted = !c.closed
			c.setStateLocked(Disconnected)
			if exhausted {
				notify = fmt.Errorf("%w after %d attempts: %w", ErrReconnectExhausted, c.reconnector.Attempts(), terr)
				c.observer.ReconnectExhausted()
			}
		}
	}
	attempts := c.reconnector.Attempts()
	c.mu.Unlock()

	if conn != nil {
		conn.Close()
	}

	switch {
	case terr.Normal():
		c.logger.Info("link: closed by peer", "code", terr.Code)
	case exhausted:
		c.logger.Error("link: giving up reconnecting", "attempts", attempts, "error", terr)
	default:
		c.logger.Warn("link: connection failed",
			"op", terr.Op,
			"code", terr.Code,
			"temporary", terr.Temporary(),
			"attempt", attempts,
			"retry_in", delay,
			"error", terr.Err)
	}

	if exhausted {
		c.handler.OnError(notify)
	}
	if wasConnected || exhausted {
		c.handler.OnDisconnected(notify)
	}
}

// scheduleLocked arms the reconnect timer for the current epoch.
func (c *Client) scheduleLocked(delay time.Duration) {
	c.setStateLocked(Reconnecting)
	c.observer.ReconnectScheduled(c.reconnector.Attempts(), delay)

	token := c.epoch
	c.wg.Add(1)
	c.timer = c.afterFunc(delay, func() {
		defer c.wg.Done()
		c.reconnectNow(token)
	})
}

func (c *Client) reconnectNow(token uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.epoch != token || c.state != Reconnecting {
		return
	}
	c.timer = nil
	c.dialLocked()
}

// cancelTimerLocked stops a pending reconnect. The timer's wait group slot is
// released here when the callback will never run.
func (c *Client) cancelTimerLocked() {
	if c.timer == nil {
		return
	}
	if c.timer.Stop() {
		c.wg.Done()
	}
	c.timer = nil
}

// teardownLocked releases everything bound to the current connection and
// returns the transport for the caller to close outside the lock.
func (c *Client) teardownLocked() Conn {
	c.heartbeat.Stop()
	c.cancelTimerLocked()
	if c.dialCancel != nil {
		c.dialCancel()
		c.dialCancel = nil
	}
	if c.connDone != nil {
		close(c.connDone)
	}

	conn := c.conn
	c.conn = nil
	c.connDone = nil
	c.outbound = nil
	c.registered = false
	c.connectedAt = time.Time{}
	return conn
}

func (c *Client) beat(epoch uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.epoch != epoch || c.state != Connected {
		return
	}
	c.enqueueLocked(protocol.NewWireHeartbeat(c.cfg.DeviceID))
}

func (c *Client) confirmRegistration(epoch uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.epoch != epoch || c.state != Connected || c.registered {
		return
	}
	c.registered = true
	c.logger.Info("link: registered", "device_id", c.cfg.DeviceID)
}

func (c *Client) current(epoch uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epoch == epoch && c.state == Connected
}

func (c *Client) enqueueLocked(frame *protocol.WireEnvelope) bool {
	data, err := frame.Encode()
	if err != nil {
		c.logger.Error("link: failed to encode frame", "type", frame.Type, "action", frame.Action, "error", err)
		return false
	}
	return c.enqueueRawLocked(frame.Type, data)
}

func (c *Client) enqueueRawLocked(kind string, data []byte) bool {
	select {
	case c.outbound <- outboundFrame{kind: kind, data: data}:
		c.counters.queued.Add(1)
		return true
	default:
		c.logger.Warn("link: send queue full, dropping frame", "type", kind)
		return false
	}
}

func (c *Client) setStateLocked(s State) {
	if c.state == s {
		return
	}
	from := c.state
	c.state = s
	c.observer.StateChanged(from, s)
	c.logger.Debug("link: state changed", "from", from, "to", s)
}
