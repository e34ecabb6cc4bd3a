package link

import (
	"fmt"
	"log/slog"
	"runtime/debug"
)

// Handler receives link events. Calls are made from the client's background
// goroutines and never while the client holds its lock. Implementations must
// be safe for concurrent use.
//
// Every Client method is safe to call from a handler: Connect, Disconnect,
// Close, the Send methods and the accessors (State, ReconnectAttempts,
// Registered, DeviceID, Stats). Close called from a handler returns without
// waiting for the goroutine that runs the handler. A handler must not block
// waiting for another event of the same client.
type Handler interface {
	// OnConnected is called after the transport opened and registration was queued.
	OnConnected()
	// OnDisconnected is called when a connection ends. err is nil for a normal
	// close, a *TransportError for an abnormal one, and wraps
	// ErrReconnectExhausted when the client gives up.
	OnDisconnected(err error)
	// OnMessage receives response frames and anything the dispatcher could
	// not classify, including unparseable frames verbatim.
	OnMessage(content string)
	// OnError receives error frames from the gateway (*RemoteError) and
	// ErrReconnectExhausted.
	OnError(err error)
	// OnCommand receives command frames.
	OnCommand(action string, payload map[string]any)
}

// HandlerFuncs adapts plain functions to Handler. Nil fields are skipped.
type HandlerFuncs struct {
	Connected    func()
	Disconnected func(err error)
	Message      func(content string)
	Error        func(err error)
	Command      func(action string, payload map[string]any)
}

func (h HandlerFuncs) OnConnected() {
	if h.Connected != nil {
		h.Connected()
	}
}

func (h HandlerFuncs) OnDisconnected(err error) {
	if h.Disconnected != nil {
		h.Disconnected(err)
	}
}

func (h HandlerFuncs) OnMessage(content string) {
	if h.Message != nil {
		h.Message(content)
	}
}

func (h HandlerFuncs) OnError(err error) {
	if h.Error != nil {
		h.Error(err)
	}
}

func (h HandlerFuncs) OnCommand(action string, payload map[string]any) {
	if h.Command != nil {
		h.Command(action, payload)
	}
}

// safeHandler shields the client goroutines from panicking handlers and
// parks the calling goroutine in the tracker while the handler runs.
type safeHandler struct {
	h       Handler
	logger  *slog.Logger
	tracker *tracker
}

// untracked is for calls made on a caller's goroutine.
func (s safeHandler) untracked() safeHandler {
	s.tracker = nil
	return s
}

func (s safeHandler) call(event string, fn func()) {
	if s.tracker != nil {
		s.tracker.park()
		defer s.tracker.unpark()
	}
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("link: handler panicked",
				"event", event,
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()))
		}
	}()
	fn()
}

func (s safeHandler) OnConnected() {
	s.call("connected", s.h.OnConnected)
}

func (s safeHandler) OnDisconnected(err error) {
	s.call("disconnected", func() { s.h.OnDisconnected(err) })
}

func (s safeHandler) OnMessage(content string) {
	s.call("message", func() { s.h.OnMessage(content) })
}

func (s safeHandler) OnError(err error) {
	s.call("error", func() { s.h.OnError(err) })
}

func (s safeHandler) OnCommand(action string, payload map[string]any) {
	s.call("command", func() { s.h.OnCommand(action, payload) })
}
