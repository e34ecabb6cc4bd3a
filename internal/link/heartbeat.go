package link

import (
	"context"
	"sync"
	"time"
)

// Heartbeat runs a periodic beat on its own goroutine until stopped. Only one
// loop runs at a time; Start replaces any running loop.
type Heartbeat struct {
	interval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewHeartbeat returns a monitor ticking every interval. A non-positive
// interval disables it.
func NewHeartbeat(interval time.Duration) *Heartbeat {
	return &Heartbeat{interval: interval}
}

// Start begins calling beat every interval. The first beat happens one
// interval after Start.
func (h *Heartbeat) Start(beat func()) {
	if h.interval <= 0 {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.cancel != nil {
		h.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel

	h.wg.Add(1)
	go h.run(ctx, beat)
}

// Stop cancels the running loop. It does not wait for the goroutine, so it is
// safe to call while holding locks the beat function takes; a beat racing
// with Stop must therefore check its own preconditions.
func (h *Heartbeat) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
}

// Running reports whether a loop is active.
func (h *Heartbeat) Running() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cancel != nil
}

// Wait blocks until every loop started so far has exited.
func (h *Heartbeat) Wait() {
	h.wg.Wait()
}

func (h *Heartbeat) run(ctx context.Context, beat func()) {
	defer h.wg.Done()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			beat()
		}
	}
}
