package link

import "sync"

// tracker counts the goroutines a client owns. A goroutine running a handler
// is parked while the handler runs, and Wait does not wait for parked
// goroutines. A handler may therefore Close its own client: its goroutine is
// parked, and it returns as soon as the handler does because everything it
// would touch next belongs to a stale epoch.
type tracker struct {
	mu      sync.Mutex
	cond    *sync.Cond
	running int
	parked  int
}

func newTracker() *tracker {
	t := &tracker{}
	t.cond = sync.NewCond(&t.mu)
	return t
}

func (t *tracker) Add(n int) {
	t.mu.Lock()
	t.running += n
	t.mu.Unlock()
	t.cond.Broadcast()
}

func (t *tracker) Done() {
	t.Add(-1)
}

func (t *tracker) park() {
	t.mu.Lock()
	t.parked++
	t.mu.Unlock()
	t.cond.Broadcast()
}

func (t *tracker) unpark() {
	t.mu.Lock()
	t.parked--
	t.mu.Unlock()
	t.cond.Broadcast()
}

// Wait blocks until every running goroutine has exited or is parked in a
// handler.
func (t *tracker) Wait() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for t.running > t.parked {
		t.cond.Wait()
	}
}

// Idle reports whether no tracked goroutine is left, parked or not.
func (t *tracker) Idle() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running == 0
}
