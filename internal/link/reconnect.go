package link

import "time"

// Reconnector tracks reconnect attempts since the last successful connection
// and computes the delay before the next one. It is not safe for concurrent
// use; the client guards it with its own lock.
type Reconnector struct {
	base        time.Duration
	maxAttempts int
	attempts    int
}

func NewReconnector(base time.Duration, maxAttempts int) *Reconnector {
	if maxAttempts < 0 {
		maxAttempts = 0
	}
	return &Reconnector{base: base, maxAttempts: maxAttempts}
}

// Next consumes one attempt and returns the delay to wait before it. It
// returns false once the ceiling has been reached, without consuming anything.
func (r *Reconnector) Next() (time.Duration, bool) {
	if r.attempts >= r.maxAttempts {
		return 0, false
	}
	r.attempts++
	return LinearDelay(r.base, r.attempts), true
}

// Reset clears the counter after a successful connection.
func (r *Reconnector) Reset() {
	r.attempts = 0
}

func (r *Reconnector) Attempts() int {
	return r.attempts
}

func (r *Reconnector) Exhausted() bool {
	return r.attempts >= r.maxAttempts
}

// LinearDelay is base × attempt. Attempts below 1 wait nothing.
func LinearDelay(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		return 0
	}
	return base * time.Duration(attempt)
}
