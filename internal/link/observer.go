package link

import "time"

// Observer is notified of link activity, typically to export metrics.
// Implementations must be safe for concurrent use, must not block and must
// not call back into the client.
type Observer interface {
	StateChanged(from, to State)
	FrameSent(frameType string)
	FrameReceived(kind EventKind)
	DialFinished(elapsed time.Duration, err error)
	ReconnectScheduled(attempt int, delay time.Duration)
	ReconnectExhausted()
}

type nopObserver struct{}

func (nopObserver) StateChanged(State, State) {}
func (nopObserver) FrameSent(string) {}
func (nopObserver) FrameReceived(EventKind) {}
func (nopObserver) DialFinished(time.Duration, error) {}
func (nopObserver) ReconnectScheduled(int, time.Duration) {}
func (nopObserver) ReconnectExhausted() {}
