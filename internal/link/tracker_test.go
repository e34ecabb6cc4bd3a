package link

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTrackerWaitSkipsParked(t *testing.T) {
	tr := newTracker()
	tr.Add(2)

	release := make(chan struct{})
	go func() {
		defer tr.Done()
		<-release
	}()
	go func() {
		defer tr.Done()
		tr.park()
		defer tr.unpark()
		// A goroutine waiting on its own tracker while parked must not hang.
		tr.Wait()
	}()

	waited := make(chan struct{})
	go func() {
		tr.Wait()
		close(waited)
	}()

	select {
	case <-waited:
		t.Fatal("Wait returned while an unparked goroutine was running")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-waited:
	case <-time.After(waitFor):
		t.Fatal("Wait never returned")
	}
	assert.Eventually(t, tr.Idle, waitFor, tick)
}
