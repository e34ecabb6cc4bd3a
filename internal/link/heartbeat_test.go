package link

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeartbeatBeatsUntilStopped(t *testing.T) {
	h := NewHeartbeat(5 * time.Millisecond)
	var beats atomic.Int32

	h.Start(func() { beats.Add(1) })
	assert.True(t, h.Running())
	require.Eventually(t, func() bool { return beats.Load() >= 3 }, time.Second, time.Millisecond)

	h.Stop()
	h.Wait()
	assert.False(t, h.Running())

	stopped := beats.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, stopped, beats.Load())
}

func TestHeartbeatRestartReplacesLoop(t *testing.T) {
	h := NewHeartbeat(5 * time.Millisecond)
	var first, second atomic.Int32

	h.Start(func() { first.Add(1) })
	h.Start(func() { second.Add(1) })
	require.Eventually(t, func() bool { return second.Load() >= 2 }, time.Second, time.Millisecond)

	h.Stop()
	h.Wait()
	before := first.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, before, first.Load())
}

func TestHeartbeatDisabled(t *testing.T) {
	h := NewHeartbeat(0)
	h.Start(func() { t.Fatal("disabled heartbeat must not beat") })
	assert.False(t, h.Running())
	h.Stop()
	h.Wait()
}
