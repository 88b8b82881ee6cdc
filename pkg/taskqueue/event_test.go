package taskqueue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEventSetClearWait(t *testing.T) {
	e := newEvent(false)
	assert.False(t, e.IsSet())
	assert.False(t, e.Wait(10*time.Millisecond))

	e.Set()
	assert.True(t, e.IsSet())
	assert.True(t, e.Wait(time.Second))

	e.Clear()
	assert.False(t, e.IsSet())
}

func TestEventWaitUnblocksOnSet(t *testing.T) {
	e := newEvent(false)
	done := make(chan bool, 1)
	go func() {
		done <- e.Wait(time.Second)
	}()
	time.Sleep(10 * time.Millisecond)
	e.Set()
	select {
	case ok := <-done:
		assert.True(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Wait did not unblock after Set")
	}
}
