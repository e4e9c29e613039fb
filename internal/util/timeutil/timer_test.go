package timeutil_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waabox/autofixdeck/internal/util/timeutil"
)

func TestNewTimer_Fires(t *testing.T) {
	timer := timeutil.NewTimer(time.Millisecond)
	select {
	case <-timer.Chan():
	case <-time.After(time.Second):
		t.Fatal("timer did not fire")
	}
}

func TestFakeTimers_RecordsAndFires(t *testing.T) {
	timers := timeutil.NewFakeTimers()
	newTimer := timers.Func()

	created := newTimer(3 * time.Second)
	next, ok := timers.Next(time.Second)
	require.True(t, ok)
	assert.Equal(t, 3*time.Second, next.Duration())
	assert.Equal(t, 1, timers.Pending())

	next.Fire()
	select {
	case <-created.Chan():
	default:
		t.Fatal("fake timer did not deliver")
	}
	assert.Equal(t, 0, timers.Pending())
	assert.Equal(t, 1, timers.Count())
}

func TestFakeTimers_StopPreventsFire(t *testing.T) {
	timers := timeutil.NewFakeTimers()
	created := timers.Func()(time.Second)
	next, _ := timers.Next(time.Second)

	assert.True(t, created.Stop())
	assert.False(t, created.Stop())
	next.Fire()

	select {
	case <-created.Chan():
		t.Fatal("stopped timer delivered a tick")
	default:
	}
	assert.Equal(t, 0, timers.Pending())
}

func TestFakeTimers_NextTimesOut(t *testing.T) {
	_, ok := timeutil.NewFakeTimers().Next(10 * time.Millisecond)
	assert.False(t, ok)
}
