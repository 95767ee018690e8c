package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"main/internal/bus"
	"main/internal/schema"
)

func newTestLoop(t *testing.T) (*EventLoop, *bus.Ring) {
	t.Helper()
	ring, err := bus.NewRing(64)
	require.NoError(t, err)
	return NewEventLoop(ring), ring
}

func TestLoopDispatchesInOrder(t *testing.T) {
	loop, ring := newTestLoop(t)

	var seen []int64
	loop.Handle(schema.EventTimer, func(e schema.Event) {
		seen = append(seen, e.Timer.FireTimeNs)
	})

	for i := int64(1); i <= 5; i++ {
		require.True(t, ring.TryPush(schema.TimerEventOf(schema.TimerEvent{FireTimeNs: i})))
	}
	require.True(t, ring.TryPush(schema.ShutdownEvent()))

	loop.Run()
	require.Equal(t, []int64{1, 2, 3, 4, 5}, seen)
	require.Equal(t, uint64(6), loop.EventsProcessed())
}

func TestLoopShutdownEventStopsAfterDrain(t *testing.T) {
	loop, ring := newTestLoop(t)

	handled := 0
	loop.Handle(schema.EventDepth, func(schema.Event) { handled++ })

	require.True(t, ring.TryPush(schema.Event{Type: schema.EventDepth}))
	require.True(t, ring.TryPush(schema.ShutdownEvent()))

	done := make(chan struct{})
	go func() {
		loop.Run()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not exit on shutdown event")
	}
	require.Equal(t, 1, handled)
}

func TestLoopStopFromAnotherGoroutine(t *testing.T) {
	loop, _ := newTestLoop(t)

	done := make(chan struct{})
	go func() {
		loop.Run()
		close(done)
	}()
	time.Sleep(10 * time.Millisecond)
	loop.Stop()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not honor external stop")
	}
}

func TestLoopFiresPeriodicTimers(t *testing.T) {
	loop, _ := newTestLoop(t)

	fired := make(map[schema.TimerID]int)
	loop.Handle(schema.EventTimer, func(e schema.Event) {
		fired[e.Timer.ID]++
		if fired[schema.TimerStats] >= 3 {
			loop.Stop()
		}
	})
	loop.AddTimer(schema.TimerStats, 5*time.Millisecond)
	loop.AddTimer(schema.TimerPositionSync, 2*time.Millisecond)

	done := make(chan struct{})
	go func() {
		loop.Run()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timers did not fire")
	}
	require.GreaterOrEqual(t, fired[schema.TimerStats], 3)
	require.GreaterOrEqual(t, fired[schema.TimerPositionSync], 3)
}

func TestLoopIgnoresNonPositiveTimerPeriod(t *testing.T) {
	loop, _ := newTestLoop(t)
	loop.AddTimer(schema.TimerStats, 0)
	require.Empty(t, loop.timers)
}
