package bus

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"main/internal/schema"
)

func timerEvent(seq uint32) schema.Event {
	return schema.Event{Type: schema.EventTimer, Timer: schema.TimerEvent{FireTimeNs: int64(seq)}}
}

func TestNewRingRejectsBadCapacity(t *testing.T) {
	for _, capacity := range []int{0, 1, 3, 6, 100} {
		_, err := NewRing(capacity)
		require.ErrorIs(t, err, ErrRingCapacity, "capacity %d", capacity)
	}
	_, err := NewRing(2)
	require.NoError(t, err)
}

func TestRingFIFO(t *testing.T) {
	ring, err := NewRing(8)
	require.NoError(t, err)

	for i := uint32(1); i <= 5; i++ {
		require.True(t, ring.TryPush(timerEvent(i)))
	}
	for i := uint32(1); i <= 5; i++ {
		e, ok := ring.TryPop()
		require.True(t, ok)
		require.Equal(t, int64(i), e.Timer.FireTimeNs)
	}
	_, ok := ring.TryPop()
	require.False(t, ok)
}

func TestRingCapacityReservesOneSlot(t *testing.T) {
	ring, err := NewRing(8)
	require.NoError(t, err)
	require.Equal(t, 7, ring.Capacity())

	for i := 0; i < 7; i++ {
		require.True(t, ring.TryPush(timerEvent(uint32(i))))
	}
	require.True(t, ring.Full())
	require.False(t, ring.Empty())
	require.False(t, ring.TryPush(timerEvent(99)))
	require.Equal(t, 7, ring.Size())

	_, ok := ring.TryPop()
	require.True(t, ok)
	require.True(t, ring.TryPush(timerEvent(100)))
}

func TestRingNeverBothEmptyAndFull(t *testing.T) {
	ring, err := NewRing(4)
	require.NoError(t, err)
	for i := 0; i < 16; i++ {
		require.False(t, ring.Empty() && ring.Full())
		ring.TryPush(timerEvent(uint32(i)))
		require.False(t, ring.Empty() && ring.Full())
		if i%2 == 0 {
			ring.TryPop()
		}
	}
}

func TestRingConcurrentFIFOPrefix(t *testing.T) {
	ring, err := NewRing(64)
	require.NoError(t, err)

	const total = 100_000
	var popped []int64
	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := uint32(1); i <= total; {
			if ring.TryPush(timerEvent(i)) {
				i++
			}
		}
	}()
	go func() {
		defer wg.Done()
		for len(popped) < total {
			if e, ok := ring.TryPop(); ok {
				popped = append(popped, e.Timer.FireTimeNs)
			}
		}
	}()
	wg.Wait()

	require.Len(t, popped, total)
	for i, v := range popped {
		require.Equal(t, int64(i+1), v, "popped sequence broken at %d", i)
	}
}

func TestRingDropUnderSlowConsumer(t *testing.T) {
	ring, err := NewRing(8)
	require.NoError(t, err)
	pub := NewPublisher(ring)

	update := depthUpdate(50_000, 1)
	// Consumer suspended: only capacity-1 pushes land.
	for i := 0; i < 8; i++ {
		pub.PublishDepth(update)
	}
	require.Equal(t, uint64(7), pub.Published())
	require.Equal(t, uint64(1), pub.Dropped())
	require.InDelta(t, 1.0/8.0, pub.DropRate(), 1e-12)

	// Drain and verify subsequent pushes succeed again.
	for {
		if _, ok := ring.TryPop(); !ok {
			break
		}
	}
	require.True(t, pub.PublishDepth(update))
}
