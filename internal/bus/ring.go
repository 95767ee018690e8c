package bus

import (
	"errors"
	"sync/atomic"

	"main/internal/schema"
)

var ErrRingCapacity = errors.New("ring capacity must be a power of two >= 2")

// Ring is a bounded single-producer single-consumer queue of events.
//
// The producer owns head, the consumer owns tail; each side only stores its
// own index and loads the other's. Go's atomic store/load pairs give the
// release/acquire edge that publishes a written slot before the index that
// exposes it. One slot stays unused so a full ring and an empty ring are
// distinguishable.
type Ring struct {
	mask uint64

	_    [7]uint64
	head atomic.Uint64
	_    [7]uint64
	tail atomic.Uint64
	_    [7]uint64

	slots []schema.Event
}

// NewRing allocates a zeroed ring. Capacity must be a power of two >= 2.
func NewRing(capacity int) (*Ring, error) {
	if capacity < 2 || capacity&(capacity-1) != 0 {
		return nil, ErrRingCapacity
	}
	return &Ring{
		mask:  uint64(capacity - 1),
		slots: make([]schema.Event, capacity),
	}, nil
}

// TryPush appends an event. Producer thread only.
// Returns false when the ring is full; the event is dropped.
func (r *Ring) TryPush(e schema.Event) bool {
	head := r.head.Load()
	next := (head + 1) & r.mask
	if next == r.tail.Load() {
		return false
	}
	r.slots[head] = e
	r.head.Store(next)
	return true
}

// TryPop removes the oldest event. Consumer thread only.
func (r *Ring) TryPop() (schema.Event, bool) {
	tail := r.tail.Load()
	if tail == r.head.Load() {
		return schema.Event{}, false
	}
	e := r.slots[tail]
	r.tail.Store((tail + 1) & r.mask)
	return e, true
}

// Size returns the resident event count. May be stale under concurrency.
func (r *Ring) Size() int {
	head := r.head.Load()
	tail := r.tail.Load()
	return int((head - tail) & r.mask)
}

// Empty reports whether the ring has no resident events.
func (r *Ring) Empty() bool {
	return r.head.Load() == r.tail.Load()
}

// Full reports whether the next push would fail.
func (r *Ring) Full() bool {
	return (r.head.Load()+1)&r.mask == r.tail.Load()
}

// Capacity returns the usable slot count (one slot is reserved).
func (r *Ring) Capacity() int {
	return int(r.mask)
}
