package engine

import (
	"container/heap"
	"sync/atomic"
	"time"

	"main/internal/bus"
	"main/internal/schema"
)

// idleSleep bounds how long the reactor parks on an empty ring. It must
// stay short enough that stop requests and timers are honored promptly.
const idleSleep = time.Millisecond

// Handler processes one event on the reactor thread.
type Handler func(schema.Event)

type timerEntry struct {
	id     schema.TimerID
	fireAt time.Time
	period time.Duration
}

type timerQueue []timerEntry

func (q timerQueue) Len() int { return len(q) }
func (q timerQueue) Less(i, j int) bool { return q[i].fireAt.Before(q[j].fireAt) }
func (q timerQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *timerQueue) Push(x any) { *q = append(*q, x.(timerEntry)) }
func (q *timerQueue) Pop() any {
	old := *q
	n := len(old)
	entry := old[n-1]
	*q = old[:n-1]
	return entry
}

// EventLoop is the single-threaded reactor. It drains the ring, fires due
// timers, and dispatches everything to registered handlers. All strategy
// state is owned by the goroutine that calls Run.
type EventLoop struct {
	ring     *bus.Ring
	handlers map[schema.EventType]Handler
	timers   timerQueue

	stopFlag  atomic.Bool
	processed atomic.Uint64

	now   func() time.Time
	sleep func(time.Duration)
}

// NewEventLoop creates a reactor over a ring.
func NewEventLoop(ring *bus.Ring) *EventLoop {
	return &EventLoop{
		ring:     ring,
		handlers: make(map[schema.EventType]Handler),
		now:      time.Now,
		sleep:    time.Sleep,
	}
}

// Handle registers the handler for an event type.
func (l *EventLoop) Handle(eventType schema.EventType, handler Handler) {
	l.handlers[eventType] = handler
}

// AddTimer schedules a periodic timer; the first fire is one period out.
func (l *EventLoop) AddTimer(id schema.TimerID, period time.Duration) {
	if period <= 0 {
		return
	}
	heap.Push(&l.timers, timerEntry{id: id, fireAt: l.now().Add(period), period: period})
}

// Stop requests loop exit. Safe from any goroutine.
func (l *EventLoop) Stop() {
	l.stopFlag.Store(true)
}

// EventsProcessed returns the dispatched event count.
func (l *EventLoop) EventsProcessed() uint64 {
	return l.processed.Load()
}

// Run drains events until a Shutdown event or Stop. It never blocks
// indefinitely: an empty ring parks for at most idleSleep, bounded by the
// next timer expiry.
func (l *EventLoop) Run() {
	heap.Init(&l.timers)

	for !l.stopFlag.Load() {
		worked := false

		for {
			event, ok := l.ring.TryPop()
			if !ok {
				break
			}
			worked = true
			l.dispatch(event)
			if event.Type == schema.EventShutdown {
				l.stopFlag.Store(true)
			}
		}
		if l.stopFlag.Load() {
			return
		}

		if l.fireDueTimers() {
			worked = true
		}

		if !worked {
			l.sleep(l.parkDuration())
		}
	}
}

func (l *EventLoop) dispatch(event schema.Event) {
	l.processed.Add(1)
	if handler := l.handlers[event.Type]; handler != nil {
		handler(event)
	}
}

func (l *EventLoop) fireDueTimers() bool {
	fired := false
	now := l.now()
	for len(l.timers) > 0 && !l.timers[0].fireAt.After(now) {
		entry := heap.Pop(&l.timers).(timerEntry)
		fired = true

		l.dispatch(schema.TimerEventOf(schema.TimerEvent{
			ID:         entry.id,
			FireTimeNs: now.UnixNano(),
		}))

		entry.fireAt = now.Add(entry.period)
		heap.Push(&l.timers, entry)
	}
	return fired
}

func (l *EventLoop) parkDuration() time.Duration {
	if len(l.timers) == 0 {
		return idleSleep
	}
	until := l.timers[0].fireAt.Sub(l.now())
	if until < 0 {
		return 0
	}
	if until > idleSleep {
		return idleSleep
	}
	return until
}
