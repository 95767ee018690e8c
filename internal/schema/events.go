package schema

// DepthLevelCap bounds the levels carried per side in a single event.
// Matching the venue's depth20 stream keeps the event trivially copyable.
const DepthLevelCap = 20

// EventType tags the payload carried by an Event.
type EventType uint16

const (
	EventUnknown EventType = iota
	EventDepth
	EventTimer
	EventShutdown
)

func (t EventType) String() string {
	switch t {
	case EventDepth:
		return "depth"
	case EventTimer:
		return "timer"
	case EventShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// PriceLevel is a single aggregated order-book level.
type PriceLevel struct {
	Price    Price
	Quantity Quantity
}

// DepthEvent is a packed snapshot of the top book levels.
// Fixed arrays keep it free of heap ownership so it can live in a ring slot.
type DepthEvent struct {
	Symbol       Symbol
	EventTimeMs  int64
	LastUpdateID uint64
	Seq          uint32
	BidCount     int32
	AskCount     int32
	Bids         [DepthLevelCap]PriceLevel
	Asks         [DepthLevelCap]PriceLevel
}

// TimerID names a periodic reactor timer.
type TimerID uint16

const (
	TimerUnknown TimerID = iota
	TimerStats
	TimerPositionSync
	TimerHeartbeat
	TimerReconnect
)

func (id TimerID) String() string {
	switch id {
	case TimerStats:
		return "stats"
	case TimerPositionSync:
		return "position_sync"
	case TimerHeartbeat:
		return "heartbeat"
	case TimerReconnect:
		return "reconnect"
	default:
		return "unknown"
	}
}

// TimerEvent marks a timer expiry.
type TimerEvent struct {
	ID         TimerID
	FireTimeNs int64
}

// Event is the tagged union shuttled through the ring. Every variant is
// inline so the whole value copies in one memmove.
type Event struct {
	Type  EventType
	Depth DepthEvent
	Timer TimerEvent
}

// DepthEventOf wraps a depth payload.
func DepthEventOf(d DepthEvent) Event {
	return Event{Type: EventDepth, Depth: d}
}

// TimerEventOf wraps a timer payload.
func TimerEventOf(t TimerEvent) Event {
	return Event{Type: EventTimer, Timer: t}
}

// ShutdownEvent is the empty stop sentinel.
func ShutdownEvent() Event {
	return Event{Type: EventShutdown}
}
