package bus

import (
	"sync/atomic"

	"main/internal/exchange"
	"main/internal/schema"
)

// Publisher is the producer-side wrapper around the ring. It packs
// heap-owning depth updates into fixed-size events and counts drops.
// It is owned by the ingest thread; the counters are the only state the
// consumer side may read.
type Publisher struct {
	ring      *Ring
	seq       uint32
	published atomic.Uint64
	dropped   atomic.Uint64
}

// NewPublisher wraps a ring.
func NewPublisher(ring *Ring) *Publisher {
	return &Publisher{ring: ring}
}

// PublishDepth packs and pushes a depth update. A full ring drops the
// event silently; the next update supersedes it.
func (p *Publisher) PublishDepth(update exchange.DepthUpdate) bool {
	p.seq++
	event := schema.DepthEvent{
		Symbol:       update.Symbol,
		EventTimeMs:  update.EventTimeMs,
		LastUpdateID: update.LastUpdateID,
		Seq:          p.seq,
	}
	event.BidCount = int32(copy(event.Bids[:], update.Bids))
	event.AskCount = int32(copy(event.Asks[:], update.Asks))

	if !p.ring.TryPush(schema.DepthEventOf(event)) {
		p.dropped.Add(1)
		return false
	}
	p.published.Add(1)
	return true
}

// PublishShutdown pushes the stop sentinel from the producer side.
func (p *Publisher) PublishShutdown() bool {
	if !p.ring.TryPush(schema.ShutdownEvent()) {
		p.dropped.Add(1)
		return false
	}
	p.published.Add(1)
	return true
}

// Published returns the number of events accepted by the ring.
func (p *Publisher) Published() uint64 { return p.published.Load() }

// Dropped returns the number of events lost to a full ring.
func (p *Publisher) Dropped() uint64 { return p.dropped.Load() }

// DropRate returns dropped / (published + dropped).
func (p *Publisher) DropRate() float64 {
	published := p.published.Load()
	dropped := p.dropped.Load()
	total := published + dropped
	if total == 0 {
		return 0
	}
	return float64(dropped) / float64(total)
}
