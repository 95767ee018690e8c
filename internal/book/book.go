package book

import (
	"sort"
	"time"

	"main/internal/schema"
)

// MaxLevels caps each side of the book.
const MaxLevels = 1000

// OrderBook is a sorted L2 book: bids strictly decreasing, asks strictly
// increasing, no zero-quantity levels. All mutation happens on the
// strategy thread; there is no locking here.
//
// The book does not validate crossed updates. The caller must discard a
// depth event whose best bid crosses its best ask and wait for the next.
type OrderBook struct {
	bids []schema.PriceLevel
	asks []schema.PriceLevel

	lastUpdateID   uint64
	lastUpdateTime time.Time
	initialized    bool
}

// New creates an empty book with both sides preallocated.
func New() *OrderBook {
	return &OrderBook{
		bids: make([]schema.PriceLevel, 0, MaxLevels),
		asks: make([]schema.PriceLevel, 0, MaxLevels),
	}
}

// Initialize replaces the book contents from a snapshot. Inputs must be
// pre-sorted (bids descending, asks ascending); excess levels are dropped.
func (b *OrderBook) Initialize(bids, asks []schema.PriceLevel, lastUpdateID uint64) {
	b.bids = b.bids[:0]
	b.asks = b.asks[:0]
	for _, level := range bids {
		if len(b.bids) == MaxLevels {
			break
		}
		if level.Quantity > 0 {
			b.bids = append(b.bids, level)
		}
	}
	for _, level := range asks {
		if len(b.asks) == MaxLevels {
			break
		}
		if level.Quantity > 0 {
			b.asks = append(b.asks, level)
		}
	}
	b.lastUpdateID = lastUpdateID
	b.initialized = true
}

// Clear empties both sides.
func (b *OrderBook) Clear() {
	b.bids = b.bids[:0]
	b.asks = b.asks[:0]
	b.initialized = false
}

// UpdateBid upserts a bid level; quantity 0 removes it.
func (b *OrderBook) UpdateBid(price schema.Price, qty schema.Quantity) {
	// Bids are descending, so search on the inverted comparison.
	idx := sort.Search(len(b.bids), func(i int) bool { return b.bids[i].Price <= price })
	if idx < len(b.bids) && b.bids[idx].Price == price {
		if qty == 0 {
			b.bids = append(b.bids[:idx], b.bids[idx+1:]...)
			return
		}
		b.bids[idx].Quantity = qty
		return
	}
	if qty == 0 {
		return
	}
	if len(b.bids) == MaxLevels {
		if idx == MaxLevels {
			return // worse than every resident level
		}
		b.bids = b.bids[:MaxLevels-1]
	}
	b.bids = append(b.bids, schema.PriceLevel{})
	copy(b.bids[idx+1:], b.bids[idx:])
	b.bids[idx] = schema.PriceLevel{Price: price, Quantity: qty}
}

// UpdateAsk upserts an ask level; quantity 0 removes it.
func (b *OrderBook) UpdateAsk(price schema.Price, qty schema.Quantity) {
	idx := sort.Search(len(b.asks), func(i int) bool { return b.asks[i].Price >= price })
	if idx < len(b.asks) && b.asks[idx].Price == price {
		if qty == 0 {
			b.asks = append(b.asks[:idx], b.asks[idx+1:]...)
			return
		}
		b.asks[idx].Quantity = qty
		return
	}
	if qty == 0 {
		return
	}
	if len(b.asks) == MaxLevels {
		if idx == MaxLevels {
			return
		}
		b.asks = b.asks[:MaxLevels-1]
	}
	b.asks = append(b.asks, schema.PriceLevel{})
	copy(b.asks[idx+1:], b.asks[idx:])
	b.asks[idx] = schema.PriceLevel{Price: price, Quantity: qty}
}

// Touch stamps the last-applied update.
func (b *OrderBook) Touch(lastUpdateID uint64, at time.Time) {
	b.lastUpdateID = lastUpdateID
	b.lastUpdateTime = at
	b.initialized = true
}

// BestBid returns the highest bid, or nil when the side is empty.
func (b *OrderBook) BestBid() *schema.PriceLevel {
	if len(b.bids) == 0 {
		return nil
	}
	return &b.bids[0]
}

// BestAsk returns the lowest ask, or nil when the side is empty.
func (b *OrderBook) BestAsk() *schema.PriceLevel {
	if len(b.asks) == 0 {
		return nil
	}
	return &b.asks[0]
}

// MidPrice returns the midpoint of the best levels, 0 if either is missing.
func (b *OrderBook) MidPrice() schema.Price {
	bid, ask := b.BestBid(), b.BestAsk()
	if bid == nil || ask == nil {
		return 0
	}
	return (bid.Price + ask.Price) / 2
}

// Spread returns best ask minus best bid, 0 if either side is empty.
func (b *OrderBook) Spread() schema.Price {
	bid, ask := b.BestBid(), b.BestAsk()
	if bid == nil || ask == nil {
		return 0
	}
	return ask.Price - bid.Price
}

// SpreadPct returns the spread as a percentage of the mid price.
func (b *OrderBook) SpreadPct() float64 {
	mid := b.MidPrice()
	if mid == 0 {
		return 0
	}
	return float64(b.Spread()) / float64(mid) * 100
}

// Bids returns the top n bid levels without copying.
func (b *OrderBook) Bids(n int) []schema.PriceLevel {
	if n > len(b.bids) {
		n = len(b.bids)
	}
	return b.bids[:n]
}

// Asks returns the top n ask levels without copying.
func (b *OrderBook) Asks(n int) []schema.PriceLevel {
	if n > len(b.asks) {
		n = len(b.asks)
	}
	return b.asks[:n]
}

// BidDepth sums quantity across the top n bid levels.
func (b *OrderBook) BidDepth(n int) schema.Quantity {
	var total schema.Quantity
	for _, level := range b.Bids(n) {
		total += level.Quantity
	}
	return total
}

// AskDepth sums quantity across the top n ask levels.
func (b *OrderBook) AskDepth(n int) schema.Quantity {
	var total schema.Quantity
	for _, level := range b.Asks(n) {
		total += level.Quantity
	}
	return total
}

// BidCount returns the number of bid levels.
func (b *OrderBook) BidCount() int { return len(b.bids) }

// AskCount returns the number of ask levels.
func (b *OrderBook) AskCount() int { return len(b.asks) }

// LastUpdateID returns the id of the last applied update.
func (b *OrderBook) LastUpdateID() uint64 { return b.lastUpdateID }

// LastUpdateTime returns when the book was last touched.
func (b *OrderBook) LastUpdateTime() time.Time { return b.lastUpdateTime }

// Initialized reports whether the book holds applied data.
func (b *OrderBook) Initialized() bool { return b.initialized }
