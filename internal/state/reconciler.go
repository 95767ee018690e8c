package state

import (
	"math"
	"time"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"main/internal/exchange"
	"main/internal/schema"
)

const (
	// DustQuantity is the threshold below which a remote position counts
	// as flat. Venues report residual dust after reduce-only fills.
	DustQuantity = 1e-7

	// pnl for a detected closure is summed over this trailing window.
	pnlLookback = 30 * time.Second

	tradeFetchLimit = 20
)

// TrackedPosition mirrors one remote position. Quantity is signed.
type TrackedPosition struct {
	Symbol        schema.Symbol
	Quantity      float64
	EntryPrice    float64
	UnrealizedPnl float64
}

// CloseHook fires once for each position the venue closed out from under
// us (a stop-loss or take-profit fill).
type CloseHook func(symbol schema.Symbol, pnl float64)

// Reconciler polls the venue's position list and diffs it against the
// previous poll. It runs on the strategy thread via the position-sync
// timer; its client calls are synchronous and brief.
type Reconciler struct {
	client   exchange.Client
	onClosed CloseHook

	positions       map[schema.Symbol]TrackedPosition
	lastRealizedPnl float64

	now func() time.Time
}

// NewReconciler binds a reconciler to a client and a close hook.
func NewReconciler(client exchange.Client, onClosed CloseHook) *Reconciler {
	return &Reconciler{
		client:    client,
		onClosed:  onClosed,
		positions: make(map[schema.Symbol]TrackedPosition),
		now:       time.Now,
	}
}

// WithClock swaps the time source.
func (r *Reconciler) WithClock(now func() time.Time) *Reconciler {
	if now != nil {
		r.now = now
	}
	return r
}

// Sync fetches remote positions and fires the close hook exactly once per
// symbol that disappeared since the previous sync. On fetch failure the
// previous view is kept so a transient error cannot fake a closure.
func (r *Reconciler) Sync() error {
	remote, err := r.client.Positions()
	if err != nil {
		return errors.Wrap(err, "fetch positions")
	}

	current := make(map[schema.Symbol]TrackedPosition, len(remote))
	for _, pos := range remote {
		if math.Abs(pos.Quantity) < DustQuantity {
			continue
		}
		current[pos.Symbol] = TrackedPosition{
			Symbol:        pos.Symbol,
			Quantity:      pos.Quantity,
			EntryPrice:    pos.EntryPrice,
			UnrealizedPnl: pos.UnrealizedProfit,
		}
	}

	for symbol := range r.positions {
		if _, open := current[symbol]; open {
			continue
		}
		pnl := r.realizedPnl(symbol)
		r.lastRealizedPnl = pnl
		logs.Infof("position closed by exchange: %s pnl=%.4f", symbol, pnl)
		if r.onClosed != nil {
			r.onClosed(symbol, pnl)
		}
	}

	r.positions = current
	return nil
}

// realizedPnl sums realized pnl across recent account trades. A fetch
// failure reports 0; the slot release matters more than the exact number.
func (r *Reconciler) realizedPnl(symbol schema.Symbol) float64 {
	trades, err := r.client.AccountTrades(symbol, tradeFetchLimit)
	if err != nil {
		logs.Errorf("fetch account trades: %+v", err)
		return 0
	}
	cutoff := r.now().Add(-pnlLookback).UnixMilli()
	var pnl float64
	for _, trade := range trades {
		if trade.TimeMs >= cutoff {
			pnl += trade.RealizedPnl
		}
	}
	return pnl
}

// UpdatePrice refreshes the unrealized pnl of a tracked position from the
// latest mid price.
func (r *Reconciler) UpdatePrice(symbol schema.Symbol, price float64) {
	pos, ok := r.positions[symbol]
	if !ok {
		return
	}
	if pos.Quantity >= 0 {
		pos.UnrealizedPnl = (price - pos.EntryPrice) * pos.Quantity
	} else {
		pos.UnrealizedPnl = (pos.EntryPrice - price) * -pos.Quantity
	}
	r.positions[symbol] = pos
}

// HasOpenPosition reports whether any position is tracked.
func (r *Reconciler) HasOpenPosition() bool { return len(r.positions) > 0 }

// Position returns the tracked position for a symbol.
func (r *Reconciler) Position(symbol schema.Symbol) (TrackedPosition, bool) {
	pos, ok := r.positions[symbol]
	return pos, ok
}

// Count returns the tracked position count.
func (r *Reconciler) Count() int { return len(r.positions) }

// LastRealizedPnl returns the pnl recorded for the most recent closure.
func (r *Reconciler) LastRealizedPnl() float64 { return r.lastRealizedPnl }
