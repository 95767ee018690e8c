package order

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/yanun0323/logs"

	"main/internal/exchange"
	"main/internal/notify"
	"main/internal/schema"
	"main/pkg/exception"
)

const (
	// MinNotionalUSD is the venue's minimum order value; undersized orders
	// are bumped up to it.
	MinNotionalUSD = 100.0

	// MaxNotionalUSD is the hard safety ceiling. A rounded order above it
	// is refused outright: a bad price feed must not inflate position size.
	MaxNotionalUSD = 600.0

	// protective SL/TP prices are rounded to one decimal.
	priceStep = 0.1
)

// BracketResult carries the three legs of a bracket order. Nil legs were
// not placed; the caller owns emergency-close when a protective leg is
// missing.
type BracketResult struct {
	Entry      *exchange.OrderInfo
	StopLoss   *exchange.OrderInfo
	TakeProfit *exchange.OrderInfo
}

// Complete reports whether both protective legs were placed.
func (r BracketResult) Complete() bool {
	return r.Entry != nil && r.StopLoss != nil && r.TakeProfit != nil
}

// Manager places brackets and tracks pending orders. It runs on the
// strategy thread; the client calls it makes are synchronous.
type Manager struct {
	client   exchange.Client
	notifier notify.Notifier
	counter  atomic.Uint64
	pending  map[int64]exchange.OrderInfo
}

// NewManager binds a manager to an exchange client.
func NewManager(client exchange.Client, notifier notify.Notifier) *Manager {
	if notifier == nil {
		notifier = notify.LogNotifier{}
	}
	return &Manager{
		client:   client,
		notifier: notifier,
		pending:  make(map[int64]exchange.OrderInfo),
	}
}

// QuantityStep returns the rounding step for a price magnitude.
func QuantityStep(price float64) float64 {
	switch {
	case price >= 10_000:
		return 0.001
	case price >= 1_000:
		return 0.01
	case price >= 100:
		return 0.1
	case price >= 10:
		return 1
	default:
		return 10
	}
}

// RoundQuantity floors a raw quantity onto the instrument step and bumps
// it up to the minimum notional. It refuses quantities whose notional
// exceeds the safety ceiling.
func RoundQuantity(rawQty, price float64) (float64, error) {
	if price <= 0 {
		return 0, exception.ErrOrderInvalidPrice
	}
	step := QuantityStep(price)
	qty := math.Floor(rawQty/step) * step
	if qty*price < MinNotionalUSD {
		qty = math.Ceil(MinNotionalUSD/price/step) * step
	}
	if qty*price > MaxNotionalUSD {
		return 0, exception.ErrOrderNotionalExceeded
	}
	return qty, nil
}

// RoundPrice rounds a protective price onto the venue tick.
func RoundPrice(price float64) float64 {
	return math.Round(price/priceStep) * priceStep
}

// PlaceBracket places an entry market order plus reduce-only stop-loss and
// take-profit legs. The raw quantity is rounded here; a notional above the
// safety ceiling aborts before anything reaches the venue.
func (m *Manager) PlaceBracket(symbol schema.Symbol, side schema.OrderSide, rawQty, entryPrice, slPrice, tpPrice float64) (BracketResult, error) {
	var result BracketResult

	qty, err := RoundQuantity(rawQty, entryPrice)
	if err != nil {
		if err == exception.ErrOrderNotionalExceeded {
			m.notifier.Notify(notify.SeverityCritical, "order notional safety limit",
				fmt.Sprintf("refused %s %s qty=%.6f price=%.2f notional=%.2f", symbol, side, rawQty, entryPrice, rawQty*entryPrice))
		}
		return result, err
	}

	entry, err := m.placeOrder(exchange.OrderRequest{
		Symbol:        symbol,
		Side:          side,
		Type:          schema.OrderTypeMarket,
		Quantity:      qty,
		ClientOrderID: m.nextClientOrderID(),
	})
	if err != nil || entry == nil {
		logs.Errorf("bracket entry failed: %+v", err)
		return result, exception.ErrOrderEntryFailed
	}
	result.Entry = entry

	closeSide := side.Opposite()

	sl, err := m.placeOrder(exchange.OrderRequest{
		Symbol:        symbol,
		Side:          closeSide,
		Type:          schema.OrderTypeStopMarket,
		Quantity:      qty,
		StopPrice:     RoundPrice(slPrice),
		ReduceOnly:    true,
		ClientOrderID: m.nextClientOrderID() + "_SL",
	})
	if err != nil || sl == nil {
		logs.Errorf("stop-loss placement failed: %+v", err)
	} else {
		result.StopLoss = sl
	}

	tp, err := m.placeOrder(exchange.OrderRequest{
		Symbol:        symbol,
		Side:          closeSide,
		Type:          schema.OrderTypeTakeProfitMarket,
		Quantity:      qty,
		StopPrice:     RoundPrice(tpPrice),
		ReduceOnly:    true,
		ClientOrderID: m.nextClientOrderID() + "_TP",
	})
	if err != nil || tp == nil {
		logs.Errorf("take-profit placement failed: %+v", err)
	} else {
		result.TakeProfit = tp
	}

	if !result.Complete() {
		m.notifier.Notify(notify.SeverityWarn, "bracket incomplete",
			fmt.Sprintf("%s %s missing protective leg (sl=%v tp=%v)", symbol, side, result.StopLoss != nil, result.TakeProfit != nil))
	}
	return result, nil
}

// PlaceMarket places a plain market order.
func (m *Manager) PlaceMarket(symbol schema.Symbol, side schema.OrderSide, qty float64) (*exchange.OrderInfo, error) {
	if qty <= 0 {
		return nil, exception.ErrOrderInvalidQuantity
	}
	return m.placeOrder(exchange.OrderRequest{
		Symbol:        symbol,
		Side:          side,
		Type:          schema.OrderTypeMarket,
		Quantity:      qty,
		ClientOrderID: m.nextClientOrderID(),
	})
}

// PlaceLimit places a GTC limit order.
func (m *Manager) PlaceLimit(symbol schema.Symbol, side schema.OrderSide, qty, price float64) (*exchange.OrderInfo, error) {
	if qty <= 0 {
		return nil, exception.ErrOrderInvalidQuantity
	}
	if price <= 0 {
		return nil, exception.ErrOrderInvalidPrice
	}
	return m.placeOrder(exchange.OrderRequest{
		Symbol:        symbol,
		Side:          side,
		Type:          schema.OrderTypeLimit,
		TimeInForce:   schema.TimeInForceGTC,
		Quantity:      qty,
		Price:         price,
		ClientOrderID: m.nextClientOrderID(),
	})
}

// Cancel cancels one order and forgets it.
func (m *Manager) Cancel(symbol schema.Symbol, orderID int64) error {
	if err := m.client.CancelOrder(symbol, orderID); err != nil {
		return err
	}
	delete(m.pending, orderID)
	return nil
}

// CancelAll cancels every open order for the symbol.
func (m *Manager) CancelAll(symbol schema.Symbol) error {
	if err := m.client.CancelAllOrders(symbol); err != nil {
		return err
	}
	m.pending = make(map[int64]exchange.OrderInfo)
	return nil
}

// PendingOrders returns the locally tracked open orders.
func (m *Manager) PendingOrders() []exchange.OrderInfo {
	out := make([]exchange.OrderInfo, 0, len(m.pending))
	for _, info := range m.pending {
		out = append(out, info)
	}
	return out
}

func (m *Manager) placeOrder(req exchange.OrderRequest) (*exchange.OrderInfo, error) {
	info, err := m.client.PlaceOrder(req)
	if err != nil {
		return nil, err
	}
	if info != nil {
		m.pending[info.OrderID] = *info
	}
	return info, nil
}

func (m *Manager) nextClientOrderID() string {
	return fmt.Sprintf("opus_%d", m.counter.Add(1))
}
