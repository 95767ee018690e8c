package exchange

import (
	"sync"
	"sync/atomic"

	"main/internal/schema"
	"main/pkg/exception"
)

// Mock is a scripted in-memory client for tests and paper runs.
// Handlers can be swapped per call; unset handlers fall back to benign
// defaults that accept every order.
type Mock struct {
	mu sync.Mutex

	PlaceOrderFn    func(req OrderRequest) (*OrderInfo, error)
	PositionsFn     func() ([]PositionInfo, error)
	AccountTradesFn func(symbol schema.Symbol, limit int) ([]TradeInfo, error)
	AccountInfoFn   func() (*AccountInfo, error)

	placed    []OrderRequest
	canceled  []int64
	depthCbs  map[schema.Symbol]DepthCallback
	onError   ErrorCallback
	onRecon   func()
	onWsConn  func()
	started   atomic.Bool
	nextOrder atomic.Int64
}

// NewMock creates an idle mock client.
func NewMock() *Mock {
	return &Mock{depthCbs: make(map[schema.Symbol]DepthCallback)}
}

func (m *Mock) AccountInfo() (*AccountInfo, error) {
	if m.AccountInfoFn != nil {
		return m.AccountInfoFn()
	}
	return &AccountInfo{TotalWalletBalance: 10_000, AvailableBalance: 10_000}, nil
}

func (m *Mock) Positions() ([]PositionInfo, error) {
	if m.PositionsFn != nil {
		return m.PositionsFn()
	}
	return nil, nil
}

func (m *Mock) AccountTrades(symbol schema.Symbol, limit int) ([]TradeInfo, error) {
	if m.AccountTradesFn != nil {
		return m.AccountTradesFn(symbol, limit)
	}
	return nil, nil
}

func (m *Mock) PlaceOrder(req OrderRequest) (*OrderInfo, error) {
	m.mu.Lock()
	m.placed = append(m.placed, req)
	m.mu.Unlock()

	if m.PlaceOrderFn != nil {
		return m.PlaceOrderFn(req)
	}
	return &OrderInfo{
		OrderID:       m.nextOrder.Add(1),
		ClientOrderID: req.ClientOrderID,
		Symbol:        req.Symbol,
		Side:          req.Side,
		Type:          req.Type,
		Status:        schema.OrderStatusNew,
		Price:         req.Price,
		AvgPrice:      req.Price,
		OrigQuantity:  req.Quantity,
	}, nil
}

func (m *Mock) CancelOrder(_ schema.Symbol, orderID int64) error {
	m.mu.Lock()
	m.canceled = append(m.canceled, orderID)
	m.mu.Unlock()
	return nil
}

func (m *Mock) CancelAllOrders(schema.Symbol) error { return nil }

func (m *Mock) SetLeverage(schema.Symbol, int) error { return nil }

func (m *Mock) SubscribeDepth(symbol schema.Symbol, cb DepthCallback) error {
	if cb == nil {
		return exception.ErrExchangeNilCallback
	}
	m.mu.Lock()
	m.depthCbs[symbol] = cb
	m.mu.Unlock()
	return nil
}

func (m *Mock) Start() error {
	m.started.Store(true)
	if m.onWsConn != nil {
		m.onWsConn()
	}
	return nil
}

func (m *Mock) Stop() { m.started.Store(false) }
func (m *Mock) Connected() bool { return m.started.Load() }
func (m *Mock) OnReconnect(f func()) { m.onRecon = f }
func (m *Mock) OnWsConnect(f func()) { m.onWsConn = f }
func (m *Mock) OnError(f ErrorCallback) { m.onError = f }

// EmitDepth drives a subscribed callback, standing in for the ingest thread.
func (m *Mock) EmitDepth(update DepthUpdate) {
	m.mu.Lock()
	cb := m.depthCbs[update.Symbol]
	m.mu.Unlock()
	if cb != nil {
		cb(update)
	}
}

// PlacedOrders returns a copy of every order request seen so far.
func (m *Mock) PlacedOrders() []OrderRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]OrderRequest, len(m.placed))
	copy(out, m.placed)
	return out
}

// CanceledOrders returns the order ids passed to CancelOrder.
func (m *Mock) CanceledOrders() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]int64, len(m.canceled))
	copy(out, m.canceled)
	return out
}

var _ Client = (*Mock)(nil)
