package exchange

import "main/internal/schema"

// DepthCallback receives depth updates on the ingest thread. It must stay
// wait-free: pack and hand off, never run strategy logic.
type DepthCallback func(DepthUpdate)

// ErrorCallback receives transport-level errors.
type ErrorCallback func(error)

// Client is the contract the engine binds against. The real venue client
// and the scripted mock both satisfy it.
type Client interface {
	// Account and trading. All calls are synchronous and may block.
	AccountInfo() (*AccountInfo, error)
	Positions() ([]PositionInfo, error)
	AccountTrades(symbol schema.Symbol, limit int) ([]TradeInfo, error)
	PlaceOrder(req OrderRequest) (*OrderInfo, error)
	CancelOrder(symbol schema.Symbol, orderID int64) error
	CancelAllOrders(symbol schema.Symbol) error
	SetLeverage(symbol schema.Symbol, leverage int) error

	// Market data subscription. The callback fires on the ingest thread.
	SubscribeDepth(symbol schema.Symbol, cb DepthCallback) error

	// Connection lifecycle.
	Start() error
	Stop()
	Connected() bool
	OnReconnect(func())
	OnWsConnect(func())
	OnError(ErrorCallback)
}
