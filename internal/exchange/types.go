package exchange

import "main/internal/schema"

// AccountInfo is the futures account summary.
type AccountInfo struct {
	TotalWalletBalance    float64
	AvailableBalance      float64
	TotalUnrealizedProfit float64
	TotalMarginBalance    float64
}

// PositionInfo is one open position as reported by the venue.
// Quantity is signed: positive long, negative short.
type PositionInfo struct {
	Symbol           schema.Symbol
	Quantity         float64
	EntryPrice       float64
	UnrealizedProfit float64
	Leverage         float64
	LiquidationPrice float64
}

// TradeInfo is one account trade (a fill) as reported by the venue.
type TradeInfo struct {
	Symbol      schema.Symbol
	TradeID     int64
	OrderID     int64
	Side        schema.OrderSide
	Price       float64
	Quantity    float64
	RealizedPnl float64
	Commission  float64
	TimeMs      int64
}

// OrderInfo is the venue's acknowledgment of an order.
type OrderInfo struct {
	OrderID       int64
	ClientOrderID string
	Symbol        schema.Symbol
	Side          schema.OrderSide
	Type          schema.OrderType
	Status        schema.OrderStatus
	Price         float64
	AvgPrice      float64
	OrigQuantity  float64
	ExecutedQty   float64
	UpdateTimeMs  int64
}

// OrderRequest describes an order to place. Prices and quantities are
// floats because this is the display/wire boundary; all rounding happens
// before the request is built.
type OrderRequest struct {
	Symbol        schema.Symbol
	Side          schema.OrderSide
	PositionSide  schema.PositionSide
	Type          schema.OrderType
	TimeInForce   schema.TimeInForce
	Quantity      float64
	Price         float64
	StopPrice     float64
	ClientOrderID string
	ReduceOnly    bool
	ClosePosition bool
}

// DepthUpdate is a decoded depth message, already converted to fixed
// point. Slices are owned by the ingest path; the publisher packs them
// into a trivially-copyable event before they cross threads.
type DepthUpdate struct {
	Symbol       schema.Symbol
	LastUpdateID uint64
	EventTimeMs  int64
	Bids         []schema.PriceLevel
	Asks         []schema.PriceLevel
}
